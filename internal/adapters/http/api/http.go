// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/takumisawano-hash/dodo-demo-sub000/internal/domain/model"
)

// SyncDependencies covers the write side of the API.
type SyncDependencies interface {
	// SeenRequest records a client request id and reports whether it was
	// already processed.
	SeenRequest(ctx context.Context, id string) bool
	UnrecordRequest(ctx context.Context, id string)

	HasInputType(inputType string) bool
	SyncDataAcrossAgents(ctx context.Context, userID, inputType string, data map[string]any) model.SyncResult
	BatchSync(ctx context.Context, userID string, inputs []model.Input) model.BatchResult
}

// ReportDependencies covers the read side of the API.
type ReportDependencies interface {
	GetUnifiedMetrics(ctx context.Context, userID string) (model.UnifiedReport, error)
	GetWeeklyTrend(ctx context.Context, userID string, days int) (model.TrendReport, error)
	GetAgentData(ctx context.Context, userID, agentID string) ([]model.AgentEvent, error)
	InsightsForAgent(ctx context.Context, userID, agentID string) ([]model.Insight, error)
}

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	SyncDependencies
	ReportDependencies
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler *HealthHandler
	statsHandler  *StatsHandler
	syncHandler   *SyncHandler
	userHandler   *UserHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, maxBatchSize int) *Server {
	return &Server{
		healthHandler: NewHealthHandler(),
		statsHandler:  NewStatsHandler(statsProvider),
		syncHandler:   NewSyncHandler(deps, maxBatchSize),
		userHandler:   NewUserHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("POST /v1/sync", MetricsMiddleware(s.syncHandler.HandlePostSync, "sync"))
	mux.HandleFunc("POST /v1/sync/batch", MetricsMiddleware(s.syncHandler.HandlePostBatch, "sync_batch"))
	mux.HandleFunc("GET /v1/users/{user}/metrics", MetricsMiddleware(s.userHandler.HandleGetMetrics, "user_metrics"))
	mux.HandleFunc("GET /v1/users/{user}/trend", MetricsMiddleware(s.userHandler.HandleGetTrend, "user_trend"))
	mux.HandleFunc("GET /v1/users/{user}/agents/{agent}/events", MetricsMiddleware(s.userHandler.HandleGetAgentEvents, "agent_events"))
	mux.HandleFunc("GET /v1/users/{user}/insights", MetricsMiddleware(s.userHandler.HandleGetInsights, "user_insights"))
}

type ackResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
