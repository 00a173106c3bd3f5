package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/takumisawano-hash/dodo-demo-sub000/internal/domain/model"
)

// UserHandler serves per-user read endpoints.
type UserHandler struct {
	deps ReportDependencies
}

// NewUserHandler creates a new user handler.
func NewUserHandler(deps ReportDependencies) *UserHandler {
	return &UserHandler{deps: deps}
}

// HandleGetMetrics handles GET /v1/users/{user}/metrics.
func (h *UserHandler) HandleGetMetrics(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_metrics"
	report, err := h.deps.GetUnifiedMetrics(r.Context(), r.PathValue("user"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// HandleGetTrend handles GET /v1/users/{user}/trend?days=N. A missing days
// parameter selects the default window.
func (h *UserHandler) HandleGetTrend(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_trend"
	days := 0
	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errors.New("days must be a positive integer")))
			return
		}
		days = n
	}
	report, err := h.deps.GetWeeklyTrend(r.Context(), r.PathValue("user"), days)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// HandleGetAgentEvents handles GET /v1/users/{user}/agents/{agent}/events.
func (h *UserHandler) HandleGetAgentEvents(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_agent_events"
	events, err := h.deps.GetAgentData(r.Context(), r.PathValue("user"), r.PathValue("agent"))
	respond(w, op, events, err)
}

// HandleGetInsights handles GET /v1/users/{user}/insights?agent=.
func (h *UserHandler) HandleGetInsights(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_insights"
	insights, err := h.deps.InsightsForAgent(r.Context(), r.PathValue("user"), r.URL.Query().Get("agent"))
	respond(w, op, insights, err)
}

func respond[T model.AgentEvent | model.Insight](w http.ResponseWriter, op string, items []T, err error) {
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, context.Canceled) {
			status = http.StatusServiceUnavailable
		}
		writeError(w, status, "internal_error", Wrap(op, err))
		return
	}
	if items == nil {
		items = []T{}
	}
	writeJSON(w, http.StatusOK, items)
}
