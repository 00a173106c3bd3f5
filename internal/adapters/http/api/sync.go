package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/takumisawano-hash/dodo-demo-sub000/internal/domain/model"
	"github.com/takumisawano-hash/dodo-demo-sub000/pkg/logger"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// syncRequest is the body of POST /v1/sync.
type syncRequest struct {
	RequestID string         `json:"request_id"`
	UserID    string         `json:"user_id"`
	Type      string         `json:"type"`
	Data      map[string]any `json:"data"`
}

func (r syncRequest) validate() error {
	switch {
	case strings.TrimSpace(r.UserID) == "":
		return errors.New("missing user_id")
	case strings.TrimSpace(r.Type) == "":
		return errors.New("missing type")
	}
	return nil
}

// batchRequest is the body of POST /v1/sync/batch.
type batchRequest struct {
	RequestID string        `json:"request_id"`
	UserID    string        `json:"user_id"`
	Inputs    []model.Input `json:"inputs"`
}

func (r batchRequest) validate() error {
	if strings.TrimSpace(r.UserID) == "" {
		return errors.New("missing user_id")
	}
	for i, in := range r.Inputs {
		if strings.TrimSpace(in.Type) == "" {
			return fmt.Errorf("inputs[%d]: missing type", i)
		}
	}
	return nil
}

// SyncHandler handles fan-out requests.
type SyncHandler struct {
	deps         SyncDependencies
	maxBatchSize int
}

// NewSyncHandler creates a new sync handler.
func NewSyncHandler(deps SyncDependencies, maxBatchSize int) *SyncHandler {
	return &SyncHandler{deps: deps, maxBatchSize: maxBatchSize}
}

// HandlePostSync handles POST /v1/sync requests.
func (h *SyncHandler) HandlePostSync(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_sync"
	var req syncRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	if req.RequestID != "" && h.deps.SeenRequest(r.Context(), req.RequestID) {
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", Duplicate: true})
		return
	}

	res := h.deps.SyncDataAcrossAgents(r.Context(), req.UserID, req.Type, req.Data)
	if res.Success {
		writeJSON(w, http.StatusOK, res)
		return
	}

	// Let the client retry a request that did not take effect.
	if req.RequestID != "" {
		h.deps.UnrecordRequest(r.Context(), req.RequestID)
	}
	status, err := http.StatusInternalServerError, WrapKind(op, ErrSyncFailed, errors.New(res.Error))
	if !h.deps.HasInputType(req.Type) {
		status, err = http.StatusUnprocessableEntity, NewKind(op, ErrUnknownInput)
	}
	logger.Get().Named("api").Warn(r.Context(), "sync rejected",
		logger.String("user_id", req.UserID),
		logger.String("input_type", req.Type),
		logger.Int("status", status),
		logger.Error(err))
	writeJSON(w, status, res)
}

// HandlePostBatch handles POST /v1/sync/batch requests.
func (h *SyncHandler) HandlePostBatch(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_sync_batch"
	var req batchRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if h.maxBatchSize > 0 && len(req.Inputs) > h.maxBatchSize {
		err := fmt.Errorf("%d inputs, limit is %d", len(req.Inputs), h.maxBatchSize)
		writeError(w, http.StatusBadRequest, "batch_too_large", WrapKind(op, ErrBatchTooLarge, err))
		return
	}

	if req.RequestID != "" && h.deps.SeenRequest(r.Context(), req.RequestID) {
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", Duplicate: true})
		return
	}

	res := h.deps.BatchSync(r.Context(), req.UserID, req.Inputs)
	writeJSON(w, http.StatusOK, res)
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return err
	}
	return nil
}
