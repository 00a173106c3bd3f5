package api

import (
	"maps"
	"net/http"
	"time"
)

// StatsProvider reports the sync service counters served on /stats.
type StatsProvider interface {
	GetStats() map[string]interface{}
}

// StatsHandler serves the service counters plus process uptime.
type StatsHandler struct {
	provider StatsProvider
	started  time.Time
	now      func() time.Time
}

// NewStatsHandler creates a stats handler whose uptime starts now.
func NewStatsHandler(provider StatsProvider) *StatsHandler {
	return &StatsHandler{provider: provider, started: time.Now(), now: time.Now}
}

// HandleStats handles GET /stats.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, _ *http.Request) {
	// The provider's map may be shared; never write into it.
	stats := maps.Clone(h.provider.GetStats())
	if stats == nil {
		stats = make(map[string]interface{}, 1)
	}
	stats["uptime_seconds"] = int64(h.now().Sub(h.started).Seconds())
	writeJSON(w, http.StatusOK, stats)
}
