package handlers

import (
	"net/http"
	"time"

	"github.com/deskroute/deskroute/internal/store"
)

// ChannelStatsResponse is the per-channel analytics view over the last
// 24 hours.
type ChannelStatsResponse struct {
	Channels  []store.ChannelMetric `json:"channels"`
	Window    string                `json:"window"`
	Timestamp string                `json:"timestamp"`
}

// ChannelStats handles GET /metrics/channels.
func (h *Handler) ChannelStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.pg.ChannelMetrics(r.Context())
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "stats query failed")
		return
	}

	h.JSON(w, http.StatusOK, ChannelStatsResponse{
		Channels:  stats,
		Window:    "24h",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}
