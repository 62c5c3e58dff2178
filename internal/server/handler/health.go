package handler

import (
	"log/slog"
	"net/http"
	"time"
)

// HealthHandler serves the heartbeat check.
type HealthHandler struct {
	bots   *Bots
	logger *slog.Logger
	now    func() time.Time
}

// NewHealthHandler creates a HealthHandler.
func NewHealthHandler(bots *Bots, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{bots: bots, logger: logger, now: time.Now}
}

type botHealth struct {
	Name          string    `json:"name"`
	State         string    `json:"state"`
	LastHeartbeat time.Time `json:"last_heartbeat"`
	Stale         bool      `json:"stale"`
}

// HealthCheck reports heartbeat freshness per bot and answers 503 when any
// bot's heartbeat is stale.
// GET /api/health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status, code := "ok", http.StatusOK
	bots := make([]botHealth, 0, len(h.bots.All()))
	for _, b := range h.bots.All() {
		bh := botHealth{
			Name:          b.Name(),
			State:         b.Status().State.String(),
			LastHeartbeat: b.LastHeartbeat(),
			Stale:         b.Stale(),
		}
		if bh.Stale {
			status, code = "stale", http.StatusServiceUnavailable
		}
		bots = append(bots, bh)
	}
	if code != http.StatusOK {
		h.logger.Warn("health check failing", slog.Any("bots", bots))
	}
	writeJSON(w, code, map[string]any{
		"status":    status,
		"timestamp": h.now().UTC().Format(time.RFC3339),
		"bots":      bots,
	})
}
