package handler

import (
	"log/slog"
	"net/http"
)

// BotHandler serves bot control requests.
type BotHandler struct {
	bots   *Bots
	logger *slog.Logger
}

// NewBotHandler creates a BotHandler.
func NewBotHandler(bots *Bots, logger *slog.Logger) *BotHandler {
	return &BotHandler{bots: bots, logger: logger}
}

// StopBot requests a graceful stop. The bot finishes its current iteration
// and drains; the response does not wait for that.
// POST /api/bots/{name}/stop
func (h *BotHandler) StopBot(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	b, ok := h.bots.Get(name)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown bot "+name)
		return
	}
	h.logger.Info("stop requested via api", slog.String("bot", name), slog.String("remote_addr", r.RemoteAddr))
	b.Stop("ops api")
	writeJSON(w, http.StatusAccepted, map[string]any{
		"name":  name,
		"state": b.Status().State.String(),
	})
}
