package handler

import (
	"net/http"

	"github.com/alanyoungcy/orderbot/internal/domain"
)

// PositionHandler serves ledger positions.
type PositionHandler struct {
	bots *Bots
}

// NewPositionHandler creates a PositionHandler.
func NewPositionHandler(bots *Bots) *PositionHandler {
	return &PositionHandler{bots: bots}
}

// ListPositions returns positions keyed by bot, optionally for one bot.
// GET /api/positions?bot=btc
func (h *PositionHandler) ListPositions(w http.ResponseWriter, r *http.Request) {
	out := map[string][]domain.Position{}
	if name := r.URL.Query().Get("bot"); name != "" {
		b, ok := h.bots.Get(name)
		if !ok {
			writeError(w, http.StatusNotFound, "unknown bot "+name)
			return
		}
		out[name] = nonNil(b.Positions())
	} else {
		for _, b := range h.bots.All() {
			out[b.Name()] = nonNil(b.Positions())
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"positions": out})
}

func nonNil(p []domain.Position) []domain.Position {
	if p == nil {
		return []domain.Position{}
	}
	return p
}
