package handler

import (
	"net/http"
	"time"

	"github.com/alanyoungcy/orderbot/internal/bot"
	"github.com/alanyoungcy/orderbot/internal/domain"
)

// Info is the process-level part of the status payload.
type Info struct {
	Environment domain.Environment `json:"environment"`
	Mainnet     bool               `json:"mainnet"`
	StartedAt   time.Time          `json:"started_at"`
}

// StatusHandler serves per-bot state and counters.
type StatusHandler struct {
	bots *Bots
	info Info
}

// NewStatusHandler creates a StatusHandler.
func NewStatusHandler(bots *Bots, info Info) *StatusHandler {
	return &StatusHandler{bots: bots, info: info}
}

// GetStatus responds with the process info and the status of every bot.
// GET /api/status
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	statuses := make([]bot.Status, 0, len(h.bots.All()))
	for _, b := range h.bots.All() {
		statuses = append(statuses, b.Status())
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"environment":    h.info.Environment,
		"mainnet":        h.info.Mainnet,
		"started_at":     h.info.StartedAt,
		"uptime_seconds": int64(time.Since(h.info.StartedAt).Seconds()),
		"bots":           statuses,
	})
}
