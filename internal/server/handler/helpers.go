// Package handler implements the ops API endpoints.
package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/alanyoungcy/orderbot/internal/bot"
	"github.com/alanyoungcy/orderbot/internal/domain"
)

// BotView is what the ops API reads from, and the one thing it can do to, a
// running bot.
type BotView interface {
	Name() string
	Status() bot.Status
	Positions() []domain.Position
	Stale() bool
	LastHeartbeat() time.Time
	Stop(reason string)
}

// Bots indexes bot views by name, keeping declaration order for listings.
type Bots struct {
	order  []BotView
	byName map[string]BotView
}

// NewBots builds the index.
func NewBots(views ...BotView) *Bots {
	b := &Bots{byName: make(map[string]BotView, len(views))}
	for _, v := range views {
		b.order = append(b.order, v)
		b.byName[v.Name()] = v
	}
	return b
}

// All returns every bot in declaration order.
func (b *Bots) All() []BotView { return b.order }

// Get finds a bot by name.
func (b *Bots) Get(name string) (BotView, bool) {
	v, ok := b.byName[name]
	return v, ok
}

// writeJSON marshals v as JSON and writes it to the response with the given
// HTTP status code. If marshaling fails, it falls back to a plain-text 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError sends a JSON-formatted error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// parseLimit reads ?limit=, defaulting to 50 and capping at 500.
func parseLimit(r *http.Request) int {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	return min(limit, 500)
}
