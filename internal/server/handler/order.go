package handler

import (
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/orderbot/internal/domain"
)

// OrderHandler serves persisted orders.
type OrderHandler struct {
	orders domain.OrderLister
	logger *slog.Logger
}

// NewOrderHandler creates an OrderHandler. orders may be nil when the
// persistence backend cannot list.
func NewOrderHandler(orders domain.OrderLister, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{orders: orders, logger: logger}
}

// ListOrders returns the most recent orders, newest first.
// GET /api/orders?limit=50
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	if h.orders == nil {
		writeError(w, http.StatusNotImplemented, "order listing not supported by the persistence backend")
		return
	}
	recs, err := h.orders.ListRecent(r.Context(), parseLimit(r))
	if err != nil {
		h.logger.Error("list orders failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list orders")
		return
	}
	if recs == nil {
		recs = []domain.OrderRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": recs})
}
