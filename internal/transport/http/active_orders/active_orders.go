package activeorders

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/orderdesk/fulfillment/internal/service/models/order"
	"github.com/orderdesk/fulfillment/internal/transport/http/middleware/auth"
)

type service interface {
	ActiveOrders(ctx context.Context, userID int64) ([]order.Order, error)
}

type activeOrdersResponse struct {
	Data []order.Order `json:"data"`
}

// ActiveOrders returns the caller's not-yet-delivered orders.
func ActiveOrders(w http.ResponseWriter, r *http.Request, service service) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)

		return
	}

	orders, err := service.ActiveOrders(r.Context(), userID)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		slog.Error("Error listing active orders", "error", err)

		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(activeOrdersResponse{Data: orders}); err != nil {
		slog.Error("Error sending active orders response", "error", err)
	}
}
