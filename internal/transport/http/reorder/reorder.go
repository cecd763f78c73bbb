package reorder

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/orderdesk/fulfillment/internal/service/errs"
	"github.com/orderdesk/fulfillment/internal/service/models/billing"
	"github.com/orderdesk/fulfillment/internal/service/models/order"
	"github.com/orderdesk/fulfillment/internal/service/models/orderitem"
	"github.com/orderdesk/fulfillment/internal/transport/http/middleware/auth"
)

type service interface {
	Reorder(ctx context.Context, userID int64, orderID string) (*order.Order, error)
}

// reorderResponse returns the cart contents and billing snapshot so
// the client can populate a new draft order.
type reorderResponse struct {
	OrderID string                `json:"orderId"`
	Items   []orderitem.OrderItem `json:"items"`
	Billing *billing.Snapshot     `json:"billing"`
}

// Reorder returns an owned order's cart and billing snapshot.
func Reorder(w http.ResponseWriter, r *http.Request, service service) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)

		return
	}

	orderID := chi.URLParam(r, "orderId")
	ord, err := service.Reorder(r.Context(), userID, orderID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			http.Error(w, "order not found", http.StatusNotFound)

			return
		}

		http.Error(w, "internal error", http.StatusInternalServerError)
		slog.Error("Error fetching order for reorder", "order_id", orderID, "error", err)

		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(reorderResponse{
		OrderID: ord.OrderID,
		Items:   ord.OrderItems,
		Billing: ord.Billing,
	}); err != nil {
		slog.Error("Error sending reorder response", "error", err)
	}
}
