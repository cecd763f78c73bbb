package recentorders

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/schema"
	"github.com/orderdesk/fulfillment/internal/service/models/invoice"
	"github.com/orderdesk/fulfillment/internal/transport/http/middleware/auth"
)

type service interface {
	RecentOrders(ctx context.Context, userID int64, limit int) ([]invoice.RecentOrder, error)
}

type recentOrdersRequest struct {
	Limit int `schema:"limit,omitempty"`
}

type recentOrdersResponse struct {
	Data []invoice.RecentOrder `json:"data"`
}

// RecentOrders returns a dashboard view of the caller's latest orders.
func RecentOrders(w http.ResponseWriter, r *http.Request, service service) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)

		return
	}

	query := &recentOrdersRequest{Limit: 5}
	if err := schema.NewDecoder().Decode(query, r.URL.Query()); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		slog.Error("Error decoding recent orders request", "error", err)

		return
	}

	recent, err := service.RecentOrders(r.Context(), userID, query.Limit)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		slog.Error("Error listing recent orders", "error", err)

		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(recentOrdersResponse{Data: recent}); err != nil {
		slog.Error("Error sending recent orders response", "error", err)
	}
}
