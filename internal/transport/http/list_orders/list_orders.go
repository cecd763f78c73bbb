package listorders

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/orderdesk/fulfillment/internal/service/models/invoice"
	"github.com/orderdesk/fulfillment/internal/transport/http/middleware/auth"
)

type service interface {
	ListInvoices(ctx context.Context, userID int64) ([]invoice.Invoice, error)
}

type listOrdersResponse struct {
	Data []invoice.Invoice `json:"data"`
}

// ListOrders returns the caller's orders as invoices, newest first.
func ListOrders(w http.ResponseWriter, r *http.Request, service service) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)

		return
	}

	invoices, err := service.ListInvoices(r.Context(), userID)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		slog.Error("Error listing invoices", "error", err)

		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(listOrdersResponse{Data: invoices}); err != nil {
		slog.Error("Error sending list orders response", "error", err)
	}
}
