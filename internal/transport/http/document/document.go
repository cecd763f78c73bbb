package document

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/orderdesk/fulfillment/internal/service/errs"
	"github.com/orderdesk/fulfillment/internal/transport/http/middleware/auth"
	"github.com/spf13/viper"
)

type service interface {
	CheckDocument(ctx context.Context, userID int64, orderID string) error
	DocumentURL(ctx context.Context, userID int64, orderID string) (string, error)
}

// isBrowser distinguishes interactive clients from API clients by the
// Accept header.
func isBrowser(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// failDocument renders an access failure: browsers get redirected to a
// generic page instead of seeing JSON.
func failDocument(w http.ResponseWriter, r *http.Request, status int, msg string) {
	if isBrowser(r) {
		http.Redirect(w, r, viper.GetString("server.http.not_found_url"), http.StatusFound)

		return
	}

	writeJSONError(w, status, msg)
}

// Fetch validates document access and redirects to a freshly
// cache-checked signed URL.
func Fetch(w http.ResponseWriter, r *http.Request, service service) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		failDocument(w, r, http.StatusUnauthorized, "unauthenticated")

		return
	}

	orderID := r.URL.Query().Get("orderId")
	if orderID == "" {
		failDocument(w, r, http.StatusBadRequest, "orderId is required")

		return
	}

	url, err := service.DocumentURL(r.Context(), userID, orderID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			failDocument(w, r, http.StatusNotFound, "document not found")

			return
		}

		slog.Error("Error resolving document url", "order_id", orderID, "error", err)
		failDocument(w, r, http.StatusInternalServerError, "internal error")

		return
	}

	http.Redirect(w, r, url, http.StatusFound)
}

// Check is the HEAD pre-flight: status codes only, no body.
func Check(w http.ResponseWriter, r *http.Request, service service) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		w.WriteHeader(http.StatusUnauthorized)

		return
	}

	orderID := r.URL.Query().Get("orderId")
	if orderID == "" {
		w.WriteHeader(http.StatusBadRequest)

		return
	}

	if err := service.CheckDocument(r.Context(), userID, orderID); err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			w.WriteHeader(http.StatusNotFound)

			return
		}

		slog.Error("Error checking document access", "order_id", orderID, "error", err)
		w.WriteHeader(http.StatusInternalServerError)

		return
	}

	w.WriteHeader(http.StatusOK)
}
