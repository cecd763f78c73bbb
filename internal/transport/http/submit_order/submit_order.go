package submitorder

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/orderdesk/fulfillment/internal/service/errs"
	"github.com/orderdesk/fulfillment/internal/service/models/order"
	"github.com/orderdesk/fulfillment/internal/service/services/ordersvc"
	"github.com/orderdesk/fulfillment/internal/transport/http/middleware/auth"
)

// service is an interface for the service layer.
type service interface {
	SubmitOrder(
		ctx context.Context,
		userID int64,
		items []ordersvc.CartItem,
		info ordersvc.BillingInfo,
	) (*order.Order, error)
}

// itemInSubmitRequest represents one cart line in a submit request.
type itemInSubmitRequest struct {
	SKU           string `json:"sku"           validate:"required"`
	Description   string `json:"description"`
	Quantity      int    `json:"quantity"      validate:"required,gt=0"`
	UnitCostCents int64  `json:"unitCostCents" validate:"gte=0"`
}

// cartInSubmitRequest represents the cart in a submit request.
type cartInSubmitRequest struct {
	Items         []itemInSubmitRequest `json:"items" validate:"required,min=1,dive"`
	ExtraCartInfo string                `json:"extraCartInfo"`
}

// billingInSubmitRequest represents the billing payload.
type billingInSubmitRequest struct {
	Email          string `json:"email"          validate:"required,email"`
	Organization   string `json:"organization"   validate:"required"`
	Address        string `json:"address"        validate:"required,min=10"`
	BusinessNumber string `json:"businessNumber" validate:"required,len=11,numeric"`
}

// submitOrderRequest represents a submit order request.
type submitOrderRequest struct {
	Cart        cartInSubmitRequest    `json:"cart"`
	BillingInfo billingInSubmitRequest `json:"billingInfo"`
}

// Validate validates the submit order request and returns per-field
// messages.
func (r *submitOrderRequest) Validate() map[string]string {
	err := validator.New().Struct(r)
	if err == nil {
		return nil
	}

	fields := map[string]string{}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			// Strip the request type prefix from the namespace.
			name := fe.Namespace()
			if idx := strings.Index(name, "."); idx >= 0 {
				name = name[idx+1:]
			}
			fields[name] = messageFor(fe)
		}
	} else {
		fields["request"] = err.Error()
	}

	return fields
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		if fe.Kind().String() == "slice" {
			return "must contain at least " + fe.Param() + " item(s)"
		}

		return "must be at least " + fe.Param() + " characters"
	case "len":
		return "must be exactly " + fe.Param() + " characters"
	case "numeric":
		return "must contain only digits"
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must not be negative"
	default:
		return "is invalid"
	}
}

func (r *submitOrderRequest) toModel() ([]ordersvc.CartItem, ordersvc.BillingInfo) {
	items := make([]ordersvc.CartItem, len(r.Cart.Items))
	for i, item := range r.Cart.Items {
		items[i] = ordersvc.CartItem{
			SKU:           item.SKU,
			Description:   item.Description,
			Quantity:      item.Quantity,
			UnitCostCents: item.UnitCostCents,
		}
	}

	return items, ordersvc.BillingInfo{
		Email:          r.BillingInfo.Email,
		Organization:   r.BillingInfo.Organization,
		Address:        r.BillingInfo.Address,
		BusinessNumber: r.BillingInfo.BusinessNumber,
	}
}

// submitOrderResponse is the created-order payload.
type submitOrderResponse struct {
	OrderID string `json:"orderId"`
	ID      int64  `json:"id"`
}

func writeFieldErrors(w http.ResponseWriter, fields map[string]string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	_ = json.NewEncoder(w).Encode(map[string]any{"errors": fields})
}

// SubmitOrder handles the submit order request.
func SubmitOrder(w http.ResponseWriter, r *http.Request, service service) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)

		return
	}

	req := submitOrderRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		slog.Error("Error decoding submit order request", "error", err)

		return
	}

	if fields := req.Validate(); fields != nil {
		writeFieldErrors(w, fields)
		slog.Info("Rejected invalid submit order request", "fields", fields)

		return
	}

	items, info := req.toModel()
	ord, err := service.SubmitOrder(r.Context(), userID, items, info)
	if err != nil {
		var verr *errs.ValidationError
		if errors.As(err, &verr) {
			writeFieldErrors(w, verr.Fields)

			return
		}

		http.Error(w, "internal error", http.StatusInternalServerError)
		slog.Error("Error submitting order", "error", err)

		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(submitOrderResponse{
		OrderID: ord.OrderID,
		ID:      ord.ID,
	}); err != nil {
		slog.Error("Error sending submit order response", "error", err)
	}
}
