package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/orderdesk/fulfillment/internal/service/models/invoice"
	"github.com/orderdesk/fulfillment/internal/service/models/order"
	"github.com/orderdesk/fulfillment/internal/service/services/ordersvc"
	activeorders "github.com/orderdesk/fulfillment/internal/transport/http/active_orders"
	"github.com/orderdesk/fulfillment/internal/transport/http/document"
	listorders "github.com/orderdesk/fulfillment/internal/transport/http/list_orders"
	authmw "github.com/orderdesk/fulfillment/internal/transport/http/middleware/auth"
	recentorders "github.com/orderdesk/fulfillment/internal/transport/http/recent_orders"
	"github.com/orderdesk/fulfillment/internal/transport/http/reorder"
	submitorder "github.com/orderdesk/fulfillment/internal/transport/http/submit_order"
	"github.com/orderdesk/fulfillment/pkg/http/middleware/trace"
	"github.com/orderdesk/fulfillment/pkg/logger"
	"github.com/spf13/viper"
)

type service interface {
	SubmitOrder(
		ctx context.Context,
		userID int64,
		items []ordersvc.CartItem,
		info ordersvc.BillingInfo,
	) (*order.Order, error)
	ListInvoices(ctx context.Context, userID int64) ([]invoice.Invoice, error)
	ActiveOrders(ctx context.Context, userID int64) ([]order.Order, error)
	RecentOrders(ctx context.Context, userID int64, limit int) ([]invoice.RecentOrder, error)
	Reorder(ctx context.Context, userID int64, orderID string) (*order.Order, error)
	CheckDocument(ctx context.Context, userID int64, orderID string) error
	DocumentURL(ctx context.Context, userID int64, orderID string) (string, error)
}

type HTTPTransport struct {
	server  *http.Server
	router  *chi.Mux
	service service
}

func NewHTTPTransport(service service) *HTTPTransport {
	router := newRouter()
	server := newServer(router)
	return &HTTPTransport{
		server:  server,
		router:  router,
		service: service,
	}
}

func (h *HTTPTransport) Run() error {
	return h.server.ListenAndServe()
}

func (h *HTTPTransport) Shutdown(ctx context.Context) error {
	return h.server.Shutdown(ctx)
}

// RegisterRoutes registers the routes for the HTTPTransport.
func (h *HTTPTransport) RegisterRoutes() {
	h.router.Route("/api", func(r chi.Router) {
		r.Use(authmw.RequireUser)

		r.Post("/orders", h.submitOrder)
		r.Get("/orders", h.listOrders)
		r.Get("/orders/active", h.activeOrders)
		r.Get("/orders/recent", h.recentOrders)
		r.Post("/orders/{orderId}/reorder", h.reorder)

		r.Get("/pdf", h.fetchDocument)
		r.Post("/pdf", h.fetchDocument)
		r.Head("/pdf", h.checkDocument)
	})
}

func (h *HTTPTransport) submitOrder(w http.ResponseWriter, r *http.Request) {
	submitorder.SubmitOrder(w, r, h.service)
}

func (h *HTTPTransport) listOrders(w http.ResponseWriter, r *http.Request) {
	listorders.ListOrders(w, r, h.service)
}

func (h *HTTPTransport) activeOrders(w http.ResponseWriter, r *http.Request) {
	activeorders.ActiveOrders(w, r, h.service)
}

func (h *HTTPTransport) recentOrders(w http.ResponseWriter, r *http.Request) {
	recentorders.RecentOrders(w, r, h.service)
}

func (h *HTTPTransport) reorder(w http.ResponseWriter, r *http.Request) {
	reorder.Reorder(w, r, h.service)
}

func (h *HTTPTransport) fetchDocument(w http.ResponseWriter, r *http.Request) {
	document.Fetch(w, r, h.service)
}

func (h *HTTPTransport) checkDocument(w http.ResponseWriter, r *http.Request) {
	document.Check(w, r, h.service)
}

func newRouter() *chi.Mux {
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(trace.NewTraceMiddleware)
	router.Use(logger.NewLoggerMiddleware(slog.Default()))

	c := cors.New(cors.Options{
		AllowedOrigins:   viper.GetStringSlice("server.http.cors.allowed_origins"),
		AllowedMethods:   viper.GetStringSlice("server.http.cors.allowed_methods"),
		AllowedHeaders:   viper.GetStringSlice("server.http.cors.allowed_headers"),
		ExposedHeaders:   viper.GetStringSlice("server.http.cors.exposed_headers"),
		AllowCredentials: viper.GetBool("server.http.cors.allow_credentials"),
		MaxAge:           viper.GetInt("server.http.cors.max_age"),
	})

	router.Use(c.Handler)

	return router
}

func newServer(router http.Handler) *http.Server {
	return &http.Server{
		Addr:    "0.0.0.0:" + viper.GetString("server.http.port"),
		Handler: router,
	}
}
