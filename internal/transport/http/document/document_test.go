package document_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/orderdesk/fulfillment/internal/service/errs"
	"github.com/orderdesk/fulfillment/internal/transport/http/document"
	"github.com/orderdesk/fulfillment/internal/transport/http/middleware/auth"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeService struct {
	checkErr error
	url      string
	urlErr   error
}

func (s *fakeService) CheckDocument(ctx context.Context, userID int64, orderID string) error {
	return s.checkErr
}

func (s *fakeService) DocumentURL(ctx context.Context, userID int64, orderID string) (string, error) {
	if s.urlErr != nil {
		return "", s.urlErr
	}

	return s.url, nil
}

func fetchHandler(svc *fakeService) http.Handler {
	return auth.RequireUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		document.Fetch(w, r, svc)
	}))
}

func checkHandler(svc *fakeService) http.Handler {
	return auth.RequireUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		document.Check(w, r, svc)
	}))
}

func TestFetch_RedirectsToSignedURL(t *testing.T) {
	svc := &fakeService{url: "https://storage.example/invoices/x.pdf?sig=abc"}

	req := httptest.NewRequest(http.MethodGet, "/api/pdf?orderId=ORD-20250615120000-A1B2C", nil)
	req.Header.Set("X-User-ID", "42")
	rec := httptest.NewRecorder()

	fetchHandler(svc).ServeHTTP(rec, req)

	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, svc.url, rec.Header().Get("Location"))
}

func TestFetch_NotFoundAsJSONForAPIClients(t *testing.T) {
	svc := &fakeService{urlErr: errs.ErrNotFound}

	req := httptest.NewRequest(http.MethodGet, "/api/pdf?orderId=ORD-20250615120000-A1B2C", nil)
	req.Header.Set("X-User-ID", "42")
	req.Header.Set("Accept", "application/json")
	rec := httptest.NewRecorder()

	fetchHandler(svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestFetch_NotFoundRedirectsBrowsers(t *testing.T) {
	viper.Set("server.http.not_found_url", "https://portal.example/invoices/not-found")
	defer viper.Set("server.http.not_found_url", "")

	svc := &fakeService{urlErr: errs.ErrNotFound}

	req := httptest.NewRequest(http.MethodGet, "/api/pdf?orderId=ORD-20250615120000-A1B2C", nil)
	req.Header.Set("X-User-ID", "42")
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	rec := httptest.NewRecorder()

	fetchHandler(svc).ServeHTTP(rec, req)

	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://portal.example/invoices/not-found", rec.Header().Get("Location"))
}

func TestFetch_MissingOrderID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/pdf", nil)
	req.Header.Set("X-User-ID", "42")
	rec := httptest.NewRecorder()

	fetchHandler(&fakeService{}).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCheck_StatusOnly(t *testing.T) {
	tests := []struct {
		name     string
		checkErr error
		want     int
	}{
		{"document present", nil, http.StatusOK},
		{"document missing", errs.ErrNotFound, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodHead, "/api/pdf?orderId=ORD-20250615120000-A1B2C", nil)
			req.Header.Set("X-User-ID", "42")
			rec := httptest.NewRecorder()

			checkHandler(&fakeService{checkErr: tt.checkErr}).ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code)
			assert.Empty(t, rec.Body.String())
		})
	}
}

func TestCheck_Unauthenticated(t *testing.T) {
	req := httptest.NewRequest(http.MethodHead, "/api/pdf?orderId=ORD-20250615120000-A1B2C", nil)
	rec := httptest.NewRecorder()

	checkHandler(&fakeService{}).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
