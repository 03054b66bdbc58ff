package orders

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/vendexhq/commerce-engine/internal/checkout"
	"github.com/vendexhq/commerce-engine/pkg/models"
)

type fakeReconciler struct {
	order *models.Order
	err   error
}

func (f *fakeReconciler) Reconcile(ctx context.Context, sessionID string) (*models.Order, error) {
	if sessionID == "" {
		return nil, checkout.ErrMissingSession
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.order, nil
}

func newTestRouter(h *Handler) *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/checkout/success", h.CheckoutSuccess).Methods("GET")
	router.HandleFunc("/api/order/{id}/status", h.GetOrderStatus).Methods("GET")
	router.HandleFunc("/api/order/{id}/notify", h.EnableNotifications).Methods("POST")
	router.HandleFunc("/api/admin/order/{id}/status", h.AdvanceOrderStatus).Methods("POST")
	return router
}

func TestCheckoutSuccessRedirectsWithoutSession(t *testing.T) {
	svc := NewService(newMemOrderStore(), nil, nil, testLogger())
	h := NewHandler(&fakeReconciler{}, svc, testLogger())
	router := newTestRouter(h)

	req := httptest.NewRequest("GET", "/checkout/success", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected 303 redirect, got %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/" {
		t.Errorf("expected redirect to /, got %q", loc)
	}
}

func TestCheckoutSuccessRedirectsOnUpstreamFailure(t *testing.T) {
	svc := NewService(newMemOrderStore(), nil, nil, testLogger())
	h := NewHandler(&fakeReconciler{err: checkout.ErrUpstreamUnavailable}, svc, testLogger())
	router := newTestRouter(h)

	req := httptest.NewRequest("GET", "/checkout/success?session_id=cs_test_123", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected 303 redirect, got %d", rec.Code)
	}
}

func TestCheckoutSuccessReturnsOrder(t *testing.T) {
	order := &models.Order{ID: "order-1", SessionID: "cs_test_123", Status: models.StatusReceived}
	svc := NewService(newMemOrderStore(), nil, nil, testLogger())
	h := NewHandler(&fakeReconciler{order: order}, svc, testLogger())
	router := newTestRouter(h)

	req := httptest.NewRequest("GET", "/checkout/success?session_id=cs_test_123", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp models.OrderResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if !resp.Success || resp.Order == nil || resp.Order.ID != "order-1" {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestGetOrderStatusNotFound(t *testing.T) {
	svc := NewService(newMemOrderStore(), nil, nil, testLogger())
	h := NewHandler(&fakeReconciler{}, svc, testLogger())
	router := newTestRouter(h)

	req := httptest.NewRequest("GET", "/api/order/missing/status", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestGetOrderStatusResponseShape(t *testing.T) {
	orders := newMemOrderStore(&models.Order{ID: "order-1", Status: models.StatusPacking})
	svc := NewService(orders, nil, nil, testLogger())
	h := NewHandler(&fakeReconciler{}, svc, testLogger())
	router := newTestRouter(h)

	req := httptest.NewRequest("GET", "/api/order/order-1/status", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var info StatusInfo
	if err := json.Unmarshal(rec.Body.Bytes(), &info); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if info.Status != models.StatusPacking || info.Percent != 60 {
		t.Errorf("unexpected status info: %+v", info)
	}
}

func TestEnableNotificationsValidation(t *testing.T) {
	orders := newMemOrderStore(&models.Order{ID: "order-1"})
	svc := NewService(orders, nil, nil, testLogger())
	h := NewHandler(&fakeReconciler{}, svc, testLogger())
	router := newTestRouter(h)

	tests := []struct {
		name string
		body string
		code int
	}{
		{"valid sms", `{"method":"sms","value":"+15550199"}`, http.StatusOK},
		{"valid email", `{"method":"email","value":"a@b.c"}`, http.StatusOK},
		{"bad method", `{"method":"fax","value":"x"}`, http.StatusBadRequest},
		{"missing value", `{"method":"sms"}`, http.StatusBadRequest},
		{"garbage body", `{`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/api/order/order-1/notify", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			if rec.Code != tt.code {
				t.Errorf("expected %d, got %d (body %s)", tt.code, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestEnableNotificationsUnknownOrder(t *testing.T) {
	svc := NewService(newMemOrderStore(), nil, nil, testLogger())
	h := NewHandler(&fakeReconciler{}, svc, testLogger())
	router := newTestRouter(h)

	req := httptest.NewRequest("POST", "/api/order/missing/notify",
		strings.NewReader(`{"method":"email","value":"a@b.c"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestAdvanceOrderStatusEndpoint(t *testing.T) {
	orders := newMemOrderStore(&models.Order{ID: "order-1", Status: models.StatusReceived})
	svc := NewService(orders, nil, nil, testLogger())
	h := NewHandler(&fakeReconciler{}, svc, testLogger())
	router := newTestRouter(h)

	req := httptest.NewRequest("POST", "/api/admin/order/order-1/status",
		strings.NewReader(`{"status":"shipped"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body %s)", rec.Code, rec.Body.String())
	}
	if orders.byID["order-1"].Status != models.StatusShipped {
		t.Errorf("status not persisted: %s", orders.byID["order-1"].Status)
	}

	req = httptest.NewRequest("POST", "/api/admin/order/order-1/status",
		strings.NewReader(`{"status":"warp-speed"}`))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown status, got %d", rec.Code)
	}
}
