package checkout

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vendexhq/commerce-engine/internal/circuitbreaker"
	"github.com/vendexhq/commerce-engine/internal/events"
	"github.com/vendexhq/commerce-engine/internal/store"
	"github.com/vendexhq/commerce-engine/pkg/models"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

type fakeProvider struct {
	session *CheckoutSession
	err     error
	calls   int
}

func (f *fakeProvider) GetSession(ctx context.Context, sessionID string) (*CheckoutSession, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.session, nil
}

type memOrderStore struct {
	bySession map[string]*models.Order
	upserts   int
}

func newMemOrderStore() *memOrderStore {
	return &memOrderStore{bySession: make(map[string]*models.Order)}
}

func (m *memOrderStore) GetByID(ctx context.Context, id string) (*models.Order, error) {
	for _, o := range m.bySession {
		if o.ID == id {
			copy := *o
			return &copy, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memOrderStore) GetBySessionID(ctx context.Context, sessionID string) (*models.Order, error) {
	o, ok := m.bySession[sessionID]
	if !ok {
		return nil, store.ErrNotFound
	}
	copy := *o
	return &copy, nil
}

func (m *memOrderStore) Upsert(ctx context.Context, order *models.Order) error {
	m.upserts++
	copy := *order
	copy.Items = nil
	m.bySession[order.SessionID] = &copy
	return nil
}

func (m *memOrderStore) UpdateStatus(ctx context.Context, id, status string) error {
	for _, o := range m.bySession {
		if o.ID == id {
			o.Status = status
			return nil
		}
	}
	return store.ErrNotFound
}

func (m *memOrderStore) SetNotifications(ctx context.Context, order *models.Order) error {
	for _, o := range m.bySession {
		if o.ID == order.ID {
			o.NotificationsEnabled = order.NotificationsEnabled
			o.NotificationMethod = order.NotificationMethod
			o.CustomerEmail = order.CustomerEmail
			o.CustomerPhone = order.CustomerPhone
			return nil
		}
	}
	return store.ErrNotFound
}

type fakePublisher struct {
	reconciled []events.OrderReconciledEvent
}

func (f *fakePublisher) PublishOrderReconciled(event events.OrderReconciledEvent) error {
	f.reconciled = append(f.reconciled, event)
	return nil
}

func testSession() *CheckoutSession {
	return &CheckoutSession{
		ID:            "cs_test_123",
		CustomerName:  "Ada Lovelace",
		CustomerEmail: "ada@example.com",
		CustomerPhone: "+15550100",
		AmountTotal:   5998,
		Currency:      "usd",
		Shipping: &models.Address{
			Line1:      "1 Analytical Way",
			City:       "London",
			PostalCode: "N1 9GU",
			Country:    "GB",
		},
		LineItems: []SessionLineItem{
			{ProductID: "prod_1", Description: "Desk Lamp", Quantity: 2, AmountTotal: 5998},
		},
	}
}

func TestReconcileCreatesOrderOnce(t *testing.T) {
	provider := &fakeProvider{session: testSession()}
	orders := newMemOrderStore()
	publisher := &fakePublisher{}
	r := NewReconciler(provider, orders, nil, publisher, testLogger())

	first, err := r.Reconcile(context.Background(), "cs_test_123")
	if err != nil {
		t.Fatalf("first reconcile failed: %v", err)
	}
	second, err := r.Reconcile(context.Background(), "cs_test_123")
	if err != nil {
		t.Fatalf("second reconcile failed: %v", err)
	}

	if len(orders.bySession) != 1 {
		t.Fatalf("expected exactly one persisted order, got %d", len(orders.bySession))
	}
	if first.ID != second.ID {
		t.Errorf("expected stable order id, got %s then %s", first.ID, second.ID)
	}
	if orders.upserts != 2 {
		t.Errorf("expected one write per call, got %d", orders.upserts)
	}
	if second.Status != models.StatusReceived {
		t.Errorf("expected status received, got %s", second.Status)
	}
	if len(publisher.reconciled) != 2 {
		t.Errorf("expected 2 reconciled events, got %d", len(publisher.reconciled))
	}
	if !publisher.reconciled[0].FirstSeen || publisher.reconciled[1].FirstSeen {
		t.Error("expected first_seen true then false")
	}
}

func TestReconcilePreservesSetOnceFields(t *testing.T) {
	provider := &fakeProvider{session: testSession()}
	orders := newMemOrderStore()
	r := NewReconciler(provider, orders, nil, nil, testLogger())

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return base }

	first, err := r.Reconcile(context.Background(), "cs_test_123")
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}
	wantEstimate := base.Add(24 * time.Hour)
	if !first.EstimatedCompletion.Equal(wantEstimate) {
		t.Errorf("expected estimate %s, got %s", wantEstimate, first.EstimatedCompletion)
	}

	// A later reconciliation must not move the estimate or creation time.
	r.now = func() time.Time { return base.Add(48 * time.Hour) }
	second, err := r.Reconcile(context.Background(), "cs_test_123")
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}
	if !second.EstimatedCompletion.Equal(wantEstimate) {
		t.Errorf("estimated completion moved to %s", second.EstimatedCompletion)
	}
	if !second.CreatedAt.Equal(base) {
		t.Errorf("created_at moved to %s", second.CreatedAt)
	}
}

func TestReconcileOverwritesCustomerSnapshot(t *testing.T) {
	provider := &fakeProvider{session: testSession()}
	orders := newMemOrderStore()
	r := NewReconciler(provider, orders, nil, nil, testLogger())

	if _, err := r.Reconcile(context.Background(), "cs_test_123"); err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}

	provider.session.CustomerName = "Augusta King"
	provider.session.CustomerEmail = "augusta@example.com"
	provider.session.AmountTotal = 7999

	order, err := r.Reconcile(context.Background(), "cs_test_123")
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}
	if order.CustomerName != "Augusta King" || order.CustomerEmail != "augusta@example.com" {
		t.Errorf("customer snapshot not overwritten: %+v", order)
	}
	if order.TotalAmount != 7999 {
		t.Errorf("expected total 7999, got %d", order.TotalAmount)
	}
}

func TestReconcileKeepsLocalPhoneWhenProviderHasNone(t *testing.T) {
	session := testSession()
	session.CustomerPhone = ""
	provider := &fakeProvider{session: session}
	orders := newMemOrderStore()
	r := NewReconciler(provider, orders, nil, nil, testLogger())

	if _, err := r.Reconcile(context.Background(), "cs_test_123"); err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}

	// Shopper opts into SMS afterwards; the stored phone must survive the
	// next reconciliation.
	stored := orders.bySession["cs_test_123"]
	stored.CustomerPhone = "+15550199"

	second, err := r.Reconcile(context.Background(), "cs_test_123")
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}
	if second.CustomerPhone != "+15550199" {
		t.Errorf("locally saved phone lost, got %q", second.CustomerPhone)
	}
}

func TestReconcileItemsProjection(t *testing.T) {
	provider := &fakeProvider{session: testSession()}
	orders := newMemOrderStore()
	r := NewReconciler(provider, orders, nil, nil, testLogger())

	order, err := r.Reconcile(context.Background(), "cs_test_123")
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}
	if len(order.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(order.Items))
	}
	// 5998 minor units over 2 units = 29.99 major units each.
	if order.Items[0].UnitPrice != 29.99 {
		t.Errorf("expected unit price 29.99, got %v", order.Items[0].UnitPrice)
	}
	// The projection is transient, never persisted.
	if stored := orders.bySession["cs_test_123"]; len(stored.Items) != 0 {
		t.Error("items projection must not be persisted")
	}
}

func TestReconcileMissingSession(t *testing.T) {
	r := NewReconciler(&fakeProvider{}, newMemOrderStore(), nil, nil, testLogger())

	_, err := r.Reconcile(context.Background(), "")
	if !errors.Is(err, ErrMissingSession) {
		t.Errorf("expected ErrMissingSession, got %v", err)
	}
}

func TestReconcileUpstreamFailure(t *testing.T) {
	provider := &fakeProvider{err: errors.New("connection refused")}
	orders := newMemOrderStore()
	r := NewReconciler(provider, orders, nil, nil, testLogger())

	_, err := r.Reconcile(context.Background(), "cs_test_123")
	if !errors.Is(err, ErrUpstreamUnavailable) {
		t.Errorf("expected ErrUpstreamUnavailable, got %v", err)
	}
	if len(orders.bySession) != 0 {
		t.Error("no order should be written when the provider is down")
	}
}

func TestReconcileCircuitBreakerOpens(t *testing.T) {
	provider := &fakeProvider{err: errors.New("connection refused")}
	breaker := circuitbreaker.New(circuitbreaker.Config{
		Name:         "provider",
		MaxFailures:  2,
		ResetTimeout: time.Minute,
	}, testLogger())
	r := NewReconciler(provider, newMemOrderStore(), breaker, nil, testLogger())

	for i := 0; i < 3; i++ {
		if _, err := r.Reconcile(context.Background(), "cs_test_123"); !errors.Is(err, ErrUpstreamUnavailable) {
			t.Fatalf("call %d: expected ErrUpstreamUnavailable, got %v", i, err)
		}
	}

	// Third call was rejected by the open breaker without reaching the
	// provider.
	if provider.calls != 2 {
		t.Errorf("expected 2 provider calls, got %d", provider.calls)
	}
}
