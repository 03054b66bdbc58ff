package orders

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vendexhq/commerce-engine/internal/events"
	"github.com/vendexhq/commerce-engine/internal/store"
	"github.com/vendexhq/commerce-engine/pkg/models"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

type memOrderStore struct {
	byID map[string]*models.Order
}

func newMemOrderStore(orders ...*models.Order) *memOrderStore {
	m := &memOrderStore{byID: make(map[string]*models.Order)}
	for _, o := range orders {
		m.byID[o.ID] = o
	}
	return m
}

func (m *memOrderStore) GetByID(ctx context.Context, id string) (*models.Order, error) {
	o, ok := m.byID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	copy := *o
	return &copy, nil
}

func (m *memOrderStore) GetBySessionID(ctx context.Context, sessionID string) (*models.Order, error) {
	for _, o := range m.byID {
		if o.SessionID == sessionID {
			copy := *o
			return &copy, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memOrderStore) Upsert(ctx context.Context, order *models.Order) error {
	copy := *order
	m.byID[order.ID] = &copy
	return nil
}

func (m *memOrderStore) UpdateStatus(ctx context.Context, id, status string) error {
	o, ok := m.byID[id]
	if !ok {
		return store.ErrNotFound
	}
	o.Status = status
	return nil
}

func (m *memOrderStore) SetNotifications(ctx context.Context, order *models.Order) error {
	o, ok := m.byID[order.ID]
	if !ok {
		return store.ErrNotFound
	}
	o.NotificationsEnabled = order.NotificationsEnabled
	o.NotificationMethod = order.NotificationMethod
	o.CustomerEmail = order.CustomerEmail
	o.CustomerPhone = order.CustomerPhone
	return nil
}

type fakeStatusPublisher struct {
	events []events.OrderStatusChangedEvent
}

func (f *fakeStatusPublisher) PublishOrderStatusChanged(event events.OrderStatusChangedEvent) error {
	f.events = append(f.events, event)
	return nil
}

type fakeHub struct {
	messages []string
}

func (f *fakeHub) Broadcast(messageType string, data interface{}) {
	f.messages = append(f.messages, messageType)
}

func TestGetStatusPercentMapping(t *testing.T) {
	tests := []struct {
		status  string
		percent int
	}{
		{models.StatusReceived, 10},
		{models.StatusProcessing, 30},
		{models.StatusPacking, 60},
		{models.StatusShipped, 90},
		{models.StatusDelivered, 100},
		{"backordered", 0},
		{"", 0},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			estimate := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
			orders := newMemOrderStore(&models.Order{
				ID:                  "order-1",
				Status:              tt.status,
				EstimatedCompletion: estimate,
			})
			svc := NewService(orders, nil, nil, testLogger())

			info, err := svc.GetStatus(context.Background(), "order-1")
			if err != nil {
				t.Fatalf("GetStatus failed: %v", err)
			}
			if info.Percent != tt.percent {
				t.Errorf("status %q: expected percent %d, got %d", tt.status, tt.percent, info.Percent)
			}
			if info.Status != tt.status {
				t.Errorf("expected status %q, got %q", tt.status, info.Status)
			}
			if !info.EstimatedCompletion.Equal(estimate) {
				t.Errorf("unexpected estimate %s", info.EstimatedCompletion)
			}
		})
	}
}

func TestGetStatusNotFound(t *testing.T) {
	svc := NewService(newMemOrderStore(), nil, nil, testLogger())

	_, err := svc.GetStatus(context.Background(), "missing")
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestEnableNotificationsSMSOverwritesPhone(t *testing.T) {
	orders := newMemOrderStore(&models.Order{
		ID:            "order-1",
		CustomerEmail: "ada@example.com",
		CustomerPhone: "+15550100",
	})
	svc := NewService(orders, nil, nil, testLogger())

	order, err := svc.EnableNotifications(context.Background(), "order-1", models.NotifySMS, "+15550199")
	if err != nil {
		t.Fatalf("EnableNotifications failed: %v", err)
	}
	if !order.NotificationsEnabled || order.NotificationMethod != models.NotifySMS {
		t.Errorf("notification fields not set: %+v", order)
	}
	if order.CustomerPhone != "+15550199" {
		t.Errorf("phone not overwritten: %q", order.CustomerPhone)
	}
	if order.CustomerEmail != "ada@example.com" {
		t.Errorf("email should be untouched: %q", order.CustomerEmail)
	}

	stored := orders.byID["order-1"]
	if stored.CustomerPhone != "+15550199" || !stored.NotificationsEnabled {
		t.Errorf("change not persisted: %+v", stored)
	}
}

func TestEnableNotificationsEmailOverwritesEmail(t *testing.T) {
	orders := newMemOrderStore(&models.Order{ID: "order-1", CustomerEmail: "old@example.com"})
	svc := NewService(orders, nil, nil, testLogger())

	order, err := svc.EnableNotifications(context.Background(), "order-1", models.NotifyEmail, "new@example.com")
	if err != nil {
		t.Fatalf("EnableNotifications failed: %v", err)
	}
	if order.CustomerEmail != "new@example.com" {
		t.Errorf("email not overwritten: %q", order.CustomerEmail)
	}
}

func TestEnableNotificationsErrors(t *testing.T) {
	orders := newMemOrderStore(&models.Order{ID: "order-1"})
	svc := NewService(orders, nil, nil, testLogger())

	if _, err := svc.EnableNotifications(context.Background(), "missing", models.NotifyEmail, "a@b.c"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := svc.EnableNotifications(context.Background(), "order-1", "carrier-pigeon", "coop 7"); !errors.Is(err, ErrInvalidMethod) {
		t.Errorf("expected ErrInvalidMethod, got %v", err)
	}
}

func TestAdvanceStatus(t *testing.T) {
	orders := newMemOrderStore(&models.Order{ID: "order-1", Status: models.StatusReceived})
	publisher := &fakeStatusPublisher{}
	hub := &fakeHub{}
	svc := NewService(orders, publisher, hub, testLogger())

	order, err := svc.AdvanceStatus(context.Background(), "order-1", models.StatusShipped)
	if err != nil {
		t.Fatalf("AdvanceStatus failed: %v", err)
	}
	if order.Status != models.StatusShipped {
		t.Errorf("expected shipped, got %s", order.Status)
	}
	if len(publisher.events) != 1 || publisher.events[0].Status != models.StatusShipped {
		t.Errorf("expected one status change event, got %+v", publisher.events)
	}
	if len(hub.messages) != 1 {
		t.Errorf("expected one broadcast, got %d", len(hub.messages))
	}
}

func TestAdvanceStatusRejectsUnknownValue(t *testing.T) {
	orders := newMemOrderStore(&models.Order{ID: "order-1", Status: models.StatusReceived})
	svc := NewService(orders, nil, nil, testLogger())

	if _, err := svc.AdvanceStatus(context.Background(), "order-1", "teleported"); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("expected ErrInvalidStatus, got %v", err)
	}
	if orders.byID["order-1"].Status != models.StatusReceived {
		t.Error("status must be unchanged after rejected advance")
	}
}
