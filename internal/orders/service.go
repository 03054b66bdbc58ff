package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vendexhq/commerce-engine/internal/events"
	"github.com/vendexhq/commerce-engine/internal/store"
	"github.com/vendexhq/commerce-engine/internal/websocket"
	"github.com/vendexhq/commerce-engine/pkg/models"
)

var (
	// ErrInvalidStatus is returned for a status value outside the
	// fulfillment enumeration.
	ErrInvalidStatus = errors.New("invalid order status")

	// ErrInvalidMethod is returned for a notification method other than
	// email or sms.
	ErrInvalidMethod = errors.New("invalid notification method")
)

// statusPercent maps fulfillment states to shopper-facing progress.
// Unrecognized values fall back to 0 rather than erroring: a stale
// client polling an order with a status it does not know should still
// render something.
var statusPercent = map[string]int{
	models.StatusReceived:   10,
	models.StatusProcessing: 30,
	models.StatusPacking:    60,
	models.StatusShipped:    90,
	models.StatusDelivered:  100,
}

// StatusInfo is the polling view of an order.
type StatusInfo struct {
	Status              string    `json:"status"`
	Percent             int       `json:"percent"`
	EstimatedCompletion time.Time `json:"estimated"`
}

// EventPublisher is the slice of the Kafka producer the service uses.
type EventPublisher interface {
	PublishOrderStatusChanged(event events.OrderStatusChangedEvent) error
}

// StatusBroadcaster pushes live updates to connected dashboard clients.
type StatusBroadcaster interface {
	Broadcast(messageType string, data interface{})
}

// Service exposes the read and write operations over existing orders.
type Service struct {
	orders    store.OrderStore
	publisher EventPublisher
	hub       StatusBroadcaster
	logger    *logrus.Logger
}

func NewService(orders store.OrderStore, publisher EventPublisher, hub StatusBroadcaster, logger *logrus.Logger) *Service {
	return &Service{
		orders:    orders,
		publisher: publisher,
		hub:       hub,
		logger:    logger,
	}
}

func (s *Service) GetStatus(ctx context.Context, orderID string) (*StatusInfo, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return &StatusInfo{
		Status:              order.Status,
		Percent:             statusPercent[order.Status],
		EstimatedCompletion: order.EstimatedCompletion,
	}, nil
}

// EnableNotifications opts the order into status notifications. An SMS
// method overwrites the stored phone with the destination, email
// overwrites the stored email. Dispatching actual messages is a
// downstream notifier's job.
func (s *Service) EnableNotifications(ctx context.Context, orderID, method, destination string) (*models.Order, error) {
	if method != models.NotifyEmail && method != models.NotifySMS {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMethod, method)
	}

	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	order.NotificationsEnabled = true
	order.NotificationMethod = method
	if method == models.NotifySMS {
		order.CustomerPhone = destination
	} else {
		order.CustomerEmail = destination
	}

	if err := s.orders.SetNotifications(ctx, order); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"order_id": orderID,
		"method":   method,
	}).Info("Notifications enabled for order")

	return order, nil
}

// AdvanceStatus is the fulfillment-side write: an operator moves the
// order along the received -> delivered pipeline.
func (s *Service) AdvanceStatus(ctx context.Context, orderID, status string) (*models.Order, error) {
	if !models.ValidStatus(status) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	if err := s.orders.UpdateStatus(ctx, orderID, status); err != nil {
		return nil, err
	}

	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"order_id": orderID,
		"status":   status,
	}).Info("Order status advanced")

	if s.publisher != nil {
		event := events.OrderStatusChangedEvent{OrderID: orderID, Status: status}
		if err := s.publisher.PublishOrderStatusChanged(event); err != nil {
			s.logger.WithError(err).Error("Failed to publish status change event")
		}
	}
	if s.hub != nil {
		s.hub.Broadcast(websocket.TypeOrderStatus, map[string]interface{}{
			"order_id": orderID,
			"status":   status,
			"percent":  statusPercent[status],
		})
	}

	return order, nil
}
