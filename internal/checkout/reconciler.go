package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/vendexhq/commerce-engine/internal/circuitbreaker"
	"github.com/vendexhq/commerce-engine/internal/events"
	"github.com/vendexhq/commerce-engine/internal/store"
	"github.com/vendexhq/commerce-engine/pkg/models"
)

var (
	// ErrMissingSession means the caller supplied no session identifier;
	// the landing handler redirects home instead of surfacing it.
	ErrMissingSession = errors.New("missing checkout session identifier")

	// ErrUpstreamUnavailable covers every provider-side failure. The
	// provider's own error text never reaches the shopper.
	ErrUpstreamUnavailable = errors.New("payment provider unavailable")
)

// estimatedLeadTime is added to the first-reconciliation timestamp to
// produce the shopper-facing completion estimate. Set once, never
// overwritten.
const estimatedLeadTime = 24 * time.Hour

// EventPublisher is the slice of the Kafka producer the reconciler uses.
type EventPublisher interface {
	PublishOrderReconciled(event events.OrderReconciledEvent) error
}

// Reconciler upserts a local order from the provider's authoritative
// checkout session. Safe to call repeatedly for the same session: every
// call overwrites the customer snapshot and amount, while status,
// estimated completion and creation time stick from the first call.
type Reconciler struct {
	provider  SessionProvider
	orders    store.OrderStore
	breaker   *circuitbreaker.CircuitBreaker
	publisher EventPublisher
	logger    *logrus.Logger
	now       func() time.Time
}

func NewReconciler(provider SessionProvider, orders store.OrderStore, breaker *circuitbreaker.CircuitBreaker, publisher EventPublisher, logger *logrus.Logger) *Reconciler {
	return &Reconciler{
		provider:  provider,
		orders:    orders,
		breaker:   breaker,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

func (r *Reconciler) Reconcile(ctx context.Context, sessionID string) (*models.Order, error) {
	if sessionID == "" {
		return nil, ErrMissingSession
	}

	var session *CheckoutSession
	fetch := func() error {
		var err error
		session, err = r.provider.GetSession(ctx, sessionID)
		return err
	}

	var err error
	if r.breaker != nil {
		err = r.breaker.Execute(fetch)
	} else {
		err = fetch()
	}
	if err != nil {
		r.logger.WithError(err).WithField("session_id", sessionID).Error("Failed to fetch checkout session")
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}

	order, err := r.orders.GetBySessionID(ctx, sessionID)
	firstSeen := false
	switch {
	case err == nil:
	case errors.Is(err, store.ErrNotFound):
		firstSeen = true
		now := r.now()
		order = &models.Order{
			ID:                  uuid.New().String(),
			SessionID:           sessionID,
			Status:              models.StatusReceived,
			NotificationMethod:  models.NotifyEmail,
			EstimatedCompletion: now.Add(estimatedLeadTime),
			CreatedAt:           now,
		}
	default:
		return nil, fmt.Errorf("failed to look up order: %w", err)
	}

	// The provider is the source of truth for the customer snapshot.
	// Exception: a phone number saved locally for notifications survives
	// when the provider session carries none, so an opt-in is not lost
	// by the next landing-page hit.
	order.CustomerName = session.CustomerName
	order.CustomerEmail = session.CustomerEmail
	if session.CustomerPhone != "" {
		order.CustomerPhone = session.CustomerPhone
	}
	if session.Shipping != nil {
		order.ShippingAddress = session.Shipping
	}
	order.TotalAmount = session.AmountTotal

	order.Products = order.Products[:0]
	items := make([]models.LineItem, 0, len(session.LineItems))
	for _, li := range session.LineItems {
		unitPrice := 0.0
		if li.Quantity > 0 {
			unitPrice = float64(li.AmountTotal) / float64(li.Quantity) / 100
		}
		order.Products = append(order.Products, models.OrderProduct{
			ProductID: li.ProductID,
			Quantity:  li.Quantity,
			UnitPrice: unitPrice,
		})
		items = append(items, models.LineItem{
			Description: li.Description,
			Quantity:    li.Quantity,
			UnitPrice:   unitPrice,
		})
	}

	if err := r.orders.Upsert(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to persist order: %w", err)
	}

	r.logger.WithFields(logrus.Fields{
		"order_id":     order.ID,
		"session_id":   sessionID,
		"total_amount": order.TotalAmount,
		"first_seen":   firstSeen,
	}).Info("Order reconciled with checkout session")

	if r.publisher != nil {
		event := events.OrderReconciledEvent{
			OrderID:     order.ID,
			SessionID:   sessionID,
			TotalAmount: order.TotalAmount,
			FirstSeen:   firstSeen,
		}
		if err := r.publisher.PublishOrderReconciled(event); err != nil {
			r.logger.WithError(err).Error("Failed to publish order reconciled event")
		}
	}

	order.Items = items
	return order, nil
}
