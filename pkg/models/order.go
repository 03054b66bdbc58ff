package models

import (
	"time"
)

// Order statuses in fulfillment order. The reconciler only ever sets
// StatusReceived; a fulfillment operator advances the rest.
const (
	StatusReceived   = "received"
	StatusProcessing = "processing"
	StatusPacking    = "packing"
	StatusShipped    = "shipped"
	StatusDelivered  = "delivered"
)

// Notification methods a shopper can opt into.
const (
	NotifyEmail = "email"
	NotifySMS   = "sms"
	NotifyBoth  = "both"
)

// Address is the shipping address snapshot captured from the checkout
// session. All fields come from the payment provider as-is.
type Address struct {
	Line1      string `json:"line1"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// Order is the persisted order record. Customer fields, the shipping
// address and total_amount are overwritten from the payment provider on
// every reconciliation; Status, EstimatedCompletion and CreatedAt are
// set once when the order is first created. TotalAmount is in minor
// currency units.
type Order struct {
	ID                   string         `json:"id"`
	SessionID            string         `json:"session_id"`
	CustomerName         string         `json:"customer_name"`
	CustomerEmail        string         `json:"customer_email"`
	CustomerPhone        string         `json:"customer_phone,omitempty"`
	ShippingAddress      *Address       `json:"shipping_address,omitempty"`
	Products             []OrderProduct `json:"products,omitempty"`
	TotalAmount          int64          `json:"total_amount"`
	Status               string         `json:"status"`
	NotificationsEnabled bool           `json:"notifications_enabled"`
	NotificationMethod   string         `json:"notification_method"`
	EstimatedCompletion  time.Time      `json:"estimated_completion"`
	CreatedAt            time.Time      `json:"created_at"`

	// Items is a transient projection of the provider's expanded line
	// items, populated by the reconciler and never persisted.
	Items []LineItem `json:"items,omitempty"`
}

// OrderProduct is the secondary historical record of what was bought.
// The authoritative line data lives with the payment provider.
type OrderProduct struct {
	ProductID string  `json:"product_id"`
	Quantity  int64   `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

// LineItem is the render-time item view derived from the provider's
// expanded session. UnitPrice is in major currency units.
type LineItem struct {
	Description string  `json:"description"`
	Quantity    int64   `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
}

type OrderResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Order   *Order `json:"order,omitempty"`
}

// ValidStatus reports whether s is one of the known fulfillment states.
func ValidStatus(s string) bool {
	switch s {
	case StatusReceived, StatusProcessing, StatusPacking, StatusShipped, StatusDelivered:
		return true
	}
	return false
}
