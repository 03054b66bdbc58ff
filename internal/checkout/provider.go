package checkout

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vendexhq/commerce-engine/pkg/models"
)

// CheckoutSession is the authoritative session view fetched from the
// payment provider, with line items expanded. Amounts are in minor
// currency units, matching the provider's wire format.
type CheckoutSession struct {
	ID            string
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
	Shipping      *models.Address
	AmountTotal   int64
	Currency      string
	LineItems     []SessionLineItem
}

type SessionLineItem struct {
	ProductID   string
	Description string
	Quantity    int64
	AmountTotal int64
}

// SessionProvider fetches checkout sessions from the payment provider.
type SessionProvider interface {
	GetSession(ctx context.Context, sessionID string) (*CheckoutSession, error)
}

// Client talks to a Stripe-compatible checkout API.
type Client struct {
	baseURL    string
	secretKey  string
	httpClient *http.Client
	logger     *logrus.Logger
}

func NewClient(baseURL, secretKey string, logger *logrus.Logger) *Client {
	return &Client{
		baseURL:   baseURL,
		secretKey: secretKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

// sessionPayload mirrors the provider's checkout session JSON.
type sessionPayload struct {
	ID              string `json:"id"`
	AmountTotal     int64  `json:"amount_total"`
	Currency        string `json:"currency"`
	CustomerDetails struct {
		Name  string `json:"name"`
		Email string `json:"email"`
		Phone string `json:"phone"`
	} `json:"customer_details"`
	ShippingDetails *struct {
		Address struct {
			Line1      string `json:"line1"`
			City       string `json:"city"`
			State      string `json:"state"`
			PostalCode string `json:"postal_code"`
			Country    string `json:"country"`
		} `json:"address"`
	} `json:"shipping_details"`
	LineItems struct {
		Data []struct {
			Description string `json:"description"`
			Quantity    int64  `json:"quantity"`
			AmountTotal int64  `json:"amount_total"`
			Price       struct {
				Product string `json:"product"`
			} `json:"price"`
		} `json:"data"`
	} `json:"line_items"`
}

func (c *Client) GetSession(ctx context.Context, sessionID string) (*CheckoutSession, error) {
	c.logger.WithField("session_id", sessionID).Info("Fetching checkout session from provider")

	endpoint := fmt.Sprintf("%s/v1/checkout/sessions/%s?%s",
		c.baseURL, url.PathEscape(sessionID), url.Values{"expand[]": {"line_items"}}.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach payment provider: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("checkout session %s not found", sessionID)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("payment provider returned status %d", resp.StatusCode)
	}

	var payload sessionPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode provider response: %w", err)
	}

	session := &CheckoutSession{
		ID:            payload.ID,
		CustomerName:  payload.CustomerDetails.Name,
		CustomerEmail: payload.CustomerDetails.Email,
		CustomerPhone: payload.CustomerDetails.Phone,
		AmountTotal:   payload.AmountTotal,
		Currency:      payload.Currency,
	}

	if sd := payload.ShippingDetails; sd != nil {
		session.Shipping = &models.Address{
			Line1:      sd.Address.Line1,
			City:       sd.Address.City,
			State:      sd.Address.State,
			PostalCode: sd.Address.PostalCode,
			Country:    sd.Address.Country,
		}
	}

	for _, li := range payload.LineItems.Data {
		session.LineItems = append(session.LineItems, SessionLineItem{
			ProductID:   li.Price.Product,
			Description: li.Description,
			Quantity:    li.Quantity,
			AmountTotal: li.AmountTotal,
		})
	}

	c.logger.WithFields(logrus.Fields{
		"session_id":   sessionID,
		"amount_total": session.AmountTotal,
		"items_count":  len(session.LineItems),
	}).Info("Retrieved checkout session")

	return session, nil
}
