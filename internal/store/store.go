package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/vendexhq/commerce-engine/pkg/models"
)

// ErrNotFound is returned when an order or product does not exist.
var ErrNotFound = errors.New("not found")

// OrderStore persists order records. Exactly one order exists per
// checkout session identifier; Upsert is keyed on it.
type OrderStore interface {
	GetByID(ctx context.Context, id string) (*models.Order, error)
	GetBySessionID(ctx context.Context, sessionID string) (*models.Order, error)
	Upsert(ctx context.Context, order *models.Order) error
	UpdateStatus(ctx context.Context, id, status string) error
	SetNotifications(ctx context.Context, order *models.Order) error
}

// ProductStore persists catalog entries. Import upserts are keyed on SKU.
type ProductStore interface {
	UpsertBySKU(ctx context.Context, product *models.Product) error
	GetBySKU(ctx context.Context, sku string) (*models.Product, error)
	List(ctx context.Context) ([]models.Product, error)
	UpdatePrice(ctx context.Context, sku string, price float64) error
}

// CreateTables bootstraps the schema. Safe to run on every startup.
func CreateTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS orders (
			id VARCHAR(255) PRIMARY KEY,
			session_id VARCHAR(255) NOT NULL UNIQUE,
			customer_name VARCHAR(255) NOT NULL DEFAULT '',
			customer_email VARCHAR(255) NOT NULL DEFAULT '',
			customer_phone VARCHAR(64) NOT NULL DEFAULT '',
			ship_line1 VARCHAR(255),
			ship_city VARCHAR(255),
			ship_state VARCHAR(255),
			ship_postal_code VARCHAR(32),
			ship_country VARCHAR(8),
			total_amount BIGINT NOT NULL DEFAULT 0,
			status VARCHAR(50) NOT NULL,
			notifications_enabled BOOLEAN NOT NULL DEFAULT FALSE,
			notification_method VARCHAR(16) NOT NULL DEFAULT 'email',
			estimated_completion TIMESTAMP NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS order_products (
			id SERIAL PRIMARY KEY,
			order_id VARCHAR(255) NOT NULL REFERENCES orders(id),
			product_id VARCHAR(255) NOT NULL,
			quantity BIGINT NOT NULL,
			unit_price DECIMAL(10,2) NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS products (
			sku VARCHAR(255) PRIMARY KEY,
			id BIGINT NOT NULL UNIQUE,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			price DECIMAL(10,2) NOT NULL,
			cost DECIMAL(10,2) NOT NULL DEFAULT 0,
			image TEXT NOT NULL DEFAULT '',
			brand VARCHAR(255) NOT NULL DEFAULT 'Vendex',
			category TEXT NOT NULL DEFAULT '',
			product_type TEXT NOT NULL DEFAULT '',
			gtin VARCHAR(64) NOT NULL DEFAULT '',
			mpn VARCHAR(64) NOT NULL DEFAULT '',
			condition VARCHAR(32) NOT NULL DEFAULT 'new',
			availability VARCHAR(32) NOT NULL DEFAULT 'in_stock',
			custom_label_0 VARCHAR(255) NOT NULL DEFAULT '',
			custom_label_1 VARCHAR(255) NOT NULL DEFAULT '',
			shipping_weight VARCHAR(64) NOT NULL DEFAULT '',
			rating DECIMAL(3,1) NOT NULL DEFAULT 0,
			reviews BIGINT NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_session_id ON orders(session_id)`,
		`CREATE INDEX IF NOT EXISTS idx_order_products_order_id ON order_products(order_id)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return err
		}
	}

	return nil
}
