package store

import (
	"context"
	"database/sql"

	"github.com/sirupsen/logrus"
	"github.com/vendexhq/commerce-engine/pkg/models"
)

// PostgresProductStore implements ProductStore over database/sql.
type PostgresProductStore struct {
	db     *sql.DB
	logger *logrus.Logger
}

func NewPostgresProductStore(db *sql.DB, logger *logrus.Logger) *PostgresProductStore {
	return &PostgresProductStore{db: db, logger: logger}
}

const productColumns = `sku, id, title, description, price, cost, image, brand,
	category, product_type, gtin, mpn, condition, availability,
	custom_label_0, custom_label_1, shipping_weight, rating, reviews`

// UpsertBySKU creates the product or overwrites the matching row. SKU is
// the identity key; the caller-supplied numeric id is written as-is.
func (s *PostgresProductStore) UpsertBySKU(ctx context.Context, product *models.Product) error {
	query := `
		INSERT INTO products (` + productColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		ON CONFLICT (sku) DO UPDATE SET
			id = EXCLUDED.id,
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			price = EXCLUDED.price,
			cost = EXCLUDED.cost,
			image = EXCLUDED.image,
			brand = EXCLUDED.brand,
			category = EXCLUDED.category,
			product_type = EXCLUDED.product_type,
			gtin = EXCLUDED.gtin,
			mpn = EXCLUDED.mpn,
			condition = EXCLUDED.condition,
			availability = EXCLUDED.availability,
			custom_label_0 = EXCLUDED.custom_label_0,
			custom_label_1 = EXCLUDED.custom_label_1,
			shipping_weight = EXCLUDED.shipping_weight
	`
	_, err := s.db.ExecContext(ctx, query,
		product.SKU, product.ID, product.Title, product.Description, product.Price,
		product.Cost, product.Image, product.Brand, product.Category, product.ProductType,
		product.GTIN, product.MPN, product.Condition, product.Availability,
		product.CustomLabel0, product.CustomLabel1, product.ShippingWeight,
		product.Rating, product.Reviews)
	return err
}

func (s *PostgresProductStore) GetBySKU(ctx context.Context, sku string) (*models.Product, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE sku = $1`, sku)

	product := &models.Product{}
	err := scanProduct(row.Scan, product)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return product, nil
}

func (s *PostgresProductStore) List(ctx context.Context) ([]models.Product, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+productColumns+` FROM products ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		var p models.Product
		if err := scanProduct(rows.Scan, &p); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (s *PostgresProductStore) UpdatePrice(ctx context.Context, sku string, price float64) error {
	res, err := s.db.ExecContext(ctx, `UPDATE products SET price = $1 WHERE sku = $2`, price, sku)
	if err != nil {
		return err
	}
	return checkAffected(res)
}

func scanProduct(scan func(dest ...interface{}) error, p *models.Product) error {
	return scan(
		&p.SKU, &p.ID, &p.Title, &p.Description, &p.Price, &p.Cost, &p.Image, &p.Brand,
		&p.Category, &p.ProductType, &p.GTIN, &p.MPN, &p.Condition, &p.Availability,
		&p.CustomLabel0, &p.CustomLabel1, &p.ShippingWeight, &p.Rating, &p.Reviews,
	)
}
