package store

import (
	"context"
	"database/sql"

	"github.com/sirupsen/logrus"
	"github.com/vendexhq/commerce-engine/pkg/models"
)

// PostgresOrderStore implements OrderStore over database/sql.
type PostgresOrderStore struct {
	db     *sql.DB
	logger *logrus.Logger
}

func NewPostgresOrderStore(db *sql.DB, logger *logrus.Logger) *PostgresOrderStore {
	return &PostgresOrderStore{db: db, logger: logger}
}

const orderColumns = `id, session_id, customer_name, customer_email, customer_phone,
	ship_line1, ship_city, ship_state, ship_postal_code, ship_country,
	total_amount, status, notifications_enabled, notification_method,
	estimated_completion, created_at`

func (s *PostgresOrderStore) GetByID(ctx context.Context, id string) (*models.Order, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	return s.scanOrder(ctx, row)
}

func (s *PostgresOrderStore) GetBySessionID(ctx context.Context, sessionID string) (*models.Order, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE session_id = $1`, sessionID)
	return s.scanOrder(ctx, row)
}

// Upsert writes the order keyed on session_id. Mutable columns are
// overwritten; status, estimated_completion and created_at are written
// through as given, so callers that loaded the existing row keep the
// set-once fields intact. The products snapshot is replaced wholesale.
func (s *PostgresOrderStore) Upsert(ctx context.Context, order *models.Order) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var line1, city, state, postal, country sql.NullString
	if a := order.ShippingAddress; a != nil {
		line1 = sql.NullString{String: a.Line1, Valid: true}
		city = sql.NullString{String: a.City, Valid: true}
		state = sql.NullString{String: a.State, Valid: true}
		postal = sql.NullString{String: a.PostalCode, Valid: true}
		country = sql.NullString{String: a.Country, Valid: true}
	}

	query := `
		INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (session_id) DO UPDATE SET
			customer_name = EXCLUDED.customer_name,
			customer_email = EXCLUDED.customer_email,
			customer_phone = EXCLUDED.customer_phone,
			ship_line1 = EXCLUDED.ship_line1,
			ship_city = EXCLUDED.ship_city,
			ship_state = EXCLUDED.ship_state,
			ship_postal_code = EXCLUDED.ship_postal_code,
			ship_country = EXCLUDED.ship_country,
			total_amount = EXCLUDED.total_amount,
			status = EXCLUDED.status,
			notifications_enabled = EXCLUDED.notifications_enabled,
			notification_method = EXCLUDED.notification_method,
			estimated_completion = EXCLUDED.estimated_completion
		RETURNING id
	`
	// Two racing reconciliations of a brand-new session generate
	// different ids; the conflict clause keeps the first one, so the
	// products snapshot must attach to the persisted id, not ours.
	var persistedID string
	err = tx.QueryRowContext(ctx, query,
		order.ID, order.SessionID, order.CustomerName, order.CustomerEmail, order.CustomerPhone,
		line1, city, state, postal, country,
		order.TotalAmount, order.Status, order.NotificationsEnabled, order.NotificationMethod,
		order.EstimatedCompletion, order.CreatedAt).Scan(&persistedID)
	if err != nil {
		return err
	}
	order.ID = persistedID

	if _, err := tx.ExecContext(ctx, `DELETE FROM order_products WHERE order_id = $1`, persistedID); err != nil {
		return err
	}
	for _, p := range order.Products {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO order_products (order_id, product_id, quantity, unit_price)
			VALUES ($1, $2, $3, $4)
		`, persistedID, p.ProductID, p.Quantity, p.UnitPrice)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *PostgresOrderStore) UpdateStatus(ctx context.Context, id, status string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE orders SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return err
	}
	return checkAffected(res)
}

func (s *PostgresOrderStore) SetNotifications(ctx context.Context, order *models.Order) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE orders SET
			notifications_enabled = $1,
			notification_method = $2,
			customer_email = $3,
			customer_phone = $4
		WHERE id = $5
	`, order.NotificationsEnabled, order.NotificationMethod,
		order.CustomerEmail, order.CustomerPhone, order.ID)
	if err != nil {
		return err
	}
	return checkAffected(res)
}

func (s *PostgresOrderStore) scanOrder(ctx context.Context, row *sql.Row) (*models.Order, error) {
	order := &models.Order{}
	var line1, city, state, postal, country sql.NullString

	err := row.Scan(
		&order.ID, &order.SessionID, &order.CustomerName, &order.CustomerEmail, &order.CustomerPhone,
		&line1, &city, &state, &postal, &country,
		&order.TotalAmount, &order.Status, &order.NotificationsEnabled, &order.NotificationMethod,
		&order.EstimatedCompletion, &order.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if line1.Valid {
		order.ShippingAddress = &models.Address{
			Line1:      line1.String,
			City:       city.String,
			State:      state.String,
			PostalCode: postal.String,
			Country:    country.String,
		}
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT product_id, quantity, unit_price
		FROM order_products WHERE order_id = $1
	`, order.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var p models.OrderProduct
		if err := rows.Scan(&p.ProductID, &p.Quantity, &p.UnitPrice); err != nil {
			return nil, err
		}
		order.Products = append(order.Products, p)
	}

	return order, rows.Err()
}

func checkAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
