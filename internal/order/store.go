package order

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/example/artisan-shop/internal/catalog"
	"github.com/example/artisan-shop/internal/shipping"
)

// Tx is the set of write operations available inside one order-creation
// transaction. The webhook reconciler performs all of its mutations
// through a Tx so that a failure partway through rolls everything back.
type Tx interface {
	CreateOrder(ctx context.Context, o *Order) error
	CreateLineItem(ctx context.Context, orderID, productID string, quantity int) (*LineItem, error)
	UpdateLineItemPrice(ctx context.Context, lineItemID string, price decimal.Decimal) error
	// DecrementStockIfSufficient applies an atomic conditional decrement.
	// It returns false when the product's current stock is below quantity;
	// stock can never go negative through this path.
	DecrementStockIfSufficient(ctx context.Context, productID string, quantity int) (bool, error)
	FindProduct(ctx context.Context, productID string) (*catalog.Product, error)
	FindShippingMethod(ctx context.Context, methodID string) (*shipping.Method, error)
}

// PostgresStore persists orders and their line items.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// WithinTx runs fn inside a single database transaction. Any error from
// fn rolls back every write fn performed.
func (s *PostgresStore) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	if err := fn(&pgTx{tx: sqlTx}); err != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		return err
	}
	return sqlTx.Commit()
}

// FindBySessionID looks up an order by the payment provider's session id.
// Returns ErrOrderNotFound when no order exists for the session.
func (s *PostgresStore) FindBySessionID(ctx context.Context, sessionID string) (*Order, error) {
	return scanOrder(s.db.QueryRowContext(ctx, orderSelect+` WHERE provider_session_id = $1`, sessionID))
}

// GetOrder returns an order with its line items.
func (s *PostgresStore) GetOrder(ctx context.Context, id string) (*Order, error) {
	o, err := scanOrder(s.db.QueryRowContext(ctx, orderSelect+` WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, order_id, product_id, quantity, unit_price
		FROM order_line_items WHERE order_id = $1 ORDER BY created_at ASC
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var li LineItem
		var price string
		if err := rows.Scan(&li.ID, &li.OrderID, &li.ProductID, &li.Quantity, &price); err != nil {
			return nil, err
		}
		li.UnitPrice, err = decimal.NewFromString(price)
		if err != nil {
			return nil, err
		}
		o.Items = append(o.Items, li)
	}
	return o, rows.Err()
}

// ListOrders returns all orders, newest first, without line items.
func (s *PostgresStore) ListOrders(ctx context.Context) ([]*Order, error) {
	rows, err := s.db.QueryContext(ctx, orderSelect+` ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []*Order
	for rows.Next() {
		o, err := scanOrderRow(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// UpdateStatus moves an order through its lifecycle, enforcing the
// transition table. The read and write happen in one transaction with the
// row locked, so concurrent operator actions cannot race. Returns the
// updated order and the status it moved from.
func (s *PostgresStore) UpdateStatus(ctx context.Context, id string, target Status) (*Order, Status, error) {
	var updated *Order
	var previous Status
	err := s.withSQLTx(ctx, func(tx *sql.Tx) error {
		o, err := scanOrder(tx.QueryRowContext(ctx, orderSelect+` WHERE id = $1 FOR UPDATE`, id))
		if err != nil {
			return err
		}
		if !o.CanTransitionTo(target) {
			return o.TransitionError(target)
		}
		previous = o.Status
		o.Status = target
		o.UpdatedAt = time.Now()
		if _, err := tx.ExecContext(ctx,
			`UPDATE orders SET status = $2, updated_at = $3 WHERE id = $1`,
			o.ID, o.Status, o.UpdatedAt); err != nil {
			return err
		}
		updated = o
		return nil
	})
	return updated, previous, err
}

func (s *PostgresStore) withSQLTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Webhook delivery ledger

// RecordWebhookEvent stores one provider delivery for dedup and operator
// forensics. Re-recording the same (provider, event id) pair is a no-op.
func (s *PostgresStore) RecordWebhookEvent(ctx context.Context, provider, eventID, eventType string, payload []byte, processingErr string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO webhook_events (id, provider, event_id, event_type, payload, processing_error, processed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (provider, event_id) DO NOTHING
	`, uuid.NewString(), provider, eventID, eventType, payload, processingErr, time.Now())
	return err
}

// SeenWebhookEvent reports whether a provider event id was already recorded.
func (s *PostgresStore) SeenWebhookEvent(ctx context.Context, provider, eventID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM webhook_events WHERE provider = $1 AND event_id = $2)`,
		provider, eventID).Scan(&exists)
	return exists, err
}

// pgTx implements Tx on top of *sql.Tx.
type pgTx struct {
	tx *sql.Tx
}

func (t *pgTx) CreateOrder(ctx context.Context, o *Order) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	now := time.Now()
	o.CreatedAt = now
	o.UpdatedAt = now

	addr, err := json.Marshal(o.ShippingAddress)
	if err != nil {
		return err
	}

	_, err = t.tx.ExecContext(ctx, `
		INSERT INTO orders (id, provider_session_id, status, total, customer_name, customer_email,
		                    shipping_address, shipping_method_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, o.ID, o.ProviderSessionID, o.Status, o.Total, o.CustomerName, o.CustomerEmail,
		addr, o.ShippingMethodID, o.CreatedAt, o.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicateSession
	}
	return err
}

func (t *pgTx) CreateLineItem(ctx context.Context, orderID, productID string, quantity int) (*LineItem, error) {
	li := &LineItem{
		ID:        uuid.NewString(),
		OrderID:   orderID,
		ProductID: productID,
		Quantity:  quantity,
		UnitPrice: decimal.Zero,
	}
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO order_line_items (id, order_id, product_id, quantity, unit_price, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, li.ID, li.OrderID, li.ProductID, li.Quantity, li.UnitPrice, time.Now())
	if err != nil {
		return nil, err
	}
	return li, nil
}

func (t *pgTx) UpdateLineItemPrice(ctx context.Context, lineItemID string, price decimal.Decimal) error {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE order_line_items SET unit_price = $2 WHERE id = $1`, lineItemID, price)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrLineItemNotFound
	}
	return nil
}

func (t *pgTx) DecrementStockIfSufficient(ctx context.Context, productID string, quantity int) (bool, error) {
	// Single conditional UPDATE: the stock check and the decrement are one
	// atomic statement, never a read-then-write in application code.
	res, err := t.tx.ExecContext(ctx, `
		UPDATE products SET stock = stock - $2, updated_at = $3
		WHERE id = $1 AND stock >= $2
	`, productID, quantity, time.Now())
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (t *pgTx) FindProduct(ctx context.Context, productID string) (*catalog.Product, error) {
	var p catalog.Product
	var price string
	err := t.tx.QueryRowContext(ctx, `
		SELECT id, name, price, stock FROM products WHERE id = $1
	`, productID).Scan(&p.ID, &p.Name, &price, &p.Stock)
	if err == sql.ErrNoRows {
		return nil, catalog.ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	p.Price, err = decimal.NewFromString(price)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (t *pgTx) FindShippingMethod(ctx context.Context, methodID string) (*shipping.Method, error) {
	var m shipping.Method
	var price string
	err := t.tx.QueryRowContext(ctx, `
		SELECT id, name, price FROM shipping_methods WHERE id = $1
	`, methodID).Scan(&m.ID, &m.Name, &price)
	if err == sql.ErrNoRows {
		return nil, shipping.ErrMethodNotFound
	}
	if err != nil {
		return nil, err
	}
	m.Price, err = decimal.NewFromString(price)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

const orderSelect = `
	SELECT id, provider_session_id, status, total, customer_name, customer_email,
	       shipping_address, shipping_method_id, created_at, updated_at
	FROM orders`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row *sql.Row) (*Order, error) {
	o, err := scanOrderRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	return o, err
}

func scanOrderRow(row rowScanner) (*Order, error) {
	var o Order
	var total string
	var addr []byte
	err := row.Scan(&o.ID, &o.ProviderSessionID, &o.Status, &total, &o.CustomerName, &o.CustomerEmail,
		&addr, &o.ShippingMethodID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	o.Total, err = decimal.NewFromString(total)
	if err != nil {
		return nil, err
	}
	if len(addr) > 0 {
		if err := json.Unmarshal(addr, &o.ShippingAddress); err != nil {
			return nil, err
		}
	}
	return &o, nil
}

// isUniqueViolation reports whether err is a PostgreSQL unique constraint
// violation (class 23505).
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
