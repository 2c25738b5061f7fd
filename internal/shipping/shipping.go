package shipping

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrMethodNotFound = errors.New("shipping method not found")
	ErrInvalidName    = errors.New("name is required")
	ErrInvalidPrice   = errors.New("price must not be negative")
)

// Method is a shipping option the customer picks at checkout. The
// reconciler only references it, so deleting a method never blocks an
// order from being created.
type Method struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Store persists shipping methods in PostgreSQL.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Create(ctx context.Context, m *Method) error {
	if m.Name == "" {
		return ErrInvalidName
	}
	if m.Price.IsNegative() {
		return ErrInvalidPrice
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	m.CreatedAt = time.Now()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO shipping_methods (id, name, description, price, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, m.ID, m.Name, m.Description, m.Price, m.CreatedAt)
	return err
}

func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM shipping_methods WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrMethodNotFound
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (*Method, error) {
	var m Method
	var price string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, price, created_at
		FROM shipping_methods WHERE id = $1
	`, id).Scan(&m.ID, &m.Name, &m.Description, &price, &m.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrMethodNotFound
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

// List returns all shipping methods ordered by name.
func (s *Store) List(ctx context.Context) ([]*Method, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, price, created_at
		FROM shipping_methods ORDER BY name ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var methods []*Method
	for rows.Next() {
		var m Method
		var price string
		if err := rows.Scan(&m.ID, &m.Name, &m.Description, &price, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.Price, err = decimal.NewFromString(price)
		if err != nil {
			return nil, err
		}
		methods = append(methods, &m)
	}
	return methods, rows.Err()
}
