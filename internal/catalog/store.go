package catalog

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Store persists products and categories in PostgreSQL.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Product operations

func (s *Store) CreateProduct(ctx context.Context, p *Product) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Slug == "" {
		p.Slug = Slugify(p.Name)
	}
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (id, name, slug, description, price, stock, category_id, image_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8, $9, $10)
	`, p.ID, p.Name, p.Slug, p.Description, p.Price, p.Stock, p.CategoryID, p.ImageURL, p.CreatedAt, p.UpdatedAt)
	return err
}

func (s *Store) UpdateProduct(ctx context.Context, p *Product) error {
	if err := p.Validate(); err != nil {
		return err
	}
	p.UpdatedAt = time.Now()

	res, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET name = $2, slug = $3, description = $4, price = $5, stock = $6,
		    category_id = NULLIF($7, ''), image_url = $8, updated_at = $9
		WHERE id = $1
	`, p.ID, p.Name, p.Slug, p.Description, p.Price, p.Stock, p.CategoryID, p.ImageURL, p.UpdatedAt)
	if err != nil {
		return err
	}
	return requireRow(res, ErrProductNotFound)
}

func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireRow(res, ErrProductNotFound)
}

func (s *Store) GetProduct(ctx context.Context, id string) (*Product, error) {
	return s.scanProduct(s.db.QueryRowContext(ctx, productSelect+` WHERE id = $1`, id))
}

func (s *Store) GetProductBySlug(ctx context.Context, slug string) (*Product, error) {
	return s.scanProduct(s.db.QueryRowContext(ctx, productSelect+` WHERE slug = $1`, slug))
}

// ListProducts returns the catalog, optionally filtered by category id.
func (s *Store) ListProducts(ctx context.Context, categoryID string) ([]*Product, error) {
	query := productSelect + ` ORDER BY created_at DESC`
	args := []any{}
	if categoryID != "" {
		query = productSelect + ` WHERE category_id = $1 ORDER BY created_at DESC`
		args = append(args, categoryID)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []*Product
	for rows.Next() {
		p, err := scanProductRow(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

const productSelect = `
	SELECT id, name, slug, description, price, stock, COALESCE(category_id, ''), image_url, created_at, updated_at
	FROM products`

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *Store) scanProduct(row *sql.Row) (*Product, error) {
	p, err := scanProductRow(row)
	if err == sql.ErrNoRows {
		return nil, ErrProductNotFound
	}
	return p, err
}

func scanProductRow(row rowScanner) (*Product, error) {
	var p Product
	var price string
	err := row.Scan(&p.ID, &p.Name, &p.Slug, &p.Description, &price, &p.Stock, &p.CategoryID, &p.ImageURL, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.Price, err = decimal.NewFromString(price)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Category operations

func (s *Store) CreateCategory(ctx context.Context, c *Category) error {
	if c.Name == "" {
		return ErrInvalidName
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Slug == "" {
		c.Slug = Slugify(c.Name)
	}
	c.CreatedAt = time.Now()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO categories (id, name, slug, description, sort_order, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, c.ID, c.Name, c.Slug, c.Description, c.SortOrder, c.CreatedAt)
	return err
}

func (s *Store) DeleteCategory(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireRow(res, ErrCategoryNotFound)
}

func (s *Store) GetCategoryBySlug(ctx context.Context, slug string) (*Category, error) {
	var c Category
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, slug, description, sort_order, created_at
		FROM categories WHERE slug = $1
	`, slug).Scan(&c.ID, &c.Name, &c.Slug, &c.Description, &c.SortOrder, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrCategoryNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) ListCategories(ctx context.Context) ([]*Category, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, slug, description, sort_order, created_at
		FROM categories ORDER BY sort_order ASC, name ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []*Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug, &c.Description, &c.SortOrder, &c.CreatedAt); err != nil {
			return nil, err
		}
		categories = append(categories, &c)
	}
	return categories, rows.Err()
}

func requireRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}
