package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/vkuksa/product-catalog/internal/domain"
)

// pq error code for unique constraint violations
const uniqueViolation = "23505"

// ProductStore implements domain.ProductStore for PostgreSQL
type ProductStore struct {
	db *sqlx.DB
}

// NewProductStore creates a new PostgreSQL product store
func NewProductStore(db *sqlx.DB) *ProductStore {
	return &ProductStore{db: db}
}

// Save inserts a new product. The create race between two requests with the
// same code is resolved by the unique index on code: exactly one insert
// succeeds, the other observes domain.ErrAlreadyExists.
func (s *ProductStore) Save(ctx context.Context, product *domain.Product) error {
	query := `
		INSERT INTO products (code, name, description, price, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`

	now := time.Now()
	product.CreatedAt = now
	product.UpdatedAt = now

	err := s.db.QueryRowxContext(
		ctx,
		query,
		product.Code,
		product.Name,
		product.Description,
		product.Price,
		product.CreatedAt,
		product.UpdatedAt,
	).Scan(
		&product.ID,
		&product.CreatedAt,
		&product.UpdatedAt,
	)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return domain.ErrAlreadyExists
		}
		return err
	}

	return nil
}

// FindByCode retrieves a product by its business code
func (s *ProductStore) FindByCode(ctx context.Context, code string) (*domain.Product, error) {
	query := `
		SELECT id, code, name, description, image, price, created_at, updated_at
		FROM products
		WHERE code = $1
	`

	var product domain.Product
	err := s.db.GetContext(ctx, &product, query, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	return &product, nil
}

// UpdateImage sets the stored image name for the product matching code.
// A blind overwrite: redelivered events for the same code converge to the
// same row state, and an unknown code affects zero rows without error.
func (s *ProductStore) UpdateImage(ctx context.Context, code, imageName string) error {
	query := `
		UPDATE products
		SET image = $1, updated_at = $2
		WHERE code = $3
	`

	result, err := s.db.ExecContext(ctx, query, imageName, time.Now(), code)
	if err != nil {
		return err
	}

	// Zero rows means the product never existed or was created after the
	// event; either way there is nothing to apply.
	if _, err := result.RowsAffected(); err != nil {
		return err
	}

	return nil
}
