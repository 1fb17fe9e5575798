package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Product represents a catalog entry. Code is the externally assigned
// business key. Image holds the stored object name, not a URL, and is
// written only by the image update worker after a successful upload.
type Product struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Code        string    `json:"code" db:"code" validate:"required,min=1,max=255"`
	Name        string    `json:"name" db:"name" validate:"required,min=1,max=255"`
	Description *string   `json:"description,omitempty" db:"description"`
	Image       *string   `json:"image,omitempty" db:"image"`
	Price       float64   `json:"price" db:"price" validate:"required,gt=0"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// ProductView is the read model assembled per request. ImageURL is a freshly
// minted pre-signed URL (nil when the product has no image) and Available
// comes from the inventory service at read time; neither is persisted.
type ProductView struct {
	ID          uuid.UUID `json:"id"`
	Code        string    `json:"code"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	ImageURL    *string   `json:"imageUrl"`
	Price       float64   `json:"price"`
	Available   bool      `json:"available"`
}

// ProductStore defines the interface for durable product data access
type ProductStore interface {
	// Save inserts a new product; returns ErrAlreadyExists when the code is taken
	Save(ctx context.Context, product *Product) error

	// FindByCode retrieves a product by its business code; returns ErrNotFound
	// when no product matches (absence is an expected outcome)
	FindByCode(ctx context.Context, code string) (*Product, error)

	// UpdateImage sets the stored image name for the product matching code.
	// A missing product is a silent no-op, and repeated calls with the same
	// arguments leave the row in the same state.
	UpdateImage(ctx context.Context, code, imageName string) error
}
