package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"io"

	"github.com/go-playground/validator/v10"

	"github.com/vkuksa/product-catalog/internal/delivery/events"
	"github.com/vkuksa/product-catalog/internal/domain"
	"github.com/vkuksa/product-catalog/internal/pkg/logger"
	pkgvalidator "github.com/vkuksa/product-catalog/internal/pkg/validator"
)

// FileStorage defines the object storage operations the catalog needs
type FileStorage interface {
	Upload(ctx context.Context, name string, r io.Reader, size int64, contentType string) error
	PresignedURL(ctx context.Context, name string) (string, error)
}

// InventoryClient defines the external inventory lookup
type InventoryClient interface {
	GetQuantity(ctx context.Context, code string) (int, error)
}

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// ProductCache caches stored product records by code
type ProductCache interface {
	GetProduct(ctx context.Context, code string) (*domain.Product, error)
	SetProduct(ctx context.Context, product *domain.Product) error
	InvalidateProduct(ctx context.Context, code string) error
}

// ImageUploadedEvent is the fact emitted after a product image lands in
// object storage. Consumed at least once by the image update worker.
type ImageUploadedEvent struct {
	Code  string `json:"code"`
	Image string `json:"image"`
}

// Service orchestrates product creation, reads and image uploads.
//
// The image upload path is deliberately asynchronous: UploadImage stores the
// blob and publishes an event, but the product row is only mutated when the
// image update worker consumes that event. A read immediately after an upload
// may therefore still show no image; read-your-write is not guaranteed.
type Service struct {
	store     domain.ProductStore
	files     FileStorage
	inventory InventoryClient
	publisher EventPublisher
	cache     ProductCache
	validate  *validator.Validate
	logger    *logger.Logger
}

// NewService creates a new catalog service
func NewService(
	store domain.ProductStore,
	files FileStorage,
	inventory InventoryClient,
	publisher EventPublisher,
	cache ProductCache,
	log *logger.Logger,
) *Service {
	return &Service{
		store:     store,
		files:     files,
		inventory: inventory,
		publisher: publisher,
		cache:     cache,
		validate:  pkgvalidator.Get(),
		logger:    log,
	}
}

// Create persists a new product
func (s *Service) Create(ctx context.Context, product *domain.Product) error {
	if err := s.validate.Struct(product); err != nil {
		s.logger.Error("Product validation failed", err)
		return domain.ErrInvalidInput
	}

	if err := s.store.Save(ctx, product); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			s.logger.Debugf("Product code already taken: %s", product.Code)
		} else {
			s.logger.Error("Failed to create product", err)
		}
		return err
	}

	s.logger.WithFields(map[string]interface{}{
		"product_id": product.ID,
		"code":       product.Code,
	}).Info("Product created successfully")

	return nil
}

// GetByCode assembles the read view for a product: stored fields, a fresh
// pre-signed image URL and live availability
func (s *Service) GetByCode(ctx context.Context, code string) (*domain.ProductView, error) {
	product, err := s.findProduct(ctx, code)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.logger.Debugf("Product not found: %s", code)
		} else {
			s.logger.Error("Failed to get product", err)
		}
		return nil, err
	}

	view := &domain.ProductView{
		ID:          product.ID,
		Code:        product.Code,
		Name:        product.Name,
		Description: product.Description,
		Price:       product.Price,
		Available:   s.isAvailable(ctx, code),
	}

	if product.Image != nil && *product.Image != "" {
		url, err := s.files.PresignedURL(ctx, *product.Image)
		if err != nil {
			s.logger.Error("Failed to presign image URL", err)
			return nil, err
		}
		view.ImageURL = &url
	}

	return view, nil
}

// UploadImage stores the image bytes and publishes the image-uploaded event.
// The product row is not touched here; the worker applies the image name when
// the event is consumed.
func (s *Service) UploadImage(ctx context.Context, code, imageName string, r io.Reader, size int64, contentType string) error {
	if _, err := s.findProduct(ctx, code); err != nil {
		return err
	}

	if err := s.files.Upload(ctx, imageName, r, size, contentType); err != nil {
		s.logger.Error("Failed to upload product image", err)
		return err
	}

	s.publishImageUploaded(code, imageName)

	s.logger.WithFields(map[string]interface{}{
		"code":  code,
		"image": imageName,
	}).Info("Product image uploaded, event published")

	return nil
}

// findProduct reads through the cache, falling back to the store on a miss.
// Cache failures degrade to a direct store read.
func (s *Service) findProduct(ctx context.Context, code string) (*domain.Product, error) {
	product, err := s.cache.GetProduct(ctx, code)
	if err == nil {
		s.logger.Debugf("Cache hit for product %s", code)
		return product, nil
	}

	product, err = s.store.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetProduct(ctx, product); err != nil {
		s.logger.Warnf("Failed to cache product %s: %v", code, err)
	}

	return product, nil
}

// isAvailable asks the inventory service for the quantity of a code.
// Any failure is swallowed and reported as available: better to show a
// possibly-unavailable item than to hide one when inventory is degraded.
func (s *Service) isAvailable(ctx context.Context, code string) bool {
	quantity, err := s.inventory.GetQuantity(ctx, code)
	if err != nil {
		s.logger.Warnf("Inventory lookup failed for %s, treating as available: %v", code, err)
		return true
	}
	return quantity > 0
}

// publishImageUploaded publishes the event in the background so a slow broker
// never blocks the upload response. The upload is already durable in object
// storage at this point; publish failures are logged, not surfaced.
func (s *Service) publishImageUploaded(code, imageName string) {
	event := ImageUploadedEvent{
		Code:  code,
		Image: imageName,
	}

	data, err := json.Marshal(event)
	if err != nil {
		s.logger.Errorf(err, "Failed to marshal image event for product %s", code)
		return
	}

	go func() {
		if err := s.publisher.Publish(context.Background(), events.SubjectForCode(code), data); err != nil {
			s.logger.Errorf(err, "Failed to publish image event for product %s", code)
		}
	}()
}
