package catalog

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/vkuksa/product-catalog/internal/domain"
	"github.com/vkuksa/product-catalog/internal/pkg/logger"
)

// MockProductStore is a mock implementation of domain.ProductStore
type MockProductStore struct {
	mock.Mock
}

func (m *MockProductStore) Save(ctx context.Context, product *domain.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *MockProductStore) FindByCode(ctx context.Context, code string) (*domain.Product, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *MockProductStore) UpdateImage(ctx context.Context, code, imageName string) error {
	args := m.Called(ctx, code, imageName)
	return args.Error(0)
}

// MockFileStorage is a mock implementation of FileStorage
type MockFileStorage struct {
	mock.Mock
}

func (m *MockFileStorage) Upload(ctx context.Context, name string, r io.Reader, size int64, contentType string) error {
	args := m.Called(ctx, name, r, size, contentType)
	return args.Error(0)
}

func (m *MockFileStorage) PresignedURL(ctx context.Context, name string) (string, error) {
	args := m.Called(ctx, name)
	return args.String(0), args.Error(1)
}

// MockInventoryClient is a mock implementation of InventoryClient
type MockInventoryClient struct {
	mock.Mock
}

func (m *MockInventoryClient) GetQuantity(ctx context.Context, code string) (int, error) {
	args := m.Called(ctx, code)
	return args.Int(0), args.Error(1)
}

// MockEventPublisher is a mock implementation of EventPublisher
type MockEventPublisher struct {
	mock.Mock
	published chan []byte
}

func NewMockEventPublisher() *MockEventPublisher {
	return &MockEventPublisher{published: make(chan []byte, 1)}
}

func (m *MockEventPublisher) Publish(ctx context.Context, subject string, data []byte) error {
	args := m.Called(ctx, subject, data)
	if m.published != nil {
		m.published <- data
	}
	return args.Error(0)
}

// MockProductCache is a mock implementation of ProductCache
type MockProductCache struct {
	mock.Mock
}

func (m *MockProductCache) GetProduct(ctx context.Context, code string) (*domain.Product, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *MockProductCache) SetProduct(ctx context.Context, product *domain.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *MockProductCache) InvalidateProduct(ctx context.Context, code string) error {
	args := m.Called(ctx, code)
	return args.Error(0)
}

func newTestService(store *MockProductStore, files *MockFileStorage, inv *MockInventoryClient, pub *MockEventPublisher, c *MockProductCache) *Service {
	return NewService(store, files, inv, pub, c, logger.New("test"))
}

func missEverything(c *MockProductCache) {
	c.On("GetProduct", mock.Anything, mock.Anything).Return(nil, domain.ErrNotFound)
	c.On("SetProduct", mock.Anything, mock.Anything).Return(nil)
}

func TestService_Create_Success(t *testing.T) {
	store := new(MockProductStore)
	service := newTestService(store, new(MockFileStorage), new(MockInventoryClient), NewMockEventPublisher(), new(MockProductCache))

	product := &domain.Product{
		Code:  "P100",
		Name:  "Widget",
		Price: 10.0,
	}

	store.On("Save", mock.Anything, product).Return(nil)

	err := service.Create(context.Background(), product)

	assert.NoError(t, err)
	store.AssertExpectations(t)
}

func TestService_Create_InvalidInput(t *testing.T) {
	tests := []struct {
		name    string
		product *domain.Product
	}{
		{"empty code", &domain.Product{Code: "", Name: "Widget", Price: 10.0}},
		{"empty name", &domain.Product{Code: "P100", Name: "", Price: 10.0}},
		{"zero price", &domain.Product{Code: "P100", Name: "Widget", Price: 0}},
		{"negative price", &domain.Product{Code: "P100", Name: "Widget", Price: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := new(MockProductStore)
			service := newTestService(store, new(MockFileStorage), new(MockInventoryClient), NewMockEventPublisher(), new(MockProductCache))

			err := service.Create(context.Background(), tt.product)

			assert.ErrorIs(t, err, domain.ErrInvalidInput)
			store.AssertNotCalled(t, "Save")
		})
	}
}

func TestService_Create_DuplicateCode(t *testing.T) {
	store := new(MockProductStore)
	service := newTestService(store, new(MockFileStorage), new(MockInventoryClient), NewMockEventPublisher(), new(MockProductCache))

	product := &domain.Product{Code: "P100", Name: "Widget", Price: 10.0}
	store.On("Save", mock.Anything, product).Return(domain.ErrAlreadyExists)

	err := service.Create(context.Background(), product)

	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
	store.AssertExpectations(t)
}

func TestService_GetByCode_NoImage(t *testing.T) {
	store := new(MockProductStore)
	files := new(MockFileStorage)
	inv := new(MockInventoryClient)
	cache := new(MockProductCache)
	service := newTestService(store, files, inv, NewMockEventPublisher(), cache)

	missEverything(cache)
	store.On("FindByCode", mock.Anything, "P100").Return(&domain.Product{
		Code:  "P100",
		Name:  "Widget",
		Price: 10.0,
	}, nil)
	inv.On("GetQuantity", mock.Anything, "P100").Return(5, nil)

	view, err := service.GetByCode(context.Background(), "P100")

	assert.NoError(t, err)
	assert.Equal(t, "P100", view.Code)
	assert.Equal(t, "Widget", view.Name)
	assert.Nil(t, view.ImageURL)
	assert.True(t, view.Available)
	files.AssertNotCalled(t, "PresignedURL")
}

func TestService_GetByCode_WithImage(t *testing.T) {
	store := new(MockProductStore)
	files := new(MockFileStorage)
	inv := new(MockInventoryClient)
	cache := new(MockProductCache)
	service := newTestService(store, files, inv, NewMockEventPublisher(), cache)

	image := "P100.png"
	missEverything(cache)
	store.On("FindByCode", mock.Anything, "P100").Return(&domain.Product{
		Code:  "P100",
		Name:  "Widget",
		Image: &image,
		Price: 10.0,
	}, nil)
	files.On("PresignedURL", mock.Anything, "P100.png").Return("http://storage/P100.png?sig=abc", nil)
	inv.On("GetQuantity", mock.Anything, "P100").Return(1, nil)

	view, err := service.GetByCode(context.Background(), "P100")

	assert.NoError(t, err)
	assert.NotNil(t, view.ImageURL)
	assert.Equal(t, "http://storage/P100.png?sig=abc", *view.ImageURL)
}

func TestService_GetByCode_InventoryDown_TreatedAsAvailable(t *testing.T) {
	store := new(MockProductStore)
	inv := new(MockInventoryClient)
	cache := new(MockProductCache)
	service := newTestService(store, new(MockFileStorage), inv, NewMockEventPublisher(), cache)

	missEverything(cache)
	store.On("FindByCode", mock.Anything, "P100").Return(&domain.Product{
		Code:  "P100",
		Name:  "Widget",
		Price: 10.0,
	}, nil)
	inv.On("GetQuantity", mock.Anything, "P100").Return(0, errors.New("connection refused"))

	view, err := service.GetByCode(context.Background(), "P100")

	assert.NoError(t, err)
	assert.True(t, view.Available)
}

func TestService_GetByCode_ZeroQuantity_Unavailable(t *testing.T) {
	store := new(MockProductStore)
	inv := new(MockInventoryClient)
	cache := new(MockProductCache)
	service := newTestService(store, new(MockFileStorage), inv, NewMockEventPublisher(), cache)

	missEverything(cache)
	store.On("FindByCode", mock.Anything, "P100").Return(&domain.Product{
		Code:  "P100",
		Name:  "Widget",
		Price: 10.0,
	}, nil)
	inv.On("GetQuantity", mock.Anything, "P100").Return(0, nil)

	view, err := service.GetByCode(context.Background(), "P100")

	assert.NoError(t, err)
	assert.False(t, view.Available)
}

func TestService_GetByCode_NotFound(t *testing.T) {
	store := new(MockProductStore)
	cache := new(MockProductCache)
	service := newTestService(store, new(MockFileStorage), new(MockInventoryClient), NewMockEventPublisher(), cache)

	cache.On("GetProduct", mock.Anything, "MISSING").Return(nil, domain.ErrNotFound)
	store.On("FindByCode", mock.Anything, "MISSING").Return(nil, domain.ErrNotFound)

	view, err := service.GetByCode(context.Background(), "MISSING")

	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Nil(t, view)
}

func TestService_GetByCode_CacheHit_SkipsStore(t *testing.T) {
	store := new(MockProductStore)
	inv := new(MockInventoryClient)
	cache := new(MockProductCache)
	service := newTestService(store, new(MockFileStorage), inv, NewMockEventPublisher(), cache)

	cache.On("GetProduct", mock.Anything, "P100").Return(&domain.Product{
		Code:  "P100",
		Name:  "Widget",
		Price: 10.0,
	}, nil)
	inv.On("GetQuantity", mock.Anything, "P100").Return(3, nil)

	view, err := service.GetByCode(context.Background(), "P100")

	assert.NoError(t, err)
	assert.Equal(t, "P100", view.Code)
	store.AssertNotCalled(t, "FindByCode")
}

func TestService_UploadImage_PublishesEvent(t *testing.T) {
	store := new(MockProductStore)
	files := new(MockFileStorage)
	pub := NewMockEventPublisher()
	cache := new(MockProductCache)
	service := newTestService(store, files, new(MockInventoryClient), pub, cache)

	missEverything(cache)
	store.On("FindByCode", mock.Anything, "P100").Return(&domain.Product{
		Code:  "P100",
		Name:  "Widget",
		Price: 10.0,
	}, nil)
	files.On("Upload", mock.Anything, "P100.png", mock.Anything, int64(4), "image/png").Return(nil)
	pub.On("Publish", mock.Anything, "products.image.updated.P100", mock.Anything).Return(nil)

	body := bytes.NewReader([]byte("data"))
	err := service.UploadImage(context.Background(), "P100", "P100.png", body, 4, "image/png")

	assert.NoError(t, err)

	// Publish runs in the background after the upload is durable
	select {
	case data := <-pub.published:
		assert.JSONEq(t, `{"code":"P100","image":"P100.png"}`, string(data))
	case <-time.After(2 * time.Second):
		t.Fatal("event was not published")
	}

	// The upload path must never set the image synchronously
	store.AssertNotCalled(t, "UpdateImage")
}

func TestService_UploadImage_UnknownProduct(t *testing.T) {
	store := new(MockProductStore)
	files := new(MockFileStorage)
	pub := NewMockEventPublisher()
	cache := new(MockProductCache)
	service := newTestService(store, files, new(MockInventoryClient), pub, cache)

	cache.On("GetProduct", mock.Anything, "MISSING").Return(nil, domain.ErrNotFound)
	store.On("FindByCode", mock.Anything, "MISSING").Return(nil, domain.ErrNotFound)

	err := service.UploadImage(context.Background(), "MISSING", "MISSING.png", bytes.NewReader(nil), 0, "image/png")

	assert.ErrorIs(t, err, domain.ErrNotFound)
	files.AssertNotCalled(t, "Upload")
	pub.AssertNotCalled(t, "Publish")
}

func TestService_UploadImage_UploadFails_NoEvent(t *testing.T) {
	store := new(MockProductStore)
	files := new(MockFileStorage)
	pub := NewMockEventPublisher()
	cache := new(MockProductCache)
	service := newTestService(store, files, new(MockInventoryClient), pub, cache)

	missEverything(cache)
	store.On("FindByCode", mock.Anything, "P100").Return(&domain.Product{
		Code:  "P100",
		Name:  "Widget",
		Price: 10.0,
	}, nil)
	files.On("Upload", mock.Anything, "P100.png", mock.Anything, int64(4), "image/png").
		Return(domain.ErrStorageUpload)

	err := service.UploadImage(context.Background(), "P100", "P100.png", bytes.NewReader([]byte("data")), 4, "image/png")

	assert.ErrorIs(t, err, domain.ErrStorageUpload)
	pub.AssertNotCalled(t, "Publish")
}
