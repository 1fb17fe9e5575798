package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

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

// MockCacheInvalidator is a mock implementation of CacheInvalidator
type MockCacheInvalidator struct {
	mock.Mock
}

func (m *MockCacheInvalidator) InvalidateProduct(ctx context.Context, code string) error {
	args := m.Called(ctx, code)
	return args.Error(0)
}

func eventPayload(t *testing.T, code, image string) []byte {
	t.Helper()
	data, err := json.Marshal(ImageUploadedEvent{Code: code, Image: image})
	assert.NoError(t, err)
	return data
}

func TestImageWorker_HandleEvent_AppliesUpdate(t *testing.T) {
	store := new(MockProductStore)
	cache := new(MockCacheInvalidator)
	w := NewImageWorker(store, cache, logger.New("test"))

	store.On("UpdateImage", mock.Anything, "P100", "P100.png").Return(nil)
	cache.On("InvalidateProduct", mock.Anything, "P100").Return(nil)

	err := w.HandleEvent(eventPayload(t, "P100", "P100.png"))

	assert.NoError(t, err)
	store.AssertExpectations(t)
	cache.AssertExpectations(t)
}

func TestImageWorker_HandleEvent_Redelivery_Idempotent(t *testing.T) {
	store := new(MockProductStore)
	cache := new(MockCacheInvalidator)
	w := NewImageWorker(store, cache, logger.New("test"))

	store.On("UpdateImage", mock.Anything, "P100", "P100.png").Return(nil)
	cache.On("InvalidateProduct", mock.Anything, "P100").Return(nil)

	payload := eventPayload(t, "P100", "P100.png")

	// At-least-once delivery: the same event applied twice must succeed both
	// times and run the same blind overwrite
	assert.NoError(t, w.HandleEvent(payload))
	assert.NoError(t, w.HandleEvent(payload))

	store.AssertNumberOfCalls(t, "UpdateImage", 2)
}

func TestImageWorker_HandleEvent_MalformedPayload(t *testing.T) {
	store := new(MockProductStore)
	w := NewImageWorker(store, new(MockCacheInvalidator), logger.New("test"))

	err := w.HandleEvent([]byte("not json"))

	assert.Error(t, err)
	store.AssertNotCalled(t, "UpdateImage")
}

func TestImageWorker_HandleEvent_MissingFields(t *testing.T) {
	store := new(MockProductStore)
	w := NewImageWorker(store, new(MockCacheInvalidator), logger.New("test"))

	err := w.HandleEvent([]byte(`{"code":"","image":""}`))

	assert.Error(t, err)
	store.AssertNotCalled(t, "UpdateImage")
}

func TestImageWorker_HandleEvent_StoreFailure_Propagates(t *testing.T) {
	store := new(MockProductStore)
	cache := new(MockCacheInvalidator)
	w := NewImageWorker(store, cache, logger.New("test"))

	store.On("UpdateImage", mock.Anything, "P100", "P100.png").Return(errors.New("db down"))

	// A failed mutation must surface so the consume loop NAKs and the broker
	// redelivers instead of losing the event
	err := w.HandleEvent(eventPayload(t, "P100", "P100.png"))

	assert.Error(t, err)
	cache.AssertNotCalled(t, "InvalidateProduct")
}

func TestImageWorker_HandleEvent_CacheFailure_StillAcks(t *testing.T) {
	store := new(MockProductStore)
	cache := new(MockCacheInvalidator)
	w := NewImageWorker(store, cache, logger.New("test"))

	store.On("UpdateImage", mock.Anything, "P100", "P100.png").Return(nil)
	cache.On("InvalidateProduct", mock.Anything, "P100").Return(errors.New("redis down"))

	err := w.HandleEvent(eventPayload(t, "P100", "P100.png"))

	assert.NoError(t, err)
}
