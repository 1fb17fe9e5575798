package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/vkuksa/product-catalog/internal/domain"
	"github.com/vkuksa/product-catalog/internal/pkg/logger"
)

// applyTimeout bounds a single store mutation per delivered event
const applyTimeout = 5 * time.Second

// ImageUploadedEvent mirrors the payload published by the catalog service
type ImageUploadedEvent struct {
	Code  string `json:"code"`
	Image string `json:"image"`
}

// CacheInvalidator drops cached product records after a mutation
type CacheInvalidator interface {
	InvalidateProduct(ctx context.Context, code string) error
}

// ImageWorker applies image-uploaded events onto the product store.
//
// The broker delivers at least once: a redelivered event re-runs the same
// blind overwrite and leaves the row unchanged, so no dedup state is kept.
// When two images are uploaded for the same code, same-subject ordering means
// the last delivered event for that code wins.
type ImageWorker struct {
	store  domain.ProductStore
	cache  CacheInvalidator
	logger *logger.Logger
}

// NewImageWorker creates a new image update worker
func NewImageWorker(store domain.ProductStore, cache CacheInvalidator, log *logger.Logger) *ImageWorker {
	return &ImageWorker{
		store:  store,
		cache:  cache,
		logger: log,
	}
}

// HandleEvent processes a single delivered event. A non-nil return tells the
// consume loop not to acknowledge, so the broker redelivers.
func (w *ImageWorker) HandleEvent(data []byte) error {
	var event ImageUploadedEvent
	if err := json.Unmarshal(data, &event); err != nil {
		w.logger.Error("Failed to unmarshal image event", err)
		return fmt.Errorf("failed to unmarshal event: %w", err)
	}

	if event.Code == "" || event.Image == "" {
		return fmt.Errorf("malformed image event: code=%q image=%q", event.Code, event.Image)
	}

	w.logger.WithFields(map[string]any{
		"code":  event.Code,
		"image": event.Image,
	}).Info("Received image uploaded event")

	ctx, cancel := context.WithTimeout(context.Background(), applyTimeout)
	defer cancel()

	if err := w.store.UpdateImage(ctx, event.Code, event.Image); err != nil {
		w.logger.Errorf(err, "Failed to apply image update for product %s", event.Code)
		return fmt.Errorf("failed to update image for %s: %w", event.Code, err)
	}

	if w.cache != nil {
		if err := w.cache.InvalidateProduct(ctx, event.Code); err != nil {
			// The row is already updated; a stale cache entry expires on its
			// own TTL, so this is not worth a redelivery.
			w.logger.Warnf("Failed to invalidate cache for product %s: %v", event.Code, err)
		}
	}

	w.logger.WithFields(map[string]any{
		"code":  event.Code,
		"image": event.Image,
	}).Info("Applied image update")

	return nil
}
