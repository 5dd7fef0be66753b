package ports

import (
	"context"

	"github.com/samirrijal/poigeo/internal/core/domain"
)

// EventPublisher publishes schema events and ensure requests to a message broker.
type EventPublisher interface {
	PublishSchemaEvent(ctx context.Context, event *domain.SchemaEvent) error
	PublishEnsureRequest(ctx context.Context, req *domain.EnsureRequest) error
}

// EventSubscriber consumes ensure requests from a message broker.
type EventSubscriber interface {
	SubscribeEnsureRequests(ctx context.Context, handler func(ctx context.Context, req *domain.EnsureRequest) error) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}

// CacheInvalidator is implemented by caches that can drop keys by prefix.
type CacheInvalidator interface {
	DeletePrefix(ctx context.Context, prefix string) (int, error)
}
