package providers

import (
	"context"

	"github.com/zatekoja/providersync/internal/domain/entities"
)

// InvalidationBus fans availability invalidations out to every running instance
type InvalidationBus interface {
	// Publish publishes an invalidation to all subscribers
	Publish(ctx context.Context, invalidation *entities.AvailabilityInvalidation) error

	// Subscribe returns a channel of invalidations that closes when ctx is done
	Subscribe(ctx context.Context) (<-chan *entities.AvailabilityInvalidation, error)

	// Close closes the bus and all subscriptions
	Close() error
}

// EventChannelAvailabilityInvalidations is the pub/sub channel for availability invalidations
const EventChannelAvailabilityInvalidations = "availability:invalidations"
