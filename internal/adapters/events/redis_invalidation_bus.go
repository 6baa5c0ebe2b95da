package events

import (
	"context"
	"fmt"
	"sync"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"github.com/zatekoja/providersync/internal/domain/entities"
	"github.com/zatekoja/providersync/internal/domain/providers"
	redisclient "github.com/zatekoja/providersync/internal/infrastructure/clients/redis"
	"github.com/zatekoja/providersync/internal/infrastructure/observability"
)

// RedisInvalidationBus implements providers.InvalidationBus using Redis Pub/Sub.
// A single Redis subscription is shared by all local subscribers.
type RedisInvalidationBus struct {
	client      *redisclient.Client
	channel     string
	pubsub      *redis.PubSub
	subscribers map[chan *entities.AvailabilityInvalidation]struct{}
	mu          sync.RWMutex
	ctx         context.Context
	cancel      context.CancelFunc
}

// NewRedisInvalidationBus creates a new Redis-based invalidation bus
func NewRedisInvalidationBus(client *redisclient.Client) *RedisInvalidationBus {
	ctx, cancel := context.WithCancel(context.Background())
	return &RedisInvalidationBus{
		client:      client,
		channel:     providers.EventChannelAvailabilityInvalidations,
		subscribers: make(map[chan *entities.AvailabilityInvalidation]struct{}),
		ctx:         ctx,
		cancel:      cancel,
	}
}

var _ providers.InvalidationBus = (*RedisInvalidationBus)(nil)

// Publish publishes an invalidation to every subscribed instance
func (b *RedisInvalidationBus) Publish(ctx context.Context, invalidation *entities.AvailabilityInvalidation) error {
	data, err := json.Marshal(invalidation)
	if err != nil {
		return fmt.Errorf("failed to marshal invalidation: %w", err)
	}

	if err := b.client.Client().Publish(ctx, b.channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish invalidation: %w", err)
	}

	observability.LoggerFromContext(ctx).Debug().
		Str("channel", b.channel).
		Str("date", invalidation.Date.String()).
		Str("time_zone", invalidation.TimeZone).
		Msg("Published availability invalidation")
	return nil
}

// Subscribe returns a channel of invalidations that is closed when ctx is done
// or the bus is closed. The Redis subscription is confirmed before returning.
func (b *RedisInvalidationBus) Subscribe(ctx context.Context) (<-chan *entities.AvailabilityInvalidation, error) {
	b.mu.Lock()
	if b.ctx.Err() != nil {
		b.mu.Unlock()
		return nil, fmt.Errorf("invalidation bus is closed")
	}

	if b.pubsub == nil {
		pubsub := b.client.Client().Subscribe(b.ctx, b.channel)
		if _, err := pubsub.Receive(ctx); err != nil {
			_ = pubsub.Close()
			b.mu.Unlock()
			return nil, fmt.Errorf("failed to subscribe to %s: %w", b.channel, err)
		}
		b.pubsub = pubsub
		go b.receiveMessages(pubsub)
	}

	invalidations := make(chan *entities.AvailabilityInvalidation, 100)
	b.subscribers[invalidations] = struct{}{}
	subscriberCount := len(b.subscribers)
	b.mu.Unlock()

	observability.LoggerFromContext(ctx).Info().
		Str("channel", b.channel).
		Int("subscribers", subscriberCount).
		Msg("Subscribed to availability invalidations")

	go func() {
		select {
		case <-ctx.Done():
		case <-b.ctx.Done():
		}
		b.removeSubscriber(invalidations)
	}()

	return invalidations, nil
}

// receiveMessages fans Redis messages out to local subscribers
func (b *RedisInvalidationBus) receiveMessages(pubsub *redis.PubSub) {
	logger := observability.GetLogger()
	messages := pubsub.Channel()
	for {
		select {
		case <-b.ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}

			var invalidation entities.AvailabilityInvalidation
			if err := json.Unmarshal([]byte(msg.Payload), &invalidation); err != nil {
				logger.Warn().Err(err).Str("channel", b.channel).Msg("Failed to decode availability invalidation")
				continue
			}

			b.mu.RLock()
			for subscriber := range b.subscribers {
				select {
				case subscriber <- &invalidation:
				default:
					logger.Warn().Str("channel", b.channel).Msg("Subscriber channel full, dropping invalidation")
				}
			}
			b.mu.RUnlock()
		}
	}
}

func (b *RedisInvalidationBus) removeSubscriber(invalidations chan *entities.AvailabilityInvalidation) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subscribers[invalidations]; !ok {
		return
	}
	delete(b.subscribers, invalidations)
	close(invalidations)

	if len(b.subscribers) == 0 && b.pubsub != nil {
		_ = b.pubsub.Close()
		b.pubsub = nil
	}
}

// Close closes the bus and all subscriptions
func (b *RedisInvalidationBus) Close() error {
	b.cancel()

	b.mu.Lock()
	defer b.mu.Unlock()

	for subscriber := range b.subscribers {
		close(subscriber)
		delete(b.subscribers, subscriber)
	}

	if b.pubsub != nil {
		err := b.pubsub.Close()
		b.pubsub = nil
		if err != nil {
			return fmt.Errorf("failed to close subscription %s: %w", b.channel, err)
		}
	}
	return nil
}
