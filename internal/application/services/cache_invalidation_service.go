package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/zatekoja/providersync/internal/domain/entities"
	"github.com/zatekoja/providersync/internal/domain/providers"
	"github.com/zatekoja/providersync/internal/infrastructure/observability"
)

// AvailabilityInvalidator drops cached availability
type AvailabilityInvalidator interface {
	InvalidateAvailability(date entities.LocalDate, loc *time.Location) int
	InvalidateAll()
}

// CacheInvalidationService keeps the availability cache of every running
// instance consistent. Invalidations are published on the bus and applied
// when received, including by the publishing instance. Without a bus they
// are applied locally.
type CacheInvalidationService struct {
	cache AvailabilityInvalidator
	bus   providers.InvalidationBus

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewCacheInvalidationService creates a new cache invalidation service. bus may be nil.
func NewCacheInvalidationService(cache AvailabilityInvalidator, bus providers.InvalidationBus) *CacheInvalidationService {
	return &CacheInvalidationService{cache: cache, bus: bus}
}

// Start begins listening for invalidations
func (s *CacheInvalidationService) Start(ctx context.Context) error {
	if s.bus == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return errors.New("cache invalidation service already started")
	}

	listenCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	invalidations, err := s.bus.Subscribe(listenCtx)
	if err != nil {
		cancel()
		return fmt.Errorf("failed to subscribe to availability invalidations: %w", err)
	}

	s.cancel = cancel
	s.done = make(chan struct{})
	go s.processInvalidations(listenCtx, invalidations, s.done)

	observability.LoggerFromContext(ctx).Info().
		Str("channel", providers.EventChannelAvailabilityInvalidations).
		Msg("Cache invalidation service started")
	return nil
}

// Stop stops listening and waits for the listener to exit
func (s *CacheInvalidationService) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	observability.GetLogger().Info().Msg("Cache invalidation service stopped")
}

// Invalidate announces that availability for date, as observed in loc, changed.
func (s *CacheInvalidationService) Invalidate(ctx context.Context, date entities.LocalDate, loc *time.Location, reason string) error {
	if loc == nil {
		loc = time.UTC
	}
	invalidation := &entities.AvailabilityInvalidation{
		Date:     date,
		TimeZone: loc.String(),
		Reason:   reason,
	}

	if s.bus == nil {
		s.apply(ctx, invalidation)
		return nil
	}
	if err := s.bus.Publish(ctx, invalidation); err != nil {
		return fmt.Errorf("failed to publish availability invalidation: %w", err)
	}
	return nil
}

// InvalidateAll drops every cached entry on this instance
func (s *CacheInvalidationService) InvalidateAll() {
	s.cache.InvalidateAll()
}

func (s *CacheInvalidationService) processInvalidations(ctx context.Context, invalidations <-chan *entities.AvailabilityInvalidation, done chan<- struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case invalidation, ok := <-invalidations:
			if !ok {
				return
			}
			if invalidation == nil {
				continue
			}
			s.apply(ctx, invalidation)
		}
	}
}

func (s *CacheInvalidationService) apply(ctx context.Context, invalidation *entities.AvailabilityInvalidation) {
	logger := observability.LoggerFromContext(ctx)

	loc, err := time.LoadLocation(invalidation.TimeZone)
	if err != nil {
		logger.Warn().Err(err).
			Str("time_zone", invalidation.TimeZone).
			Msg("Ignoring availability invalidation with unknown time zone")
		return
	}

	removed := s.cache.InvalidateAvailability(invalidation.Date, loc)
	logger.Info().
		Str("date", invalidation.Date.String()).
		Str("time_zone", invalidation.TimeZone).
		Str("reason", invalidation.Reason).
		Int("removed", removed).
		Msg("Invalidated cached availability")
}
