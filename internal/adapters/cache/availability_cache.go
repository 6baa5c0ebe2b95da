package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/zatekoja/providersync/internal/domain/entities"
	"github.com/zatekoja/providersync/internal/domain/providers"
	"github.com/zatekoja/providersync/internal/infrastructure/observability"
	"github.com/zatekoja/providersync/pkg/config"
)

// AvailabilityCache fronts a SchedulingProvider with two independently
// configured refresh-ahead caches, one for per-day times and one for
// per-month classes. Returned slices are shared and must not be modified.
type AvailabilityCache struct {
	times   *LoadingCache[TimesKey, []entities.AvailabilityTime]
	classes *LoadingCache[ClassesKey, []entities.AvailabilityClass]
}

// Option customizes an AvailabilityCache.
type Option func(*options)

type options struct {
	clock   func() time.Time
	metrics *observability.SyncMetrics
}

// WithClock sets the clock entry ages are measured against.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.clock = now }
}

// WithMetrics records hit, miss and refresh counts.
func WithMetrics(m *observability.SyncMetrics) Option {
	return func(o *options) { o.metrics = m }
}

// NewAvailabilityCache creates an AvailabilityCache over provider.
func NewAvailabilityCache(provider providers.SchedulingProvider, cfg config.SyncEngineConfig, opts ...Option) (*AvailabilityCache, error) {
	o := options{clock: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	times, err := NewLoadingCache[TimesKey, []entities.AvailabilityTime](LoadingCacheConfig{
		Name:              "availability_times",
		ExpireAfterWrite:  cfg.TimesCacheExpiry,
		RefreshAfterWrite: cfg.TimesCacheRefresh,
		LoadTimeout:       cfg.CacheLoadTimeout,
		MaxEntries:        cfg.CacheMaxEntries,
		Clock:             o.clock,
		Metrics:           o.metrics,
	}, func(ctx context.Context, key TimesKey) ([]entities.AvailabilityTime, error) {
		loc, err := key.Location()
		if err != nil {
			return nil, err
		}
		return provider.FindAvailabilityTimes(ctx, key.CalendarID, key.AppointmentTypeID, key.Date, loc)
	})
	if err != nil {
		return nil, fmt.Errorf("availability times cache: %w", err)
	}

	classes, err := NewLoadingCache[ClassesKey, []entities.AvailabilityClass](LoadingCacheConfig{
		Name:              "availability_classes",
		ExpireAfterWrite:  cfg.ClassesCacheExpiry,
		RefreshAfterWrite: cfg.ClassesCacheRefresh,
		LoadTimeout:       cfg.CacheLoadTimeout,
		MaxEntries:        cfg.CacheMaxEntries,
		Clock:             o.clock,
		Metrics:           o.metrics,
	}, func(ctx context.Context, key ClassesKey) ([]entities.AvailabilityClass, error) {
		loc, err := key.Location()
		if err != nil {
			return nil, err
		}
		return provider.FindAvailabilityClasses(ctx, key.Month, loc)
	})
	if err != nil {
		return nil, fmt.Errorf("availability classes cache: %w", err)
	}

	return &AvailabilityCache{times: times, classes: classes}, nil
}

func (c *AvailabilityCache) FindAvailabilityTimes(ctx context.Context, calendarID, appointmentTypeID int64, date entities.LocalDate, loc *time.Location) ([]entities.AvailabilityTime, error) {
	return c.times.Get(ctx, NewTimesKey(calendarID, appointmentTypeID, date, loc))
}

func (c *AvailabilityCache) FindAvailabilityClasses(ctx context.Context, month entities.YearMonth, loc *time.Location) ([]entities.AvailabilityClass, error) {
	return c.classes.Get(ctx, NewClassesKey(month, loc))
}

// InvalidateAvailability drops every cached lookup whose period overlaps
// date as observed in loc. Keys are compared by their own zone, so a lookup
// made in another zone is dropped whenever its day or month shares any
// instant with the target day.
func (c *AvailabilityCache) InvalidateAvailability(date entities.LocalDate, loc *time.Location) int {
	from, to := date.BoundsIn(loc)

	removed := c.times.RemoveIf(func(k TimesKey) bool {
		keyLoc, err := k.Location()
		if err != nil {
			return true
		}
		start, end := k.Date.BoundsIn(keyLoc)
		return overlaps(start, end, from, to)
	})
	removed += c.classes.RemoveIf(func(k ClassesKey) bool {
		keyLoc, err := k.Location()
		if err != nil {
			return true
		}
		start, end := k.Month.BoundsIn(keyLoc)
		return overlaps(start, end, from, to)
	})
	return removed
}

// InvalidateAll empties both caches.
func (c *AvailabilityCache) InvalidateAll() {
	c.times.Purge()
	c.classes.Purge()
}

// CacheKeys lists the keys currently held, for diagnostics.
type CacheKeys struct {
	Times   []string `json:"times"`
	Classes []string `json:"classes"`
}

func (c *AvailabilityCache) Keys() CacheKeys {
	keys := CacheKeys{Times: []string{}, Classes: []string{}}
	for _, k := range c.times.Keys() {
		keys.Times = append(keys.Times, k.String())
	}
	for _, k := range c.classes.Keys() {
		keys.Classes = append(keys.Classes, k.String())
	}
	return keys
}

func overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}
