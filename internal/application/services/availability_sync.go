package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
	"time"

	"github.com/zatekoja/providersync/internal/domain/entities"
	"github.com/zatekoja/providersync/internal/domain/providers"
	"github.com/zatekoja/providersync/internal/domain/repositories"
	"github.com/zatekoja/providersync/internal/infrastructure/clients/acuity"
	"github.com/zatekoja/providersync/internal/infrastructure/observability"
	"github.com/zatekoja/providersync/pkg/tenant"
)

// AvailabilitySyncTask copies the next LookaheadDays of availability for
// every active Acuity provider of the current tenant into local storage.
type AvailabilitySyncTask struct {
	providers        repositories.ProviderRepository
	appointmentTypes repositories.AppointmentTypeRepository
	scheduling       providers.SchedulingProvider
	writer           *AvailabilityWriter
	lookaheadDays    int
	now              func() time.Time
	shuffle          func([]*entities.Provider)
	metrics          *observability.SyncMetrics
}

// AvailabilitySyncTaskConfig wires an AvailabilitySyncTask.
type AvailabilitySyncTaskConfig struct {
	Providers        repositories.ProviderRepository
	AppointmentTypes repositories.AppointmentTypeRepository
	Scheduling       providers.SchedulingProvider
	Writer           *AvailabilityWriter
	LookaheadDays    int
	Clock            func() time.Time
	// Shuffle reorders providers before each run. Defaults to a random permutation.
	Shuffle func([]*entities.Provider)
	Metrics *observability.SyncMetrics
}

// NewAvailabilitySyncTask creates a new availability sync task
func NewAvailabilitySyncTask(cfg AvailabilitySyncTaskConfig) *AvailabilitySyncTask {
	t := &AvailabilitySyncTask{
		providers:        cfg.Providers,
		appointmentTypes: cfg.AppointmentTypes,
		scheduling:       cfg.Scheduling,
		writer:           cfg.Writer,
		lookaheadDays:    cfg.LookaheadDays,
		now:              cfg.Clock,
		shuffle:          cfg.Shuffle,
		metrics:          cfg.Metrics,
	}
	if t.now == nil {
		t.now = time.Now
	}
	if t.shuffle == nil {
		t.shuffle = func(ps []*entities.Provider) {
			rand.Shuffle(len(ps), func(i, j int) { ps[i], ps[j] = ps[j], ps[i] })
		}
	}
	return t
}

func (t *AvailabilitySyncTask) Name() string { return "availability-sync" }

// Run syncs providers one at a time in a freshly shuffled order. Acuity caps
// how much work it accepts per cycle, so shuffling gives every provider a
// chance across consecutive runs. A failing provider is logged and skipped.
func (t *AvailabilitySyncTask) Run(ctx context.Context) error {
	tc, ok := tenant.FromContext(ctx)
	if !ok {
		return errors.New("availability sync requires a tenant context")
	}

	ctx, span := observability.StartSpan(ctx, "sync.availability")
	defer span.End()
	logger := observability.LoggerFromContext(ctx)

	providerList, err := t.providers.ListActiveBySchedulingSystem(ctx, tc.InstitutionID, entities.SchedulingSystemAcuity)
	if err != nil {
		observability.RecordError(span, err)
		return fmt.Errorf("list providers: %w", err)
	}
	t.shuffle(providerList)

	succeeded := 0
	for _, provider := range providerList {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := t.syncProvider(ctx, provider)
		switch {
		case err == nil:
			succeeded++
			t.metrics.RecordProviderSync(ctx, "success")
		case ctx.Err() != nil:
			return ctx.Err()
		case acuity.IsUndocumentedRateLimit(err):
			t.metrics.RecordProviderSync(ctx, "undocumented_rate_limit")
			logger.Warn().
				Str("provider_id", provider.ProviderID).
				Str("provider_name", provider.Name).
				Msg("Acuity undocumented rate limit reached, provider will be retried next run")
		default:
			t.metrics.RecordProviderSync(ctx, "failure")
			logger.Error().Err(err).
				Str("provider_id", provider.ProviderID).
				Str("provider_name", provider.Name).
				Msg("Failed to sync provider availability")
		}
	}

	logger.Info().
		Int("succeeded", succeeded).
		Int("total", len(providerList)).
		Msg("Availability sync complete")
	return nil
}

// syncProvider fetches every day of the window before writing any of them, so a
// vendor failure part-way through leaves the stored window untouched. Each day
// is then committed in its own transaction.
func (t *AvailabilitySyncTask) syncProvider(ctx context.Context, provider *entities.Provider) error {
	if provider.AcuityCalendarID == 0 {
		return fmt.Errorf("provider %s has no Acuity calendar", provider.ProviderID)
	}
	loc, err := provider.Location()
	if err != nil {
		return err
	}

	appointmentTypes, err := t.appointmentTypes.ListByProvider(ctx, provider.ProviderID)
	if err != nil {
		return fmt.Errorf("list appointment types for provider %s: %w", provider.ProviderID, err)
	}

	today := entities.LocalDateOf(t.now().In(loc))
	batches := make([]entities.ProviderAvailabilityBatch, 0, t.lookaheadDays)
	for day := 0; day < t.lookaheadDays; day++ {
		batch, err := t.fetchBatch(ctx, provider, loc, today.AddDays(day), appointmentTypes)
		if err != nil {
			return err
		}
		batches = append(batches, batch)
	}

	for _, batch := range batches {
		if err := t.writer.Write(ctx, batch); err != nil {
			return fmt.Errorf("write availability for provider %s on %s: %w", provider.ProviderID, batch.Date, err)
		}
	}
	return nil
}

func (t *AvailabilitySyncTask) fetchBatch(ctx context.Context, provider *entities.Provider, loc *time.Location, date entities.LocalDate, appointmentTypes []*entities.AppointmentType) (entities.ProviderAvailabilityBatch, error) {
	batch := entities.ProviderAvailabilityBatch{
		ProviderID: provider.ProviderID,
		Date:       date,
		TimeZone:   loc,
		Rows:       []entities.AvailabilityRow{},
	}

	for _, appointmentType := range appointmentTypes {
		times, err := t.scheduling.FindAvailabilityTimes(ctx, provider.AcuityCalendarID, appointmentType.AcuityAppointmentTypeID, date, loc)
		if err != nil {
			return batch, err
		}
		for _, slot := range times {
			batch.Rows = append(batch.Rows, entities.AvailabilityRow{
				AppointmentTypeID: appointmentType.AppointmentTypeID,
				DateTime:          slot.Time.In(loc),
			})
		}
	}

	sort.SliceStable(batch.Rows, func(i, j int) bool {
		return batch.Rows[i].DateTime.Before(batch.Rows[j].DateTime)
	})
	return batch, nil
}
