package services

import (
	"context"
	"time"

	"github.com/zatekoja/providersync/internal/domain/entities"
	"github.com/zatekoja/providersync/internal/domain/repositories"
	"github.com/zatekoja/providersync/internal/infrastructure/observability"
)

// AvailabilityWriter applies one provider-day of freshly fetched availability
// without touching history. "Today" is evaluated in the batch's time zone.
//
//   - past dates are skipped entirely
//   - today replaces rows strictly after now and inserts rows not before now
//   - future dates replace the whole day
type AvailabilityWriter struct {
	repo repositories.AvailabilityRepository
	now  func() time.Time
}

// NewAvailabilityWriter creates a writer; a nil clock uses time.Now.
func NewAvailabilityWriter(repo repositories.AvailabilityRepository, now func() time.Time) *AvailabilityWriter {
	if now == nil {
		now = time.Now
	}
	return &AvailabilityWriter{repo: repo, now: now}
}

// Write commits batch in a single transaction, or does nothing for past dates.
func (w *AvailabilityWriter) Write(ctx context.Context, batch entities.ProviderAvailabilityBatch) error {
	loc := batch.TimeZone
	if loc == nil {
		loc = time.UTC
	}
	now := w.now().In(loc)
	today := entities.LocalDateOf(now)

	if batch.Date.Before(today) {
		observability.LoggerFromContext(ctx).Debug().
			Str("provider_id", batch.ProviderID).
			Str("date", batch.Date.String()).
			Msg("Skipping availability write for past date")
		return nil
	}

	start, end := batch.Date.BoundsIn(loc)
	req := repositories.ReplaceAvailabilityRequest{
		ProviderID:  batch.ProviderID,
		From:        start,
		IncludeFrom: true,
		To:          end,
		Rows:        batch.Rows,
	}

	if batch.Date == today {
		req.From = now
		req.IncludeFrom = false
		req.Rows = make([]entities.AvailabilityRow, 0, len(batch.Rows))
		for _, row := range batch.Rows {
			if row.DateTime.Before(now) {
				continue
			}
			req.Rows = append(req.Rows, row)
		}
	}

	return w.repo.ReplaceAvailability(ctx, req)
}
