package repositories

import (
	"context"
	"time"

	"github.com/zatekoja/providersync/internal/domain/entities"
)

// ReplaceAvailabilityRequest describes one provider/day unit of work.
// Rows in (From, To) are deleted, or [From, To) when IncludeFrom is set,
// then Rows are inserted, all in a single transaction.
type ReplaceAvailabilityRequest struct {
	ProviderID  string
	From        time.Time
	IncludeFrom bool
	To          time.Time
	Rows        []entities.AvailabilityRow
}

// AvailabilityRepository defines write access to provider_availability
type AvailabilityRepository interface {
	// ReplaceAvailability applies req atomically
	ReplaceAvailability(ctx context.Context, req ReplaceAvailabilityRequest) error
}
