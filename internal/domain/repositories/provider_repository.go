package repositories

import (
	"context"

	"github.com/zatekoja/providersync/internal/domain/entities"
)

// ProviderRepository defines read access to providers
type ProviderRepository interface {
	// ListActiveBySchedulingSystem returns active providers of an institution whose calendars live in system
	ListActiveBySchedulingSystem(ctx context.Context, institutionID string, system entities.SchedulingSystem) ([]*entities.Provider, error)
}
