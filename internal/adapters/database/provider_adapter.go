package database

import (
	"context"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/jmoiron/sqlx"

	"github.com/zatekoja/providersync/internal/domain/entities"
	"github.com/zatekoja/providersync/internal/domain/repositories"
	"github.com/zatekoja/providersync/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/providersync/pkg/errors"
)

// ProviderAdapter implements the ProviderRepository interface
type ProviderAdapter struct {
	db   *goqu.Database
	sqlx *sqlx.DB
}

// NewProviderAdapter creates a new provider adapter
func NewProviderAdapter(client *postgres.Client) repositories.ProviderRepository {
	return &ProviderAdapter{
		db:   goqu.New("postgres", client.DB()),
		sqlx: sqlx.NewDb(client.DB(), "postgres"),
	}
}

// ListActiveBySchedulingSystem returns active providers ordered by id
func (a *ProviderAdapter) ListActiveBySchedulingSystem(ctx context.Context, institutionID string, system entities.SchedulingSystem) ([]*entities.Provider, error) {
	query, args, err := a.db.Select(
		"provider_id", "institution_id", "name", "scheduling_system_id",
		"acuity_calendar_id", "time_zone", "active",
	).From("provider").
		Where(goqu.Ex{
			"institution_id":       institutionID,
			"scheduling_system_id": string(system),
			"active":               true,
		}).
		Order(goqu.I("provider_id").Asc()).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	var providers []*entities.Provider
	if err := a.sqlx.SelectContext(ctx, &providers, query, args...); err != nil {
		return nil, apperrors.NewInternalError("failed to list providers", err)
	}
	return providers, nil
}
