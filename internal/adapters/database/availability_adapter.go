package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/rs/zerolog/log"

	"github.com/zatekoja/providersync/internal/domain/entities"
	"github.com/zatekoja/providersync/internal/domain/repositories"
	"github.com/zatekoja/providersync/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/providersync/pkg/errors"
)

// AvailabilityAdapter implements the AvailabilityRepository interface
type AvailabilityAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewAvailabilityAdapter creates a new availability adapter
func NewAvailabilityAdapter(client *postgres.Client) repositories.AvailabilityRepository {
	return &AvailabilityAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// ReplaceAvailability deletes the provider's rows in the requested window and
// inserts the new rows in one transaction.
func (a *AvailabilityAdapter) ReplaceAvailability(ctx context.Context, req repositories.ReplaceAvailabilityRequest) (err error) {
	lower := goqu.C("date_time").Gt(req.From)
	if req.IncludeFrom {
		lower = goqu.C("date_time").Gte(req.From)
	}

	deleteSQL, deleteArgs, err := a.db.Delete("provider_availability").
		Where(
			goqu.C("provider_id").Eq(req.ProviderID),
			lower,
			goqu.C("date_time").Lt(req.To),
		).
		Prepared(true).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build delete query", err)
	}

	tx, err := a.client.BeginTx(ctx)
	if err != nil {
		return apperrors.NewInternalError("failed to begin transaction", err)
	}
	defer func() {
		if err == nil {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			log.Error().Err(rbErr).Str("provider_id", req.ProviderID).Msg("Failed to roll back availability transaction")
		}
	}()

	if _, err = tx.ExecContext(ctx, deleteSQL, deleteArgs...); err != nil {
		return apperrors.NewInternalError("failed to delete provider availability", err)
	}

	rows := req.Rows
	if !req.IncludeFrom {
		// A row exactly at From survives the exclusive delete; keep it rather
		// than inserting a second copy.
		if rows, err = a.withoutExistingAt(ctx, tx, req.ProviderID, req.From, rows); err != nil {
			return err
		}
	}
	if len(rows) > 0 {
		insertSQL, insertArgs, buildErr := a.insertQuery(req.ProviderID, rows)
		if buildErr != nil {
			return buildErr
		}
		if _, err = tx.ExecContext(ctx, insertSQL, insertArgs...); err != nil {
			return apperrors.NewInternalError("failed to insert provider availability", err)
		}
	}
	if err = tx.Commit(); err != nil {
		return apperrors.NewInternalError("failed to commit provider availability", err)
	}
	return nil
}

func (a *AvailabilityAdapter) insertQuery(providerID string, rows []entities.AvailabilityRow) (string, []any, error) {
	records := make([]any, 0, len(rows))
	for _, row := range rows {
		records = append(records, goqu.Record{
			"provider_id":         providerID,
			"appointment_type_id": row.AppointmentTypeID,
			"date_time":           row.DateTime,
		})
	}
	query, args, err := a.db.Insert("provider_availability").
		Rows(records...).
		Prepared(true).
		ToSQL()
	if err != nil {
		return "", nil, apperrors.NewInternalError("failed to build insert query", err)
	}
	return query, args, nil
}

// withoutExistingAt drops rows at exactly at whose appointment type already
// has a stored row at that instant.
func (a *AvailabilityAdapter) withoutExistingAt(ctx context.Context, tx *sql.Tx, providerID string, at time.Time, rows []entities.AvailabilityRow) ([]entities.AvailabilityRow, error) {
	atBoundary := false
	for _, row := range rows {
		if row.DateTime.Equal(at) {
			atBoundary = true
			break
		}
	}
	if !atBoundary {
		return rows, nil
	}

	query, args, err := a.db.From("provider_availability").
		Select("appointment_type_id").
		Where(
			goqu.C("provider_id").Eq(providerID),
			goqu.C("date_time").Eq(at),
		).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build existing availability query", err)
	}

	result, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to query existing provider availability", err)
	}
	defer result.Close()

	existing := make(map[string]struct{})
	for result.Next() {
		var appointmentTypeID string
		if err := result.Scan(&appointmentTypeID); err != nil {
			return nil, apperrors.NewInternalError("failed to scan existing provider availability", err)
		}
		existing[appointmentTypeID] = struct{}{}
	}
	if err := result.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to read existing provider availability", err)
	}

	filtered := make([]entities.AvailabilityRow, 0, len(rows))
	for _, row := range rows {
		if _, ok := existing[row.AppointmentTypeID]; ok && row.DateTime.Equal(at) {
			continue
		}
		filtered = append(filtered, row)
	}
	return filtered, nil
}
