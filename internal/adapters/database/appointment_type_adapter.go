package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/jmoiron/sqlx"

	"github.com/zatekoja/providersync/internal/domain/entities"
	"github.com/zatekoja/providersync/internal/domain/repositories"
	"github.com/zatekoja/providersync/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/providersync/pkg/errors"
)

var appointmentTypeColumns = []any{
	"appointment_type_id", "scheduling_system_id", "acuity_appointment_type_id",
	"name", "description", "duration_in_minutes", "deleted",
}

// AppointmentTypeAdapter implements the AppointmentTypeRepository interface
type AppointmentTypeAdapter struct {
	db   *goqu.Database
	sqlx *sqlx.DB
}

// NewAppointmentTypeAdapter creates a new appointment type adapter
func NewAppointmentTypeAdapter(client *postgres.Client) repositories.AppointmentTypeRepository {
	return &AppointmentTypeAdapter{
		db:   goqu.New("postgres", client.DB()),
		sqlx: sqlx.NewDb(client.DB(), "postgres"),
	}
}

// FindByAcuityID retrieves an appointment type by its Acuity id
func (a *AppointmentTypeAdapter) FindByAcuityID(ctx context.Context, acuityAppointmentTypeID int64) (*entities.AppointmentType, error) {
	query, args, err := a.db.Select(appointmentTypeColumns...).
		From("appointment_type").
		Where(goqu.Ex{"acuity_appointment_type_id": acuityAppointmentTypeID}).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	appointmentType := &entities.AppointmentType{}
	err = a.sqlx.GetContext(ctx, appointmentType, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("appointment type with acuity id %d not found", acuityAppointmentTypeID))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get appointment type", err)
	}
	return appointmentType, nil
}

// Create creates a new appointment type
func (a *AppointmentTypeAdapter) Create(ctx context.Context, appointmentType *entities.AppointmentType) error {
	record := goqu.Record{
		"appointment_type_id":        appointmentType.AppointmentTypeID,
		"scheduling_system_id":       string(appointmentType.SchedulingSystemID),
		"acuity_appointment_type_id": appointmentType.AcuityAppointmentTypeID,
		"name":                       appointmentType.Name,
		"description":                appointmentType.Description,
		"duration_in_minutes":        appointmentType.DurationInMinutes,
		"deleted":                    appointmentType.Deleted,
	}

	query, args, err := a.db.Insert("appointment_type").Rows(record).Prepared(true).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	if _, err := a.sqlx.ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to create appointment type", err)
	}
	return nil
}

// Update updates the vendor-sourced fields of an appointment type
func (a *AppointmentTypeAdapter) Update(ctx context.Context, appointmentType *entities.AppointmentType) error {
	record := goqu.Record{
		"name":                appointmentType.Name,
		"description":         appointmentType.Description,
		"duration_in_minutes": appointmentType.DurationInMinutes,
		"deleted":             appointmentType.Deleted,
	}

	query, args, err := a.db.Update("appointment_type").
		Set(record).
		Where(goqu.Ex{"appointment_type_id": appointmentType.AppointmentTypeID}).
		Prepared(true).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}

	result, err := a.sqlx.ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to update appointment type", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}
	if rows == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("appointment type with id %s not found", appointmentType.AppointmentTypeID))
	}
	return nil
}

// ListByProvider returns the non-deleted appointment types a provider offers
func (a *AppointmentTypeAdapter) ListByProvider(ctx context.Context, providerID string) ([]*entities.AppointmentType, error) {
	columns := make([]any, len(appointmentTypeColumns))
	for i, c := range appointmentTypeColumns {
		columns[i] = goqu.T("at").Col(c.(string))
	}

	query, args, err := a.db.Select(columns...).
		From(goqu.T("appointment_type").As("at")).
		InnerJoin(
			goqu.T("provider_appointment_type").As("pat"),
			goqu.On(goqu.Ex{"pat.appointment_type_id": goqu.I("at.appointment_type_id")}),
		).
		Where(goqu.Ex{
			"pat.provider_id": providerID,
			"at.deleted":      false,
		}).
		Order(goqu.I("at.acuity_appointment_type_id").Asc()).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	var appointmentTypes []*entities.AppointmentType
	if err := a.sqlx.SelectContext(ctx, &appointmentTypes, query, args...); err != nil {
		return nil, apperrors.NewInternalError("failed to list appointment types for provider", err)
	}
	return appointmentTypes, nil
}
