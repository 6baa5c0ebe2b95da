package database_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/providersync/internal/adapters/database"
	"github.com/zatekoja/providersync/internal/domain/entities"
	"github.com/zatekoja/providersync/internal/domain/repositories"
	apperrors "github.com/zatekoja/providersync/pkg/errors"
)

func TestReplaceAvailability_TodayDeletesAfterNowExclusive(t *testing.T) {
	client, mock := setupMockClient(t)
	adapter := database.NewAvailabilityAdapter(client)

	now := time.Date(2020, time.April, 20, 13, 15, 0, 0, time.UTC)
	end := time.Date(2020, time.April, 21, 0, 0, 0, 0, time.UTC)
	slot := time.Date(2020, time.April, 20, 14, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "provider_availability" WHERE \(\("provider_id" = \$1\) AND \("date_time" > \$2\) AND \("date_time" < \$3\)\)`).
		WithArgs("provider-1", timeArg{now}, timeArg{end}).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(`INSERT INTO "provider_availability" \("appointment_type_id", "date_time", "provider_id"\) VALUES \(\$1, \$2, \$3\)`).
		WithArgs("type-1", timeArg{slot}, "provider-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := adapter.ReplaceAvailability(context.Background(), repositories.ReplaceAvailabilityRequest{
		ProviderID: "provider-1",
		From:       now,
		To:         end,
		Rows:       []entities.AvailabilityRow{{AppointmentTypeID: "type-1", DateTime: slot}},
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceAvailability_TodaySkipsRowAlreadyStoredAtNow(t *testing.T) {
	client, mock := setupMockClient(t)
	adapter := database.NewAvailabilityAdapter(client)

	now := time.Date(2020, time.April, 20, 13, 0, 0, 0, time.UTC)
	end := time.Date(2020, time.April, 21, 0, 0, 0, 0, time.UTC)
	later := time.Date(2020, time.April, 20, 14, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "provider_availability" WHERE .*"date_time" > \$2.*"date_time" < \$3`).
		WithArgs("provider-1", timeArg{now}, timeArg{end}).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT "appointment_type_id" FROM "provider_availability" WHERE \(\("provider_id" = \$1\) AND \("date_time" = \$2\)\)`).
		WithArgs("provider-1", timeArg{now}).
		WillReturnRows(sqlmock.NewRows([]string{"appointment_type_id"}).AddRow("type-1"))
	mock.ExpectExec(`INSERT INTO "provider_availability" .* VALUES \(\$1, \$2, \$3\), \(\$4, \$5, \$6\)$`).
		WithArgs("type-2", timeArg{now}, "provider-1", "type-1", timeArg{later}, "provider-1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	err := adapter.ReplaceAvailability(context.Background(), repositories.ReplaceAvailabilityRequest{
		ProviderID: "provider-1",
		From:       now,
		To:         end,
		Rows: []entities.AvailabilityRow{
			{AppointmentTypeID: "type-1", DateTime: now},
			{AppointmentTypeID: "type-2", DateTime: now},
			{AppointmentTypeID: "type-1", DateTime: later},
		},
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceAvailability_FutureDayIncludesMidnight(t *testing.T) {
	client, mock := setupMockClient(t)
	adapter := database.NewAvailabilityAdapter(client)

	start := time.Date(2020, time.April, 22, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 1)
	first := start.Add(9 * time.Hour)
	second := start.Add(10 * time.Hour)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "provider_availability" WHERE .*"date_time" >= \$2.*"date_time" < \$3`).
		WithArgs("provider-1", timeArg{start}, timeArg{end}).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO "provider_availability" .* VALUES \(\$1, \$2, \$3\), \(\$4, \$5, \$6\)`).
		WithArgs("type-1", timeArg{first}, "provider-1", "type-2", timeArg{second}, "provider-1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	err := adapter.ReplaceAvailability(context.Background(), repositories.ReplaceAvailabilityRequest{
		ProviderID:  "provider-1",
		From:        start,
		IncludeFrom: true,
		To:          end,
		Rows: []entities.AvailabilityRow{
			{AppointmentTypeID: "type-1", DateTime: first},
			{AppointmentTypeID: "type-2", DateTime: second},
		},
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceAvailability_NoRowsOnlyDeletes(t *testing.T) {
	client, mock := setupMockClient(t)
	adapter := database.NewAvailabilityAdapter(client)

	start := time.Date(2020, time.April, 22, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "provider_availability"`).
		WillReturnResult(sqlmock.NewResult(0, 5))
	mock.ExpectCommit()

	err := adapter.ReplaceAvailability(context.Background(), repositories.ReplaceAvailabilityRequest{
		ProviderID:  "provider-1",
		From:        start,
		IncludeFrom: true,
		To:          start.AddDate(0, 0, 1),
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceAvailability_InsertFailureRollsBack(t *testing.T) {
	client, mock := setupMockClient(t)
	adapter := database.NewAvailabilityAdapter(client)

	start := time.Date(2020, time.April, 22, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "provider_availability"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO "provider_availability"`).
		WillReturnError(errors.New("duplicate key"))
	mock.ExpectRollback()

	err := adapter.ReplaceAvailability(context.Background(), repositories.ReplaceAvailabilityRequest{
		ProviderID:  "provider-1",
		From:        start,
		IncludeFrom: true,
		To:          start.AddDate(0, 0, 1),
		Rows:        []entities.AvailabilityRow{{AppointmentTypeID: "type-1", DateTime: start.Add(time.Hour)}},
	})

	require.Error(t, err)
	assert.Equal(t, apperrors.ErrorTypeInternal, apperrors.TypeOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}
