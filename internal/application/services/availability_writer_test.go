package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/providersync/internal/application/services"
	"github.com/zatekoja/providersync/internal/domain/entities"
	"github.com/zatekoja/providersync/internal/domain/repositories"
)

func captureReplace(repo *MockAvailabilityRepository, captured *repositories.ReplaceAvailabilityRequest) {
	repo.On("ReplaceAvailability", mock.Anything, mock.AnythingOfType("repositories.ReplaceAvailabilityRequest")).
		Run(func(args mock.Arguments) {
			*captured = args.Get(1).(repositories.ReplaceAvailabilityRequest)
		}).
		Return(nil).
		Once()
}

func TestAvailabilityWriter_PastDateIsNoOp(t *testing.T) {
	loc := newYork(t)
	repo := new(MockAvailabilityRepository)
	now := time.Date(2020, time.April, 20, 10, 30, 0, 0, loc)
	writer := services.NewAvailabilityWriter(repo, func() time.Time { return now })

	err := writer.Write(context.Background(), entities.ProviderAvailabilityBatch{
		ProviderID: "provider-1",
		Date:       entities.LocalDate{Year: 2020, Month: time.April, Day: 19},
		TimeZone:   loc,
		Rows: []entities.AvailabilityRow{
			{AppointmentTypeID: "type-1", DateTime: time.Date(2020, time.April, 19, 9, 0, 0, 0, loc)},
		},
	})

	require.NoError(t, err)
	repo.AssertNotCalled(t, "ReplaceAvailability", mock.Anything, mock.Anything)
}

func TestAvailabilityWriter_TodayPreservesElapsedSlots(t *testing.T) {
	loc := newYork(t)
	repo := new(MockAvailabilityRepository)
	now := time.Date(2020, time.April, 20, 10, 30, 0, 0, loc)
	writer := services.NewAvailabilityWriter(repo, func() time.Time { return now })

	var req repositories.ReplaceAvailabilityRequest
	captureReplace(repo, &req)

	err := writer.Write(context.Background(), entities.ProviderAvailabilityBatch{
		ProviderID: "provider-1",
		Date:       entities.LocalDate{Year: 2020, Month: time.April, Day: 20},
		TimeZone:   loc,
		Rows: []entities.AvailabilityRow{
			{AppointmentTypeID: "type-1", DateTime: time.Date(2020, time.April, 20, 9, 0, 0, 0, loc)},
			{AppointmentTypeID: "type-1", DateTime: time.Date(2020, time.April, 20, 10, 30, 0, 0, loc)},
			{AppointmentTypeID: "type-2", DateTime: time.Date(2020, time.April, 20, 11, 0, 0, 0, loc)},
		},
	})

	require.NoError(t, err)
	repo.AssertExpectations(t)
	assert.Equal(t, "provider-1", req.ProviderID)
	assert.True(t, req.From.Equal(now))
	assert.False(t, req.IncludeFrom)
	assert.True(t, req.To.Equal(time.Date(2020, time.April, 21, 0, 0, 0, 0, loc)))
	require.Len(t, req.Rows, 2)
	assert.True(t, req.Rows[0].DateTime.Equal(now))
	assert.Equal(t, "type-2", req.Rows[1].AppointmentTypeID)
}

func TestAvailabilityWriter_FutureDateReplacesWholeDay(t *testing.T) {
	loc := newYork(t)
	repo := new(MockAvailabilityRepository)
	now := time.Date(2020, time.April, 20, 10, 30, 0, 0, loc)
	writer := services.NewAvailabilityWriter(repo, func() time.Time { return now })

	var req repositories.ReplaceAvailabilityRequest
	captureReplace(repo, &req)

	rows := []entities.AvailabilityRow{
		{AppointmentTypeID: "type-1", DateTime: time.Date(2020, time.April, 22, 0, 0, 0, 0, loc)},
		{AppointmentTypeID: "type-1", DateTime: time.Date(2020, time.April, 22, 9, 0, 0, 0, loc)},
	}
	err := writer.Write(context.Background(), entities.ProviderAvailabilityBatch{
		ProviderID: "provider-1",
		Date:       entities.LocalDate{Year: 2020, Month: time.April, Day: 22},
		TimeZone:   loc,
		Rows:       rows,
	})

	require.NoError(t, err)
	assert.True(t, req.From.Equal(time.Date(2020, time.April, 22, 0, 0, 0, 0, loc)))
	assert.True(t, req.IncludeFrom)
	assert.True(t, req.To.Equal(time.Date(2020, time.April, 23, 0, 0, 0, 0, loc)))
	assert.Equal(t, rows, req.Rows)
}

func TestAvailabilityWriter_TodayUsesBatchTimeZone(t *testing.T) {
	loc := newYork(t)
	repo := new(MockAvailabilityRepository)
	// Already the 21st in UTC, still the 20th in New York.
	now := time.Date(2020, time.April, 21, 2, 0, 0, 0, time.UTC)
	writer := services.NewAvailabilityWriter(repo, func() time.Time { return now })

	var req repositories.ReplaceAvailabilityRequest
	captureReplace(repo, &req)

	err := writer.Write(context.Background(), entities.ProviderAvailabilityBatch{
		ProviderID: "provider-1",
		Date:       entities.LocalDate{Year: 2020, Month: time.April, Day: 20},
		TimeZone:   loc,
		Rows: []entities.AvailabilityRow{
			{AppointmentTypeID: "type-1", DateTime: time.Date(2020, time.April, 20, 23, 0, 0, 0, loc)},
		},
	})

	require.NoError(t, err)
	assert.False(t, req.IncludeFrom)
	assert.True(t, req.From.Equal(now))
	assert.Len(t, req.Rows, 1)
}

func TestAvailabilityWriter_PropagatesRepositoryError(t *testing.T) {
	loc := newYork(t)
	repo := new(MockAvailabilityRepository)
	now := time.Date(2020, time.April, 20, 10, 30, 0, 0, loc)
	writer := services.NewAvailabilityWriter(repo, func() time.Time { return now })

	boom := errors.New("connection reset")
	repo.On("ReplaceAvailability", mock.Anything, mock.Anything).Return(boom)

	err := writer.Write(context.Background(), entities.ProviderAvailabilityBatch{
		ProviderID: "provider-1",
		Date:       entities.LocalDate{Year: 2020, Month: time.April, Day: 21},
		TimeZone:   loc,
	})

	assert.ErrorIs(t, err, boom)
}
