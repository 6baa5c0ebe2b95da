package handlers_test

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/zatekoja/providersync/internal/adapters/cache"
	"github.com/zatekoja/providersync/internal/application/services"
	"github.com/zatekoja/providersync/internal/domain/entities"
	"github.com/zatekoja/providersync/internal/domain/providers"
)

type MockAvailabilityReader struct {
	mock.Mock
}

func (m *MockAvailabilityReader) FindAvailabilityTimes(ctx context.Context, calendarID, appointmentTypeID int64, date entities.LocalDate, loc *time.Location) ([]entities.AvailabilityTime, error) {
	args := m.Called(ctx, calendarID, appointmentTypeID, date, loc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entities.AvailabilityTime), args.Error(1)
}

func (m *MockAvailabilityReader) FindAvailabilityClasses(ctx context.Context, month entities.YearMonth, loc *time.Location) ([]entities.AvailabilityClass, error) {
	args := m.Called(ctx, month, loc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entities.AvailabilityClass), args.Error(1)
}

func (m *MockAvailabilityReader) Keys() cache.CacheKeys {
	args := m.Called()
	return args.Get(0).(cache.CacheKeys)
}

type MockInvalidator struct {
	mock.Mock
}

func (m *MockInvalidator) Invalidate(ctx context.Context, date entities.LocalDate, loc *time.Location, reason string) error {
	args := m.Called(ctx, date, loc, reason)
	return args.Error(0)
}

func (m *MockInvalidator) InvalidateAll() {
	m.Called()
}

type MockScheduler struct {
	mock.Mock
}

func (m *MockScheduler) Start() bool {
	return m.Called().Bool(0)
}

func (m *MockScheduler) Stop() bool {
	return m.Called().Bool(0)
}

func (m *MockScheduler) Status() services.SchedulerStatus {
	return m.Called().Get(0).(services.SchedulerStatus)
}

type MockTelemetry struct {
	buckets []providers.CallHistogramBucket
}

func (m *MockTelemetry) CallFrequencyHistogram() []providers.CallHistogramBucket {
	return m.buckets
}

type MockAppointmentFinder struct {
	mock.Mock
}

func (m *MockAppointmentFinder) FindAppointment(ctx context.Context, appointmentID int64) (*entities.Appointment, error) {
	args := m.Called(ctx, appointmentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Appointment), args.Error(1)
}
