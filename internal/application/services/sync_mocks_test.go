package services_test

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/zatekoja/providersync/internal/domain/entities"
	"github.com/zatekoja/providersync/internal/domain/repositories"
)

type MockProviderRepository struct {
	mock.Mock
}

func (m *MockProviderRepository) ListActiveBySchedulingSystem(ctx context.Context, institutionID string, system entities.SchedulingSystem) ([]*entities.Provider, error) {
	args := m.Called(ctx, institutionID, system)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Provider), args.Error(1)
}

type MockAppointmentTypeRepository struct {
	mock.Mock
}

func (m *MockAppointmentTypeRepository) FindByAcuityID(ctx context.Context, acuityAppointmentTypeID int64) (*entities.AppointmentType, error) {
	args := m.Called(ctx, acuityAppointmentTypeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.AppointmentType), args.Error(1)
}

func (m *MockAppointmentTypeRepository) Create(ctx context.Context, appointmentType *entities.AppointmentType) error {
	args := m.Called(ctx, appointmentType)
	return args.Error(0)
}

func (m *MockAppointmentTypeRepository) Update(ctx context.Context, appointmentType *entities.AppointmentType) error {
	args := m.Called(ctx, appointmentType)
	return args.Error(0)
}

func (m *MockAppointmentTypeRepository) ListByProvider(ctx context.Context, providerID string) ([]*entities.AppointmentType, error) {
	args := m.Called(ctx, providerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.AppointmentType), args.Error(1)
}

type MockAvailabilityRepository struct {
	mock.Mock
}

func (m *MockAvailabilityRepository) ReplaceAvailability(ctx context.Context, req repositories.ReplaceAvailabilityRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

type MockSchedulingProvider struct {
	mock.Mock
}

func (m *MockSchedulingProvider) FindAvailabilityTimes(ctx context.Context, calendarID, appointmentTypeID int64, date entities.LocalDate, loc *time.Location) ([]entities.AvailabilityTime, error) {
	args := m.Called(ctx, calendarID, appointmentTypeID, date, loc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entities.AvailabilityTime), args.Error(1)
}

func (m *MockSchedulingProvider) FindAvailabilityClasses(ctx context.Context, month entities.YearMonth, loc *time.Location) ([]entities.AvailabilityClass, error) {
	args := m.Called(ctx, month, loc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entities.AvailabilityClass), args.Error(1)
}

func (m *MockSchedulingProvider) FindAppointmentTypes(ctx context.Context) ([]entities.VendorAppointmentType, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entities.VendorAppointmentType), args.Error(1)
}

func (m *MockSchedulingProvider) FindAppointment(ctx context.Context, appointmentID int64) (*entities.Appointment, error) {
	args := m.Called(ctx, appointmentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Appointment), args.Error(1)
}

func newYork(t interface{ Fatalf(string, ...any) }) *time.Location {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("load zone: %v", err)
	}
	return loc
}
