package scheduling_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/providersync/internal/adapters/providers/scheduling"
	"github.com/zatekoja/providersync/internal/domain/entities"
	"github.com/zatekoja/providersync/internal/infrastructure/clients/acuity"
	"github.com/zatekoja/providersync/pkg/config"
)

type MockAcuityClient struct {
	mock.Mock
}

func (m *MockAcuityClient) FindCalendars(ctx context.Context) ([]acuity.Calendar, error) {
	args := m.Called(ctx)
	return args.Get(0).([]acuity.Calendar), args.Error(1)
}

func (m *MockAcuityClient) FindCalendar(ctx context.Context, calendarID int64) (*acuity.Calendar, error) {
	args := m.Called(ctx, calendarID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*acuity.Calendar), args.Error(1)
}

func (m *MockAcuityClient) FindAppointmentTypes(ctx context.Context) ([]acuity.AppointmentType, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]acuity.AppointmentType), args.Error(1)
}

func (m *MockAcuityClient) FindAppointmentType(ctx context.Context, appointmentTypeID int64) (*acuity.AppointmentType, error) {
	args := m.Called(ctx, appointmentTypeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*acuity.AppointmentType), args.Error(1)
}

func (m *MockAcuityClient) AvailabilityDates(ctx context.Context, req acuity.AvailabilityDatesRequest) ([]acuity.AvailabilityDate, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]acuity.AvailabilityDate), args.Error(1)
}

func (m *MockAcuityClient) AvailabilityTimes(ctx context.Context, req acuity.AvailabilityTimesRequest) ([]acuity.AvailabilityTime, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]acuity.AvailabilityTime), args.Error(1)
}

func (m *MockAcuityClient) AvailabilityClasses(ctx context.Context, req acuity.AvailabilityClassesRequest) ([]acuity.AvailabilityClass, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]acuity.AvailabilityClass), args.Error(1)
}

func (m *MockAcuityClient) CheckTimes(ctx context.Context, req acuity.AvailabilityCheckTimesRequest) (*acuity.AvailabilityCheckTimesResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*acuity.AvailabilityCheckTimesResponse), args.Error(1)
}

func (m *MockAcuityClient) CreateAppointment(ctx context.Context, req acuity.AppointmentCreateRequest) (*acuity.Appointment, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*acuity.Appointment), args.Error(1)
}

func (m *MockAcuityClient) CancelAppointment(ctx context.Context, appointmentID int64, cancelNote string) (*acuity.Appointment, error) {
	args := m.Called(ctx, appointmentID, cancelNote)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*acuity.Appointment), args.Error(1)
}

func (m *MockAcuityClient) FindAppointment(ctx context.Context, appointmentID int64) (*acuity.Appointment, error) {
	args := m.Called(ctx, appointmentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*acuity.Appointment), args.Error(1)
}

func (m *MockAcuityClient) VerifyRequestSignature(body []byte, signature string) bool {
	return m.Called(body, signature).Bool(0)
}

func (m *MockAcuityClient) CallFrequencyHistogram() []acuity.HistogramBucket {
	return m.Called().Get(0).([]acuity.HistogramBucket)
}

func mustLoad(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	require.NoError(t, err)
	return loc
}

func TestAcuityAdapter_FindAvailabilityTimes(t *testing.T) {
	client := new(MockAcuityClient)
	adapter := scheduling.NewAcuityAdapter(client)
	loc := mustLoad(t, "America/New_York")
	date := entities.LocalDate{Year: 2020, Month: time.April, Day: 20}

	later := time.Date(2020, time.April, 20, 14, 0, 0, 0, time.UTC)
	earlier := time.Date(2020, time.April, 20, 13, 0, 0, 0, time.UTC)
	client.On("AvailabilityTimes", mock.Anything, acuity.AvailabilityTimesRequest{
		CalendarID:        3829372,
		AppointmentTypeID: 3119372,
		Date:              "2020-04-20",
		TimeZone:          "America/New_York",
	}).Return([]acuity.AvailabilityTime{
		{Time: acuity.Time{Time: later}, SlotsAvailable: 1},
		{Time: acuity.Time{Time: earlier}, SlotsAvailable: 2},
	}, nil)

	times, err := adapter.FindAvailabilityTimes(context.Background(), 3829372, 3119372, date, loc)

	require.NoError(t, err)
	require.Len(t, times, 2)
	assert.True(t, times[0].Time.Equal(earlier))
	assert.Equal(t, loc, times[0].Time.Location())
	assert.Equal(t, 9, times[0].Time.Hour())
	client.AssertExpectations(t)
}

func TestAcuityAdapter_PreservesVendorErrors(t *testing.T) {
	client := new(MockAcuityClient)
	adapter := scheduling.NewAcuityAdapter(client)

	vendorErr := &acuity.UndocumentedRateLimitError{SchedulingError: &acuity.SchedulingError{StatusCode: 403}}
	client.On("FindAppointmentTypes", mock.Anything).Return(nil, vendorErr)

	_, err := adapter.FindAppointmentTypes(context.Background())

	require.Error(t, err)
	assert.True(t, acuity.IsUndocumentedRateLimit(err))
	assert.True(t, errors.Is(err, vendorErr))
}

func TestAcuityAdapter_FindAppointmentFallsBackToCalendarZone(t *testing.T) {
	client := new(MockAcuityClient)
	adapter := scheduling.NewAcuityAdapter(client)

	at := time.Date(2020, time.April, 21, 2, 0, 0, 0, time.UTC)
	client.On("FindAppointment", mock.Anything, int64(99)).Return(&acuity.Appointment{
		ID:                99,
		CalendarID:        3829372,
		AppointmentTypeID: 3119372,
		Datetime:          acuity.Time{Time: at},
		CalendarTimeZone:  "America/Chicago",
	}, nil)

	appt, err := adapter.FindAppointment(context.Background(), 99)
	require.NoError(t, err)
	assert.Equal(t, "America/Chicago", appt.TimeZone)

	date, _, err := appt.Date()
	require.NoError(t, err)
	assert.Equal(t, entities.LocalDate{Year: 2020, Month: time.April, Day: 20}, date)
}

func TestAcuityAdapter_CallFrequencyHistogram(t *testing.T) {
	client := new(MockAcuityClient)
	adapter := scheduling.NewAcuityAdapter(client)
	client.On("CallFrequencyHistogram").Return([]acuity.HistogramBucket{
		{Label: "2020-04-20 12:00:01", Count: 3},
		{Label: "2020-04-20 12:00:00", Count: 5},
	})

	buckets := adapter.CallFrequencyHistogram()

	require.Len(t, buckets, 2)
	assert.Equal(t, "2020-04-20 12:00:01", buckets[0].Label)
	assert.EqualValues(t, 5, buckets[1].Count)
}

func TestNewSchedulingProvider_FallsBackToMock(t *testing.T) {
	provider, err := scheduling.NewSchedulingProvider(scheduling.SchedulingProviderConfig{
		Acuity: config.AcuityConfig{BaseURL: "https://acuityscheduling.com/api/v1"},
		Sync:   config.DefaultSyncEngineConfig(),
	})
	require.NoError(t, err)
	assert.IsType(t, &scheduling.MockAdapter{}, provider)
}

func TestNewSchedulingProvider_UsesAcuityWithCredentials(t *testing.T) {
	provider, err := scheduling.NewSchedulingProvider(scheduling.SchedulingProviderConfig{
		Acuity: config.AcuityConfig{
			BaseURL:     "https://acuityscheduling.com/api/v1",
			UserID:      "12345",
			APIKey:      "secret",
			HTTPTimeout: time.Second,
		},
		Sync: config.DefaultSyncEngineConfig(),
	})
	require.NoError(t, err)
	assert.IsType(t, &scheduling.AcuityAdapter{}, provider)
}
