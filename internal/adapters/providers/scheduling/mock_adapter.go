package scheduling

import (
	"context"
	"time"

	"github.com/zatekoja/providersync/internal/domain/entities"
	"github.com/zatekoja/providersync/internal/domain/providers"
)

// MockAdapter provides deterministic availability for local development.
type MockAdapter struct {
	slotDuration time.Duration
	dayStartHour int
	dayEndHour   int
	now          func() time.Time
}

// NewMockAdapter creates a mock scheduling provider.
func NewMockAdapter() *MockAdapter {
	return &MockAdapter{
		slotDuration: 30 * time.Minute,
		dayStartHour: 9,
		dayEndHour:   17,
		now:          time.Now,
	}
}

var (
	_ providers.SchedulingProvider = (*MockAdapter)(nil)
	_ providers.CallTelemetry      = (*MockAdapter)(nil)
	_ providers.WebhookVerifier    = (*MockAdapter)(nil)
)

// FindAvailabilityTimes returns every other half-hour slot of the working day.
// Which half of the slots is open depends on the calendar and appointment type.
func (m *MockAdapter) FindAvailabilityTimes(ctx context.Context, calendarID, appointmentTypeID int64, date entities.LocalDate, loc *time.Location) ([]entities.AvailabilityTime, error) {
	if date.StartIn(loc).Weekday() == time.Sunday {
		return []entities.AvailabilityTime{}, nil
	}

	offset := int((calendarID + appointmentTypeID) % 2)
	start := time.Date(date.Year, date.Month, date.Day, m.dayStartHour, 0, 0, 0, loc)
	end := time.Date(date.Year, date.Month, date.Day, m.dayEndHour, 0, 0, 0, loc)

	out := []entities.AvailabilityTime{}
	for i, cursor := 0, start; cursor.Before(end); i, cursor = i+1, cursor.Add(m.slotDuration) {
		if i%2 != offset {
			continue
		}
		out = append(out, entities.AvailabilityTime{Time: cursor, SlotsAvailable: 1})
	}
	return out, nil
}

// FindAvailabilityClasses returns one weekly group session on Wednesdays.
func (m *MockAdapter) FindAvailabilityClasses(ctx context.Context, month entities.YearMonth, loc *time.Location) ([]entities.AvailabilityClass, error) {
	out := []entities.AvailabilityClass{}
	for d := month.FirstDay(); d.YearMonth() == month; d = d.AddDays(1) {
		if d.StartIn(loc).Weekday() != time.Wednesday {
			continue
		}
		out = append(out, entities.AvailabilityClass{
			AppointmentTypeID: 1000,
			CalendarID:        1,
			Name:              "Group Session",
			Description:       "Weekly group session",
			Calendar:          "Group Calendar",
			Duration:          60,
			Time:              time.Date(d.Year, d.Month, d.Day, 15, 0, 0, 0, loc),
			Slots:             10,
			SlotsAvailable:    10,
		})
	}
	return out, nil
}

func (m *MockAdapter) FindAppointmentTypes(ctx context.Context) ([]entities.VendorAppointmentType, error) {
	return []entities.VendorAppointmentType{
		{ID: 1, Name: "Initial Consultation", Description: "First visit", Duration: 60, Active: true, CalendarIDs: []int64{1, 2}},
		{ID: 2, Name: "Follow-up", Duration: 30, Active: true, CalendarIDs: []int64{1, 2}},
		{ID: 1000, Name: "Group Session", Description: "Weekly group session", Duration: 60, Active: true, CalendarIDs: []int64{1}},
	}, nil
}

// FindAppointment returns a synthetic appointment starting at the next full hour.
func (m *MockAdapter) FindAppointment(ctx context.Context, appointmentID int64) (*entities.Appointment, error) {
	return &entities.Appointment{
		ID:                appointmentID,
		CalendarID:        1,
		AppointmentTypeID: 1,
		Datetime:          m.now().UTC().Truncate(time.Hour).Add(time.Hour),
		TimeZone:          "UTC",
	}, nil
}

func (m *MockAdapter) CallFrequencyHistogram() []providers.CallHistogramBucket {
	return []providers.CallHistogramBucket{}
}

// VerifyRequestSignature accepts everything; the mock has no shared secret.
func (m *MockAdapter) VerifyRequestSignature(body []byte, signature string) bool {
	return true
}
