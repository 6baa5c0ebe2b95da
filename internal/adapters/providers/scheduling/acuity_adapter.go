package scheduling

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/zatekoja/providersync/internal/domain/entities"
	"github.com/zatekoja/providersync/internal/domain/providers"
	"github.com/zatekoja/providersync/internal/infrastructure/clients/acuity"
)

// AcuityAdapter implements SchedulingProvider on top of the rate-limited Acuity client.
// Vendor errors are returned wrapped, so the acuity error helpers still apply.
type AcuityAdapter struct {
	client acuity.Client
}

// NewAcuityAdapter creates a new Acuity adapter
func NewAcuityAdapter(client acuity.Client) *AcuityAdapter {
	return &AcuityAdapter{client: client}
}

var (
	_ providers.SchedulingProvider = (*AcuityAdapter)(nil)
	_ providers.CallTelemetry      = (*AcuityAdapter)(nil)
	_ providers.WebhookVerifier    = (*AcuityAdapter)(nil)
)

// FindAvailabilityTimes returns open start times ordered by time.
func (a *AcuityAdapter) FindAvailabilityTimes(ctx context.Context, calendarID, appointmentTypeID int64, date entities.LocalDate, loc *time.Location) ([]entities.AvailabilityTime, error) {
	times, err := a.client.AvailabilityTimes(ctx, acuity.AvailabilityTimesRequest{
		CalendarID:        calendarID,
		AppointmentTypeID: appointmentTypeID,
		Date:              date.String(),
		TimeZone:          loc.String(),
	})
	if err != nil {
		return nil, fmt.Errorf("availability times for calendar %d, appointment type %d on %s: %w", calendarID, appointmentTypeID, date, err)
	}

	out := make([]entities.AvailabilityTime, 0, len(times))
	for _, t := range times {
		out = append(out, entities.AvailabilityTime{
			Time:           t.Time.In(loc),
			SlotsAvailable: t.SlotsAvailable,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return out, nil
}

func (a *AcuityAdapter) FindAvailabilityClasses(ctx context.Context, month entities.YearMonth, loc *time.Location) ([]entities.AvailabilityClass, error) {
	classes, err := a.client.AvailabilityClasses(ctx, acuity.AvailabilityClassesRequest{
		Month:    month.String(),
		TimeZone: loc.String(),
	})
	if err != nil {
		return nil, fmt.Errorf("availability classes for %s: %w", month, err)
	}

	out := make([]entities.AvailabilityClass, 0, len(classes))
	for _, c := range classes {
		out = append(out, entities.AvailabilityClass{
			AppointmentTypeID: c.AppointmentTypeID,
			CalendarID:        c.CalendarID,
			Name:              c.Name,
			Description:       c.Description,
			Calendar:          c.Calendar,
			Duration:          c.Duration,
			Time:              c.Time.In(loc),
			Slots:             c.Slots,
			SlotsAvailable:    c.SlotsAvailable,
		})
	}
	return out, nil
}

func (a *AcuityAdapter) FindAppointmentTypes(ctx context.Context) ([]entities.VendorAppointmentType, error) {
	types, err := a.client.FindAppointmentTypes(ctx)
	if err != nil {
		return nil, fmt.Errorf("appointment types: %w", err)
	}

	out := make([]entities.VendorAppointmentType, 0, len(types))
	for _, t := range types {
		out = append(out, entities.VendorAppointmentType{
			ID:          t.ID,
			Name:        t.Name,
			Description: t.Description,
			Duration:    t.Duration,
			Active:      t.Active,
			Private:     t.Private,
			Category:    t.Category,
			CalendarIDs: t.CalendarIDs,
		})
	}
	return out, nil
}

func (a *AcuityAdapter) FindAppointment(ctx context.Context, appointmentID int64) (*entities.Appointment, error) {
	appt, err := a.client.FindAppointment(ctx, appointmentID)
	if err != nil {
		return nil, fmt.Errorf("appointment %d: %w", appointmentID, err)
	}

	tz := appt.TimeZone
	if tz == "" {
		tz = appt.CalendarTimeZone
	}
	return &entities.Appointment{
		ID:                appt.ID,
		CalendarID:        appt.CalendarID,
		AppointmentTypeID: appt.AppointmentTypeID,
		Datetime:          appt.Datetime.Time,
		TimeZone:          tz,
		Canceled:          appt.Canceled,
	}, nil
}

func (a *AcuityAdapter) CallFrequencyHistogram() []providers.CallHistogramBucket {
	buckets := a.client.CallFrequencyHistogram()
	out := make([]providers.CallHistogramBucket, len(buckets))
	for i, b := range buckets {
		out[i] = providers.CallHistogramBucket{Label: b.Label, Count: b.Count}
	}
	return out
}

func (a *AcuityAdapter) VerifyRequestSignature(body []byte, signature string) bool {
	return a.client.VerifyRequestSignature(body, signature)
}
