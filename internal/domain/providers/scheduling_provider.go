package providers

import (
	"context"
	"time"

	"github.com/zatekoja/providersync/internal/domain/entities"
)

// SchedulingProvider defines the interface for external scheduling services (Acuity, mock)
type SchedulingProvider interface {
	// FindAvailabilityTimes returns open start times for a calendar/appointment type on date, expressed in loc
	FindAvailabilityTimes(ctx context.Context, calendarID, appointmentTypeID int64, date entities.LocalDate, loc *time.Location) ([]entities.AvailabilityTime, error)

	// FindAvailabilityClasses returns the group classes with open seats in month, expressed in loc
	FindAvailabilityClasses(ctx context.Context, month entities.YearMonth, loc *time.Location) ([]entities.AvailabilityClass, error)

	// FindAppointmentTypes returns every appointment type the vendor account defines
	FindAppointmentTypes(ctx context.Context) ([]entities.VendorAppointmentType, error)

	// FindAppointment returns a single booked appointment
	FindAppointment(ctx context.Context, appointmentID int64) (*entities.Appointment, error)
}

// CallHistogramBucket is the number of vendor calls made within one second
type CallHistogramBucket struct {
	Label string `json:"label"`
	Count int64  `json:"count"`
}

// CallTelemetry exposes vendor call-frequency observations
type CallTelemetry interface {
	// CallFrequencyHistogram returns buckets ordered most recent first
	CallFrequencyHistogram() []CallHistogramBucket
}

// WebhookVerifier authenticates inbound vendor webhooks
type WebhookVerifier interface {
	// VerifyRequestSignature reports whether signature was produced over body by the vendor
	VerifyRequestSignature(body []byte, signature string) bool
}
