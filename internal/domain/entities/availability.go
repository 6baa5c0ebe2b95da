package entities

import "time"

// AvailabilityTime is one bookable start time for a calendar and appointment type
type AvailabilityTime struct {
	Time           time.Time `json:"time"`
	SlotsAvailable int       `json:"slots_available"`
}

// AvailabilityClass is a scheduled group class with open seats
type AvailabilityClass struct {
	AppointmentTypeID int64     `json:"appointment_type_id"`
	CalendarID        int64     `json:"calendar_id"`
	Name              string    `json:"name"`
	Description       string    `json:"description"`
	Calendar          string    `json:"calendar"`
	Duration          int       `json:"duration"`
	Time              time.Time `json:"time"`
	Slots             int       `json:"slots"`
	SlotsAvailable    int       `json:"slots_available"`
}

// AvailabilityRow is a single provider_availability record
type AvailabilityRow struct {
	AppointmentTypeID string    `json:"appointment_type_id" db:"appointment_type_id"`
	DateTime          time.Time `json:"date_time" db:"date_time"`
}

// ProviderAvailabilityBatch is one provider's freshly fetched availability for one day.
// Rows are ordered by DateTime and expressed in TimeZone.
type ProviderAvailabilityBatch struct {
	ProviderID string
	Date       LocalDate
	TimeZone   *time.Location
	Rows       []AvailabilityRow
}

// AvailabilityInvalidation announces that cached availability for Date
// (as observed in TimeZone) is no longer trustworthy
type AvailabilityInvalidation struct {
	Date     LocalDate `json:"date"`
	TimeZone string    `json:"time_zone"`
	Reason   string    `json:"reason,omitempty"`
}
