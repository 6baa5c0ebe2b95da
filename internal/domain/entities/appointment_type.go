package entities

import "strings"

// AppointmentType is the local mirror of a vendor appointment type
type AppointmentType struct {
	AppointmentTypeID       string           `json:"appointment_type_id" db:"appointment_type_id"`
	SchedulingSystemID      SchedulingSystem `json:"scheduling_system_id" db:"scheduling_system_id"`
	AcuityAppointmentTypeID int64            `json:"acuity_appointment_type_id" db:"acuity_appointment_type_id"`
	Name                    *string          `json:"name" db:"name"`
	Description             *string          `json:"description" db:"description"`
	DurationInMinutes       int              `json:"duration_in_minutes" db:"duration_in_minutes"`
	Deleted                 bool             `json:"deleted" db:"deleted"`
}

// VendorAppointmentType is an appointment type as the vendor reports it
type VendorAppointmentType struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Duration    int     `json:"duration"`
	Active      bool    `json:"active"`
	Private     bool    `json:"private"`
	Category    string  `json:"category"`
	CalendarIDs []int64 `json:"calendar_ids"`
}

// TrimToNil normalizes blank strings to an absent value
func TrimToNil(s string) *string {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// StringValue dereferences s, treating nil as ""
func StringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
