package entities

import "time"

// Appointment is the subset of a vendor appointment the engine reacts to
type Appointment struct {
	ID                int64     `json:"id"`
	CalendarID        int64     `json:"calendar_id"`
	AppointmentTypeID int64     `json:"appointment_type_id"`
	Datetime          time.Time `json:"datetime"`
	TimeZone          string    `json:"time_zone"`
	Canceled          bool      `json:"canceled"`
}

// Date returns the appointment's calendar date in its own time zone
func (a *Appointment) Date() (LocalDate, *time.Location, error) {
	loc, err := time.LoadLocation(a.TimeZone)
	if err != nil {
		return LocalDate{}, nil, err
	}
	return LocalDateOf(a.Datetime.In(loc)), loc, nil
}
