package cache

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/zatekoja/providersync/internal/domain/entities"
)

// TimesKey identifies one availability-times lookup.
// Its string form is "calendarID:appointmentTypeID:date:zone".
type TimesKey struct {
	CalendarID        int64
	AppointmentTypeID int64
	Date              entities.LocalDate
	TimeZoneID        string
}

// NewTimesKey builds a key for a lookup expressed in loc.
func NewTimesKey(calendarID, appointmentTypeID int64, date entities.LocalDate, loc *time.Location) TimesKey {
	return TimesKey{
		CalendarID:        calendarID,
		AppointmentTypeID: appointmentTypeID,
		Date:              date,
		TimeZoneID:        loc.String(),
	}
}

func (k TimesKey) String() string {
	return fmt.Sprintf("%d:%d:%s:%s", k.CalendarID, k.AppointmentTypeID, k.Date, k.TimeZoneID)
}

// Location resolves the key's time zone.
func (k TimesKey) Location() (*time.Location, error) {
	return time.LoadLocation(k.TimeZoneID)
}

// ParseTimesKey is the inverse of TimesKey.String.
func ParseTimesKey(s string) (TimesKey, error) {
	parts := strings.SplitN(s, ":", 4)
	if len(parts) != 4 {
		return TimesKey{}, fmt.Errorf("invalid times key %q", s)
	}

	calendarID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return TimesKey{}, fmt.Errorf("invalid times key %q: calendar id: %w", s, err)
	}
	appointmentTypeID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return TimesKey{}, fmt.Errorf("invalid times key %q: appointment type id: %w", s, err)
	}
	date, err := entities.ParseLocalDate(parts[2])
	if err != nil {
		return TimesKey{}, fmt.Errorf("invalid times key %q: %w", s, err)
	}
	if _, err := time.LoadLocation(parts[3]); err != nil {
		return TimesKey{}, fmt.Errorf("invalid times key %q: time zone: %w", s, err)
	}

	return TimesKey{
		CalendarID:        calendarID,
		AppointmentTypeID: appointmentTypeID,
		Date:              date,
		TimeZoneID:        parts[3],
	}, nil
}

// ClassesKey identifies one availability-classes lookup.
// Its string form is "yyyy-mm:zone".
type ClassesKey struct {
	Month      entities.YearMonth
	TimeZoneID string
}

// NewClassesKey builds a key for a lookup expressed in loc.
func NewClassesKey(month entities.YearMonth, loc *time.Location) ClassesKey {
	return ClassesKey{Month: month, TimeZoneID: loc.String()}
}

func (k ClassesKey) String() string {
	return k.Month.String() + ":" + k.TimeZoneID
}

func (k ClassesKey) Location() (*time.Location, error) {
	return time.LoadLocation(k.TimeZoneID)
}

// ParseClassesKey is the inverse of ClassesKey.String.
func ParseClassesKey(s string) (ClassesKey, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return ClassesKey{}, fmt.Errorf("invalid classes key %q", s)
	}
	month, err := entities.ParseYearMonth(parts[0])
	if err != nil {
		return ClassesKey{}, fmt.Errorf("invalid classes key %q: %w", s, err)
	}
	if _, err := time.LoadLocation(parts[1]); err != nil {
		return ClassesKey{}, fmt.Errorf("invalid classes key %q: time zone: %w", s, err)
	}
	return ClassesKey{Month: month, TimeZoneID: parts[1]}, nil
}
