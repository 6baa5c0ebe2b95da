package acuity

import (
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// Acuity renders offsets without a colon, e.g. "2016-02-04T13:00:00-0800".
const timeLayout = "2006-01-02T15:04:05-0700"

// Time is an instant as encoded by the Acuity API.
type Time struct {
	time.Time
}

func (t Time) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte(`""`), nil
	}
	return json.Marshal(t.Format(timeLayout))
}

func (t *Time) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	s = strings.TrimSpace(s)
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range []string{timeLayout, time.RFC3339} {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("acuity: unrecognized time %q", s)
}

type Calendar struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	ReplyTo     string `json:"replyTo"`
	Description string `json:"description"`
	Location    string `json:"location"`
	TimeZone    string `json:"timezone"`
}

type AppointmentType struct {
	ID            int64   `json:"id"`
	Active        bool    `json:"active"`
	Name          string  `json:"name"`
	Description   string  `json:"description"`
	Duration      int     `json:"duration"`
	Price         string  `json:"price"`
	Category      string  `json:"category"`
	Color         string  `json:"color"`
	Private       bool    `json:"private"`
	Type          string  `json:"type"`
	SchedulingURL string  `json:"schedulingUrl"`
	ClassSize     *int    `json:"classSize"`
	PaddingAfter  int     `json:"paddingAfter"`
	PaddingBefore int     `json:"paddingBefore"`
	CalendarIDs   []int64 `json:"calendarIDs"`
}

type AvailabilityDate struct {
	Date string `json:"date"`
}

type AvailabilityTime struct {
	Time           Time `json:"time"`
	SlotsAvailable int  `json:"slotsAvailable"`
}

type AvailabilityClass struct {
	ID                int64  `json:"id"`
	AppointmentTypeID int64  `json:"appointmentTypeID"`
	CalendarID        int64  `json:"calendarID"`
	Name              string `json:"name"`
	Description       string `json:"description"`
	Calendar          string `json:"calendar"`
	Duration          int    `json:"duration"`
	IsSeries          bool   `json:"isSeries"`
	Slots             int    `json:"slots"`
	SlotsAvailable    int    `json:"slotsAvailable"`
	Price             string `json:"price"`
	Time              Time   `json:"time"`
	CalendarTimeZone  string `json:"calendarTimezone"`
}

type AvailabilityDatesRequest struct {
	CalendarID        int64
	AppointmentTypeID int64
	Month             string
	TimeZone          string
}

type AvailabilityTimesRequest struct {
	CalendarID        int64
	AppointmentTypeID int64
	Date              string
	TimeZone          string
}

// AvailabilityClassesRequest filters class availability. Zero IDs are omitted
// so the response covers every calendar and appointment type.
type AvailabilityClassesRequest struct {
	Month              string
	TimeZone           string
	CalendarID         int64
	AppointmentTypeID  int64
	IncludeUnavailable bool
}

type AvailabilityCheckTimesRequest struct {
	Datetime          Time  `json:"datetime"`
	AppointmentTypeID int64 `json:"appointmentTypeID"`
	CalendarID        int64 `json:"calendarID"`
}

type AvailabilityCheckTimesResponse struct {
	Valid             bool  `json:"valid"`
	Datetime          Time  `json:"datetime"`
	AppointmentTypeID int64 `json:"appointmentTypeID"`
	CalendarID        int64 `json:"calendarID"`
}

type FormFieldValue struct {
	ID    int64  `json:"id"`
	Value string `json:"value"`
}

type AppointmentCreateRequest struct {
	Datetime          Time             `json:"datetime"`
	AppointmentTypeID int64            `json:"appointmentTypeID"`
	CalendarID        int64            `json:"calendarID"`
	FirstName         string           `json:"firstName"`
	LastName          string           `json:"lastName"`
	Email             string           `json:"email"`
	Phone             string           `json:"phone,omitempty"`
	TimeZone          string           `json:"timezone,omitempty"`
	Fields            []FormFieldValue `json:"fields,omitempty"`
}

type Appointment struct {
	ID                int64  `json:"id"`
	FirstName         string `json:"firstName"`
	LastName          string `json:"lastName"`
	Phone             string `json:"phone"`
	Email             string `json:"email"`
	Date              string `json:"date"`
	Time              string `json:"time"`
	EndTime           string `json:"endTime"`
	Datetime          Time   `json:"datetime"`
	Type              string `json:"type"`
	AppointmentTypeID int64  `json:"appointmentTypeID"`
	Duration          string `json:"duration"`
	Calendar          string `json:"calendar"`
	CalendarID        int64  `json:"calendarID"`
	TimeZone          string `json:"timezone"`
	CalendarTimeZone  string `json:"calendarTimezone"`
	Canceled          bool   `json:"canceled"`
	Notes             string `json:"notes"`
}

// ErrorResponse is the structured error body Acuity returns for
// documented failures.
type ErrorResponse struct {
	StatusCode int    `json:"status_code"`
	Message    string `json:"message"`
	Error      string `json:"error"`
}
