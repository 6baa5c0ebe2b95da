package acuity

import (
	"errors"
	"fmt"
	"net/url"
)

// Vendor error codes carried in ErrorResponse.Error.
const (
	errorCodeNotFound        = "not_found"
	errorCodeNotAvailable    = "not_available"
	errorCodeTooManyRequests = "too_many_requests"
)

// SchedulingError is any non-2xx response from Acuity. It keeps enough of
// the exchange to diagnose the failure from logs alone.
type SchedulingError struct {
	StatusCode   int
	Method       string
	URL          string
	Query        url.Values
	RequestBody  string
	ResponseBody string
	Vendor       *ErrorResponse

	rateLimited bool
}

func (e *SchedulingError) Error() string {
	msg := fmt.Sprintf("acuity %s %s failed with HTTP %d", e.Method, e.URL, e.StatusCode)
	if e.Vendor != nil {
		msg += fmt.Sprintf(" (%s: %s)", e.Vendor.Error, e.Vendor.Message)
	}
	return msg
}

// RateLimited reports whether Acuity signalled its documented rate limit.
func (e *SchedulingError) RateLimited() bool {
	return e.rateLimited
}

// NotFoundError is returned when Acuity reports the error code "not_found".
type NotFoundError struct {
	*SchedulingError
}

func (e *NotFoundError) Unwrap() error { return e.SchedulingError }

// NotAvailableError is returned when Acuity reports the error code
// "not_available", typically when a slot can no longer be booked.
type NotAvailableError struct {
	*SchedulingError
}

func (e *NotAvailableError) Unwrap() error { return e.SchedulingError }

// UndocumentedRateLimitError is returned when Acuity answers 403 with an
// HTML page instead of its JSON error body. This happens under sustained
// load and is never retried.
type UndocumentedRateLimitError struct {
	*SchedulingError
}

func (e *UndocumentedRateLimitError) Error() string {
	return fmt.Sprintf("acuity %s %s hit the undocumented rate limit (HTTP %d)", e.Method, e.URL, e.StatusCode)
}

func (e *UndocumentedRateLimitError) Unwrap() error { return e.SchedulingError }

// ParseError is returned when a 2xx body cannot be mapped to the expected type.
type ParseError struct {
	Method string
	URL    string
	Body   string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("acuity %s %s: unable to parse response: %v", e.Method, e.URL, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// TransportError is returned when no HTTP response was received.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("acuity %s %s: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsDocumentedRateLimit reports whether err is a retryable rate-limit failure.
func IsDocumentedRateLimit(err error) bool {
	var undocumented *UndocumentedRateLimitError
	if errors.As(err, &undocumented) {
		return false
	}
	var se *SchedulingError
	return errors.As(err, &se) && se.rateLimited
}

// IsUndocumentedRateLimit reports whether err is the HTML 403 rate-limit response.
func IsUndocumentedRateLimit(err error) bool {
	var target *UndocumentedRateLimitError
	return errors.As(err, &target)
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// IsNotAvailable reports whether err is a NotAvailableError.
func IsNotAvailable(err error) bool {
	var target *NotAvailableError
	return errors.As(err, &target)
}
