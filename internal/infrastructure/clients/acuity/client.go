package acuity

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"

	"github.com/zatekoja/providersync/internal/infrastructure/observability"
	"github.com/zatekoja/providersync/pkg/config"
	"github.com/zatekoja/providersync/pkg/retry"
)

// Client is the Acuity Scheduling REST API.
type Client interface {
	FindCalendars(ctx context.Context) ([]Calendar, error)
	FindCalendar(ctx context.Context, calendarID int64) (*Calendar, error)
	FindAppointmentTypes(ctx context.Context) ([]AppointmentType, error)
	FindAppointmentType(ctx context.Context, appointmentTypeID int64) (*AppointmentType, error)
	AvailabilityDates(ctx context.Context, req AvailabilityDatesRequest) ([]AvailabilityDate, error)
	AvailabilityTimes(ctx context.Context, req AvailabilityTimesRequest) ([]AvailabilityTime, error)
	AvailabilityClasses(ctx context.Context, req AvailabilityClassesRequest) ([]AvailabilityClass, error)
	CheckTimes(ctx context.Context, req AvailabilityCheckTimesRequest) (*AvailabilityCheckTimesResponse, error)
	CreateAppointment(ctx context.Context, req AppointmentCreateRequest) (*Appointment, error)
	CancelAppointment(ctx context.Context, appointmentID int64, cancelNote string) (*Appointment, error)
	FindAppointment(ctx context.Context, appointmentID int64) (*Appointment, error)
	VerifyRequestSignature(body []byte, signature string) bool
	CallFrequencyHistogram() []HistogramBucket
}

// HTTPClient calls Acuity at a fixed rate, retrying documented rate-limit
// responses with a fixed backoff.
type HTTPClient struct {
	baseURL    string
	userID     string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	histogram  *CallHistogram
	retryCfg   retry.Config
	metrics    *observability.SyncMetrics
	now        func() time.Time
}

var _ Client = (*HTTPClient)(nil)

// Option customizes an HTTPClient.
type Option func(*HTTPClient)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *HTTPClient) { c.httpClient = hc }
}

// WithClock sets the clock used to label histogram buckets.
func WithClock(now func() time.Time) Option {
	return func(c *HTTPClient) { c.now = now }
}

// WithMetrics records per-call metrics.
func WithMetrics(m *observability.SyncMetrics) Option {
	return func(c *HTTPClient) { c.metrics = m }
}

// NewClient builds an HTTPClient from the vendor credentials and the engine
// tunables.
func NewClient(acuityCfg config.AcuityConfig, syncCfg config.SyncEngineConfig, opts ...Option) (*HTTPClient, error) {
	if !acuityCfg.Enabled() {
		return nil, errors.New("acuity user id and api key are required")
	}
	if syncCfg.CallsPerSecond <= 0 {
		return nil, fmt.Errorf("calls per second must be positive, got %v", syncCfg.CallsPerSecond)
	}

	loc, err := time.LoadLocation(syncCfg.HistogramTimeZone)
	if err != nil {
		return nil, fmt.Errorf("invalid histogram time zone: %w", err)
	}
	histogram, err := NewCallHistogram(syncCfg.HistogramCap, loc)
	if err != nil {
		return nil, err
	}

	retryCfg := retry.Fixed(syncCfg.MaxRetryCount, syncCfg.RetryBackoff)
	retryCfg.Retryable = IsDocumentedRateLimit

	c := &HTTPClient{
		baseURL: strings.TrimRight(acuityCfg.BaseURL, "/"),
		userID:  acuityCfg.UserID,
		apiKey:  acuityCfg.APIKey,
		httpClient: &http.Client{
			Timeout: acuityCfg.HTTPTimeout,
		},
		// Burst of one spaces calls evenly instead of letting a backlog through at once.
		limiter:   rate.NewLimiter(rate.Limit(syncCfg.CallsPerSecond), 1),
		histogram: histogram,
		retryCfg:  retryCfg,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *HTTPClient) FindCalendars(ctx context.Context) ([]Calendar, error) {
	var out []Calendar
	if err := c.doJSON(ctx, request{method: http.MethodGet, path: "/calendars"}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// FindCalendar returns a NotFoundError when no calendar has the given id.
func (c *HTTPClient) FindCalendar(ctx context.Context, calendarID int64) (*Calendar, error) {
	calendars, err := c.FindCalendars(ctx)
	if err != nil {
		return nil, err
	}
	for i := range calendars {
		if calendars[i].ID == calendarID {
			return &calendars[i], nil
		}
	}
	return nil, c.notFound("/calendars", fmt.Sprintf("calendar %d not found", calendarID))
}

func (c *HTTPClient) FindAppointmentTypes(ctx context.Context) ([]AppointmentType, error) {
	var out []AppointmentType
	if err := c.doJSON(ctx, request{method: http.MethodGet, path: "/appointment-types"}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// FindAppointmentType returns a NotFoundError when no appointment type has the given id.
func (c *HTTPClient) FindAppointmentType(ctx context.Context, appointmentTypeID int64) (*AppointmentType, error) {
	types, err := c.FindAppointmentTypes(ctx)
	if err != nil {
		return nil, err
	}
	for i := range types {
		if types[i].ID == appointmentTypeID {
			return &types[i], nil
		}
	}
	return nil, c.notFound("/appointment-types", fmt.Sprintf("appointment type %d not found", appointmentTypeID))
}

// notFound reports a lookup that succeeded upstream but matched nothing.
func (c *HTTPClient) notFound(path, message string) error {
	return &NotFoundError{SchedulingError: &SchedulingError{
		StatusCode: http.StatusNotFound,
		Method:     http.MethodGet,
		URL:        c.baseURL + path,
		Vendor: &ErrorResponse{
			StatusCode: http.StatusNotFound,
			Message:    message,
			Error:      errorCodeNotFound,
		},
	}}
}

func (c *HTTPClient) AvailabilityDates(ctx context.Context, req AvailabilityDatesRequest) ([]AvailabilityDate, error) {
	query := url.Values{}
	query.Set("month", req.Month)
	query.Set("appointmentTypeID", strconv.FormatInt(req.AppointmentTypeID, 10))
	query.Set("calendarID", strconv.FormatInt(req.CalendarID, 10))
	if req.TimeZone != "" {
		query.Set("timezone", req.TimeZone)
	}

	var out []AvailabilityDate
	if err := c.doJSON(ctx, request{method: http.MethodGet, path: "/availability/dates", query: query}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) AvailabilityTimes(ctx context.Context, req AvailabilityTimesRequest) ([]AvailabilityTime, error) {
	query := url.Values{}
	query.Set("date", req.Date)
	query.Set("appointmentTypeID", strconv.FormatInt(req.AppointmentTypeID, 10))
	query.Set("calendarID", strconv.FormatInt(req.CalendarID, 10))
	if req.TimeZone != "" {
		query.Set("timezone", req.TimeZone)
	}

	var out []AvailabilityTime
	if err := c.doJSON(ctx, request{method: http.MethodGet, path: "/availability/times", query: query}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) AvailabilityClasses(ctx context.Context, req AvailabilityClassesRequest) ([]AvailabilityClass, error) {
	query := url.Values{}
	query.Set("month", req.Month)
	if req.CalendarID != 0 {
		query.Set("calendarID", strconv.FormatInt(req.CalendarID, 10))
	}
	if req.AppointmentTypeID != 0 {
		query.Set("appointmentTypeID", strconv.FormatInt(req.AppointmentTypeID, 10))
	}
	if req.IncludeUnavailable {
		query.Set("includeUnavailable", "true")
	}
	if req.TimeZone != "" {
		query.Set("timezone", req.TimeZone)
	}

	var out []AvailabilityClass
	if err := c.doJSON(ctx, request{method: http.MethodGet, path: "/availability/classes", query: query}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) CheckTimes(ctx context.Context, req AvailabilityCheckTimesRequest) (*AvailabilityCheckTimesResponse, error) {
	out := &AvailabilityCheckTimesResponse{}
	if err := c.doJSON(ctx, request{method: http.MethodPost, path: "/availability/check-times", body: req}, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) CreateAppointment(ctx context.Context, req AppointmentCreateRequest) (*Appointment, error) {
	out := &Appointment{}
	if err := c.doJSON(ctx, request{method: http.MethodPost, path: "/appointments", body: req}, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) CancelAppointment(ctx context.Context, appointmentID int64, cancelNote string) (*Appointment, error) {
	body := map[string]string{}
	if cancelNote != "" {
		body["cancelNote"] = cancelNote
	}
	out := &Appointment{}
	req := request{
		method: http.MethodPut,
		path:   fmt.Sprintf("/appointments/%d/cancel", appointmentID),
		route:  "/appointments/{id}/cancel",
		body:   body,
	}
	if err := c.doJSON(ctx, req, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) FindAppointment(ctx context.Context, appointmentID int64) (*Appointment, error) {
	out := &Appointment{}
	req := request{
		method: http.MethodGet,
		path:   fmt.Sprintf("/appointments/%d", appointmentID),
		route:  "/appointments/{id}",
	}
	if err := c.doJSON(ctx, req, out); err != nil {
		return nil, err
	}
	return out, nil
}

// CallFrequencyHistogram returns calls attempted per second, newest first.
func (c *HTTPClient) CallFrequencyHistogram() []HistogramBucket {
	return c.histogram.Snapshot()
}

type request struct {
	method string
	path   string
	// route is the path template used for span names and metric attributes.
	route string
	query url.Values
	body  any
}

func (r request) routeOrPath() string {
	if r.route != "" {
		return r.route
	}
	return r.path
}

func (c *HTTPClient) doJSON(ctx context.Context, req request, out any) error {
	route := req.routeOrPath()
	ctx, span := observability.StartSpan(ctx, "acuity "+req.method+" "+route,
		attribute.String("http.method", req.method),
		attribute.String("acuity.route", route),
	)
	defer span.End()

	endpoint := c.baseURL + req.path
	if len(req.query) > 0 {
		endpoint += "?" + req.query.Encode()
	}

	var payload []byte
	if req.body != nil {
		var err error
		payload, err = json.Marshal(req.body)
		if err != nil {
			return fmt.Errorf("acuity %s %s: encode request: %w", req.method, endpoint, err)
		}
	}

	started := time.Now()
	attempts := 0

	cfg := c.retryCfg
	cfg.OnRetry = func(attempt int, err error, nextDelay time.Duration) {
		observability.LoggerFromContext(ctx).Warn().
			Str("method", req.method).
			Str("route", route).
			Int("attempt", attempt).
			Dur("backoff", nextDelay).
			Msg("Acuity rate limit reached, retrying")
	}

	var body []byte
	err := retry.Do(ctx, cfg, func(attempt int) error {
		attempts = attempt
		var attemptErr error
		body, attemptErr = c.attempt(ctx, req, endpoint, payload)
		return attemptErr
	})

	var exhausted *retry.ExhaustedError
	if errors.As(err, &exhausted) {
		err = exhausted.Err
	}

	if err == nil && out != nil {
		if uerr := json.Unmarshal(body, out); uerr != nil {
			err = &ParseError{Method: req.method, URL: endpoint, Body: string(body), Err: uerr}
		}
	}

	span.SetAttributes(attribute.Int("acuity.attempts", attempts))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	c.metrics.RecordVendorCall(ctx, route, outcomeOf(err), attempts, time.Since(started))

	return err
}

// attempt performs exactly one HTTP exchange. The histogram is updated
// before the response is classified.
func (c *HTTPClient) attempt(ctx context.Context, req request, endpoint string, payload []byte) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("acuity rate limiter: %w", err)
	}

	var reqBody io.Reader = http.NoBody
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.method, endpoint, reqBody)
	if err != nil {
		return nil, err
	}
	httpReq.SetBasicAuth(c.userID, c.apiKey)
	httpReq.Header.Set("Accept", "application/json")
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	c.histogram.Record(c.now())

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &TransportError{Method: req.method, URL: endpoint, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Method: req.method, URL: endpoint, Err: err}
	}

	if resp.StatusCode > 299 {
		return nil, classify(req, endpoint, payload, resp.StatusCode, respBody)
	}
	return respBody, nil
}

func classify(req request, endpoint string, payload []byte, status int, body []byte) error {
	base := &SchedulingError{
		StatusCode:   status,
		Method:       req.method,
		URL:          endpoint,
		Query:        req.query,
		RequestBody:  string(payload),
		ResponseBody: string(body),
	}

	if status == http.StatusForbidden && strings.TrimSpace(string(body)) == "</html>" {
		return &UndocumentedRateLimitError{SchedulingError: base}
	}

	var vendor ErrorResponse
	if err := json.Unmarshal(body, &vendor); err == nil && (vendor.Error != "" || vendor.Message != "") {
		base.Vendor = &vendor
	}

	code := ""
	if base.Vendor != nil {
		code = base.Vendor.Error
	}

	switch {
	case code == errorCodeNotFound:
		return &NotFoundError{SchedulingError: base}
	case code == errorCodeNotAvailable:
		return &NotAvailableError{SchedulingError: base}
	case status == http.StatusTooManyRequests || code == errorCodeTooManyRequests:
		base.rateLimited = true
	}
	return base
}

func outcomeOf(err error) string {
	var (
		parseErr     *ParseError
		transportErr *TransportError
		schedErr     *SchedulingError
	)
	switch {
	case err == nil:
		return "success"
	case IsUndocumentedRateLimit(err):
		return "undocumented_rate_limit"
	case IsNotFound(err):
		return "not_found"
	case IsNotAvailable(err):
		return "not_available"
	case IsDocumentedRateLimit(err):
		return "rate_limited"
	case errors.As(err, &parseErr):
		return "parse_error"
	case errors.As(err, &transportErr):
		return "transport_error"
	case errors.As(err, &schedErr):
		return "error"
	default:
		return "canceled"
	}
}
