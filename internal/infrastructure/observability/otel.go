package observability

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/zatekoja/providersync"

// Setup initializes OpenTelemetry tracing and metrics export over OTLP/gRPC.
func Setup(ctx context.Context, serviceName, serviceVersion, endpoint string) (func(context.Context) error, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(serviceVersion),
		),
	)
	if err != nil {
		return nil, err
	}

	traceExporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	tracerProvider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tracerProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	metricExporter, err := otlpmetricgrpc.New(ctx,
		otlpmetricgrpc.WithEndpoint(endpoint),
		otlpmetricgrpc.WithInsecure(),
	)
	if err != nil {
		_ = tracerProvider.Shutdown(ctx)
		return nil, err
	}

	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(meterProvider)

	// Go runtime metrics (goroutines, GC, heap) alongside the sync instruments
	if err := runtime.Start(runtime.WithMeterProvider(meterProvider)); err != nil {
		_ = errors.Join(meterProvider.Shutdown(ctx), tracerProvider.Shutdown(ctx))
		return nil, err
	}

	shutdown := func(ctx context.Context) error {
		return errors.Join(
			meterProvider.Shutdown(ctx),
			tracerProvider.Shutdown(ctx),
		)
	}

	return shutdown, nil
}

// SyncMetrics holds the instruments recorded by the vendor client, the
// availability cache and the background sync jobs. A nil *SyncMetrics is
// valid and records nothing.
type SyncMetrics struct {
	VendorCalls           metric.Int64Counter
	VendorCallDuration    metric.Float64Histogram
	CacheLookups          metric.Int64Counter
	CacheRefreshes        metric.Int64Counter
	SyncRuns              metric.Int64Counter
	SyncRunDuration       metric.Float64Histogram
	ProviderSyncs         metric.Int64Counter
	AppointmentTypeWrites metric.Int64Counter
	HTTPRequestCount      metric.Int64Counter
	HTTPRequestDuration   metric.Float64Histogram
}

// InitMetrics initializes the metrics against the global meter provider.
func InitMetrics() (*SyncMetrics, error) {
	return NewSyncMetrics(otel.Meter(instrumentationName))
}

// NewSyncMetrics creates every instrument on meter.
func NewSyncMetrics(meter metric.Meter) (*SyncMetrics, error) {
	var (
		m    SyncMetrics
		errs []error
	)

	counter := func(name, desc string) metric.Int64Counter {
		c, err := meter.Int64Counter(name, metric.WithDescription(desc))
		errs = append(errs, err)
		return c
	}
	histogram := func(name, desc, unit string) metric.Float64Histogram {
		h, err := meter.Float64Histogram(name, metric.WithDescription(desc), metric.WithUnit(unit))
		errs = append(errs, err)
		return h
	}

	m.VendorCalls = counter("acuity.client.calls", "Logical calls made to the Acuity API by outcome")
	m.VendorCallDuration = histogram("acuity.client.duration", "Acuity call duration including retries", "ms")
	m.CacheLookups = counter("availability.cache.lookups", "Availability cache lookups by result")
	m.CacheRefreshes = counter("availability.cache.refreshes", "Background availability cache refreshes by result")
	m.SyncRuns = counter("sync.runs", "Background sync job executions")
	m.SyncRunDuration = histogram("sync.run.duration", "Background sync job duration", "s")
	m.ProviderSyncs = counter("sync.provider.results", "Per-provider availability sync results")
	m.AppointmentTypeWrites = counter("sync.appointment_type.writes", "Appointment type rows inserted or updated")
	m.HTTPRequestCount = counter("http.server.request.count", "Number of HTTP requests")
	m.HTTPRequestDuration = histogram("http.server.request.duration", "HTTP request duration in milliseconds", "ms")

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return &m, nil
}

// RecordVendorCall records one logical Acuity call.
func (m *SyncMetrics) RecordVendorCall(ctx context.Context, path, outcome string, attempts int, duration time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("acuity.path", path),
		attribute.String("outcome", outcome),
	)
	m.VendorCalls.Add(ctx, 1, attrs)
	m.VendorCallDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
}

// RecordCacheLookup records a lookup result ("hit", "stale" or "miss").
func (m *SyncMetrics) RecordCacheLookup(ctx context.Context, cache, result string) {
	if m == nil {
		return
	}
	m.CacheLookups.Add(ctx, 1, metric.WithAttributes(
		attribute.String("cache", cache),
		attribute.String("result", result),
	))
}

// RecordCacheRefresh records a background refresh.
func (m *SyncMetrics) RecordCacheRefresh(ctx context.Context, cache string, err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.CacheRefreshes.Add(ctx, 1, metric.WithAttributes(
		attribute.String("cache", cache),
		attribute.String("result", result),
	))
}

// RecordSyncRun records one execution of a background job.
func (m *SyncMetrics) RecordSyncRun(ctx context.Context, job string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("job", job),
		attribute.Bool("error", err != nil),
	)
	m.SyncRuns.Add(ctx, 1, attrs)
	m.SyncRunDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordProviderSync records the outcome of syncing one provider.
func (m *SyncMetrics) RecordProviderSync(ctx context.Context, result string) {
	if m == nil {
		return
	}
	m.ProviderSyncs.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

// RecordAppointmentTypeWrite records an insert or update of an appointment type.
func (m *SyncMetrics) RecordAppointmentTypeWrite(ctx context.Context, op string) {
	if m == nil {
		return
	}
	m.AppointmentTypeWrites.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
}

// RecordRequest records an inbound HTTP request.
func (m *SyncMetrics) RecordRequest(ctx context.Context, method, route string, statusCode int, duration time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("http.route", route),
		attribute.Int("http.status_code", statusCode),
	)
	m.HTTPRequestCount.Add(ctx, 1, attrs)
	m.HTTPRequestDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
}

// StartSpan starts a new trace span
func StartSpan(ctx context.Context, spanName string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(instrumentationName).Start(ctx, spanName, trace.WithAttributes(attrs...))
}

// RecordError records an error in the current span
func RecordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
	}
}
