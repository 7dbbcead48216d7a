package observability

import (
	"context"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"scrumbot/internal/common/logger"
)

// Observability owns the otel meter and tracer providers of the process.
type Observability struct {
	meterProvider  *metric.MeterProvider
	tracerProvider *sdktrace.TracerProvider
	meter          otelmetric.Meter
	tracer         trace.Tracer
	submissions    otelmetric.Int64Counter
	roundTrip      otelmetric.Float64Histogram
}

// Option customizes New.
type Option func(*options)

type options struct {
	spanProcessors []sdktrace.SpanProcessor
	metricReader   metric.Reader
	jaegerEndpoint string
	registerer     promclient.Registerer
	logger         logger.Logger
}

// WithLogger reports exporter setup failures to l instead of discarding them.
func WithLogger(l logger.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithRegisterer registers the prometheus exporter on r instead of the
// default registry.
func WithRegisterer(r promclient.Registerer) Option {
	return func(o *options) { o.registerer = r }
}

// WithSpanProcessor attaches a span processor, e.g. a tracetest.SpanRecorder.
func WithSpanProcessor(sp sdktrace.SpanProcessor) Option {
	return func(o *options) { o.spanProcessors = append(o.spanProcessors, sp) }
}

// WithMetricReader replaces the prometheus exporter, e.g. with a ManualReader in tests.
func WithMetricReader(r metric.Reader) Option {
	return func(o *options) { o.metricReader = r }
}

// WithJaegerEndpoint batches spans to a jaeger collector, e.g.
// http://localhost:14268/api/traces. An empty endpoint is ignored.
func WithJaegerEndpoint(endpoint string) Option {
	return func(o *options) { o.jaegerEndpoint = endpoint }
}

func New(serviceName string, opts ...Option) *Observability {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logger.NewNoOpLogger()
	}

	tpOpts := make([]sdktrace.TracerProviderOption, 0, len(o.spanProcessors)+1)
	for _, sp := range o.spanProcessors {
		tpOpts = append(tpOpts, sdktrace.WithSpanProcessor(sp))
	}
	if o.jaegerEndpoint != "" {
		exp, err := jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(o.jaegerEndpoint)))
		if err != nil {
			o.logger.Warn("Failed to create Jaeger exporter", map[string]interface{}{
				"endpoint": o.jaegerEndpoint,
				"error":    err,
			})
		} else {
			tpOpts = append(tpOpts, sdktrace.WithBatcher(exp))
		}
	}
	tracerProvider := sdktrace.NewTracerProvider(tpOpts...)
	otel.SetTracerProvider(tracerProvider)

	obs := &Observability{
		tracerProvider: tracerProvider,
		tracer:         tracerProvider.Tracer(serviceName),
	}

	reader := o.metricReader
	if reader == nil {
		var exporterOpts []prometheus.Option
		if o.registerer != nil {
			exporterOpts = append(exporterOpts, prometheus.WithRegisterer(o.registerer))
		}
		exporter, err := prometheus.New(exporterOpts...)
		if err != nil {
			o.logger.Warn("Failed to create Prometheus exporter", map[string]interface{}{
				"error": err,
			})
			return obs
		}
		reader = exporter
	}

	provider := metric.NewMeterProvider(metric.WithReader(reader))
	otel.SetMeterProvider(provider)
	meter := provider.Meter(serviceName)

	submissions, _ := meter.Int64Counter(
		"standup.submissions",
		otelmetric.WithDescription("Standup sentences sent to the pipeline"),
	)
	roundTrip, _ := meter.Float64Histogram(
		"standup.round_trip",
		otelmetric.WithDescription("Pipeline round trip duration"),
		otelmetric.WithUnit("ms"),
	)

	obs.meterProvider = provider
	obs.meter = meter
	obs.submissions = submissions
	obs.roundTrip = roundTrip
	return obs
}

// StartSpan starts an internal span on the service tracer.
func (o *Observability) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if o == nil || o.tracer == nil {
		return otel.Tracer("scrumbot").Start(ctx, name, trace.WithAttributes(attrs...))
	}
	return o.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// RecordSubmission counts one pipeline call for the given phase and status.
func (o *Observability) RecordSubmission(ctx context.Context, phase, status string) {
	if o == nil || o.submissions == nil {
		return
	}
	o.submissions.Add(ctx, 1, otelmetric.WithAttributes(
		attribute.String("phase", phase),
		attribute.String("status", status),
	))
}

func (o *Observability) RecordRoundTrip(ctx context.Context, phase string, duration time.Duration) {
	if o == nil || o.roundTrip == nil {
		return
	}
	o.roundTrip.Record(ctx, float64(duration.Milliseconds()), otelmetric.WithAttributes(
		attribute.String("phase", phase),
	))
}

func (o *Observability) Shutdown() {
	if o == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if o.meterProvider != nil {
		_ = o.meterProvider.Shutdown(ctx)
	}
	if o.tracerProvider != nil {
		_ = o.tracerProvider.Shutdown(ctx)
	}
}
