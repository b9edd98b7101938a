package observability

import (
	"context"
	"log"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

type Observability struct {
	meterProvider  *metric.MeterProvider
	tracerProvider *sdktrace.TracerProvider
	meter          otelmetric.Meter
	tracer         trace.Tracer
	loopCounter    otelmetric.Int64Counter
	loopDuration   otelmetric.Float64Histogram
	toolCounter    otelmetric.Int64Counter
}

// New registers the otel Prometheus exporter on the default registry.
func New(serviceName string) *Observability {
	return NewWithRegisterer(serviceName, promclient.DefaultRegisterer)
}

func NewWithRegisterer(serviceName string, reg promclient.Registerer, opts ...sdktrace.TracerProviderOption) *Observability {
	tp := sdktrace.NewTracerProvider(opts...)
	o := &Observability{
		tracerProvider: tp,
		tracer:         tp.Tracer(serviceName),
	}

	exporter, err := prometheus.New(prometheus.WithRegisterer(reg))
	if err != nil {
		log.Printf("Failed to create Prometheus exporter: %v", err)
		return o
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)
	otel.SetTracerProvider(tp)

	meter := provider.Meter(serviceName)

	// Names must stay underscore-only; dotted names are exported verbatim.
	loopCounter, _ := meter.Int64Counter(
		"assistant_requests",
		otelmetric.WithDescription("Assistant requests processed"),
	)

	loopDuration, _ := meter.Float64Histogram(
		"assistant_duration",
		otelmetric.WithDescription("Assistant request duration"),
		otelmetric.WithUnit("ms"),
	)

	toolCounter, _ := meter.Int64Counter(
		"assistant_tool_calls",
		otelmetric.WithDescription("Tool calls executed by the assistant"),
	)

	o.meterProvider = provider
	o.meter = meter
	o.loopCounter = loopCounter
	o.loopDuration = loopDuration
	o.toolCounter = toolCounter
	return o
}

// StartSpan starts a span on the service tracer. A zero Observability
// returns a no-op span.
func (o *Observability) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if o == nil || o.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return o.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func (o *Observability) RecordLoopRun(ctx context.Context, duration time.Duration, outcome string) {
	if o == nil {
		return
	}
	attrs := otelmetric.WithAttributes(attribute.String("outcome", outcome))
	if o.loopCounter != nil {
		o.loopCounter.Add(ctx, 1, attrs)
	}
	if o.loopDuration != nil {
		o.loopDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
	}
}

func (o *Observability) RecordToolCall(ctx context.Context, tool, status string) {
	if o == nil || o.toolCounter == nil {
		return
	}
	o.toolCounter.Add(ctx, 1, otelmetric.WithAttributes(
		attribute.String("tool", tool),
		attribute.String("status", status),
	))
}

func (o *Observability) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if o.meterProvider != nil {
		_ = o.meterProvider.Shutdown(ctx)
	}
	if o.tracerProvider != nil {
		_ = o.tracerProvider.Shutdown(ctx)
	}
}
