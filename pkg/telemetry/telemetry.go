// Package telemetry traces and counts message sends with OpenTelemetry.
package telemetry

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/kart-io/slackhub/pkg/config"
)

const instrumentationName = "github.com/kart-io/slackhub"

// SpanSend is the name of the span wrapping one SendMessage call.
const SpanSend = "slackhub.send"

// Stats is a snapshot of the in-process send counters.
type Stats struct {
	Sent   int64 `json:"sent"`
	Failed int64 `json:"failed"`
}

// Provider provides tracing and metrics for the message pipeline.
type Provider struct {
	tracer        trace.Tracer
	meter         metric.Meter
	traceProvider *sdktrace.TracerProvider

	messagesSent   metric.Int64Counter
	messagesFailed metric.Int64Counter
	sendDuration   metric.Float64Histogram

	sent   int64
	failed int64
}

// New creates a Provider. When telemetry is disabled the global (usually
// no-op) tracer and meter are used; otherwise spans are exported over
// OTLP/HTTP.
func New(cfg config.TelemetryConfig) (*Provider, error) {
	if !cfg.Enabled {
		return newProvider(otel.GetTracerProvider(), otel.GetMeterProvider())
	}

	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
			semconv.DeploymentEnvironment(cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	exporter, err := otlptrace.New(context.Background(), otlptracehttp.NewClient(exporterOptions(cfg)...))
	if err != nil {
		return nil, fmt.Errorf("create exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRate))),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	p, err := newProvider(tp, otel.GetMeterProvider())
	if err != nil {
		_ = tp.Shutdown(context.Background())
		return nil, err
	}
	p.traceProvider = tp
	return p, nil
}

// NewWithProviders creates a Provider over explicit tracer and meter
// providers, e.g. a tracetest recorder in tests.
func NewWithProviders(tp trace.TracerProvider, mp metric.MeterProvider) (*Provider, error) {
	return newProvider(tp, mp)
}

func newProvider(tp trace.TracerProvider, mp metric.MeterProvider) (*Provider, error) {
	p := &Provider{
		tracer: tp.Tracer(instrumentationName, trace.WithSchemaURL(semconv.SchemaURL)),
		meter:  mp.Meter(instrumentationName, metric.WithSchemaURL(semconv.SchemaURL)),
	}

	var err error
	p.messagesSent, err = p.meter.Int64Counter(
		"slackhub_messages_sent_total",
		metric.WithDescription("Total number of messages sent"),
	)
	if err != nil {
		return nil, fmt.Errorf("create messages_sent counter: %w", err)
	}

	p.messagesFailed, err = p.meter.Int64Counter(
		"slackhub_messages_failed_total",
		metric.WithDescription("Total number of messages that failed"),
	)
	if err != nil {
		return nil, fmt.Errorf("create messages_failed counter: %w", err)
	}

	p.sendDuration, err = p.meter.Float64Histogram(
		"slackhub_send_duration_seconds",
		metric.WithDescription("Duration of message send operations"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create send_duration histogram: %w", err)
	}

	return p, nil
}

func exporterOptions(cfg config.TelemetryConfig) []otlptracehttp.Option {
	endpoint := cfg.OTLPEndpoint
	opts := []otlptracehttp.Option{}
	switch {
	case strings.HasPrefix(endpoint, "http://"):
		endpoint = strings.TrimPrefix(endpoint, "http://")
		opts = append(opts, otlptracehttp.WithInsecure())
	case strings.HasPrefix(endpoint, "https://"):
		endpoint = strings.TrimPrefix(endpoint, "https://")
	case strings.HasPrefix(endpoint, "localhost"), strings.HasPrefix(endpoint, "127.0.0.1"):
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	opts = append(opts, otlptracehttp.WithEndpoint(strings.TrimSuffix(endpoint, "/")))
	if len(cfg.OTLPHeaders) > 0 {
		opts = append(opts, otlptracehttp.WithHeaders(cfg.OTLPHeaders))
	}
	return opts
}

// StartSend starts the span for one message send.
func (p *Provider) StartSend(ctx context.Context, templateName, endpoint, backend string) (context.Context, trace.Span) {
	return p.tracer.Start(ctx, SpanSend,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("slackhub.template", templateName),
			attribute.String("slackhub.endpoint", endpoint),
			attribute.String("slackhub.backend", backend),
		),
	)
}

// RecordSent records a successful send and ends span.
func (p *Provider) RecordSent(ctx context.Context, span trace.Span, backend string, duration time.Duration) {
	atomic.AddInt64(&p.sent, 1)
	attrs := metric.WithAttributes(attribute.String("backend", backend), attribute.String("status", "success"))
	p.messagesSent.Add(ctx, 1, attrs)
	p.sendDuration.Record(ctx, duration.Seconds(), attrs)

	span.SetStatus(codes.Ok, "")
	span.End()
}

// RecordFailed records a failed send and ends span. errorType is usually the
// error code.
func (p *Provider) RecordFailed(ctx context.Context, span trace.Span, backend, errorType string, duration time.Duration, err error) {
	atomic.AddInt64(&p.failed, 1)
	p.messagesFailed.Add(ctx, 1, metric.WithAttributes(
		attribute.String("backend", backend),
		attribute.String("error_type", errorType),
	))
	p.sendDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("backend", backend),
		attribute.String("status", "error"),
	))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.SetAttributes(attribute.String("slackhub.error_type", errorType))
	span.End()
}

// Stats returns the in-process counters.
func (p *Provider) Stats() Stats {
	return Stats{
		Sent:   atomic.LoadInt64(&p.sent),
		Failed: atomic.LoadInt64(&p.failed),
	}
}

// Shutdown flushes and stops the exporter, if one was started.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.traceProvider != nil {
		return p.traceProvider.Shutdown(ctx)
	}
	return nil
}
