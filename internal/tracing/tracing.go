// Package tracing exports pipeline runs and stage executions as OpenTelemetry
// spans. With no endpoint configured every span is a no-op.
package tracing

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"demoforge/internal/config"
)

// Span attribute keys.
const (
	RunIDKey      = "demoforge.run.id"
	ProductKey    = "demoforge.product"
	StageKey      = "demoforge.stage"
	ResumeFromKey = "demoforge.resume_from"
	StateKey      = "demoforge.run.state"
	StatusKey     = "demoforge.stage.status"
	ReasonKey     = "demoforge.stage.reason"
	ErrorKindKey  = "demoforge.error_kind"
)

const instrumentationName = "demoforge"

// Shutdown flushes buffered spans.
type Shutdown func(context.Context) error

// Noop returns a tracer that records nothing.
func Noop() trace.Tracer {
	return noop.NewTracerProvider().Tracer(instrumentationName)
}

// Setup builds a tracer from cfg. An empty endpoint yields Noop and a
// Shutdown that does nothing.
func Setup(ctx context.Context, cfg config.Tracing) (trace.Tracer, Shutdown, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return Noop(), func(context.Context) error { return nil }, nil
	}

	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, nil, err
	}
	res, err := resource.Merge(resource.Default(), resource.NewSchemaless(semconv.ServiceName(cfg.ServiceName)))
	if err != nil {
		return nil, nil, err
	}
	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	return provider.Tracer(instrumentationName), provider.Shutdown, nil
}

// SetError marks span failed and records err as an event.
func SetError(span trace.Span, err error, attrs ...attribute.KeyValue) {
	if err == nil {
		return
	}
	span.RecordError(err, trace.WithAttributes(attrs...))
	span.SetStatus(codes.Error, err.Error())
}
