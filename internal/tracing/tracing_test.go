package tracing

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"demoforge/internal/config"
)

func TestSetupWithoutEndpointIsNoop(t *testing.T) {
	tracer, shutdown, err := Setup(context.Background(), config.Tracing{})
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	_, span := tracer.Start(context.Background(), "pipeline.run")
	if span.IsRecording() {
		t.Fatal("noop tracer should not record spans")
	}
	span.End()
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestSetErrorMarksSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	_, span := provider.Tracer("test").Start(context.Background(), "stage.composite")
	SetError(span, errors.New("ffmpeg exited 1"), attribute.String(ErrorKindKey, "CompositionError"))
	span.End()

	ended := recorder.Ended()
	if len(ended) != 1 {
		t.Fatalf("ended spans = %d", len(ended))
	}
	got := ended[0]
	if got.Status().Code != codes.Error || got.Status().Description != "ffmpeg exited 1" {
		t.Fatalf("status = %+v", got.Status())
	}
	if len(got.Events()) != 1 || got.Events()[0].Name != "exception" {
		t.Fatalf("events = %+v", got.Events())
	}
}
