package observability

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestWrapSlogHandlerAddsRequestContext(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(WrapSlogHandler(slog.NewTextHandler(&buf, nil)))

	ctx := WithRequestMetadata(context.Background(), " req-1 ", "/api/events/:id")
	ctx = WithActor(ctx, "admin")
	log.InfoContext(ctx, "Event created")

	out := buf.String()
	for _, want := range []string{"request_id=req-1", "route=/api/events/:id", "actor=admin"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in %q", want, out)
		}
	}
}

func TestWrapSlogHandlerSkipsEmptyValues(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(WrapSlogHandler(slog.NewTextHandler(&buf, nil)))

	ctx := WithActor(WithRequestMetadata(context.Background(), "  ", ""), " ")
	log.InfoContext(ctx, "noop")

	out := buf.String()
	for _, unwanted := range []string{"request_id=", "route=", "actor=", "trace_id="} {
		if strings.Contains(out, unwanted) {
			t.Fatalf("unexpected %q in %q", unwanted, out)
		}
	}
}

func TestStartSpansWithoutProviderAreSafe(t *testing.T) {
	ctx, span := StartIngestSpan(WithActor(context.Background(), "cli"), "", "https://example.com")
	span.RecordError(nil)
	span.End()

	_, dbSpan := StartDBSpan(ctx, " ", "exec")
	dbSpan.RecordError(context.Canceled)
	dbSpan.End()
}

func TestConfiguredSampler(t *testing.T) {
	cases := map[float64]string{
		1:   "AlwaysOnSampler",
		0:   "AlwaysOffSampler",
		0.5: "TraceIDRatioBased",
	}
	for ratio, want := range cases {
		if got := configuredSampler(ratio).Description(); !strings.Contains(got, want) {
			t.Fatalf("sampler(%v) = %q, want it to mention %q", ratio, got, want)
		}
	}
}

func TestWrapSlogHandlerAttachesErrorsToSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	var buf bytes.Buffer
	log := slog.New(WrapSlogHandler(slog.NewTextHandler(&buf, nil)))

	ctx, span := provider.Tracer("test").Start(context.Background(), "import")
	log.InfoContext(ctx, "Import started")
	log.ErrorContext(ctx, "mirror_write_failed", "backend", "redis", "error", errors.New("down"))
	span.End()

	if !strings.Contains(buf.String(), "trace_id=") {
		t.Fatalf("missing trace id in %q", buf.String())
	}
	ended := recorder.Ended()
	if len(ended) != 1 {
		t.Fatalf("expected one span, got %d", len(ended))
	}
	events := ended[0].Events()
	if len(events) != 1 || events[0].Name != "mirror_write_failed" {
		t.Fatalf("unexpected span events: %+v", events)
	}
	found := false
	for _, attr := range events[0].Attributes {
		if string(attr.Key) == "log.backend" && attr.Value.AsString() == "redis" {
			found = true
		}
	}
	if !found {
		t.Fatalf("backend attribute missing: %+v", events[0].Attributes)
	}
}
