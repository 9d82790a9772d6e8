package consumer

import (
	"context"
	"errors"
	"testing"

	toyov1 "github.com/cocuh/toyosatomimi/api/toyo/v1"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func setupTestTracer() (*tracetest.SpanRecorder, Option) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	return sr, WithTracer(tp.Tracer("test"))
}

func attr(attrs []attribute.KeyValue, key string) string {
	for _, kv := range attrs {
		if string(kv.Key) == key {
			return kv.Value.AsString()
		}
	}
	return ""
}

func TestExecuteSpanPerJob(t *testing.T) {
	sr, tracer := setupTestTracer()
	b := &memBroker{queue: jobs("A", "B"), drained: true}
	w := New(b, ExecutorFunc(succeed), WithName("w1"), tracer, quiet())
	_ = w.Run(context.Background())

	spans := sr.Ended()
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}
	for _, s := range spans {
		if s.Name() != "toyo.job.execute" {
			t.Fatalf("span name = %q", s.Name())
		}
		if got := attr(s.Attributes(), "toyo.worker"); got != "w1" {
			t.Fatalf("toyo.worker = %q", got)
		}
		if got := attr(s.Attributes(), "toyo.outcome"); got != Succeeded.String() {
			t.Fatalf("toyo.outcome = %q", got)
		}
		if s.Status().Code == codes.Error {
			t.Fatalf("successful job marked as error")
		}
	}
}

func TestExecuteSpanRecordsFailure(t *testing.T) {
	sr, tracer := setupTestTracer()
	b := &memBroker{queue: jobs("A")}
	boom := errors.New("boom")
	w := New(b, ExecutorFunc(func(context.Context, toyov1.Job) Outcome { return Failure(boom) }), tracer, quiet())
	if err := w.Run(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	spans := sr.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Status().Code != codes.Error {
		t.Fatalf("status = %v", spans[0].Status())
	}
	if len(spans[0].Events()) == 0 {
		t.Fatalf("error event not recorded")
	}
}
