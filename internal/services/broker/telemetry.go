package broker

import (
	"context"
	"time"

	toyov1 "github.com/cocuh/toyosatomimi/api/toyo/v1"
	"github.com/cocuh/toyosatomimi/internal/storage/jsonfile"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// instrumentationName is the scope for toyo metrics and spans.
const instrumentationName = "github.com/cocuh/toyosatomimi"

// Instruments:
//   - toyo.broker.requests (Int64Counter): requests handled, by command and status
//   - toyo.broker.request.duration (Float64Histogram): seconds from receipt to reply
//   - toyo.broker.queue.depth (Int64ObservableGauge): jobs waiting in the queue
type telemetry struct {
	tracer   trace.Tracer
	requests metric.Int64Counter
	duration metric.Float64Histogram
}

func newTelemetry(meter metric.Meter, tracer trace.Tracer, depth func() int64) *telemetry {
	requests, rErr := meter.Int64Counter(
		"toyo.broker.requests",
		metric.WithDescription("Requests handled by the broker"),
		metric.WithUnit("{request}"),
	)
	_ = rErr // noop fallback guaranteed by OTel API contract

	duration, dErr := meter.Float64Histogram(
		"toyo.broker.request.duration",
		metric.WithDescription("Time from receiving a request to replying, in seconds"),
		metric.WithUnit("s"),
	)
	_ = dErr

	_, gErr := meter.Int64ObservableGauge(
		"toyo.broker.queue.depth",
		metric.WithDescription("Jobs waiting in the queue"),
		metric.WithUnit("{job}"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(depth())
			return nil
		}),
	)
	_ = gErr

	return &telemetry{tracer: tracer, requests: requests, duration: duration}
}

func spanName(command string) string {
	if toyov1.KnownCommand(command) {
		return "toyo.broker." + command
	}
	return "toyo.broker.unknown"
}

func (t *telemetry) startSpan(ctx context.Context, req *toyov1.Request) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, spanName(req.Command),
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("toyo.command", req.Command),
			attribute.Int64("toyo.wait_ms", req.WaitMs),
		),
	)
}

func (t *telemetry) finish(ctx context.Context, span trace.Span, command string, reply *toyov1.Reply, err error, elapsed time.Duration) {
	status := "error"
	if err == nil && reply != nil {
		status = reply.Status
	}
	if !toyov1.KnownCommand(command) {
		command = "unknown"
	}
	attrs := metric.WithAttributes(
		attribute.String("command", command),
		attribute.String("status", status),
	)
	t.requests.Add(ctx, 1, attrs)
	t.duration.Record(ctx, elapsed.Seconds(), attrs)

	span.SetAttributes(attribute.String("toyo.status", status))
	if reply != nil && reply.Delivery != "" {
		span.SetAttributes(attribute.String("toyo.delivery", reply.Delivery))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
}

type storageMetrics struct {
	write metric.Float64Histogram
	read  metric.Float64Histogram
	bytes metric.Int64Counter
}

// NewStorageMetrics returns a jsonfile.MetricsHook recording snapshot and
// completion-log IO on meter.
func NewStorageMetrics(meter metric.Meter) jsonfile.MetricsHook {
	write, _ := meter.Float64Histogram(
		"toyo.storage.write.duration",
		metric.WithDescription("Time to rewrite a state file, in seconds"),
		metric.WithUnit("s"),
	)
	read, _ := meter.Float64Histogram(
		"toyo.storage.read.duration",
		metric.WithDescription("Time to read a state file, in seconds"),
		metric.WithUnit("s"),
	)
	bytes, _ := meter.Int64Counter(
		"toyo.storage.bytes",
		metric.WithDescription("Bytes read from and written to state files"),
		metric.WithUnit("By"),
	)
	return &storageMetrics{write: write, read: read, bytes: bytes}
}

func (m *storageMetrics) ObserveWrite(elapsed time.Duration, n int) {
	ctx := context.Background()
	m.write.Record(ctx, elapsed.Seconds())
	m.bytes.Add(ctx, int64(n), metric.WithAttributes(attribute.String("op", "write")))
}

func (m *storageMetrics) ObserveRead(elapsed time.Duration, n int) {
	ctx := context.Background()
	m.read.Record(ctx, elapsed.Seconds())
	m.bytes.Add(ctx, int64(n), metric.WithAttributes(attribute.String("op", "read")))
}
