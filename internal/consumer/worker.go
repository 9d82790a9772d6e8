package consumer

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	toyov1 "github.com/cocuh/toyosatomimi/api/toyo/v1"
	"github.com/cocuh/toyosatomimi/internal/backoff"
	"github.com/cocuh/toyosatomimi/internal/transport"
	logpkg "github.com/cocuh/toyosatomimi/pkg/log"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	// ErrExecution wraps the cause of a Failed outcome returned from Run.
	ErrExecution = errors.New("consumer: job execution failed")
	// ErrExecutorFailed is the cause of a Failed outcome that carried none.
	ErrExecutorFailed = errors.New("executor reported failure")
	// ErrSourceGone is returned from Run when the broker sent a malformed
	// reply or could not be reached.
	ErrSourceGone = errors.New("consumer: job source gone")
)

// DefaultRequeueTimeout bounds the put that returns an unfinished job.
const DefaultRequeueTimeout = 10 * time.Second

const instrumentationName = "github.com/cocuh/toyosatomimi"

// State is where a Worker is in its loop.
type State int32

const (
	StateIdle State = iota
	StateRequesting
	StateExecuting
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRequesting:
		return "requesting"
	case StateExecuting:
		return "executing"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Option configures a Worker.
type Option func(*Worker)

// WithName sets the worker name used in logs and spans.
func WithName(name string) Option {
	return func(w *Worker) { w.name = name }
}

// WithBackoff sets the delay strategy between gets on an empty queue.
func WithBackoff(s backoff.Strategy) Option {
	return func(w *Worker) { w.backoff = s }
}

// WithLongPoll asks the broker to hold an empty-queue get for up to d.
func WithLongPoll(d time.Duration) Option {
	return func(w *Worker) { w.longPoll = d }
}

// WithRequeueTimeout bounds the put that returns an unfinished job.
func WithRequeueTimeout(d time.Duration) Option {
	return func(w *Worker) { w.requeueTimeout = d }
}

// WithLogger sets the worker logger.
func WithLogger(l logpkg.Logger) Option {
	return func(w *Worker) { w.logger = l }
}

// WithTracer records job spans on t instead of the global TracerProvider.
func WithTracer(t trace.Tracer) Option {
	return func(w *Worker) { w.tracer = t }
}

// Worker pulls jobs from a transport and hands them to an Executor.
type Worker struct {
	tr             transport.Transport
	exec           Executor
	name           string
	backoff        backoff.Strategy
	longPoll       time.Duration
	requeueTimeout time.Duration
	logger         logpkg.Logger
	tracer         trace.Tracer
	state          atomic.Int32
}

// New creates a worker. Without WithName the worker gets a random UUID.
func New(tr transport.Transport, exec Executor, opts ...Option) *Worker {
	w := &Worker{
		tr:             tr,
		exec:           exec,
		backoff:        backoff.DefaultStrategy(),
		requeueTimeout: DefaultRequeueTimeout,
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name == "" {
		w.name = uuid.NewString()
	}
	if w.logger == nil {
		w.logger = logpkg.NewLogger(logpkg.WithLevel(logpkg.InfoLevel))
	}
	w.logger = w.logger.With(logpkg.Component("worker"), logpkg.Str("worker", w.name))
	if w.tracer == nil {
		w.tracer = otel.Tracer(instrumentationName)
	}
	return w
}

// Name returns the worker name.
func (w *Worker) Name() string { return w.name }

// State returns the current loop state.
func (w *Worker) State() State { return State(w.state.Load()) }

func (w *Worker) setState(s State) { w.state.Store(int32(s)) }

// Run pulls and executes jobs until ctx is cancelled, a job is cancelled or
// fails, or the broker goes away. Cancellation returns nil.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("worker started", logpkg.Dur("long_poll", w.longPoll))
	defer w.setState(StateTerminated)
	defer w.logger.Info("worker stopped")

	misses := 0
	for {
		if ctx.Err() != nil {
			return nil
		}
		w.setState(StateRequesting)
		reply, err := w.tr.Exchange(ctx, &toyov1.Request{
			Command: toyov1.CommandGet,
			WaitMs:  w.longPoll.Milliseconds(),
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, toyov1.ErrMalformedReply) || errors.Is(err, transport.ErrUnavailable) {
				w.logger.Warn("job source gone, exiting", logpkg.Err(err))
				return fmt.Errorf("%w: %v", ErrSourceGone, err)
			}
			return err
		}
		w.logger.Debug("get reply", logpkg.Str("status", reply.Status), logpkg.Any("data", reply.Data))

		if !reply.OK() || reply.Data == nil {
			w.setState(StateIdle)
			misses++
			if !w.sleep(ctx, w.backoff.Delay(misses)) {
				return nil
			}
			continue
		}
		misses = 0

		w.setState(StateExecuting)
		job, delivery := reply.Data, reply.Delivery
		w.logger.Info("job started", logpkg.Any("job", job), logpkg.Str("delivery", delivery))
		out := w.execute(ctx, job, delivery)

		switch out.Kind() {
		case Succeeded:
			if err := w.report(toyov1.CommandDone, job, delivery); err != nil {
				w.logger.Error("done report failed", logpkg.Any("job", job), logpkg.Err(err))
				return fmt.Errorf("%w: %v", ErrSourceGone, err)
			}
			w.logger.Info("job done", logpkg.Any("job", job), logpkg.Any("result", out.Value()))
			w.setState(StateIdle)
		case Cancelled:
			w.logger.Info("job cancelled, requeueing", logpkg.Any("job", job))
			if err := w.report(toyov1.CommandPut, job, delivery); err != nil {
				w.logger.Error("requeue failed", logpkg.Any("job", job), logpkg.Err(err))
				return err
			}
			return nil
		default:
			w.logger.Error("job failed, requeueing", logpkg.Any("job", job), logpkg.Err(out.Err()))
			if err := w.report(toyov1.CommandPut, job, delivery); err != nil {
				w.logger.Error("requeue failed", logpkg.Any("job", job), logpkg.Err(err))
				return errors.Join(fmt.Errorf("%w: %w", ErrExecution, out.Err()), err)
			}
			return fmt.Errorf("%w: %w", ErrExecution, out.Err())
		}
	}
}

// execute runs the executor under a span, turning a panic into Failed.
func (w *Worker) execute(ctx context.Context, job toyov1.Job, delivery string) (out Outcome) {
	ctx, span := w.tracer.Start(ctx, "toyo.job.execute",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("toyo.worker", w.name),
			attribute.String("toyo.delivery", delivery),
		),
	)
	defer span.End()
	defer func() {
		if r := recover(); r != nil {
			out = Failure(fmt.Errorf("panic: %v", r))
			w.logger.WithContext(ctx).Error("executor panicked", logpkg.Any("panic", r))
		}
		span.SetAttributes(attribute.String("toyo.outcome", out.Kind().String()))
		if out.Kind() == Failed {
			span.RecordError(out.Err())
			span.SetStatus(codes.Error, fmt.Sprint(out.Err()))
		}
	}()
	return w.exec.Execute(ctx, job.Clone())
}

// report sends done or put on a fresh context so it still goes out after the
// run context was cancelled.
func (w *Worker) report(command string, job toyov1.Job, delivery string) error {
	ctx, cancel := context.WithTimeout(context.Background(), w.requeueTimeout)
	defer cancel()
	reply, err := w.tr.Exchange(ctx, &toyov1.Request{Command: command, Data: job, Delivery: delivery})
	if err != nil {
		return err
	}
	if !reply.OK() {
		return fmt.Errorf("consumer: %s rejected by broker", command)
	}
	return nil
}

func (w *Worker) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
