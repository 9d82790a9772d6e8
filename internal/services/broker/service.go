package broker

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	toyov1 "github.com/cocuh/toyosatomimi/api/toyo/v1"
	"github.com/cocuh/toyosatomimi/internal/runtime"
	"github.com/cocuh/toyosatomimi/internal/workqueue"
	logpkg "github.com/cocuh/toyosatomimi/pkg/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// DefaultMaxWait caps how long a get may park when no WithMaxWait is given.
const DefaultMaxWait = 30 * time.Second

// Option configures a Service.
type Option func(*Service)

// WithMaxWait caps the wait_ms a get may request. Zero or less disables
// parking entirely, so every empty get fails at once.
func WithMaxWait(d time.Duration) Option {
	return func(s *Service) { s.maxWait = d }
}

// WithMeter records metrics on m instead of the global MeterProvider.
func WithMeter(m metric.Meter) Option {
	return func(s *Service) { s.meter = m }
}

// WithTracer records spans on t instead of the global TracerProvider.
func WithTracer(t trace.Tracer) Option {
	return func(s *Service) { s.tracer = t }
}

// Service owns the broker state through a single control loop.
type Service struct {
	rt      *runtime.Runtime
	logger  logpkg.Logger
	maxWait time.Duration
	meter   metric.Meter
	tracer  trace.Tracer
	tel     *telemetry

	exchanges   chan *exchange
	withdrawals chan *exchange
	inspections chan inspection
	stopped     chan struct{}
	running     atomic.Bool
	depth       atomic.Int64

	// Owned by the control loop.
	waiters []*waiter
	stats   Stats
}

// New creates a broker service with a default logger.
func New(rt *runtime.Runtime, opts ...Option) *Service {
	logger := logpkg.NewLogger(logpkg.WithLevel(logpkg.InfoLevel))
	logger = logger.With(logpkg.Component("broker"))
	return NewWithLogger(rt, logger, opts...)
}

// NewWithLogger creates a broker service with a custom logger.
func NewWithLogger(rt *runtime.Runtime, logger logpkg.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = logpkg.NewLogger(logpkg.WithLevel(logpkg.InfoLevel))
		logger = logger.With(logpkg.Component("broker"))
	}
	s := &Service{
		rt:          rt,
		logger:      logger,
		maxWait:     DefaultMaxWait,
		exchanges:   make(chan *exchange),
		withdrawals: make(chan *exchange),
		inspections: make(chan inspection),
		stopped:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.meter == nil {
		s.meter = otel.Meter(instrumentationName)
	}
	if s.tracer == nil {
		s.tracer = otel.Tracer(instrumentationName)
	}
	s.depth.Store(int64(rt.Queue().Len()))
	s.tel = newTelemetry(s.meter, s.tracer, s.depth.Load)
	return s
}

// Run serves requests until ctx is cancelled or the completion log cannot be
// written. On every exit it answers parked gets with failure and writes the
// queue snapshot.
func (s *Service) Run(ctx context.Context) (err error) {
	if !s.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer close(s.stopped)
	defer func() {
		s.failWaiters()
		if serr := s.rt.SnapshotQueue(); serr != nil {
			s.logger.Error("queue snapshot failed",
				logpkg.Str("path", s.rt.Store().QueuePath()),
				logpkg.Err(serr),
			)
			err = errors.Join(err, fmt.Errorf("%w: snapshot queue: %v", ErrPersistence, serr))
			return
		}
		s.logger.Info("queue snapshot written",
			logpkg.Str("path", s.rt.Store().QueuePath()),
			logpkg.Int("jobs", s.rt.Queue().Len()),
		)
	}()

	s.logger.Info("broker serving",
		logpkg.Int("queued", s.rt.Queue().Len()),
		logpkg.Int("completed", s.rt.Completed().Len()),
		logpkg.Dur("max_wait", s.maxWait),
	)

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("broker stopping", logpkg.Int("parked", len(s.waiters)))
			return nil
		case ex := <-s.exchanges:
			if err := s.handle(ex); err != nil {
				return err
			}
		case ex := <-s.withdrawals:
			s.withdraw(ex)
		case in := <-s.inspections:
			in.fn()
			close(in.done)
		case <-timer.C:
			s.expireWaiters(time.Now())
		}
		s.depth.Store(int64(s.rt.Queue().Len()))
		s.armTimer(timer)
	}
}

// Exchange submits req to the control loop and returns its reply. Errors are
// reserved for the exchange itself failing: the loop has stopped or ctx ended.
func (s *Service) Exchange(ctx context.Context, req *toyov1.Request) (*toyov1.Reply, error) {
	if req == nil {
		req = &toyov1.Request{}
	}
	start := time.Now()
	ctx, span := s.tel.startSpan(ctx, req)
	defer span.End()
	reply, err := s.exchange(ctx, req)
	s.tel.finish(ctx, span, req.Command, reply, err, time.Since(start))
	return reply, err
}

// CheckHealth reports whether the loop is serving and the store is usable.
func (s *Service) CheckHealth(ctx context.Context) error {
	select {
	case <-s.stopped:
		return ErrStopped
	default:
	}
	return s.rt.CheckHealth(ctx)
}

// Done is closed once Run has returned.
func (s *Service) Done() <-chan struct{} { return s.stopped }

func (s *Service) exchange(ctx context.Context, req *toyov1.Request) (*toyov1.Reply, error) {
	ex := &exchange{ctx: ctx, req: req, reply: make(chan *toyov1.Reply, 1)}
	select {
	case s.exchanges <- ex:
	case <-s.stopped:
		return nil, ErrStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	// Only get can park; everything else is answered as soon as the loop
	// reads it.
	if req.Command != toyov1.CommandGet {
		select {
		case r := <-ex.reply:
			return r, nil
		case <-s.stopped:
			return drain(ex)
		}
	}

	select {
	case r := <-ex.reply:
		return r, nil
	case <-s.stopped:
		return drain(ex)
	case <-ctx.Done():
	}

	// The caller went away while the request was parked. Pull it back; the
	// loop answers it either way.
	select {
	case s.withdrawals <- ex:
	case <-s.stopped:
	}
	r := <-ex.reply
	if req.Command == toyov1.CommandGet && r.OK() && r.Data != nil {
		s.logger.Warn("caller left before delivery, requeueing", logpkg.Any("data", r.Data))
		if _, err := s.exchange(context.WithoutCancel(ctx), &toyov1.Request{
			Command:  toyov1.CommandPut,
			Data:     r.Data,
			Delivery: r.Delivery,
		}); err != nil {
			s.logger.Error("requeue after abandoned get failed", logpkg.Any("data", r.Data), logpkg.Err(err))
		}
	}
	return nil, ctx.Err()
}

func drain(ex *exchange) (*toyov1.Reply, error) {
	select {
	case r := <-ex.reply:
		return r, nil
	default:
		return nil, ErrStopped
	}
}

func (s *Service) handle(ex *exchange) error {
	req := ex.req
	s.logger.WithContext(ex.ctx).Debug("request received",
		logpkg.Str("command", req.Command),
		logpkg.Any("data", req.Data),
		logpkg.Str("delivery", req.Delivery),
	)

	switch req.Command {
	case toyov1.CommandPut:
		if req.Data == nil {
			s.reject(ex)
			return nil
		}
		s.stats.Puts++
		if req.Delivery != "" {
			s.release(req.Delivery)
		}
		if !s.handOff(req.Data) {
			s.rt.Queue().Push(req.Data)
		}
		s.reply(ex, toyov1.Success(nil))

	case toyov1.CommandGet:
		if job, ok := s.rt.Queue().Pop(); ok {
			s.deliver(ex, job)
			return nil
		}
		wait := s.waitFor(req.WaitMs)
		if wait <= 0 {
			s.stats.GetMisses++
			s.reply(ex, toyov1.Failure())
			return nil
		}
		s.waiters = append(s.waiters, &waiter{ex: ex, deadline: time.Now().Add(wait)})
		s.logger.Debug("get parked", logpkg.Dur("wait", wait), logpkg.Int("waiters", len(s.waiters)))

	case toyov1.CommandDone:
		if req.Data == nil {
			s.reject(ex)
			return nil
		}
		if err := s.rt.Completed().Append(req.Data); err != nil {
			s.logger.Error("completion log write failed",
				logpkg.Str("path", s.rt.Store().DonePath()),
				logpkg.Any("data", req.Data),
				logpkg.Err(err),
			)
			// Back on the tail so the shutdown snapshot keeps it.
			s.rt.Queue().Push(req.Data)
			s.release(req.Delivery)
			s.reply(ex, toyov1.Failure())
			return fmt.Errorf("%w: %v", ErrPersistence, err)
		}
		s.stats.Dones++
		s.release(req.Delivery)
		s.reply(ex, toyov1.Success(nil))

	default:
		s.stats.Unknown++
		s.logger.Error("command not found", logpkg.Str("command", req.Command))
		s.reply(ex, toyov1.Failure())
	}
	return nil
}

func (s *Service) reject(ex *exchange) {
	s.stats.Rejected++
	s.logger.Warn("request without data rejected", logpkg.Str("command", ex.req.Command))
	s.reply(ex, toyov1.Failure())
}

func (s *Service) reply(ex *exchange, r *toyov1.Reply) {
	ex.answer(r)
	s.logger.WithContext(ex.ctx).Debug("request replied",
		logpkg.Str("command", ex.req.Command),
		logpkg.Str("status", r.Status),
		logpkg.Any("data", r.Data),
		logpkg.Str("delivery", r.Delivery),
	)
}

func (s *Service) deliver(ex *exchange, job toyov1.Job) {
	d := s.rt.InFlight().Track(job, time.Now())
	s.stats.GetHits++
	s.reply(ex, &toyov1.Reply{Status: toyov1.StatusSuccess, Data: job, Delivery: d.ID})
}

// handOff gives job to the oldest parked get whose caller is still there.
func (s *Service) handOff(job toyov1.Job) bool {
	for len(s.waiters) > 0 {
		w := s.waiters[0]
		s.waiters[0] = nil
		s.waiters = s.waiters[1:]
		if w.ex.ctx.Err() != nil {
			s.stats.GetMisses++
			w.ex.answer(toyov1.Failure())
			continue
		}
		s.deliver(w.ex, job)
		return true
	}
	return false
}

func (s *Service) release(deliveryID string) {
	if _, ok := s.rt.InFlight().Release(deliveryID); ok {
		return
	}
	s.stats.Untracked++
	if deliveryID != "" {
		s.logger.Debug("unknown delivery id", logpkg.Str("delivery", deliveryID))
	}
}

func (s *Service) waitFor(waitMs int64) time.Duration {
	if waitMs <= 0 || s.maxWait <= 0 {
		return 0
	}
	wait := time.Duration(waitMs) * time.Millisecond
	if wait > s.maxWait {
		wait = s.maxWait
	}
	return wait
}

func (s *Service) withdraw(ex *exchange) {
	for i, w := range s.waiters {
		if w.ex == ex {
			s.waiters = append(s.waiters[:i], s.waiters[i+1:]...)
			s.stats.GetMisses++
			ex.answer(toyov1.Failure())
			return
		}
	}
}

func (s *Service) expireWaiters(now time.Time) {
	kept := s.waiters[:0]
	for _, w := range s.waiters {
		if now.Before(w.deadline) {
			kept = append(kept, w)
			continue
		}
		s.stats.GetMisses++
		s.reply(w.ex, toyov1.Failure())
	}
	clear(s.waiters[len(kept):])
	s.waiters = kept
}

func (s *Service) failWaiters() {
	for _, w := range s.waiters {
		s.stats.GetMisses++
		w.ex.answer(toyov1.Failure())
	}
	s.waiters = nil
}

func (s *Service) armTimer(t *time.Timer) {
	t.Stop()
	if len(s.waiters) == 0 {
		return
	}
	next := s.waiters[0].deadline
	for _, w := range s.waiters[1:] {
		if w.deadline.Before(next) {
			next = w.deadline
		}
	}
	t.Reset(max(time.Until(next), 0))
}

func (s *Service) inspect(ctx context.Context, fn func()) error {
	in := inspection{fn: fn, done: make(chan struct{})}
	select {
	case s.inspections <- in:
	case <-s.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	<-in.done
	return nil
}

// Stats returns counters and sizes as seen by the control loop.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := s.inspect(ctx, func() {
		st = s.stats
		st.QueueDepth = s.rt.Queue().Len()
		st.Completed = s.rt.Completed().Len()
		st.InFlight = s.rt.InFlight().Len()
		st.Waiters = len(s.waiters)
	})
	return st, err
}

// ListQueue returns queued jobs head first.
func (s *Service) ListQueue(ctx context.Context, opts ListOptions) ([]toyov1.Job, error) {
	f, err := newCELFilter(opts.Filter)
	if err != nil {
		return nil, err
	}
	var jobs []toyov1.Job
	if err := s.inspect(ctx, func() { jobs = s.rt.Queue().Snapshot() }); err != nil {
		return nil, err
	}
	return filterJobs(f, jobs, opts.Limit), nil
}

// ListCompleted returns the completion log in completion order.
func (s *Service) ListCompleted(ctx context.Context, opts ListOptions) ([]toyov1.Job, error) {
	f, err := newCELFilter(opts.Filter)
	if err != nil {
		return nil, err
	}
	var jobs []toyov1.Job
	if err := s.inspect(ctx, func() { jobs = s.rt.Completed().Entries() }); err != nil {
		return nil, err
	}
	return filterJobs(f, jobs, opts.Limit), nil
}

// ListInFlight returns outstanding deliveries oldest first.
func (s *Service) ListInFlight(ctx context.Context, opts ListOptions) ([]workqueue.Delivery, error) {
	f, err := newCELFilter(opts.Filter)
	if err != nil {
		return nil, err
	}
	var ds []workqueue.Delivery
	if err := s.inspect(ctx, func() { ds = s.rt.InFlight().List() }); err != nil {
		return nil, err
	}
	out := make([]workqueue.Delivery, 0, len(ds))
	for i := range ds {
		if opts.Limit > 0 && len(out) >= opts.Limit {
			break
		}
		if f.Eval(i, ds[i].Job, &ds[i]) {
			out = append(out, ds[i])
		}
	}
	return out, nil
}

func filterJobs(f celFilter, jobs []toyov1.Job, limit int) []toyov1.Job {
	if !f.enabled && (limit <= 0 || limit >= len(jobs)) {
		return jobs
	}
	out := make([]toyov1.Job, 0, len(jobs))
	for i, j := range jobs {
		if limit > 0 && len(out) >= limit {
			break
		}
		if f.Eval(i, j, nil) {
			out = append(out, j)
		}
	}
	return out
}
