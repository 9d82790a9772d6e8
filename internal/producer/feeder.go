package producer

import (
	"context"
	"errors"
	"fmt"
	"iter"

	toyov1 "github.com/cocuh/toyosatomimi/api/toyo/v1"
	"github.com/cocuh/toyosatomimi/internal/transport"
	logpkg "github.com/cocuh/toyosatomimi/pkg/log"
)

// ErrRejected is returned when the broker answers a put with failure.
var ErrRejected = errors.New("producer: put rejected")

// PrepareFunc builds whatever a job refers to before it is sent. The job it
// returns is the one that gets queued.
type PrepareFunc func(ctx context.Context, job toyov1.Job) (toyov1.Job, error)

// Option configures a Feeder.
type Option func(*Feeder)

// WithPrepare runs fn on every job, synchronously, before its put.
func WithPrepare(fn PrepareFunc) Option {
	return func(f *Feeder) { f.prepare = fn }
}

// WithLogger sets the feeder logger.
func WithLogger(l logpkg.Logger) Option {
	return func(f *Feeder) { f.logger = l }
}

// Feeder pushes jobs to the broker one at a time.
type Feeder struct {
	tr      transport.Transport
	prepare PrepareFunc
	logger  logpkg.Logger
}

// New creates a feeder over tr.
func New(tr transport.Transport, opts ...Option) *Feeder {
	f := &Feeder{tr: tr}
	for _, opt := range opts {
		opt(f)
	}
	if f.logger == nil {
		f.logger = logpkg.NewLogger(logpkg.WithLevel(logpkg.InfoLevel))
	}
	f.logger = f.logger.With(logpkg.Component("feeder"))
	return f
}

// Feed sends every job of seq and returns how many were acknowledged. It
// stops at the first source, prepare or transport error, or at the first
// rejected put; the error names the index of the job that failed.
func (f *Feeder) Feed(ctx context.Context, seq iter.Seq2[toyov1.Job, error]) (int, error) {
	sent := 0
	for job, err := range seq {
		index := sent
		if err != nil {
			return sent, fmt.Errorf("producer: job %d: %w", index, err)
		}
		if err := ctx.Err(); err != nil {
			return sent, err
		}
		if f.prepare != nil {
			job, err = f.prepare(ctx, job)
			if err != nil {
				return sent, fmt.Errorf("producer: job %d: prepare: %w", index, err)
			}
		}
		if job == nil {
			return sent, fmt.Errorf("producer: job %d: %w: null job", index, ErrRejected)
		}
		reply, err := f.tr.Exchange(ctx, &toyov1.Request{Command: toyov1.CommandPut, Data: job})
		if err != nil {
			return sent, fmt.Errorf("producer: job %d: %w", index, err)
		}
		if !reply.OK() {
			return sent, fmt.Errorf("producer: job %d: %w", index, ErrRejected)
		}
		f.logger.Info("job sent", logpkg.Int("index", index), logpkg.Any("job", job))
		sent++
	}
	f.logger.Info("feed finished", logpkg.Int("sent", sent))
	return sent, nil
}
