package consumer

import (
	"context"

	toyov1 "github.com/cocuh/toyosatomimi/api/toyo/v1"
)

// Kind classifies an Outcome.
type Kind int

const (
	// Succeeded means the job ran to completion.
	Succeeded Kind = iota + 1
	// Cancelled means the job was interrupted before completing.
	Cancelled
	// Failed means the job raised an error.
	Failed
)

func (k Kind) String() string {
	switch k {
	case Succeeded:
		return "succeeded"
	case Cancelled:
		return "cancelled"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome is what an Executor reports for one job.
type Outcome struct {
	kind  Kind
	value any
	err   error
}

// Success reports a completed job with an optional result value.
func Success(value any) Outcome { return Outcome{kind: Succeeded, value: value} }

// Cancel reports an interrupted job.
func Cancel() Outcome { return Outcome{kind: Cancelled} }

// Failure reports a job that failed with err.
func Failure(err error) Outcome { return Outcome{kind: Failed, err: err} }

// Kind returns the outcome class. The zero Outcome is Failed.
func (o Outcome) Kind() Kind {
	if o.kind == 0 {
		return Failed
	}
	return o.kind
}

// Value is the result of a Succeeded outcome.
func (o Outcome) Value() any { return o.value }

// Err is the cause of a Failed outcome, ErrExecutorFailed when the executor
// gave none.
func (o Outcome) Err() error {
	if o.err == nil && o.Kind() == Failed {
		return ErrExecutorFailed
	}
	return o.err
}

// Executor runs one job. It should watch ctx and return Cancel() once it has
// stopped because ctx was cancelled.
type Executor interface {
	Execute(ctx context.Context, job toyov1.Job) Outcome
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(ctx context.Context, job toyov1.Job) Outcome

// Execute calls f.
func (f ExecutorFunc) Execute(ctx context.Context, job toyov1.Job) Outcome { return f(ctx, job) }
