package broker

import (
	"context"
	"errors"
	"time"

	toyov1 "github.com/cocuh/toyosatomimi/api/toyo/v1"
)

var (
	// ErrPersistence stops the control loop when the completion log cannot be written.
	ErrPersistence = errors.New("broker: persistence failure")
	// ErrStopped is returned to callers once the control loop has exited.
	ErrStopped = errors.New("broker: stopped")
	// ErrInvalidFilter wraps a CEL expression that does not compile.
	ErrInvalidFilter = errors.New("broker: invalid filter")
	// ErrAlreadyRunning is returned by a second call to Run.
	ErrAlreadyRunning = errors.New("broker: already running")
)

// Stats is a point-in-time view of the broker.
type Stats struct {
	QueueDepth int `json:"queue_depth"`
	Completed  int `json:"completed"`
	InFlight   int `json:"in_flight"`
	Waiters    int `json:"waiters"`

	Puts      uint64 `json:"puts"`
	GetHits   uint64 `json:"get_hits"`
	GetMisses uint64 `json:"get_misses"`
	Dones     uint64 `json:"dones"`
	// Unknown counts requests with an unrecognized command.
	Unknown uint64 `json:"unknown"`
	// Rejected counts put or done requests without data.
	Rejected uint64 `json:"rejected"`
	// Untracked counts done (and requeue) reports whose delivery id was
	// missing or unknown.
	Untracked uint64 `json:"untracked"`
}

// ListOptions narrows a view.
type ListOptions struct {
	// Filter is a CEL expression evaluated per entry; empty keeps everything.
	Filter string
	// Limit caps the number of entries returned; zero or less means no cap.
	Limit int
}

// exchange is one request travelling into the control loop.
type exchange struct {
	ctx   context.Context
	req   *toyov1.Request
	reply chan *toyov1.Reply
}

func (e *exchange) answer(r *toyov1.Reply) {
	select {
	case e.reply <- r:
	default:
	}
}

// waiter is a get parked on an empty queue.
type waiter struct {
	ex       *exchange
	deadline time.Time
}

// inspection runs fn inside the control loop.
type inspection struct {
	fn   func()
	done chan struct{}
}
