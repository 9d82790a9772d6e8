package toyov1

import (
	"errors"
	"fmt"
)

// Commands understood by the broker.
const (
	CommandPut  = "put"
	CommandGet  = "get"
	CommandDone = "done"
)

// Reply statuses.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// ErrMalformedReply marks a reply that could not be decoded or carries an
// unknown status. Consumers treat it as the broker being gone.
var ErrMalformedReply = errors.New("toyov1: malformed reply")

// Request is the client to broker envelope.
type Request struct {
	Command string `json:"command" msgpack:"command"`
	Data    Job    `json:"data" msgpack:"data"`
	// WaitMs asks an empty-queue get to park for up to this long.
	WaitMs int64 `json:"wait_ms,omitempty" msgpack:"wait_ms,omitempty"`
	// Delivery echoes the identifier handed out with a get.
	Delivery string `json:"delivery,omitempty" msgpack:"delivery,omitempty"`
}

// Reply is the broker to client envelope.
type Reply struct {
	Status   string `json:"status" msgpack:"status"`
	Data     Job    `json:"data" msgpack:"data"`
	Delivery string `json:"delivery,omitempty" msgpack:"delivery,omitempty"`
}

// Success builds a success reply carrying data.
func Success(data Job) *Reply { return &Reply{Status: StatusSuccess, Data: data} }

// Failure builds the failure/null reply.
func Failure() *Reply { return &Reply{Status: StatusFailure} }

// OK reports whether the reply status is success.
func (r *Reply) OK() bool { return r != nil && r.Status == StatusSuccess }

// Validate checks that r is a well-formed envelope.
func (r *Reply) Validate() error {
	if r == nil {
		return fmt.Errorf("%w: empty reply", ErrMalformedReply)
	}
	switch r.Status {
	case StatusSuccess, StatusFailure:
		return nil
	default:
		return fmt.Errorf("%w: unknown status %q", ErrMalformedReply, r.Status)
	}
}

// KnownCommand reports whether cmd is one of put, get or done.
func KnownCommand(cmd string) bool {
	switch cmd {
	case CommandPut, CommandGet, CommandDone:
		return true
	default:
		return false
	}
}
