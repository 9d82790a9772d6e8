// Package broker serves put, get and done against the queue and completion
// log held by a runtime.Runtime.
//
// # Control loop
//
// Run starts the one goroutine that owns the broker's state. Exchange (called
// from any number of transport goroutines) hands a request to that loop and
// waits for its reply. The loop finishes each request, including the
// completion-log write a done triggers, before it reads the next one, so the
// state needs no locks.
//
// # Commands
//
//   - put: append to the tail. A parked get, if any, receives the job instead.
//   - get: pop the head. On an empty queue reply failure immediately, or park
//     for up to wait_ms when the request asks for it.
//   - done: append to the completion log and rewrite the file in full.
//   - anything else: reply failure and change nothing.
//
// # Shutdown
//
// When the context passed to Run is cancelled, parked gets are answered with
// failure and the remaining queue is written to the snapshot file. A failed
// completion-log write also stops the loop, with ErrPersistence, after the
// request that hit it has been answered with failure.
//
// # Views
//
// Stats, ListQueue, ListCompleted and ListInFlight read copies of the state
// through the same loop and may narrow them with a CEL expression over the
// job (variable "job").
package broker
