// Package workqueue holds the broker's in-memory state: the FIFO job queue,
// the append-only completion log and the table of in-flight deliveries.
//
// None of the types here lock. They are owned by exactly one goroutine, the
// broker's control loop, and every other goroutine reaches them by sending a
// request to that loop.
//
// # Lifecycle of a job
//
//  1. put: the job is appended at the tail of the Queue.
//  2. get: the head is popped and recorded in InFlight under a fresh delivery id.
//  3. done: the job is appended to the CompletionLog, which is persisted in
//     full before the call returns. The delivery id, if echoed, is released.
//  4. requeue: a put echoing the delivery id releases it and appends the job
//     at the tail again, behind anything enqueued in the meantime.
//
// InFlight is advisory. A done or put without a known delivery id is still
// accepted, so a forged or duplicate completion is recorded as untracked
// rather than rejected.
package workqueue
