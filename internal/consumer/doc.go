// Package consumer runs workers that pull jobs from the broker one at a time.
//
// A Worker moves between four states:
//
//	Idle -> Requesting -> Executing -> Idle
//	                   -> Idle        (queue empty, retry after a backoff delay)
//	                   -> Terminated  (malformed reply or broker gone)
//
// Each job goes to an Executor, which returns an Outcome. Succeeded jobs are
// reported with done. Cancelled and Failed jobs are put back at the tail of
// the queue; a cancelled worker then stops cleanly, a failed one stops with
// an error wrapping ErrExecution.
package consumer
