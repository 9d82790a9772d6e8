package workqueue

import toyov1 "github.com/cocuh/toyosatomimi/api/toyo/v1"

// compactThreshold is the number of consumed head slots tolerated before the
// backing slice is shifted down.
const compactThreshold = 64

// Queue is a FIFO of jobs.
type Queue struct {
	items []toyov1.Job
	head  int
}

// NewQueue creates a queue holding initial in order.
func NewQueue(initial []toyov1.Job) *Queue {
	items := make([]toyov1.Job, len(initial))
	copy(items, initial)
	return &Queue{items: items}
}

// Push appends j at the tail.
func (q *Queue) Push(j toyov1.Job) {
	q.items = append(q.items, j)
}

// Pop removes and returns the head. ok is false when the queue is empty.
func (q *Queue) Pop() (j toyov1.Job, ok bool) {
	if q.head >= len(q.items) {
		return nil, false
	}
	j = q.items[q.head]
	q.items[q.head] = nil
	q.head++
	if q.head == len(q.items) {
		q.items = q.items[:0]
		q.head = 0
	} else if q.head >= compactThreshold && q.head*2 >= len(q.items) {
		n := copy(q.items, q.items[q.head:])
		clear(q.items[n:])
		q.items = q.items[:n]
		q.head = 0
	}
	return j, true
}

// Len returns the number of queued jobs.
func (q *Queue) Len() int { return len(q.items) - q.head }

// Snapshot returns the queued jobs head first. The slice is a copy; the jobs
// are shared.
func (q *Queue) Snapshot() []toyov1.Job {
	out := make([]toyov1.Job, q.Len())
	copy(out, q.items[q.head:])
	return out
}
