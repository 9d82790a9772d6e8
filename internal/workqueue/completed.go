package workqueue

import (
	"errors"
	"fmt"

	toyov1 "github.com/cocuh/toyosatomimi/api/toyo/v1"
)

// ErrPersist wraps a failure to write the completion log.
var ErrPersist = errors.New("workqueue: persist completion log")

// PersistFunc writes the full completion log.
type PersistFunc func(entries []toyov1.Job) error

// CompletionLog is the ordered, append-only record of reported completions.
type CompletionLog struct {
	entries []toyov1.Job
	persist PersistFunc
}

// NewCompletionLog creates a log starting with initial. persist is called
// with the whole log after every Append; nil disables persistence.
func NewCompletionLog(initial []toyov1.Job, persist PersistFunc) *CompletionLog {
	entries := make([]toyov1.Job, len(initial))
	copy(entries, initial)
	return &CompletionLog{entries: entries, persist: persist}
}

// Append records j and persists the log. If persisting fails the entry is
// removed again, so memory never runs ahead of the file.
func (l *CompletionLog) Append(j toyov1.Job) error {
	l.entries = append(l.entries, j)
	if l.persist == nil {
		return nil
	}
	if err := l.persist(l.entries); err != nil {
		l.entries[len(l.entries)-1] = nil
		l.entries = l.entries[:len(l.entries)-1]
		return fmt.Errorf("%w: %v", ErrPersist, err)
	}
	return nil
}

// Len returns the number of completions.
func (l *CompletionLog) Len() int { return len(l.entries) }

// Entries returns a copy of the log in completion order.
func (l *CompletionLog) Entries() []toyov1.Job {
	out := make([]toyov1.Job, len(l.entries))
	copy(out, l.entries)
	return out
}
