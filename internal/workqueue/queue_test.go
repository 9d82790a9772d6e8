package workqueue

import (
	"errors"
	"fmt"
	"testing"
	"time"

	toyov1 "github.com/cocuh/toyosatomimi/api/toyo/v1"
	"github.com/cocuh/toyosatomimi/pkg/id"
)

func job(n int) toyov1.Job { return toyov1.Job{"n": int64(n)} }

func TestQueueFIFO(t *testing.T) {
	q := NewQueue(nil)
	for i := 0; i < 200; i++ {
		q.Push(job(i))
	}
	for i := 0; i < 200; i++ {
		got, ok := q.Pop()
		if !ok {
			t.Fatalf("pop %d: empty", i)
		}
		if !got.Equal(job(i)) {
			t.Fatalf("pop %d: got %s", i, got)
		}
	}
	if _, ok := q.Pop(); ok {
		t.Fatalf("expected empty queue")
	}
}

func TestQueueRequeueGoesToTail(t *testing.T) {
	q := NewQueue([]toyov1.Job{job(1), job(2), job(3)})
	a, _ := q.Pop()
	b, _ := q.Pop()
	if !a.Equal(job(1)) || !b.Equal(job(2)) {
		t.Fatalf("unexpected heads %s %s", a, b)
	}
	q.Push(b)
	want := []toyov1.Job{job(3), job(2)}
	snap := q.Snapshot()
	if len(snap) != len(want) {
		t.Fatalf("snapshot = %v", snap)
	}
	for i := range want {
		if !snap[i].Equal(want[i]) {
			t.Fatalf("snapshot[%d] = %s", i, snap[i])
		}
	}
}

func TestQueueInterleavedCompaction(t *testing.T) {
	q := NewQueue(nil)
	next, expect := 0, 0
	for round := 0; round < 50; round++ {
		for i := 0; i < 7; i++ {
			q.Push(job(next))
			next++
		}
		for i := 0; i < 5; i++ {
			got, ok := q.Pop()
			if !ok || !got.Equal(job(expect)) {
				t.Fatalf("round %d: got %s ok=%v want %d", round, got, ok, expect)
			}
			expect++
		}
	}
	if q.Len() != next-expect {
		t.Fatalf("len = %d want %d", q.Len(), next-expect)
	}
}

func TestNewQueueCopiesInitial(t *testing.T) {
	initial := []toyov1.Job{job(1)}
	q := NewQueue(initial)
	initial[0] = job(9)
	got, _ := q.Pop()
	if !got.Equal(job(1)) {
		t.Fatalf("queue aliased caller slice")
	}
}

func TestCompletionLogPersistsEveryAppend(t *testing.T) {
	var writes [][]toyov1.Job
	l := NewCompletionLog(nil, func(entries []toyov1.Job) error {
		cp := make([]toyov1.Job, len(entries))
		copy(cp, entries)
		writes = append(writes, cp)
		return nil
	})
	for i := 0; i < 3; i++ {
		if err := l.Append(job(i)); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	if len(writes) != 3 || len(writes[2]) != 3 {
		t.Fatalf("writes = %v", writes)
	}
}

func TestCompletionLogRollsBackOnPersistFailure(t *testing.T) {
	fail := false
	l := NewCompletionLog([]toyov1.Job{job(0)}, func([]toyov1.Job) error {
		if fail {
			return fmt.Errorf("disk full")
		}
		return nil
	})
	fail = true
	err := l.Append(job(1))
	if !errors.Is(err, ErrPersist) {
		t.Fatalf("expected ErrPersist, got %v", err)
	}
	if l.Len() != 1 {
		t.Fatalf("len after failed append = %d", l.Len())
	}
}

func TestInFlightTrackRelease(t *testing.T) {
	tbl := NewInFlight(id.NewGenerator(), 0)
	now := time.Now()
	d1 := tbl.Track(job(1), now)
	d2 := tbl.Track(job(2), now)
	if d1.ID == d2.ID {
		t.Fatalf("duplicate delivery ids")
	}
	list := tbl.List()
	if len(list) != 2 || list[0].ID != d1.ID {
		t.Fatalf("list order: %+v", list)
	}
	if _, ok := tbl.Release(d1.ID); !ok {
		t.Fatalf("release known id")
	}
	if _, ok := tbl.Release(d1.ID); ok {
		t.Fatalf("double release should miss")
	}
	if _, ok := tbl.Release(""); ok {
		t.Fatalf("empty id should miss")
	}
	if tbl.Len() != 1 {
		t.Fatalf("len = %d", tbl.Len())
	}
}

func TestInFlightEvictsOldest(t *testing.T) {
	tbl := NewInFlight(id.NewGenerator(), 2)
	now := time.Now()
	d1 := tbl.Track(job(1), now)
	tbl.Track(job(2), now)
	tbl.Track(job(3), now)
	if tbl.Len() != 2 {
		t.Fatalf("len = %d", tbl.Len())
	}
	if _, ok := tbl.Release(d1.ID); ok {
		t.Fatalf("oldest entry should have been evicted")
	}
}
