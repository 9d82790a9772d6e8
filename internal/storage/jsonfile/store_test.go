package jsonfile

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	toyov1 "github.com/cocuh/toyosatomimi/api/toyo/v1"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	st, err := Open(Options{QueuePath: filepath.Join(dir, "queue.json"), DonePath: filepath.Join(dir, "done.json")})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestMissingFilesLoadEmpty(t *testing.T) {
	st := openTemp(t)
	q, err := st.LoadQueue()
	if err != nil || len(q) != 0 {
		t.Fatalf("queue: %v %v", q, err)
	}
	d, err := st.LoadCompleted()
	if err != nil || len(d) != 0 {
		t.Fatalf("done: %v %v", d, err)
	}
}

func TestCompletedRoundTripPreservesOrder(t *testing.T) {
	st := openTemp(t)
	var log []toyov1.Job
	for _, name := range []string{"A", "C", "B"} {
		log = append(log, toyov1.Job{"name": name, "n": int64(len(log))})
		if err := st.SaveCompleted(log); err != nil {
			t.Fatalf("save: %v", err)
		}
	}
	got, err := st.LoadCompleted()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d", len(got))
	}
	for i := range log {
		if !got[i].Equal(log[i]) {
			t.Fatalf("entry %d: got %s want %s", i, got[i], log[i])
		}
	}
}

func TestSaveQueueOverwrites(t *testing.T) {
	st := openTemp(t)
	if err := st.SaveQueue([]toyov1.Job{{"a": int64(1)}, {"b": int64(2)}}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := st.SaveQueue(nil); err != nil {
		t.Fatalf("save empty: %v", err)
	}
	b, err := os.ReadFile(st.QueuePath())
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(b) != "[]" {
		t.Fatalf("snapshot = %s", b)
	}
	entries, _ := os.ReadDir(filepath.Dir(st.QueuePath()))
	for _, e := range entries {
		if e.Name() != "queue.json" {
			t.Fatalf("leftover file %s", e.Name())
		}
	}
}

func TestMalformedSnapshotIsFatal(t *testing.T) {
	for name, content := range map[string]string{
		"garbage": "{not json",
		"object":  `{"a":1}`,
		"empty":   "",
		"scalars": "[1,2]",
	} {
		t.Run(name, func(t *testing.T) {
			st := openTemp(t)
			if err := os.WriteFile(st.QueuePath(), []byte(content), 0o644); err != nil {
				t.Fatalf("write: %v", err)
			}
			if _, err := st.LoadQueue(); !errors.Is(err, ErrMalformed) {
				t.Fatalf("expected ErrMalformed, got %v", err)
			}
		})
	}
}

func TestArrayRoundTripIsByteExact(t *testing.T) {
	dir := t.TempDir()
	in := `[{"init":1.0,"seed":123456789012345678901,"x":1e400},{"init":0.05,"name":"a"}]`
	src := filepath.Join(dir, "in.json")
	if err := os.WriteFile(src, []byte(in), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	jobs, _, err := ReadArray(src)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	dst := filepath.Join(dir, "out.json")
	if _, err := WriteArray(dst, jobs); err != nil {
		t.Fatalf("write array: %v", err)
	}
	out, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(out) != in {
		t.Fatalf("snapshot rewritten:\n got %s\nwant %s", out, in)
	}
}

func TestOpenValidation(t *testing.T) {
	if _, err := Open(Options{}); err == nil {
		t.Fatalf("expected error for empty paths")
	}
	if _, err := Open(Options{QueuePath: "x.json", DonePath: "./x.json"}); err == nil {
		t.Fatalf("expected error for identical paths")
	}
}

func TestClosedStore(t *testing.T) {
	st := openTemp(t)
	_ = st.Close()
	if err := st.SaveQueue(nil); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if err := st.Check(); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed from Check, got %v", err)
	}
}

type countingMetrics struct{ reads, writes int }

func (c *countingMetrics) ObserveWrite(time.Duration, int) { c.writes++ }
func (c *countingMetrics) ObserveRead(time.Duration, int)  { c.reads++ }

func TestMetricsHook(t *testing.T) {
	dir := t.TempDir()
	m := &countingMetrics{}
	st, err := Open(Options{QueuePath: filepath.Join(dir, "q.json"), DonePath: filepath.Join(dir, "d.json"), Metrics: m})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	_ = st.SaveCompleted([]toyov1.Job{{"x": true}})
	_, _ = st.LoadCompleted()
	if m.writes != 1 || m.reads != 1 {
		t.Fatalf("metrics = %+v", m)
	}
}
