package jsonfile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	toyov1 "github.com/cocuh/toyosatomimi/api/toyo/v1"
)

// ErrMalformed reports a state file that exists but is not a JSON array of
// job records.
var ErrMalformed = errors.New("jsonfile: malformed state file")

// ErrClosed is returned by operations on a closed Store.
var ErrClosed = errors.New("jsonfile: store closed")

// Options configures the store.
type Options struct {
	// QueuePath is the queue snapshot file.
	QueuePath string
	// DonePath is the completion-log file.
	DonePath string
	// Metrics observes read and write latencies and sizes. Optional.
	Metrics MetricsHook
}

// MetricsHook is a minimal hook surface for storage observations.
type MetricsHook interface {
	ObserveWrite(elapsed time.Duration, bytes int)
	ObserveRead(elapsed time.Duration, bytes int)
}

// NoopMetrics is used when no metrics hook is provided.
type NoopMetrics struct{}

func (NoopMetrics) ObserveWrite(time.Duration, int) {}
func (NoopMetrics) ObserveRead(time.Duration, int)  {}

// Store reads and atomically rewrites the queue snapshot and completion log.
type Store struct {
	queuePath string
	donePath  string
	metrics   MetricsHook

	mu     sync.Mutex
	closed bool
}

// Open validates opts and makes sure the parent directories exist.
func Open(opts Options) (*Store, error) {
	if opts.QueuePath == "" || opts.DonePath == "" {
		return nil, errors.New("jsonfile: Options.QueuePath and Options.DonePath are required")
	}
	if filepath.Clean(opts.QueuePath) == filepath.Clean(opts.DonePath) {
		return nil, errors.New("jsonfile: queue and completion log must be different files")
	}
	for _, p := range []string{opts.QueuePath, opts.DonePath} {
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return nil, fmt.Errorf("jsonfile: create dir for %s: %w", p, err)
		}
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = NoopMetrics{}
	}
	return &Store{queuePath: opts.QueuePath, donePath: opts.DonePath, metrics: metrics}, nil
}

// QueuePath returns the snapshot file path.
func (s *Store) QueuePath() string { return s.queuePath }

// DonePath returns the completion-log file path.
func (s *Store) DonePath() string { return s.donePath }

// LoadQueue reads the queue snapshot. A missing file yields an empty queue.
func (s *Store) LoadQueue() ([]toyov1.Job, error) { return s.load(s.queuePath) }

// SaveQueue replaces the queue snapshot with jobs.
func (s *Store) SaveQueue(jobs []toyov1.Job) error { return s.save(s.queuePath, jobs) }

// LoadCompleted reads the completion log. A missing file yields an empty log.
func (s *Store) LoadCompleted() ([]toyov1.Job, error) { return s.load(s.donePath) }

// SaveCompleted replaces the completion log with jobs.
func (s *Store) SaveCompleted(jobs []toyov1.Job) error { return s.save(s.donePath, jobs) }

// Check verifies that both files are either absent or readable.
func (s *Store) Check() error {
	if err := s.ensureOpen(); err != nil {
		return err
	}
	for _, p := range []string{s.queuePath, s.donePath} {
		if _, err := os.Stat(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	return nil
}

// Close marks the store closed. Files are not held open between calls.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *Store) ensureOpen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

func (s *Store) load(path string) ([]toyov1.Job, error) {
	if err := s.ensureOpen(); err != nil {
		return nil, err
	}
	start := time.Now()
	jobs, n, err := ReadArray(path)
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveRead(time.Since(start), n)
	return jobs, nil
}

func (s *Store) save(path string, jobs []toyov1.Job) error {
	if err := s.ensureOpen(); err != nil {
		return err
	}
	start := time.Now()
	n, err := WriteArray(path, jobs)
	if err != nil {
		return err
	}
	s.metrics.ObserveWrite(time.Since(start), n)
	return nil
}

// ReadArray parses path as a JSON array of job records and returns the jobs
// and the number of bytes read. A missing file returns (nil, 0, nil).
func ReadArray(path string) ([]toyov1.Job, int, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("jsonfile: read %s: %w", path, err)
	}
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, len(b), fmt.Errorf("%w: %s is not a JSON array", ErrMalformed, path)
	}
	var jobs []toyov1.Job
	if err := json.Unmarshal(trimmed, &jobs); err != nil {
		return nil, len(b), fmt.Errorf("%w: %s: %v", ErrMalformed, path, err)
	}
	return jobs, len(b), nil
}

// WriteArray atomically replaces path with the JSON array of jobs and returns
// the number of bytes written. A nil slice is written as [].
func WriteArray(path string, jobs []toyov1.Job) (int, error) {
	if jobs == nil {
		jobs = []toyov1.Job{}
	}
	b, err := json.Marshal(jobs)
	if err != nil {
		return 0, fmt.Errorf("jsonfile: encode %s: %w", path, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return 0, fmt.Errorf("jsonfile: create temp for %s: %w", path, err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpName)
		}
	}()
	if _, err = tmp.Write(b); err != nil {
		_ = tmp.Close()
		return 0, fmt.Errorf("jsonfile: write %s: %w", path, err)
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return 0, fmt.Errorf("jsonfile: sync %s: %w", path, err)
	}
	if err = tmp.Close(); err != nil {
		return 0, fmt.Errorf("jsonfile: close %s: %w", path, err)
	}
	if err = os.Rename(tmpName, path); err != nil {
		return 0, fmt.Errorf("jsonfile: replace %s: %w", path, err)
	}
	return len(b), nil
}
