package runtime

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	cfgpkg "github.com/cocuh/toyosatomimi/internal/config"
	"github.com/cocuh/toyosatomimi/internal/storage/jsonfile"
	"github.com/cocuh/toyosatomimi/internal/workqueue"
	"github.com/cocuh/toyosatomimi/pkg/id"
	logpkg "github.com/cocuh/toyosatomimi/pkg/log"
)

// Options for building the Runtime.
type Options struct {
	QueuePath string
	DonePath  string
	// Metrics observes snapshot and completion-log IO. Optional.
	Metrics jsonfile.MetricsHook
	// InFlightLimit bounds the in-flight table; zero uses the package default.
	InFlightLimit int
	Config        cfgpkg.Config
	// Logger reports a completion log set aside at startup. Optional.
	Logger logpkg.Logger
}

// Runtime wires storage, config, and state for a single broker.
type Runtime struct {
	store  *jsonfile.Store
	config cfgpkg.Config

	queue     *workqueue.Queue
	completed *workqueue.CompletionLog
	inflight  *workqueue.InFlight
}

// Open initializes the underlying storage and restores the queue snapshot
// and completion log. A corrupt queue snapshot is returned as an error
// wrapping jsonfile.ErrMalformed; the runtime never starts empty over it.
// A corrupt completion log is renamed to <done>.corrupt-<unix ms> and the
// log starts empty.
func Open(opts Options) (*Runtime, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logpkg.NewLogger()
	}
	store, err := jsonfile.Open(jsonfile.Options{QueuePath: opts.QueuePath, DonePath: opts.DonePath, Metrics: opts.Metrics})
	if err != nil {
		return nil, err
	}
	queued, err := store.LoadQueue()
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("load queue snapshot: %w", err)
	}
	done, err := store.LoadCompleted()
	if errors.Is(err, jsonfile.ErrMalformed) {
		done, err = nil, setAside(store.DonePath(), err, logger.WithComponent("runtime"))
	}
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("load completion log: %w", err)
	}
	rt := &Runtime{
		store:     store,
		config:    opts.Config,
		queue:     workqueue.NewQueue(queued),
		completed: workqueue.NewCompletionLog(done, store.SaveCompleted),
		inflight:  workqueue.NewInFlight(id.NewGenerator(), opts.InFlightLimit),
	}
	return rt, nil
}

func setAside(path string, cause error, logger logpkg.Logger) error {
	dst := path + ".corrupt-" + strconv.FormatInt(time.Now().UnixMilli(), 10)
	if err := os.Rename(path, dst); err != nil {
		return fmt.Errorf("set aside %s: %w", path, err)
	}
	logger.Error("completion log unreadable, starting empty",
		logpkg.Str("path", path),
		logpkg.Str("moved_to", dst),
		logpkg.Err(cause))
	return nil
}

// Close closes underlying resources. It does not write the snapshot; call
// SnapshotQueue first.
func (r *Runtime) Close() error {
	if r.store == nil {
		return nil
	}
	return r.store.Close()
}

// CheckHealth performs a simple health check.
func (r *Runtime) CheckHealth(ctx context.Context) error {
	if r.store == nil {
		return errors.New("store not open")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.store.Check()
}

// SnapshotQueue replaces the snapshot file with the current queue contents.
// Must be called from the goroutine that owns the queue.
func (r *Runtime) SnapshotQueue() error {
	return r.store.SaveQueue(r.queue.Snapshot())
}

// Queue returns the job queue.
func (r *Runtime) Queue() *workqueue.Queue { return r.queue }

// Completed returns the completion log.
func (r *Runtime) Completed() *workqueue.CompletionLog { return r.completed }

// InFlight returns the delivery table.
func (r *Runtime) InFlight() *workqueue.InFlight { return r.inflight }

// Store exposes the underlying store (internal use only).
func (r *Runtime) Store() *jsonfile.Store { return r.store }

// Config returns the runtime configuration.
func (r *Runtime) Config() cfgpkg.Config { return r.config }
