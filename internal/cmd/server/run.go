package serverrun

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	cfgpkg "github.com/cocuh/toyosatomimi/internal/config"
	"github.com/cocuh/toyosatomimi/internal/runtime"
	grpcserver "github.com/cocuh/toyosatomimi/internal/server/grpc"
	httpserver "github.com/cocuh/toyosatomimi/internal/server/http"
	"github.com/cocuh/toyosatomimi/internal/services/broker"
	"github.com/cocuh/toyosatomimi/internal/transport"
	logpkg "github.com/cocuh/toyosatomimi/pkg/log"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"
)

const meterName = "github.com/cocuh/toyosatomimi"

type Options struct {
	Config cfgpkg.Config
	// Logger overrides the logger built from Config.Log.
	Logger logpkg.Logger
}

// Run opens the broker state, binds the endpoint and serves until ctx is
// cancelled, SIGINT/SIGTERM arrives, or the completion log cannot be written.
// The queue snapshot is on disk before Run returns; a persistence failure is
// returned as an error wrapping broker.ErrPersistence.
func Run(ctx context.Context, opts Options) error {
	// Layer a local signal context over the provided one.
	sctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := opts.Config
	if err := cfg.Validate(); err != nil {
		return err
	}
	procLogger := opts.Logger
	if procLogger == nil {
		l, err := logpkg.ApplyConfig(&cfg.Log)
		if err != nil {
			// Fallback to a sane default
			lvl := logpkg.InfoLevel
			if parsed, e := logpkg.ParseLevel(cfg.Log.Level); e == nil {
				lvl = parsed
			}
			l = logpkg.NewLogger(logpkg.WithLevel(lvl), logpkg.WithFormatter(&logpkg.TextFormatter{}))
		}
		procLogger = l
		logpkg.RedirectStdLog(procLogger)
	}

	ep, err := transport.ParseEndpoint(cfg.Broker.Addr)
	if err != nil {
		return err
	}

	rt, err := runtime.Open(runtime.Options{
		QueuePath: cfg.Broker.QueueFile(),
		DonePath:  cfg.Broker.DoneFile(),
		Metrics:   broker.NewStorageMetrics(otel.Meter(meterName)),
		Config:    cfg,
		Logger:    procLogger,
	})
	if err != nil {
		return fmt.Errorf("open broker state: %w", err)
	}
	defer rt.Close()

	procLogger.Info("Starting toyo broker",
		logpkg.Str("addr", ep.String()),
		logpkg.Str("http", cfg.Broker.HTTPAddr),
		logpkg.Str("queue", rt.Store().QueuePath()),
		logpkg.Str("done", rt.Store().DonePath()),
		logpkg.Int("queued", rt.Queue().Len()),
		logpkg.Int("completed", rt.Completed().Len()),
		logpkg.Str("level", cfg.Log.Level),
		logpkg.Str("format", cfg.Log.Format),
	)

	svc := broker.NewWithLogger(rt, procLogger.With(logpkg.Component("broker")),
		broker.WithMaxWait(time.Duration(cfg.Broker.MaxWaitMs)*time.Millisecond),
	)
	gsrv := grpcserver.New(svc, procLogger)

	lis, err := ep.Listen()
	if err != nil {
		return fmt.Errorf("bind %s: %w", ep, err)
	}
	procLogger.Info("broker listening", logpkg.Str("addr", ep.String()))

	g, gctx := errgroup.WithContext(sctx)
	g.Go(func() error { return svc.Run(gctx) })
	g.Go(func() error { return gsrv.Serve(gctx, lis) })
	if cfg.Broker.HTTPAddr != "" {
		hsrv := httpserver.New(svc, procLogger)
		g.Go(func() error { return hsrv.ListenAndServe(gctx, cfg.Broker.HTTPAddr) })
	}

	err = g.Wait()
	if errors.Is(err, broker.ErrPersistence) {
		procLogger.Error("broker aborted", logpkg.Err(err))
		return err
	}
	if err != nil {
		procLogger.Error("broker stopped with error", logpkg.Err(err))
		return err
	}
	procLogger.Info("broker stopped")
	return nil
}
