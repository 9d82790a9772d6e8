package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	clientcmd "github.com/cocuh/toyosatomimi/internal/cmd/client"
	serverrun "github.com/cocuh/toyosatomimi/internal/cmd/server"
	cfgpkg "github.com/cocuh/toyosatomimi/internal/config"
	logpkg "github.com/cocuh/toyosatomimi/pkg/log"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := clientcmd.NewRoot()
	rootCmd.Short = "toyo job queue for experiment sweeps"
	rootCmd.Long = "toyo is a single-binary FIFO job queue. One broker holds the queue; feeders enqueue jobs and workers run them."

	// broker start
	brokerCmd := &cobra.Command{Use: "broker", Short: "Broker commands"}
	brokerStartCmd := &cobra.Command{
		Use:     "start",
		Short:   "Start the broker (gRPC endpoint and admin HTTP)",
		Aliases: []string{"run"},
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("config")
			cfg, err := cfgpkg.Load(path)
			if err != nil {
				return err
			}
			cfgpkg.FromEnv(&cfg)

			if system, _ := cmd.Flags().GetBool("system"); system {
				cfg.Broker.DataDir = cfgpkg.DefaultDataDir()
			}
			for flag, dst := range map[string]*string{
				"addr":       &cfg.Broker.Addr,
				"data-dir":   &cfg.Broker.DataDir,
				"queue":      &cfg.Broker.QueuePath,
				"done":       &cfg.Broker.DonePath,
				"http":       &cfg.Broker.HTTPAddr,
				"log-level":  &cfg.Log.Level,
				"log-format": &cfg.Log.Format,
			} {
				if f := cmd.Flags().Lookup(flag); f != nil && f.Changed {
					*dst = f.Value.String()
				}
			}
			if cmd.Flags().Changed("max-wait-ms") {
				cfg.Broker.MaxWaitMs, _ = cmd.Flags().GetInt64("max-wait-ms")
			}
			if err := cfgpkg.EnsureDir(cfg.Broker.DataDir); err != nil {
				return fmt.Errorf("create data dir: %w", err)
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			if err := serverrun.Run(ctx, serverrun.Options{Config: cfg}); err != nil {
				return fmt.Errorf("broker error: %w", err)
			}
			return nil
		},
	}
	brokerStartCmd.Flags().String("addr", "", "Endpoint to bind, tcp://host:port or unix:///path (default tcp://127.0.0.1:5151)")
	brokerStartCmd.Flags().String("data-dir", "", "Directory for relative --queue/--done paths (default working directory)")
	brokerStartCmd.Flags().Bool("system", false, "Keep state in the OS application data directory")
	brokerStartCmd.Flags().String("queue", "", "Queue snapshot file (default queue.json)")
	brokerStartCmd.Flags().String("done", "", "Completion log file (default done.json)")
	brokerStartCmd.Flags().String("http", "", "Admin HTTP listen address; empty string disables it (default 127.0.0.1:5152)")
	brokerStartCmd.Flags().Int64("max-wait-ms", 0, "Upper bound on the wait_ms a get may request (default 30000)")
	brokerCmd.AddCommand(brokerStartCmd)
	rootCmd.AddCommand(brokerCmd)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		// Report through the same facade the commands log with.
		logpkg.NewLogger(logpkg.WithFormatter(&logpkg.TextFormatter{})).Error(err.Error())
		os.Exit(1)
	}
}
