package client

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cocuh/toyosatomimi/internal/backoff"
	"github.com/cocuh/toyosatomimi/internal/consumer"
	logpkg "github.com/cocuh/toyosatomimi/pkg/log"
	"github.com/spf13/cobra"
)

// NewWorkerCommand constructs the `worker` command group.
func NewWorkerCommand() *cobra.Command {
	workerCmd := &cobra.Command{Use: "worker", Short: "Worker commands"}
	workerCmd.AddCommand(newWorkerRunCommand())
	return workerCmd
}

func newWorkerRunCommand() *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run [flags] -- COMMAND [ARGS...]",
		Short: "Pull jobs and run COMMAND for each until the queue goes away",
		Long: `Pull jobs one at a time and run COMMAND for each.

The job is written to the process stdin as JSON and exported as TOYO_JOB,
with every scalar field also exported as TOYO_JOB_<FIELD>. Arguments are Go
templates over the job, e.g. --lr={{.lr}}.

Exit 0 marks the job done. Ctrl-C interrupts the running job, returns it to
the queue and exits 0. Any other failure returns the job to the queue and
exits non-zero.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			overrideString(cmd, "name", &cfg.Worker.Name)
			overrideString(cmd, "backoff", &cfg.Worker.Backoff)
			overrideInt64(cmd, "long-poll-ms", &cfg.Worker.LongPollMs)
			overrideInt64(cmd, "kill-grace-ms", &cfg.Worker.KillGraceMs)
			overrideInt64(cmd, "requeue-timeout-ms", &cfg.Worker.RequeueTimeoutMs)
			if err := cfg.Validate(); err != nil {
				return err
			}

			strategy, err := backoff.New(cfg.Worker.Backoff,
				time.Duration(cfg.Worker.BackoffInitialMs)*time.Millisecond,
				time.Duration(cfg.Worker.BackoffMaxMs)*time.Millisecond)
			if err != nil {
				return err
			}
			dir, _ := cmd.Flags().GetString("dir")
			exec, err := consumer.NewExecExecutor(args,
				consumer.WithKillGrace(time.Duration(cfg.Worker.KillGraceMs)*time.Millisecond),
				consumer.WithDir(dir),
				consumer.WithOutput(cmd.OutOrStdout(), cmd.ErrOrStderr()),
			)
			if err != nil {
				return err
			}

			logger := newLogger(cfg)
			cli, err := dialBroker(cfg, logger)
			if err != nil {
				return err
			}
			defer func() { _ = cli.Close() }()

			w := consumer.New(cli, exec,
				consumer.WithName(cfg.Worker.Name),
				consumer.WithBackoff(strategy),
				consumer.WithLongPoll(time.Duration(cfg.Worker.LongPollMs)*time.Millisecond),
				consumer.WithRequeueTimeout(time.Duration(cfg.Worker.RequeueTimeoutMs)*time.Millisecond),
				consumer.WithLogger(logger),
			)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			err = w.Run(ctx)
			if errors.Is(err, consumer.ErrSourceGone) {
				logger.Warn("queue unreachable, worker exiting", logpkg.Str("worker", w.Name()), logpkg.Err(err))
				return nil
			}
			if err != nil {
				return fmt.Errorf("worker %s: %w", w.Name(), err)
			}
			return nil
		},
	}
	addConnFlags(runCmd)
	runCmd.Flags().String("name", "", "Worker name used in logs (default random UUID)")
	runCmd.Flags().String("backoff", "", "Empty-queue backoff: none|constant|exponential|exponential-jitter")
	runCmd.Flags().Int64("long-poll-ms", 0, "Ask the broker to hold an empty get this long")
	runCmd.Flags().Int64("kill-grace-ms", 0, "Time a cancelled job gets after SIGINT before it is killed")
	runCmd.Flags().Int64("requeue-timeout-ms", 0, "Timeout for returning an unfinished job to the queue")
	runCmd.Flags().String("dir", "", "Working directory for COMMAND")
	return runCmd
}
