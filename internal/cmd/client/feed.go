package client

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"os"
	"os/signal"
	"syscall"

	toyov1 "github.com/cocuh/toyosatomimi/api/toyo/v1"
	"github.com/cocuh/toyosatomimi/internal/producer"
	"github.com/spf13/cobra"
)

// NewFeedCommand constructs `feed`, which enqueues jobs from a JSON-lines
// file or a parameter grid.
func NewFeedCommand() *cobra.Command {
	feedCmd := &cobra.Command{
		Use:   "feed",
		Short: "Enqueue jobs from a JSON-lines file or a YAML grid",
		Long: `Enqueue jobs in order.

--file reads one JSON object per line ("-" for stdin).
--grid expands a YAML grid: the product of every axis, repeated for each try,
with the last axis varying fastest. Each job may first be passed through
--prepare, a shell command that receives the job as JSON on stdin and prints
fields to merge into it.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			file, _ := cmd.Flags().GetString("file")
			gridPath, _ := cmd.Flags().GetString("grid")
			prepare, _ := cmd.Flags().GetString("prepare")
			dryRun, _ := cmd.Flags().GetBool("dry-run")
			if (file == "") == (gridPath == "") {
				return errors.New("exactly one of --file or --grid is required")
			}

			seq, closeSrc, err := feedSource(cmd, file, gridPath)
			if err != nil {
				return err
			}
			defer closeSrc()

			if dryRun {
				n := 0
				for job, err := range seq {
					if err != nil {
						return fmt.Errorf("job %d: %w", n, err)
					}
					if err := printJSON(cmd, job); err != nil {
						return err
					}
					n++
				}
				return nil
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger := newLogger(cfg)
			cli, err := dialBroker(cfg, logger)
			if err != nil {
				return err
			}
			defer func() { _ = cli.Close() }()

			opts := []producer.Option{producer.WithLogger(logger)}
			if prepare != "" {
				opts = append(opts, producer.WithPrepare(producer.CommandPrepare("sh", "-c", prepare)))
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			n, err := producer.New(cli, opts...).Feed(ctx, seq)
			fmt.Fprintf(cmd.OutOrStdout(), "enqueued %d jobs\n", n)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	addConnFlags(feedCmd)
	feedCmd.Flags().String("file", "", "JSON-lines file of jobs (- for stdin)")
	feedCmd.Flags().String("grid", "", "YAML grid definition")
	feedCmd.Flags().String("prepare", "", "Shell command run per job before it is enqueued")
	feedCmd.Flags().Bool("dry-run", false, "Print the jobs instead of enqueueing them")
	return feedCmd
}

func feedSource(cmd *cobra.Command, file, gridPath string) (iter.Seq2[toyov1.Job, error], func(), error) {
	if gridPath != "" {
		g, err := producer.LoadGrid(gridPath)
		if err != nil {
			return nil, nil, err
		}
		return g.Jobs(), func() {}, nil
	}
	if file == "-" {
		return producer.FromJSONLines(cmd.InOrStdin()), func() {}, nil
	}
	f, err := os.Open(file)
	if err != nil {
		return nil, nil, err
	}
	return producer.FromJSONLines(f), func() { _ = f.Close() }, nil
}
