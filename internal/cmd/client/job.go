package client

import (
	"encoding/json"
	"fmt"

	toyov1 "github.com/cocuh/toyosatomimi/api/toyo/v1"
	"github.com/spf13/cobra"
)

// NewJobCommand constructs the `job` command group: raw put/get/done
// exchanges that print the reply envelope.
func NewJobCommand() *cobra.Command {
	jobCmd := &cobra.Command{
		Use:   "job",
		Short: "Send a single put/get/done to the broker",
	}
	jobCmd.AddCommand(
		newJobExchangeCommand(toyov1.CommandPut, "Enqueue a job at the tail"),
		newJobExchangeCommand(toyov1.CommandGet, "Take the job at the head"),
		newJobExchangeCommand(toyov1.CommandDone, "Record a job as completed"),
	)
	return jobCmd
}

func newJobExchangeCommand(command, short string) *cobra.Command {
	c := &cobra.Command{
		Use:   command,
		Short: short,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			req := &toyov1.Request{Command: command}
			if data, _ := cmd.Flags().GetString("data"); data != "" {
				var job toyov1.Job
				if err := json.Unmarshal([]byte(data), &job); err != nil {
					return fmt.Errorf("invalid --data: %w", err)
				}
				req.Data = job
			}
			req.WaitMs, _ = cmd.Flags().GetInt64("wait-ms")
			req.Delivery, _ = cmd.Flags().GetString("delivery")
			if (command == toyov1.CommandPut || command == toyov1.CommandDone) && req.Data == nil {
				return fmt.Errorf("--data is required for %s", command)
			}

			cli, err := dialBroker(cfg, newLogger(cfg))
			if err != nil {
				return err
			}
			defer func() { _ = cli.Close() }()
			reply, err := cli.Exchange(cmd.Context(), req)
			if err != nil {
				return err
			}
			return printJSON(cmd, reply)
		},
	}
	addConnFlags(c)
	switch command {
	case toyov1.CommandGet:
		c.Flags().Int64("wait-ms", 0, "Park up to this long when the queue is empty (0 = answer immediately)")
	default:
		c.Flags().String("data", "", "Job as a JSON object")
		c.Flags().String("delivery", "", "Delivery id returned by the get that handed out this job")
	}
	return c
}
