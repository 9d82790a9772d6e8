package client

import (
	"github.com/spf13/cobra"
)

// NewRoot constructs a root Cobra command holding every client command
// group. cmd/toyo adds the broker commands next to these.
func NewRoot() *cobra.Command {
	root := &cobra.Command{
		Use:           "toyo",
		Short:         "toyo client commands",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("config", "", "Config file (JSON or YAML)")
	root.PersistentFlags().String("log-level", "", "Log level: debug|info|warn|error")
	root.PersistentFlags().String("log-format", "", "Log format: text|json")
	AddCommands(root)
	return root
}

// AddCommands registers the client command groups on root.
func AddCommands(root *cobra.Command) {
	root.AddCommand(
		NewFeedCommand(),
		NewWorkerCommand(),
		NewJobCommand(),
		NewQueueCommand(),
	)
}
