// Package serverrun exposes a shared Run entrypoint used by the CLI to start
// the toyo broker with its gRPC endpoint and admin HTTP server, handling
// lifecycle and shutdown.
//
// Example:
//
//	cfg := config.Default()
//	cfg.Broker.DataDir = "./data"
//	ctx, cancel := context.WithCancel(context.Background())
//	defer cancel()
//	_ = serverrun.Run(ctx, serverrun.Options{Config: cfg})
package serverrun
