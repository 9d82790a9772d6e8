package client

import (
	"encoding/json"
	"fmt"
	"time"

	cfgpkg "github.com/cocuh/toyosatomimi/internal/config"
	"github.com/cocuh/toyosatomimi/internal/transport"
	logpkg "github.com/cocuh/toyosatomimi/pkg/log"
	"github.com/spf13/cobra"
)

// loadConfig resolves defaults, the --config file and TOYO_* variables, then
// applies the connection flags shared by every command.
func loadConfig(cmd *cobra.Command) (cfgpkg.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := cfgpkg.Load(path)
	if err != nil {
		return cfg, err
	}
	cfgpkg.FromEnv(&cfg)
	overrideString(cmd, "addr", &cfg.Client.Addr)
	overrideString(cmd, "codec", &cfg.Client.Codec)
	overrideString(cmd, "http", &cfg.Client.HTTPURL)
	overrideString(cmd, "log-level", &cfg.Log.Level)
	overrideString(cmd, "log-format", &cfg.Log.Format)
	return cfg, nil
}

// overrideString copies a flag into dst only when it was set on the command line.
func overrideString(cmd *cobra.Command, name string, dst *string) {
	if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
		*dst = f.Value.String()
	}
}

func overrideInt64(cmd *cobra.Command, name string, dst *int64) {
	if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
		if v, err := cmd.Flags().GetInt64(name); err == nil {
			*dst = v
		}
	}
}

// newLogger builds the command logger; it never writes to stdout unless the
// config asks for it, so command output stays machine readable.
func newLogger(cfg cfgpkg.Config) logpkg.Logger {
	l, err := logpkg.ApplyConfig(&cfg.Log)
	if err != nil {
		return logpkg.NewLogger(logpkg.WithLevel(logpkg.InfoLevel), logpkg.WithFormatter(&logpkg.TextFormatter{}))
	}
	return l
}

// dialBroker opens the gRPC client described by cfg.
func dialBroker(cfg cfgpkg.Config, logger logpkg.Logger) (*transport.Client, error) {
	c, err := transport.Dial(cfg.Client.Addr,
		transport.WithCodec(cfg.Client.Codec),
		transport.WithRequestTimeout(time.Duration(cfg.Client.RequestTimeoutMs)*time.Millisecond),
		transport.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", cfg.Client.Addr, err)
	}
	return c, nil
}

// addConnFlags registers --addr and --codec.
func addConnFlags(cmd *cobra.Command) {
	cmd.Flags().String("addr", "", "Broker endpoint, tcp://host:port or unix:///path (default tcp://127.0.0.1:5151)")
	cmd.Flags().String("codec", "", "Wire codec: json|msgpack|pbstruct (default json)")
}

func printJSON(cmd *cobra.Command, v any) error {
	return json.NewEncoder(cmd.OutOrStdout()).Encode(v)
}
