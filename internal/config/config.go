package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	toyov1 "github.com/cocuh/toyosatomimi/api/toyo/v1"
	"github.com/cocuh/toyosatomimi/internal/backoff"
	logpkg "github.com/cocuh/toyosatomimi/pkg/log"
	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration loaded from file/env.
type Config struct {
	Broker Broker        `json:"broker" yaml:"broker"`
	Client Client        `json:"client" yaml:"client"`
	Worker Worker        `json:"worker" yaml:"worker"`
	Log    logpkg.Config `json:"log" yaml:"log"`
}

// Broker configures `toyo broker start`.
type Broker struct {
	// Addr is the scheme://host:port endpoint the broker binds.
	Addr string `json:"addr" yaml:"addr"`
	// DataDir anchors relative QueuePath/DonePath. Empty means the working directory.
	DataDir   string `json:"dataDir" yaml:"dataDir"`
	QueuePath string `json:"queuePath" yaml:"queuePath"`
	DonePath  string `json:"donePath" yaml:"donePath"`
	// HTTPAddr is the admin listener. Empty disables it.
	HTTPAddr string `json:"httpAddr" yaml:"httpAddr"`
	// MaxWaitMs caps the wait_ms a client may request on get.
	MaxWaitMs int64 `json:"maxWaitMs" yaml:"maxWaitMs"`
}

// Client configures every command that talks to a broker.
type Client struct {
	Addr             string `json:"addr" yaml:"addr"`
	Codec            string `json:"codec" yaml:"codec"`
	RequestTimeoutMs int64  `json:"requestTimeoutMs" yaml:"requestTimeoutMs"`
	// HTTPURL is the admin base URL used by `toyo queue`.
	HTTPURL string `json:"httpURL" yaml:"httpURL"`
}

// Worker configures `toyo worker run`.
type Worker struct {
	Name             string `json:"name" yaml:"name"`
	Backoff          string `json:"backoff" yaml:"backoff"`
	BackoffInitialMs int64  `json:"backoffInitialMs" yaml:"backoffInitialMs"`
	BackoffMaxMs     int64  `json:"backoffMaxMs" yaml:"backoffMaxMs"`
	// LongPollMs is sent as wait_ms on every get. Zero keeps get non-blocking.
	LongPollMs       int64 `json:"longPollMs" yaml:"longPollMs"`
	RequeueTimeoutMs int64 `json:"requeueTimeoutMs" yaml:"requeueTimeoutMs"`
	// KillGraceMs is how long a cancelled job process gets after SIGINT.
	KillGraceMs int64 `json:"killGraceMs" yaml:"killGraceMs"`
}

// Default returns built-in defaults.
func Default() Config {
	return Config{
		Broker: Broker{
			Addr:      "tcp://127.0.0.1:5151",
			QueuePath: "queue.json",
			DonePath:  "done.json",
			HTTPAddr:  "127.0.0.1:5152",
			MaxWaitMs: 30000,
		},
		Client: Client{
			Addr:             "tcp://127.0.0.1:5151",
			Codec:            toyov1.CodecNameJSON,
			RequestTimeoutMs: 60000,
			HTTPURL:          "http://127.0.0.1:5152",
		},
		Worker: Worker{
			Backoff:          backoff.NameExponentialJitter,
			BackoffInitialMs: 50,
			BackoffMaxMs:     2000,
			RequeueTimeoutMs: 10000,
			KillGraceMs:      5000,
		},
		Log: logpkg.Config{Level: "info", Format: "text"},
	}
}

// Load reads configuration from a JSON or YAML file (by extension). If path is empty, returns defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg := Default()
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	return cfg, nil
}

// Validate rejects values no component can work with.
func (c Config) Validate() error {
	if c.Broker.QueuePath == "" || c.Broker.DonePath == "" {
		return fmt.Errorf("config: broker queue and done paths are required")
	}
	if c.Broker.MaxWaitMs < 0 {
		return fmt.Errorf("config: broker.maxWaitMs must not be negative")
	}
	if _, err := toyov1.GetCodec(c.Client.Codec); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if _, err := backoff.New(c.Worker.Backoff, 0, 0); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.Worker.LongPollMs < 0 {
		return fmt.Errorf("config: worker.longPollMs must not be negative")
	}
	return nil
}

// QueueFile returns the snapshot path with DataDir applied.
func (b Broker) QueueFile() string { return ResolvePath(b.DataDir, b.QueuePath) }

// DoneFile returns the completion-log path with DataDir applied.
func (b Broker) DoneFile() string { return ResolvePath(b.DataDir, b.DonePath) }
