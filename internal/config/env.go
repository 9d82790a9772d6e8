package config

import (
	"os"
	"strconv"
)

// FromEnv overlays TOYO_* environment variables onto cfg.
func FromEnv(cfg *Config) {
	setString(&cfg.Broker.Addr, "TOYO_BROKER_ADDR")
	setString(&cfg.Broker.DataDir, "TOYO_DATA_DIR")
	setString(&cfg.Broker.QueuePath, "TOYO_QUEUE_PATH")
	setString(&cfg.Broker.DonePath, "TOYO_DONE_PATH")
	if v, ok := os.LookupEnv("TOYO_HTTP_ADDR"); ok {
		// Set-but-empty disables the admin listener.
		cfg.Broker.HTTPAddr = v
	}
	setInt64(&cfg.Broker.MaxWaitMs, "TOYO_MAX_WAIT_MS")

	setString(&cfg.Client.Addr, "TOYO_ADDR")
	setString(&cfg.Client.Codec, "TOYO_CODEC")
	setInt64(&cfg.Client.RequestTimeoutMs, "TOYO_REQUEST_TIMEOUT_MS")
	setString(&cfg.Client.HTTPURL, "TOYO_HTTP_URL")

	setString(&cfg.Worker.Name, "TOYO_WORKER_NAME")
	setString(&cfg.Worker.Backoff, "TOYO_BACKOFF")
	setInt64(&cfg.Worker.BackoffInitialMs, "TOYO_BACKOFF_INITIAL_MS")
	setInt64(&cfg.Worker.BackoffMaxMs, "TOYO_BACKOFF_MAX_MS")
	setInt64(&cfg.Worker.LongPollMs, "TOYO_LONG_POLL_MS")
	setInt64(&cfg.Worker.RequeueTimeoutMs, "TOYO_REQUEUE_TIMEOUT_MS")
	setInt64(&cfg.Worker.KillGraceMs, "TOYO_KILL_GRACE_MS")

	setString(&cfg.Log.Level, "TOYO_LOG_LEVEL")
	setString(&cfg.Log.Format, "TOYO_LOG_FORMAT")
	setString(&cfg.Log.Output, "TOYO_LOG_OUTPUT")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}
