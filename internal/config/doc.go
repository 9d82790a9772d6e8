// Package config provides loading and environment overlay for toyo
// configuration. It exposes a Default() baseline that matches the historical
// endpoint and file names (tcp://127.0.0.1:5151, queue.json, done.json).
//
// Precedence, lowest first: Default, Load (JSON or YAML), FromEnv (TOYO_*),
// then command-line flags applied by the caller.
//
// Example:
//
//	cfg, err := config.Load("/etc/toyo.yaml")
//	if err != nil {
//	    return err
//	}
//	config.FromEnv(&cfg)
//	if err := cfg.Validate(); err != nil {
//	    return err
//	}
//	rt, _ := runtime.Open(runtime.Options{QueuePath: cfg.Broker.QueueFile(), DonePath: cfg.Broker.DoneFile()})
//	defer rt.Close()
package config
