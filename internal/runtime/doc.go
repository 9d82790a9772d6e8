// Package runtime wires storage, config, and in-memory state into a single
// toyo broker instance. It exposes Open/Close, a basic health check, and the
// queue, completion log and in-flight table restored from disk. An unreadable
// done.json is moved aside rather than blocking startup.
//
// The state objects are not synchronized. Hand them to exactly one owner
// (the broker service) and reach them only through it.
//
// Example:
//
//	cfg := config.Default()
//	rt, err := runtime.Open(runtime.Options{
//	    QueuePath: cfg.Broker.QueueFile(),
//	    DonePath:  cfg.Broker.DoneFile(),
//	    Config:    cfg,
//	})
//	if err != nil {
//	    return err // jsonfile.ErrMalformed when queue.json is corrupt
//	}
//	defer rt.Close()
//	_ = rt.CheckHealth(context.Background())
package runtime
