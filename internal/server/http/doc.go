// Package httpserver provides the read-only admin gateway for the broker:
// health, counters and CEL-filtered views of the queue, the completion log
// and the in-flight deliveries, routed with chi.
//
// Example:
//
//	s := httpserver.New(svc, logger)
//	ctx, cancel := context.WithCancel(context.Background())
//	defer cancel()
//	_ = s.ListenAndServe(ctx, "127.0.0.1:5152")
package httpserver
