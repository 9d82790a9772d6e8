// Package grpcserver binds the broker endpoint and serves the toyo.v1.Broker
// Exchange RPC plus the standard gRPC health service, delegating every
// request to the broker control loop.
//
// Example:
//
//	rt, _ := runtime.Open(runtime.Options{QueuePath: "queue.json", DonePath: "done.json", Config: config.Default()})
//	svc := broker.New(rt)
//	go svc.Run(ctx)
//	ep, _ := transport.ParseEndpoint("tcp://127.0.0.1:5151")
//	_ = grpcserver.New(svc, nil).ListenAndServe(ctx, ep)
package grpcserver
