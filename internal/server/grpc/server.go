package grpcserver

import (
	"context"
	"errors"
	"net"

	toyov1 "github.com/cocuh/toyosatomimi/api/toyo/v1"
	"github.com/cocuh/toyosatomimi/internal/services/broker"
	"github.com/cocuh/toyosatomimi/internal/transport"
	logpkg "github.com/cocuh/toyosatomimi/pkg/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

// Server owns the gRPC server instance and the broker it fronts.
type Server struct {
	svc    *broker.Service
	grpc   *grpc.Server
	health *health.Server
	logger logpkg.Logger
	lis    net.Listener
}

// New constructs a gRPC server and registers the broker and health services.
func New(svc *broker.Service, logger logpkg.Logger, opts ...grpc.ServerOption) *Server {
	if logger == nil {
		logger = logpkg.NewLogger(logpkg.WithLevel(logpkg.InfoLevel))
	}
	s := &Server{
		svc:    svc,
		grpc:   grpc.NewServer(opts...),
		health: health.NewServer(),
		logger: logger.With(logpkg.Component("grpc")),
	}
	toyov1.RegisterBrokerServer(s.grpc, &brokerSvc{svc: svc})
	healthpb.RegisterHealthServer(s.grpc, s.health)
	return s
}

// ListenAndServe binds ep and serves until ctx is done or the broker stops.
func (s *Server) ListenAndServe(ctx context.Context, ep transport.Endpoint) error {
	l, err := ep.Listen()
	if err != nil {
		return err
	}
	s.logger.Info("listening", logpkg.Str("endpoint", ep.String()))
	return s.Serve(ctx, l)
}

// Serve accepts connections on l. On cancellation it waits for the broker
// loop to finish (so the queue snapshot is on disk) before releasing the
// listener.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	s.lis = l
	hctx, stopHealth := context.WithCancel(ctx)
	defer stopHealth()
	go s.watchHealth(hctx)

	errCh := make(chan error, 1)
	go func() { errCh <- s.grpc.Serve(l) }()
	select {
	case <-ctx.Done():
		<-s.svc.Done()
		s.grpc.GracefulStop()
		return nil
	case <-s.svc.Done():
		s.grpc.GracefulStop()
		return nil
	case err := <-errCh:
		return err
	}
}

// Close stops the server and closes the listener.
func (s *Server) Close() {
	if s.grpc != nil {
		s.grpc.GracefulStop()
	}
	if s.lis != nil {
		_ = s.lis.Close()
	}
}

type brokerSvc struct {
	svc *broker.Service
}

func (b *brokerSvc) Exchange(ctx context.Context, req *toyov1.Request) (*toyov1.Reply, error) {
	reply, err := b.svc.Exchange(ctx, req)
	switch {
	case err == nil:
		return reply, nil
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return nil, status.FromContextError(err).Err()
	default:
		return nil, status.Error(codes.Unavailable, err.Error())
	}
}
