package grpcserver

import (
	"context"
	"time"

	toyov1 "github.com/cocuh/toyosatomimi/api/toyo/v1"
	logpkg "github.com/cocuh/toyosatomimi/pkg/log"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// healthInterval is how often the store is checked for the health service.
const healthInterval = 5 * time.Second

// watchHealth keeps the overall and per-service health status in step with
// the broker until ctx is done or the broker stops.
func (s *Server) watchHealth(ctx context.Context) {
	set := func(st healthpb.HealthCheckResponse_ServingStatus) {
		s.health.SetServingStatus("", st)
		s.health.SetServingStatus(toyov1.BrokerServiceName, st)
	}
	check := func() {
		if err := s.svc.CheckHealth(ctx); err != nil {
			s.logger.Warn("health check failed", logpkg.Err(err))
			set(healthpb.HealthCheckResponse_NOT_SERVING)
			return
		}
		set(healthpb.HealthCheckResponse_SERVING)
	}
	check()

	t := time.NewTicker(healthInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.svc.Done():
			set(healthpb.HealthCheckResponse_NOT_SERVING)
			return
		case <-t.C:
			check()
		}
	}
}
