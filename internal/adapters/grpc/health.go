package grpc

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/cardmachinequote/quote-engine/internal/ports"
)

// ServiceName is the health-check name of the quote engine.
const ServiceName = "cardmachinequote.QuoteEngine"

const defaultInterval = 30 * time.Second

// StatusSetter is satisfied by *health.Server.
type StatusSetter interface {
	SetServingStatus(service string, status healthpb.HealthCheckResponse_ServingStatus)
}

// RegisterReflection exposes the registered services to grpcurl and friends.
func RegisterReflection(s *grpc.Server) {
	reflection.Register(s)
}

// HealthReporter mirrors the engine's health into the gRPC health service.
type HealthReporter struct {
	checker  ports.HealthChecker
	status   StatusSetter
	interval time.Duration
}

func NewHealthReporter(checker ports.HealthChecker, status StatusSetter, interval time.Duration) *HealthReporter {
	if interval <= 0 {
		interval = defaultInterval
	}
	return &HealthReporter{checker: checker, status: status, interval: interval}
}

// Report checks the engine once and publishes the result under both the
// engine's name and the server-wide empty name.
func (r *HealthReporter) Report(ctx context.Context) bool {
	h := r.checker.Health(ctx)
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if h.Healthy {
		st = healthpb.HealthCheckResponse_SERVING
	} else {
		log.Ctx(ctx).Warn().Str("message", h.Message).Msg("quote engine unhealthy")
	}
	r.status.SetServingStatus(ServiceName, st)
	r.status.SetServingStatus("", st)
	return h.Healthy
}

// Run reports immediately and then on every tick until ctx ends.
func (r *HealthReporter) Run(ctx context.Context) {
	r.Report(ctx)
	t := time.NewTicker(r.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			r.Report(ctx)
		}
	}
}
