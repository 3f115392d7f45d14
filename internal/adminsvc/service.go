// Package adminsvc exposes the administrative surface operators use against
// a running bridgeselectord process: the gRPC health check orchestration
// already polls, wired to real registry state instead of process liveness
// alone, and a small JSON-over-HTTP mux for inspecting and overriding
// individual bridges (SPEC_FULL.md §4.7).
package adminsvc

import (
	"context"
	"time"

	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/jitsi-contrib/bridgepool/internal/bridge"
	"github.com/jitsi-contrib/bridgepool/pkg/audit"
	"github.com/jitsi-contrib/bridgepool/pkg/logger"
	"github.com/jitsi-contrib/bridgepool/pkg/metrics"
	"github.com/jitsi-contrib/bridgepool/pkg/ratelimit"
)

// Registry is the subset of registry.Registry the admin surface depends on.
type Registry interface {
	SnapshotSorted() []*bridge.Record
	Get(address bridge.Address) (*bridge.Record, bool)
	CountTotal() int
	CountOperational() int
	CountInShutdown() int
}

// HealthReporter is the subset of server.GRPCServer the admin surface drives.
// Reusing the process's existing health.Server (rather than registering a
// second one) is the same pattern pkg/server already uses to expose service
// health to orchestrators — only the signal driving it changes, from process
// lifecycle to live registry state.
type HealthReporter interface {
	SetServingStatus(status grpc_health_v1.HealthCheckResponse_ServingStatus)
}

// Service is the administrative surface. It owns no transport of its own;
// callers wire Mux() into an *http.Server and PollHealth into a goroutine.
type Service struct {
	registry    Registry
	health      HealthReporter
	rateLimiter ratelimit.Limiter
	auditLogger audit.Logger
}

// New builds a Service over reg, reporting into health and rate-limiting
// through limiter. limiter may be nil, in which case every request is
// allowed.
func New(reg Registry, health HealthReporter, limiter ratelimit.Limiter, auditLogger audit.Logger) *Service {
	return &Service{registry: reg, health: health, rateLimiter: limiter, auditLogger: auditLogger}
}

// PollHealth runs until ctx is cancelled, periodically recomputing the
// bridge-pool health status and the per-tier/per-bridge gauges (SPEC_FULL.md
// §4.7, §"Ambient stack"). It reports SERVING iff the registry currently has
// at least one operational bridge.
func (s *Service) PollHealth(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.tick()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick()
		}
	}
}

func (s *Service) tick() {
	total := s.registry.CountTotal()
	shutdown := s.registry.CountInShutdown()
	operational := s.registry.CountOperational()
	nonOperational := total - operational
	if nonOperational < 0 {
		nonOperational = 0
	}

	metrics.Get().RecordBridgeTiers(operational, shutdown, nonOperational)

	for _, rec := range s.registry.SnapshotSorted() {
		metrics.Get().RecordBridgeStress(rec.Address().String(), rec.Region(), rec.GetStress())
	}

	if operational > 0 {
		s.health.SetServingStatus(grpc_health_v1.HealthCheckResponse_SERVING)
	} else {
		s.health.SetServingStatus(grpc_health_v1.HealthCheckResponse_NOT_SERVING)
		logger.Log.Warn("bridge pool has no operational bridges", "total", total)
	}
}
