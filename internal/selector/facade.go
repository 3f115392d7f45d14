// Package selector sequences a bridge pick for a joining participant:
// snapshot the registry, apply the operational/shutdown filters, delegate
// to the configured strategy, and record the pick against the winning
// bridge's unreported-load estimate (SPEC_FULL.md §4.5).
package selector

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/jitsi-contrib/bridgepool/internal/bridge"
	"github.com/jitsi-contrib/bridgepool/internal/selection"
	"github.com/jitsi-contrib/bridgepool/pkg/metrics"
)

// ErrNoBridgeAvailable is returned when no bridge can be selected, whether
// because the registry is empty or every bridge was filtered out.
var ErrNoBridgeAvailable = errors.New("selector: no bridge available")

// Registry is the subset of registry.Registry the selector depends on.
type Registry interface {
	SnapshotSorted() []*bridge.Record
}

// Config controls façade-level behaviour that isn't the strategy's concern.
type Config struct {
	// AllowMultiBridge is threaded through to the strategy as octoEnabled.
	AllowMultiBridge bool
}

// Selector is the façade a conference-join codepath calls into.
type Selector struct {
	registry Registry
	strategy selection.Strategy
	cfg      Config

	conferenceLocks singleflight.Group
}

// New builds a Selector over registry, delegating picks to strategy.
func New(registry Registry, strategy selection.Strategy, cfg Config) *Selector {
	return &Selector{registry: registry, strategy: strategy, cfg: cfg}
}

// SelectBridge picks a bridge for a participant joining conference, given
// the conference's current bridges and the participant's region. It is
// serialisable per conference: two concurrent calls naming the same
// conference never race each other's pick, while calls for different
// conferences proceed fully in parallel (SPEC_FULL.md §4.5).
func (s *Selector) SelectBridge(ctx context.Context, conference string, conferenceBridges selection.ConferenceBridges, participantRegion string) (*bridge.Record, error) {
	start := time.Now()
	v, err, _ := s.conferenceLocks.Do(conference, func() (any, error) {
		return s.selectBridgeLocked(conferenceBridges, participantRegion)
	})

	if err != nil {
		metrics.Get().RecordSelection("no_bridge_available", time.Since(start))
		return nil, err
	}
	metrics.Get().RecordSelection("picked", time.Since(start))
	return v.(*bridge.Record), nil
}

func (s *Selector) selectBridgeLocked(conferenceBridges selection.ConferenceBridges, participantRegion string) (*bridge.Record, error) {
	snapshot := s.registry.SnapshotSorted()

	candidates := filter(snapshot, func(r *bridge.Record) bool {
		return r.IsOperational() && !r.IsInGracefulShutdown()
	})
	if len(candidates) == 0 {
		// Better to serve a degraded bridge than to refuse the user
		// outright (§4.5 step 3).
		candidates = filter(snapshot, func(r *bridge.Record) bool {
			return r.IsOperational()
		})
	}

	rec := s.strategy.Select(candidates, conferenceBridges, participantRegion, s.cfg.AllowMultiBridge)
	if rec == nil {
		return nil, ErrNoBridgeAvailable
	}

	rec.EndpointAdded()
	return rec, nil
}

func filter(records []*bridge.Record, keep func(*bridge.Record) bool) []*bridge.Record {
	out := make([]*bridge.Record, 0, len(records))
	for _, r := range records {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}
