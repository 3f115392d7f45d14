package selection

import (
	"github.com/jitsi-contrib/bridgepool/internal/bridge"
	"github.com/jitsi-contrib/bridgepool/pkg/logger"
)

// SingleBridge forbids multi-bridge conferences: it picks a bridge for an
// empty conference and otherwise insists the conference already has
// exactly one (SPEC_FULL.md §4.4.1).
type SingleBridge struct {
	counters *counterSet
}

// NewSingleBridge constructs a SingleBridge strategy.
func NewSingleBridge() *SingleBridge {
	return &SingleBridge{counters: newCounterSet("single", primLeastLoaded)}
}

func (s *SingleBridge) Select(candidates []*bridge.Record, conf ConferenceBridges, participantRegion string, allowMultiBridge bool) *bridge.Record {
	if len(conf) == 0 {
		return s.counters.leastLoaded(candidates)
	}
	if len(conf) == 1 {
		for rec := range conf {
			if rec.IsOperational() {
				return rec
			}
			return nil
		}
	}
	logger.Log.Error("single-bridge strategy: conference already spans multiple bridges", "bridgeCount", len(conf))
	return nil
}

func (s *SingleBridge) Stats() map[string]int64 {
	return s.counters.snapshot()
}
