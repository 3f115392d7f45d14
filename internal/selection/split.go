package selection

import "github.com/jitsi-contrib/bridgepool/internal/bridge"

// Split is a load-testing strategy for exercising multi-bridge conferences:
// it prefers spreading a conference across bridges over concentrating it on
// one (SPEC_FULL.md §4.4.4).
type Split struct {
	base
}

const primNotInConference = "notInConference"

// NewSplit constructs the split strategy.
func NewSplit() *Split {
	sp := &Split{}
	sp.base = newBase("split", sp.doSelect, primNotInConference, primLeastLoadedInConferenceInRegion)
	return sp
}

// Select overrides base.Select: Split always forces allowMultiBridge=true
// internally, so the skeleton's single-bridge pinning rule never applies
// here (§4.4.4).
func (sp *Split) Select(candidates []*bridge.Record, conf ConferenceBridges, participantRegion string, allowMultiBridge bool) *bridge.Record {
	return sp.base.Select(candidates, conf, participantRegion, true)
}

func (sp *Split) doSelect(candidates []*bridge.Record, conf ConferenceBridges, _ string) *bridge.Record {
	c := sp.base.counters

	for _, rec := range candidates {
		if !inConference(rec, conf) {
			c.incr(primNotInConference)
			return rec
		}
	}

	var best *bridge.Record
	bestCount := -1
	for rec, count := range conf {
		if bestCount == -1 || count < bestCount {
			best = rec
			bestCount = count
		}
	}
	if best != nil {
		c.incr(primLeastLoadedInConferenceInRegion)
	}
	return best
}
