package selection

import "github.com/jitsi-contrib/bridgepool/internal/bridge"

// IntraRegion is a load-testing strategy that keeps a conference pinned to
// a single region (SPEC_FULL.md §4.4.3). Only an empty conference falls back
// to least-loaded globally; once the conference has a bridge, only bridges in
// that bridge's region are considered, and nil is returned when none of them
// is suitable.
type IntraRegion struct {
	base
}

// NewIntraRegion constructs the intra-region strategy.
func NewIntraRegion() *IntraRegion {
	ir := &IntraRegion{}
	ir.base = newBase("intra-region", ir.doSelect,
		primNotLoadedInConferenceInRegion, primLeastLoadedInConferenceInRegion,
		primNotLoadedInRegion, primLeastLoaded)
	return ir
}

func (ir *IntraRegion) doSelect(candidates []*bridge.Record, conf ConferenceBridges, participantRegion string) *bridge.Record {
	c := ir.base.counters

	if len(conf) == 0 {
		if rec := c.notLoadedInRegion(candidates, participantRegion); rec != nil {
			return rec
		}
		return c.leastLoaded(candidates)
	}

	// "apply the first three primitives against that region": in the
	// named-primitives table order, that is notLoadedInConferenceInRegion,
	// notLoadedInRegion, leastLoadedInConferenceInRegion.
	conferenceRegion := regionOfAny(conf)
	if rec := c.notLoadedInConferenceInRegion(candidates, conf, conferenceRegion); rec != nil {
		return rec
	}
	if rec := c.notLoadedInRegion(candidates, conferenceRegion); rec != nil {
		return rec
	}
	return c.leastLoadedInConferenceInRegion(candidates, conf, conferenceRegion)
}

// regionOfAny returns the region of an arbitrary bridge already in the
// conference, used to derive "the conference's region" (§4.4.3). Conference
// bridges are expected to share a region by construction in this strategy.
func regionOfAny(conf ConferenceBridges) string {
	for rec := range conf {
		return rec.Region()
	}
	return ""
}
