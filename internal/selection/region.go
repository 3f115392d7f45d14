package selection

import "github.com/jitsi-contrib/bridgepool/internal/bridge"

// Region is the primary production strategy: a ten-rule cascade that
// prefers keeping a conference in-region, then in-region-group, before
// accepting overload or crossing regions (SPEC_FULL.md §4.4.2).
type Region struct {
	base
	groups RegionGroups
}

// NewRegion constructs the region-based strategy. groups may be nil; a
// region absent from it falls back to a singleton of itself.
func NewRegion(groups RegionGroups) *Region {
	r := &Region{groups: groups}
	r.base = newBase("region", r.doSelect, allPrimitiveNames...)
	return r
}

func (r *Region) doSelect(candidates []*bridge.Record, conf ConferenceBridges, participantRegion string) *bridge.Record {
	c := r.base.counters

	// A missing participant region skips every region/region-group rule
	// and falls straight to the region-agnostic tail of the cascade (§8
	// boundary behaviour).
	if participantRegion == "" {
		if rec := c.notLoadedInConference(candidates, conf); rec != nil {
			return rec
		}
		return c.leastLoaded(candidates)
	}

	group := r.groups.groupFor(participantRegion)

	if rec := c.notLoadedInConferenceInRegion(candidates, conf, participantRegion); rec != nil {
		return rec
	}
	if rec := c.notLoadedInConferenceInRegionGroup(candidates, conf, group); rec != nil {
		return rec
	}
	if rec := c.notLoadedInRegion(candidates, participantRegion); rec != nil {
		return rec
	}
	if rec := c.notLoadedInRegionGroup(candidates, group); rec != nil {
		return rec
	}
	if rec := c.leastLoadedInConferenceInRegion(candidates, conf, participantRegion); rec != nil {
		return rec
	}
	if rec := c.leastLoadedInConferenceInRegionGroup(candidates, conf, group); rec != nil {
		return rec
	}
	if rec := c.leastLoadedInRegion(candidates, participantRegion); rec != nil {
		return rec
	}
	if rec := c.leastLoadedInRegionGroup(candidates, group); rec != nil {
		return rec
	}
	if rec := c.notLoadedInConference(candidates, conf); rec != nil {
		return rec
	}
	return c.leastLoaded(candidates)
}
