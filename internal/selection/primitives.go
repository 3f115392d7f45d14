package selection

import "github.com/jitsi-contrib/bridgepool/internal/bridge"

// RegionGroups maps a region to the set of regions clustered with it for
// selection purposes (SPEC_FULL.md §4.4, "region-group variants"). A region
// absent from the map, or an empty RegionGroups, falls back to a singleton
// containing just that region (§8 boundary behaviour).
type RegionGroups map[string][]string

// groupFor returns the region group participantRegion belongs to, falling
// back to a singleton of participantRegion itself.
func (g RegionGroups) groupFor(participantRegion string) map[string]struct{} {
	out := make(map[string]struct{})
	if members, ok := g[participantRegion]; ok && len(members) > 0 {
		for _, m := range members {
			out[m] = struct{}{}
		}
		return out
	}
	out[participantRegion] = struct{}{}
	return out
}

// Primitive names, used both as counter keys and for readable test/log
// output (SPEC_FULL.md §4.4).
const (
	primNotLoadedInConferenceInRegion      = "notLoadedInConferenceInRegion"
	primNotLoadedInConferenceInRegionGroup = "notLoadedInConferenceInRegionGroup"
	primNotLoadedInRegion                  = "notLoadedInRegion"
	primNotLoadedInRegionGroup             = "notLoadedInRegionGroup"
	primLeastLoadedInConferenceInRegion    = "leastLoadedInConferenceInRegion"
	primLeastLoadedInConferenceInRegionGrp = "leastLoadedInConferenceInRegionGroup"
	primLeastLoadedInRegion                = "leastLoadedInRegion"
	primLeastLoadedInRegionGroup           = "leastLoadedInRegionGroup"
	primNotLoadedInConference              = "notLoadedInConference"
	primLeastLoaded                        = "leastLoaded"
)

// allPrimitiveNames lists every counter a strategy built on these primitives
// may increment, for pre-registration with newCounterSet.
var allPrimitiveNames = []string{
	primNotLoadedInConferenceInRegion,
	primNotLoadedInConferenceInRegionGroup,
	primNotLoadedInRegion,
	primNotLoadedInRegionGroup,
	primLeastLoadedInConferenceInRegion,
	primLeastLoadedInConferenceInRegionGrp,
	primLeastLoadedInRegion,
	primLeastLoadedInRegionGroup,
	primNotLoadedInConference,
	primLeastLoaded,
}

func inConference(rec *bridge.Record, conf ConferenceBridges) bool {
	_, ok := conf[rec]
	return ok
}

func inSet(region string, set map[string]struct{}) bool {
	_, ok := set[region]
	return ok
}

// notLoadedInConferenceInRegion returns the first candidate that is not
// overloaded, already in conf, and in region.
func (c *counterSet) notLoadedInConferenceInRegion(candidates []*bridge.Record, conf ConferenceBridges, region string) *bridge.Record {
	for _, rec := range candidates {
		if !rec.IsOverloaded() && inConference(rec, conf) && rec.Region() == region {
			c.incr(primNotLoadedInConferenceInRegion)
			return rec
		}
	}
	return nil
}

func (c *counterSet) notLoadedInConferenceInRegionGroup(candidates []*bridge.Record, conf ConferenceBridges, group map[string]struct{}) *bridge.Record {
	for _, rec := range candidates {
		if !rec.IsOverloaded() && inConference(rec, conf) && inSet(rec.Region(), group) {
			c.incr(primNotLoadedInConferenceInRegionGroup)
			return rec
		}
	}
	return nil
}

// notLoadedInRegion returns the first candidate that is not overloaded and
// in region.
func (c *counterSet) notLoadedInRegion(candidates []*bridge.Record, region string) *bridge.Record {
	for _, rec := range candidates {
		if !rec.IsOverloaded() && rec.Region() == region {
			c.incr(primNotLoadedInRegion)
			return rec
		}
	}
	return nil
}

func (c *counterSet) notLoadedInRegionGroup(candidates []*bridge.Record, group map[string]struct{}) *bridge.Record {
	for _, rec := range candidates {
		if !rec.IsOverloaded() && inSet(rec.Region(), group) {
			c.incr(primNotLoadedInRegionGroup)
			return rec
		}
	}
	return nil
}

// leastLoadedInConferenceInRegion returns the first candidate in conf and
// in region, regardless of overload.
func (c *counterSet) leastLoadedInConferenceInRegion(candidates []*bridge.Record, conf ConferenceBridges, region string) *bridge.Record {
	for _, rec := range candidates {
		if inConference(rec, conf) && rec.Region() == region {
			c.incr(primLeastLoadedInConferenceInRegion)
			return rec
		}
	}
	return nil
}

func (c *counterSet) leastLoadedInConferenceInRegionGroup(candidates []*bridge.Record, conf ConferenceBridges, group map[string]struct{}) *bridge.Record {
	for _, rec := range candidates {
		if inConference(rec, conf) && inSet(rec.Region(), group) {
			c.incr(primLeastLoadedInConferenceInRegionGrp)
			return rec
		}
	}
	return nil
}

// leastLoadedInRegion returns the first candidate in region, regardless of
// overload.
func (c *counterSet) leastLoadedInRegion(candidates []*bridge.Record, region string) *bridge.Record {
	for _, rec := range candidates {
		if rec.Region() == region {
			c.incr(primLeastLoadedInRegion)
			return rec
		}
	}
	return nil
}

func (c *counterSet) leastLoadedInRegionGroup(candidates []*bridge.Record, group map[string]struct{}) *bridge.Record {
	for _, rec := range candidates {
		if inSet(rec.Region(), group) {
			c.incr(primLeastLoadedInRegionGroup)
			return rec
		}
	}
	return nil
}

// notLoadedInConference returns the first candidate that is not overloaded
// and already in conf, regardless of region.
func (c *counterSet) notLoadedInConference(candidates []*bridge.Record, conf ConferenceBridges) *bridge.Record {
	for _, rec := range candidates {
		if !rec.IsOverloaded() && inConference(rec, conf) {
			c.incr(primNotLoadedInConference)
			return rec
		}
	}
	return nil
}

// leastLoaded returns the first candidate, i.e. the least-loaded bridge
// overall since candidates is sorted ascending by stress.
func (c *counterSet) leastLoaded(candidates []*bridge.Record) *bridge.Record {
	if len(candidates) == 0 {
		return nil
	}
	c.incr(primLeastLoaded)
	return candidates[0]
}
