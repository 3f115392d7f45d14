// Package selection implements the bridge-picking strategies a conference
// selects from: single-bridge, region-based, intra-region and split
// (SPEC_FULL.md §4.4). Each is a pure function over a pre-filtered,
// pre-sorted candidate list plus the requesting conference's current
// bridges.
package selection

import (
	"sync/atomic"

	"github.com/jitsi-contrib/bridgepool/internal/bridge"
	"github.com/jitsi-contrib/bridgepool/pkg/metrics"
)

// ConferenceBridges maps a bridge already in use by a conference to the
// number of participants it currently hosts there. An empty map means the
// conference has no bridge yet.
type ConferenceBridges map[*bridge.Record]int

// Strategy picks a bridge for a joining participant.
type Strategy interface {
	// Select returns the chosen bridge, or nil if none is suitable.
	// candidates must already be filtered to operational bridges and
	// sorted ascending by stress (§4.4).
	Select(candidates []*bridge.Record, conf ConferenceBridges, participantRegion string, allowMultiBridge bool) *bridge.Record

	// Stats returns a snapshot of this strategy's rule-firing counters,
	// keyed by primitive name.
	Stats() map[string]int64
}

// doSelector is the piece that differs between strategies; base.Select
// wraps it with the shared single-bridge-pinning rule.
type doSelector func(candidates []*bridge.Record, conf ConferenceBridges, participantRegion string) *bridge.Record

// base implements the common skeleton described in §4.4 and the shared
// counter bookkeeping, so concrete strategies only need to supply doSelect.
type base struct {
	name     string
	doSelect doSelector
	counters *counterSet
}

func newBase(name string, doSelect doSelector, primitiveNames ...string) base {
	return base{name: name, doSelect: doSelect, counters: newCounterSet(name, primitiveNames...)}
}

// Select implements the skeleton shared by every region-aware strategy: a
// conference already pinned to a no-relay (or octo-disabled) bridge never
// consults the strategy at all.
func (b base) Select(candidates []*bridge.Record, conf ConferenceBridges, participantRegion string, allowMultiBridge bool) *bridge.Record {
	if len(candidates) == 0 {
		return nil
	}

	if first, ok := firstConferenceBridge(conf); ok {
		if !allowMultiBridge || !first.HasRelay() {
			return first
		}
	}

	return b.doSelect(candidates, conf, participantRegion)
}

func (b base) Stats() map[string]int64 {
	return b.counters.snapshot()
}

// firstConferenceBridge returns an arbitrary bridge from conf. Go map
// iteration order is unspecified, so the result is deterministic only when
// len(conf) == 1; for a multi-bridge conference any of its bridges may be
// returned.
func firstConferenceBridge(conf ConferenceBridges) (*bridge.Record, bool) {
	for rec := range conf {
		return rec, true
	}
	return nil, false
}

// counterSet tracks how many times each named primitive has fired. Every
// name is pre-registered at construction time so incr never mutates the map
// concurrently with a read — only the atomic counters themselves are
// touched after construction, matching the serviceStats idiom this is
// grounded on.
type counterSet struct {
	strategyName string
	counters     map[string]*atomic.Int64
}

func newCounterSet(strategyName string, names ...string) *counterSet {
	c := &counterSet{strategyName: strategyName, counters: make(map[string]*atomic.Int64, len(names))}
	for _, name := range names {
		c.counters[name] = &atomic.Int64{}
	}
	return c
}

func (c *counterSet) incr(name string) {
	if counter, ok := c.counters[name]; ok {
		counter.Add(1)
		metrics.Get().RecordSelectionRule(c.strategyName, name)
	}
}

func (c *counterSet) snapshot() map[string]int64 {
	out := make(map[string]int64, len(c.counters))
	for name, counter := range c.counters {
		out[name] = counter.Load()
	}
	return out
}
