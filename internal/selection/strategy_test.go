package selection

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jitsi-contrib/bridgepool/internal/bridge"
)

func TestCounterSet_IncrOnlyTouchesRegisteredNames(t *testing.T) {
	c := newCounterSet("test", primLeastLoaded, primNotLoadedInRegion)
	c.incr(primLeastLoaded)
	c.incr(primLeastLoaded)
	c.incr("not-a-registered-name")

	snap := c.snapshot()
	assert.EqualValues(t, 2, snap[primLeastLoaded])
	assert.EqualValues(t, 0, snap[primNotLoadedInRegion])
	_, ok := snap["not-a-registered-name"]
	assert.False(t, ok)
}

func TestRegion_StatsReflectCascadeRuleFiring(t *testing.T) {
	a := overloadableRecord("A", "us", 0.3, 0.8)
	b := overloadableRecord("B", "us", 0.1, 0.8)

	strategy := NewRegion(nil)
	strategy.Select([]*bridge.Record{b, a}, ConferenceBridges{}, "us", false)

	stats := strategy.Stats()
	assert.EqualValues(t, 1, stats[primNotLoadedInRegion])
	assert.EqualValues(t, 0, stats[primLeastLoaded])
}
