package selection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jitsi-contrib/bridgepool/internal/bridge"
)

func TestIntraRegion_EmptyConferencePicksNonOverloadedInRegion(t *testing.T) {
	a := overloadableRecord("A", "us", 0.9, 0.8)
	b := overloadableRecord("B", "us", 0.2, 0.8)
	c := overloadableRecord("C", "eu", 0.0, 0.8)

	strategy := NewIntraRegion()
	got := strategy.Select([]*bridge.Record{c, b, a}, ConferenceBridges{}, "us", false)
	require.NotNil(t, got)
	assert.Same(t, b, got)
}

func TestIntraRegion_EmptyConferenceFallsBackGloballyWhenRegionAllOverloaded(t *testing.T) {
	a := overloadableRecord("A", "us", 0.9, 0.8)
	c := overloadableRecord("C", "eu", 0.1, 0.8)

	strategy := NewIntraRegion()
	got := strategy.Select([]*bridge.Record{c, a}, ConferenceBridges{}, "us", false)
	require.NotNil(t, got)
	assert.Same(t, c, got, "no non-overloaded bridge in region falls back to least-loaded globally")
}

func TestIntraRegion_NonEmptyConferenceDerivesRegionFromFirstBridge(t *testing.T) {
	a := overloadableRecord("A", "us", 0.5, 0.8)
	b := overloadableRecord("B", "us", 0.2, 0.8)

	strategy := NewIntraRegion()
	got := strategy.Select([]*bridge.Record{b, a}, ConferenceBridges{a: 2}, "eu", true)
	require.NotNil(t, got)
	assert.Same(t, a, got, "notLoadedInConferenceInRegion against the conference's own region (us) must fire")
}
