package registry

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jitsi-contrib/bridgepool/internal/bridge"
)

func testConfig() bridge.Config {
	cfg := bridge.DefaultConfig()
	cfg.MaxBridgePacketRatePps = 1000
	cfg.FailureResetThreshold = time.Minute
	return cfg
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	require.True(t, cond(), "condition not met within %s", timeout)
}

func TestAddOrUpdate_NewAddressEmitsBridgeAdded(t *testing.T) {
	r := New(testConfig())
	defer r.Shutdown()

	var added atomic.Int32
	r.Subscribe(ListenerFuncs{OnAdded: func(rec *bridge.Record) { added.Add(1) }})

	rec := r.AddOrUpdate(bridge.NewAddress("b1.example", ""), bridge.Stats{"region": "us"})
	require.NotNil(t, rec)
	waitFor(t, time.Second, func() bool { return added.Load() == 1 })

	assert.Equal(t, 1, r.CountTotal())
}

func TestAddOrUpdate_ConcurrentCreatesCollapseToOneEvent(t *testing.T) {
	r := New(testConfig())
	defer r.Shutdown()

	var added atomic.Int32
	r.Subscribe(ListenerFuncs{OnAdded: func(rec *bridge.Record) { added.Add(1) }})

	addr := bridge.NewAddress("b1.example", "")
	var wg sync.WaitGroup
	results := make([]*bridge.Record, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = r.AddOrUpdate(addr, nil)
		}(i)
	}
	wg.Wait()

	for _, rec := range results {
		assert.Same(t, results[0], rec, "every concurrent caller must observe the same record")
	}

	waitFor(t, time.Second, func() bool { return added.Load() >= 1 })
	time.Sleep(20 * time.Millisecond)
	assert.EqualValues(t, 1, added.Load(), "exactly one bridgeAdded event must fire for a collapsed create")
}

func TestAddOrUpdate_ExistingAddressMergesStatsWithoutEvent(t *testing.T) {
	r := New(testConfig())
	defer r.Shutdown()

	addr := bridge.NewAddress("b1.example", "")
	r.AddOrUpdate(addr, bridge.Stats{"region": "us"})

	var added atomic.Int32
	r.Subscribe(ListenerFuncs{OnAdded: func(rec *bridge.Record) { added.Add(1) }})

	rec := r.AddOrUpdate(addr, bridge.Stats{"relay_id": "r1"})
	assert.Equal(t, "us", rec.Region())
	assert.Equal(t, "r1", rec.RelayID())

	time.Sleep(20 * time.Millisecond)
	assert.EqualValues(t, 0, added.Load(), "refreshing an existing bridge must not emit bridgeAdded")
}

func TestRemove_IsIdempotentAndAlwaysFollowsAdded(t *testing.T) {
	r := New(testConfig())
	defer r.Shutdown()

	var mu sync.Mutex
	var seq []string
	r.Subscribe(ListenerFuncs{
		OnAdded:   func(rec *bridge.Record) { mu.Lock(); seq = append(seq, "added"); mu.Unlock() },
		OnRemoved: func(rec *bridge.Record) { mu.Lock(); seq = append(seq, "removed"); mu.Unlock() },
	})

	addr := bridge.NewAddress("b1.example", "")
	r.AddOrUpdate(addr, nil)
	r.Remove(addr)
	r.Remove(addr) // idempotent: no second removed event, no panic

	waitFor(t, time.Second, func() bool { mu.Lock(); defer mu.Unlock(); return len(seq) == 2 })

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seq, 2)
	assert.Equal(t, []string{"added", "removed"}, seq)
	assert.Equal(t, 0, r.CountTotal())
}

func TestSnapshotSorted_OrdersByTierThenStressThenAddress(t *testing.T) {
	r := New(testConfig())
	defer r.Shutdown()

	a := r.AddOrUpdate(bridge.NewAddress("a.example", ""), bridge.Stats{"stress_level": "0.5"})
	b := r.AddOrUpdate(bridge.NewAddress("b.example", ""), bridge.Stats{"stress_level": "0.1", "shutdown_in_progress": "true"})
	c := r.AddOrUpdate(bridge.NewAddress("c.example", ""), bridge.Stats{"stress_level": "0.2"})
	c.SetIsOperational(false)

	snap := r.SnapshotSorted()
	require.Len(t, snap, 3)
	assert.Equal(t, a.Address(), snap[0].Address())
	assert.Equal(t, b.Address(), snap[1].Address())
	assert.Equal(t, c.Address(), snap[2].Address())
}

func TestOnHealthFailed_MarksNonOperationalAndDrains(t *testing.T) {
	r := New(testConfig())
	defer r.Shutdown()

	var drained atomic.Int32
	r.Subscribe(drainOnlyListener{onDrain: func(rec *bridge.Record) { drained.Add(1) }})

	addr := bridge.NewAddress("b1.example", "")
	r.AddOrUpdate(addr, nil)

	r.OnHealthFailed(addr)

	rec, _ := r.Get(addr)
	assert.False(t, rec.IsOperational())
	waitFor(t, time.Second, func() bool { return drained.Load() == 1 })
}

func TestOnHealthTimedOut_MarksNonOperationalWithoutDrain(t *testing.T) {
	r := New(testConfig())
	defer r.Shutdown()

	var drained atomic.Int32
	r.Subscribe(drainOnlyListener{onDrain: func(rec *bridge.Record) { drained.Add(1) }})

	addr := bridge.NewAddress("b1.example", "")
	r.AddOrUpdate(addr, nil)

	r.OnHealthTimedOut(addr)

	rec, _ := r.Get(addr)
	assert.False(t, rec.IsOperational())

	time.Sleep(20 * time.Millisecond)
	assert.EqualValues(t, 0, drained.Load(), "a timeout must not trigger a drain notification")
}

func TestCounts_ReflectOperationalAndShutdownState(t *testing.T) {
	r := New(testConfig())
	defer r.Shutdown()

	r.AddOrUpdate(bridge.NewAddress("a.example", ""), nil)
	r.AddOrUpdate(bridge.NewAddress("b.example", ""), bridge.Stats{"shutdown_in_progress": "true"})
	down := r.AddOrUpdate(bridge.NewAddress("c.example", ""), nil)
	down.SetIsOperational(false)

	assert.Equal(t, 3, r.CountTotal())
	assert.Equal(t, 2, r.CountOperational())
	assert.Equal(t, 1, r.CountInShutdown())
}

// drainOnlyListener implements Listener (as no-ops) plus DrainListener, to
// exercise the optional-capability dispatch in isolation.
type drainOnlyListener struct {
	onDrain func(rec *bridge.Record)
}

func (drainOnlyListener) BridgeAdded(rec *bridge.Record)   {}
func (drainOnlyListener) BridgeRemoved(rec *bridge.Record) {}
func (l drainOnlyListener) BridgeShouldDrain(rec *bridge.Record) {
	if l.onDrain != nil {
		l.onDrain(rec)
	}
}
