// Package registry keeps the concurrently-updated set of known bridges: one
// record per address, refreshed from presence and probed for health,
// snapshotted for the selector (SPEC_FULL.md §4.2).
package registry

import (
	"sort"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/jitsi-contrib/bridgepool/internal/bridge"
)

// DrainListener is an optional capability a Listener may additionally
// implement: it is notified when a bridge fails a health check hard enough
// that existing conferences on it should be relocated (SPEC_FULL.md §4.3,
// healthCheckFailed). A plain health timeout does not trigger this — see
// OnHealthTimedOut.
type DrainListener interface {
	BridgeShouldDrain(r *bridge.Record)
}

// Registry is the thread-safe address->record map described in SPEC_FULL.md
// §4.2. The zero value is not usable; construct with New.
type Registry struct {
	cfg bridge.Config

	mu      sync.Mutex
	bridges map[bridge.Address]*bridge.Record
	create  singleflight.Group

	listenersMu sync.RWMutex
	listeners   []Listener

	events chan event
	done   chan struct{}
}

// New creates an empty registry. cfg is applied to every record the registry
// creates, so stress and operational-state math is consistent across the
// whole pool.
func New(cfg bridge.Config) *Registry {
	r := &Registry{
		cfg:     cfg,
		bridges: make(map[bridge.Address]*bridge.Record),
		events:  make(chan event, 256),
		done:    make(chan struct{}),
	}
	go r.dispatchLoop()
	return r
}

// Subscribe registers a listener for bridgeAdded/bridgeRemoved events (and,
// if it implements DrainListener, drain notifications). Subscriptions are
// cumulative; there is no ordering guarantee between listeners for the same
// event.
func (r *Registry) Subscribe(l Listener) {
	r.listenersMu.Lock()
	defer r.listenersMu.Unlock()
	r.listeners = append(r.listeners, l)
}

// Unsubscribe removes a previously-subscribed listener. It is a no-op if l
// was never subscribed.
func (r *Registry) Unsubscribe(l Listener) {
	r.listenersMu.Lock()
	defer r.listenersMu.Unlock()
	for i, existing := range r.listeners {
		if existing == l {
			r.listeners = append(r.listeners[:i], r.listeners[i+1:]...)
			return
		}
	}
}

// AddOrUpdate refreshes the record for address if one exists, or creates one.
// Concurrent calls for an address that does not yet exist collapse onto a
// single creation via singleflight: every caller observes the same new
// record, and exactly one bridgeAdded event fires (SPEC_FULL.md §4.2, §8
// idempotence).
func (r *Registry) AddOrUpdate(address bridge.Address, stats bridge.Stats) *bridge.Record {
	r.mu.Lock()
	if rec, ok := r.bridges[address]; ok {
		r.mu.Unlock()
		if stats != nil {
			rec.SetStats(stats)
		}
		return rec
	}
	r.mu.Unlock()

	v, _, _ := r.create.Do(string(address), func() (any, error) {
		r.mu.Lock()
		if rec, ok := r.bridges[address]; ok {
			r.mu.Unlock()
			return rec, nil
		}
		rec := bridge.New(address, r.cfg)
		r.bridges[address] = rec
		r.mu.Unlock()

		r.enqueue(event{kind: eventAdded, record: rec})
		return rec, nil
	})

	rec := v.(*bridge.Record)
	if stats != nil {
		rec.SetStats(stats)
	}
	return rec
}

// Remove deletes the record for address, if present, and emits bridgeRemoved.
// It is idempotent: removing an address that is not present is a no-op
// (SPEC_FULL.md §8).
func (r *Registry) Remove(address bridge.Address) {
	r.mu.Lock()
	rec, ok := r.bridges[address]
	if !ok {
		r.mu.Unlock()
		return
	}
	delete(r.bridges, address)
	r.mu.Unlock()

	r.enqueue(event{kind: eventRemoved, record: rec})
}

// Get returns the record for address, if present.
func (r *Registry) Get(address bridge.Address) (*bridge.Record, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.bridges[address]
	return rec, ok
}

// SnapshotSorted returns a stable, independently-owned copy of every record
// currently in the registry, ordered by the tiered bridge comparator
// (SPEC_FULL.md §3).
func (r *Registry) SnapshotSorted() []*bridge.Record {
	r.mu.Lock()
	out := make([]*bridge.Record, 0, len(r.bridges))
	for _, rec := range r.bridges {
		out = append(out, rec)
	}
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		return bridge.Compare(out[i], out[j]) < 0
	})
	return out
}

// CountTotal returns the number of bridges currently registered.
func (r *Registry) CountTotal() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.bridges)
}

// CountOperational returns the number of registered bridges currently
// reporting operational (per bridge.Record.IsOperational).
func (r *Registry) CountOperational() int {
	return r.countWhere(func(rec *bridge.Record) bool { return rec.IsOperational() })
}

// CountInShutdown returns the number of registered bridges currently in
// graceful shutdown.
func (r *Registry) CountInShutdown() int {
	return r.countWhere(func(rec *bridge.Record) bool { return rec.IsInGracefulShutdown() })
}

func (r *Registry) countWhere(pred func(*bridge.Record) bool) int {
	r.mu.Lock()
	records := make([]*bridge.Record, 0, len(r.bridges))
	for _, rec := range r.bridges {
		records = append(records, rec)
	}
	r.mu.Unlock()

	n := 0
	for _, rec := range records {
		if pred(rec) {
			n++
		}
	}
	return n
}

// OnHealthPassed maps a healthCheckPassed outcome onto the record's
// operational state (SPEC_FULL.md §4.3). The failure-reset lockout may still
// mask this from IsOperational callers for a while.
func (r *Registry) OnHealthPassed(address bridge.Address) {
	rec, ok := r.Get(address)
	if !ok {
		return
	}
	rec.SetIsOperational(true)
}

// OnHealthFailed maps a healthCheckFailed outcome onto the record: the
// bridge is marked non-operational and every DrainListener is told to move
// conferences off it.
func (r *Registry) OnHealthFailed(address bridge.Address) {
	rec, ok := r.Get(address)
	if !ok {
		return
	}
	rec.SetIsOperational(false)
	r.enqueue(event{kind: eventDrain, record: rec})
}

// OnHealthTimedOut maps a healthCheckTimedOut outcome onto the record: the
// bridge is marked non-operational, but — unlike OnHealthFailed — no drain
// notification fires. A transient network fault between focus and bridge
// should not by itself stampede conferences off of it (SPEC_FULL.md §4.3).
func (r *Registry) OnHealthTimedOut(address bridge.Address) {
	rec, ok := r.Get(address)
	if !ok {
		return
	}
	rec.SetIsOperational(false)
}

func (r *Registry) enqueue(e event) {
	select {
	case r.events <- e:
	case <-r.done:
	}
}

// dispatchLoop is the registry's single event worker: it serialises listener
// notification off of the caller's goroutine so listener code can never
// re-enter the registry from inside AddOrUpdate/Remove (SPEC_FULL.md §4.2,
// §5). Modelled on pkg/audit's FileLogger background writer: one buffered
// channel, one consumer goroutine.
func (r *Registry) dispatchLoop() {
	for {
		var e event
		select {
		case e = <-r.events:
		case <-r.done:
			select {
			case e = <-r.events:
			default:
				return
			}
		}

		r.listenersMu.RLock()
		listeners := append([]Listener(nil), r.listeners...)
		r.listenersMu.RUnlock()

		for _, l := range listeners {
			switch e.kind {
			case eventAdded:
				l.BridgeAdded(e.record)
			case eventRemoved:
				l.BridgeRemoved(e.record)
			case eventDrain:
				if d, ok := l.(DrainListener); ok {
					d.BridgeShouldDrain(e.record)
				}
			}
		}
	}
}

// Shutdown stops the event dispatch worker. Events enqueued after Shutdown
// are dropped rather than blocking the caller.
func (r *Registry) Shutdown() {
	close(r.done)
}

const eventDrain eventKind = eventRemoved + 1
