package registry

import "github.com/jitsi-contrib/bridgepool/internal/bridge"

// Listener receives bridge lifecycle events. Handlers are invoked on the
// registry's single event worker (SPEC_FULL.md §4.2, §5) and may suspend
// without blocking the registry lock, but must not call back into the
// registry synchronously from within the handler or they will deadlock
// against their own event.
type Listener interface {
	BridgeAdded(r *bridge.Record)
	BridgeRemoved(r *bridge.Record)
}

// ListenerFuncs adapts two plain functions to the Listener interface. A nil
// field is treated as a no-op.
type ListenerFuncs struct {
	OnAdded   func(r *bridge.Record)
	OnRemoved func(r *bridge.Record)
}

func (l ListenerFuncs) BridgeAdded(r *bridge.Record) {
	if l.OnAdded != nil {
		l.OnAdded(r)
	}
}

func (l ListenerFuncs) BridgeRemoved(r *bridge.Record) {
	if l.OnRemoved != nil {
		l.OnRemoved(r)
	}
}

type eventKind int

const (
	eventAdded eventKind = iota
	eventRemoved
)

type event struct {
	kind   eventKind
	record *bridge.Record
}
