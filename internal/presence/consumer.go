// Package presence adapts bridge presence notifications — however they are
// actually delivered (an XMPP MUC listener, in a full focus deployment) —
// onto registry calls (SPEC_FULL.md §4.6). It owns no transport code
// itself; actual brewery room subscription is out of this repository's
// scope.
package presence

import "github.com/jitsi-contrib/bridgepool/internal/bridge"

// Registry is the subset of registry.Registry the consumer depends on.
type Registry interface {
	AddOrUpdate(address bridge.Address, stats bridge.Stats) *bridge.Record
	Remove(address bridge.Address)
}

// PresenceSource is implemented by whatever actually watches the brewery
// room. Consumer only needs to be told what changed.
type PresenceSource interface {
	OnInstanceStatusChanged(address bridge.Address, stats bridge.Stats)
	OnInstanceOffline(address bridge.Address)
}

// Consumer forwards presence notifications directly onto a Registry. It
// implements PresenceSource so a real presence watcher can hold it as its
// sink without depending on the registry package directly.
type Consumer struct {
	registry Registry
}

// New builds a Consumer over registry.
func New(registry Registry) *Consumer {
	return &Consumer{registry: registry}
}

// OnInstanceStatusChanged forwards to registry.AddOrUpdate, creating the
// bridge on first sight or refreshing its stats thereafter.
func (c *Consumer) OnInstanceStatusChanged(address bridge.Address, stats bridge.Stats) {
	c.registry.AddOrUpdate(address, stats)
}

// OnInstanceOffline forwards to registry.Remove.
func (c *Consumer) OnInstanceOffline(address bridge.Address) {
	c.registry.Remove(address)
}
