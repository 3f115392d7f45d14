// Package transporttest provides a test double for transport.Requester.
package transporttest

import (
	"context"
	"sync"

	"github.com/jitsi-contrib/bridgepool/internal/transport"
)

// Fake is a test double implementing transport.Requester. Responses are
// queued per target with QueueReply/QueueTimeout; Request consumes them in
// order. A target with no queued response blocks until its context is
// cancelled, simulating a bridge that never answers.
type Fake struct {
	mu        sync.Mutex
	connected bool
	queues    map[string][]fakeResponse
	Calls     []FakeCall
}

// FakeCall records one Request invocation for assertions.
type FakeCall struct {
	Target string
	Req    transport.Stanza
}

type fakeResponse struct {
	reply   transport.Reply
	err     error
	timeout bool
}

// NewFake returns a Fake that reports Connected() == true.
func NewFake() *Fake {
	return &Fake{connected: true, queues: make(map[string][]fakeResponse)}
}

// SetConnected controls the value Connected() returns.
func (f *Fake) SetConnected(connected bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = connected
}

// QueueReply arranges for the next Request to target to return reply, nil.
func (f *Fake) QueueReply(target string, reply transport.Reply) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queues[target] = append(f.queues[target], fakeResponse{reply: reply})
}

// QueueTimeout arranges for the next Request to target to block until its
// context is done, then return the zero Reply and ctx.Err().
func (f *Fake) QueueTimeout(target string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queues[target] = append(f.queues[target], fakeResponse{timeout: true})
}

func (f *Fake) Connected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *Fake) Request(ctx context.Context, target string, req transport.Stanza) (transport.Reply, error) {
	f.mu.Lock()
	f.Calls = append(f.Calls, FakeCall{Target: target, Req: req})
	queue := f.queues[target]
	var next fakeResponse
	hasNext := len(queue) > 0
	if hasNext {
		next = queue[0]
		f.queues[target] = queue[1:]
	}
	f.mu.Unlock()

	if !hasNext || next.timeout {
		<-ctx.Done()
		return transport.Reply{}, ctx.Err()
	}
	return next.reply, next.err
}
