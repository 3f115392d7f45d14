package health

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jitsi-contrib/bridgepool/internal/bridge"
	"github.com/jitsi-contrib/bridgepool/internal/transport"
	"github.com/jitsi-contrib/bridgepool/internal/transport/transporttest"
)

type fakeSink struct {
	mu       sync.Mutex
	passed   []bridge.Address
	failed   []bridge.Address
	timedOut []bridge.Address
}

func (s *fakeSink) OnHealthPassed(a bridge.Address) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.passed = append(s.passed, a)
}

func (s *fakeSink) OnHealthFailed(a bridge.Address) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failed = append(s.failed, a)
}

func (s *fakeSink) OnHealthTimedOut(a bridge.Address) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timedOut = append(s.timedOut, a)
}

func (s *fakeSink) counts() (passed, failed, timedOut int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.passed), len(s.failed), len(s.timedOut)
}

func testRecord(addr string) *bridge.Record {
	return bridge.New(bridge.NewAddress(addr, ""), bridge.DefaultConfig())
}

func waitForCount(t *testing.T, get func() int, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if get() >= want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	require.GreaterOrEqual(t, get(), want)
}

func TestScheduler_PassedReplyReportsHealthPassed(t *testing.T) {
	fake := transporttest.NewFake()
	sink := &fakeSink{}
	s := New(Config{Interval: 5 * time.Millisecond, ReplyTimeout: time.Second}, fake, sink)

	rec := testRecord("b1.example")
	fake.QueueReply("b1.example", transport.Reply{Kind: transport.ReplyResult})

	s.BridgeAdded(rec)
	defer s.Shutdown()

	waitForCount(t, func() int { p, _, _ := sink.counts(); return p }, 1)
}

func TestScheduler_ErrorReplyWithServiceUnavailableReportsFailed(t *testing.T) {
	fake := transporttest.NewFake()
	sink := &fakeSink{}
	s := New(Config{Interval: 5 * time.Millisecond, ReplyTimeout: time.Second}, fake, sink)

	rec := testRecord("b1.example")
	fake.QueueReply("b1.example", transport.Reply{Kind: transport.ReplyError, Condition: transport.ConditionServiceUnavailable})

	s.BridgeAdded(rec)
	defer s.Shutdown()

	waitForCount(t, func() int { _, f, _ := sink.counts(); return f }, 1)
}

func TestScheduler_UnknownErrorConditionReportsNothing(t *testing.T) {
	fake := transporttest.NewFake()
	sink := &fakeSink{}
	s := New(Config{Interval: 5 * time.Millisecond, ReplyTimeout: time.Second}, fake, sink)

	rec := testRecord("b1.example")
	fake.QueueReply("b1.example", transport.Reply{Kind: transport.ReplyError, Condition: "item-not-found"})
	fake.QueueReply("b1.example", transport.Reply{Kind: transport.ReplyResult})

	s.BridgeAdded(rec)
	defer s.Shutdown()

	waitForCount(t, func() int { p, _, _ := sink.counts(); return p }, 1)
	_, failed, timedOut := sink.counts()
	assert.Equal(t, 0, failed)
	assert.Equal(t, 0, timedOut)
}

func TestScheduler_TimeoutAfterSecondChanceReportsTimedOut(t *testing.T) {
	fake := transporttest.NewFake()
	sink := &fakeSink{}
	s := New(Config{
		Interval:     5 * time.Millisecond,
		RetryDelay:   time.Millisecond,
		ReplyTimeout: 10 * time.Millisecond,
	}, fake, sink)

	rec := testRecord("b1.example")
	fake.QueueTimeout("b1.example")
	fake.QueueTimeout("b1.example")

	s.BridgeAdded(rec)
	defer s.Shutdown()

	waitForCount(t, func() int { _, _, to := sink.counts(); return to }, 1)
	passed, failed, _ := sink.counts()
	assert.Equal(t, 0, passed)
	assert.Equal(t, 0, failed)
}

func TestScheduler_SecondChanceRecoversAsPassed(t *testing.T) {
	fake := transporttest.NewFake()
	sink := &fakeSink{}
	s := New(Config{
		Interval:     5 * time.Millisecond,
		RetryDelay:   time.Millisecond,
		ReplyTimeout: 10 * time.Millisecond,
	}, fake, sink)

	rec := testRecord("b1.example")
	fake.QueueTimeout("b1.example")
	fake.QueueReply("b1.example", transport.Reply{Kind: transport.ReplyResult})

	s.BridgeAdded(rec)
	defer s.Shutdown()

	waitForCount(t, func() int { p, _, _ := sink.counts(); return p }, 1)
	_, _, timedOut := sink.counts()
	assert.Equal(t, 0, timedOut)
}

func TestScheduler_NotConnectedSkipsProbeSilently(t *testing.T) {
	fake := transporttest.NewFake()
	fake.SetConnected(false)
	sink := &fakeSink{}
	s := New(Config{Interval: 5 * time.Millisecond, ReplyTimeout: time.Second}, fake, sink)

	rec := testRecord("b1.example")
	s.BridgeAdded(rec)
	time.Sleep(30 * time.Millisecond)
	s.Shutdown()

	passed, failed, timedOut := sink.counts()
	assert.Equal(t, 0, passed)
	assert.Equal(t, 0, failed)
	assert.Equal(t, 0, timedOut)
	assert.Empty(t, fake.Calls)
}

func TestScheduler_DuplicateBridgeAddedIsNoOp(t *testing.T) {
	fake := transporttest.NewFake()
	sink := &fakeSink{}
	s := New(Config{Interval: time.Hour, ReplyTimeout: time.Second}, fake, sink)

	rec := testRecord("b1.example")
	s.BridgeAdded(rec)
	s.BridgeAdded(rec)
	defer s.Shutdown()

	s.mu.Lock()
	n := len(s.tasks)
	s.mu.Unlock()
	assert.Equal(t, 1, n)
}

func TestScheduler_BridgeRemovedCancelsTask(t *testing.T) {
	fake := transporttest.NewFake()
	sink := &fakeSink{}
	s := New(Config{Interval: time.Hour, ReplyTimeout: time.Second}, fake, sink)

	rec := testRecord("b1.example")
	s.BridgeAdded(rec)
	s.BridgeRemoved(rec)

	s.mu.Lock()
	n := len(s.tasks)
	s.mu.Unlock()
	assert.Equal(t, 0, n)
}
