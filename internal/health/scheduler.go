// Package health runs periodic health probes against every bridge the
// registry knows about and reports the outcome back onto it
// (SPEC_FULL.md §4.3).
package health

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jitsi-contrib/bridgepool/internal/bridge"
	"github.com/jitsi-contrib/bridgepool/internal/transport"
	"github.com/jitsi-contrib/bridgepool/pkg/logger"
	"github.com/jitsi-contrib/bridgepool/pkg/metrics"
)

// Sink is the subset of registry.Registry the scheduler reports outcomes to.
// Kept as an interface so the scheduler can be unit-tested without a real
// Registry.
type Sink interface {
	OnHealthPassed(address bridge.Address)
	OnHealthFailed(address bridge.Address)
	OnHealthTimedOut(address bridge.Address)
}

// Config controls probe cadence and retry behaviour.
type Config struct {
	// Interval is the fixed period between probes for a given bridge.
	Interval time.Duration
	// RetryDelay, if > 0, is the wait before the second-chance retry when
	// a probe times out. Zero disables the second chance.
	RetryDelay time.Duration
	// ReplyTimeout bounds how long a single probe waits for a reply.
	ReplyTimeout time.Duration
}

// DefaultConfig mirrors the distilled spec's documented defaults.
func DefaultConfig() Config {
	return Config{
		Interval:     10 * time.Second,
		RetryDelay:   5 * time.Second,
		ReplyTimeout: 5 * time.Second,
	}
}

// Scheduler owns one periodic probe task per registered bridge address. It
// implements registry.Listener so a Registry can drive it directly via
// Subscribe.
type Scheduler struct {
	cfg       Config
	requester transport.Requester
	sink      Sink
	now       func() time.Time

	mu    sync.Mutex
	tasks map[bridge.Address]*task
}

type task struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// New builds a Scheduler that probes through requester and reports outcomes
// to sink.
func New(cfg Config, requester transport.Requester, sink Sink) *Scheduler {
	return newScheduler(cfg, requester, sink, time.Now)
}

func newScheduler(cfg Config, requester transport.Requester, sink Sink, now func() time.Time) *Scheduler {
	return &Scheduler{
		cfg:       cfg,
		requester: requester,
		sink:      sink,
		now:       now,
		tasks:     make(map[bridge.Address]*task),
	}
}

// BridgeAdded schedules a periodic probe task for rec.Address(). A duplicate
// call for an address already scheduled is a no-op (SPEC_FULL.md §4.3).
func (s *Scheduler) BridgeAdded(rec *bridge.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tasks[rec.Address()]; exists {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	t := &task{cancel: cancel, done: make(chan struct{})}
	s.tasks[rec.Address()] = t

	go s.run(ctx, t, rec)
}

// BridgeRemoved cancels the task for rec.Address(), discarding any pending
// second-chance retry, and waits for the in-flight probe to observe
// cancellation.
func (s *Scheduler) BridgeRemoved(rec *bridge.Record) {
	s.mu.Lock()
	t, ok := s.tasks[rec.Address()]
	if ok {
		delete(s.tasks, rec.Address())
	}
	s.mu.Unlock()

	if !ok {
		return
	}
	t.cancel()
	<-t.done
}

// Shutdown cancels every scheduled task and waits for in-flight probes to
// observe cancellation.
func (s *Scheduler) Shutdown() {
	s.mu.Lock()
	tasks := make([]*task, 0, len(s.tasks))
	for addr, t := range s.tasks {
		tasks = append(tasks, t)
		delete(s.tasks, addr)
	}
	s.mu.Unlock()

	for _, t := range tasks {
		t.cancel()
	}
	for _, t := range tasks {
		<-t.done
	}
}

func (s *Scheduler) run(ctx context.Context, t *task, rec *bridge.Record) {
	defer close(t.done)

	timer := time.NewTimer(s.cfg.Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			s.probe(ctx, rec)
			timer.Reset(s.cfg.Interval)
		}
	}
}

// outcome classifies one probe execution (SPEC_FULL.md §4.3 step 5).
type outcome int

const (
	outcomeNone outcome = iota
	outcomePassed
	outcomeFailed
	outcomeTimedOut
)

func (o outcome) String() string {
	switch o {
	case outcomePassed:
		return "passed"
	case outcomeFailed:
		return "failed"
	case outcomeTimedOut:
		return "timed_out"
	default:
		return "none"
	}
}

func (s *Scheduler) probe(ctx context.Context, rec *bridge.Record) {
	if !s.requester.Connected() {
		return
	}
	if ctx.Err() != nil {
		return
	}

	start := s.clock()
	reply, err := s.send(ctx, rec)
	if errors.Is(err, context.DeadlineExceeded) && s.cfg.RetryDelay > 0 {
		if !sleepOrCancel(ctx, s.cfg.RetryDelay) {
			return
		}
		reply, err = s.send(ctx, rec)
	}
	if ctx.Err() != nil {
		return
	}
	if err != nil && !errors.Is(err, context.DeadlineExceeded) {
		logger.WithBridge(rec.Address().String()).Warn("health probe transport error, retrying next tick", "error", err)
	}

	result := s.classify(reply, err)
	metrics.Get().RecordHealthProbe(result.String(), s.clock().Sub(start))

	switch result {
	case outcomePassed:
		s.sink.OnHealthPassed(rec.Address())
	case outcomeFailed:
		s.sink.OnHealthFailed(rec.Address())
	case outcomeTimedOut:
		s.sink.OnHealthTimedOut(rec.Address())
	case outcomeNone:
	}
}

func (s *Scheduler) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}

func (s *Scheduler) send(ctx context.Context, rec *bridge.Record) (transport.Reply, error) {
	reqCtx, cancel := context.WithTimeout(ctx, s.cfg.ReplyTimeout)
	defer cancel()

	return s.requester.Request(reqCtx, rec.Address().String(), transport.NewStanza(transport.HealthCheckKind))
}

func (s *Scheduler) classify(reply transport.Reply, err error) outcome {
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return outcomeTimedOut
		}
		return outcomeNone
	}
	if reply.Kind != transport.ReplyError {
		return outcomePassed
	}
	switch reply.Condition {
	case transport.ConditionInternalServerError, transport.ConditionServiceUnavailable:
		return outcomeFailed
	default:
		return outcomeNone
	}
}

// sleepOrCancel waits for d or ctx cancellation, whichever comes first. It
// returns false if ctx was cancelled first.
func sleepOrCancel(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
