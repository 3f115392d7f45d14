// Package bridge models a single media-relay bridge: its identity, its most
// recently reported status, and the derived load score the selector cascade
// sorts on.
package bridge

import (
	"sync"
	"time"
)

// Record is the per-bridge state the registry keeps. All operations are
// infallible field transformations; none of them return an error (SPEC_FULL.md
// §4.1).
type Record struct {
	address Address
	cfg     Config
	now     func() time.Time

	mu sync.RWMutex

	region  string
	relayID string
	version string
	octoVer string
	stats   Stats

	usePacketRateForStress bool
	lastReportedStress     float64
	lastReportedPacketRate int64
	avgParticipantStress   float64
	haveAvgParticipantStress bool

	shutdownInProgress bool

	operational      bool
	failureTimestamp time.Time

	rampup *RateTracker
}

// New creates a Record for address with default (not-yet-reported) fields.
// The record starts operational, with no stats and the packet-rate stress
// formula selected until stress_level is first reported.
func New(address Address, cfg Config) *Record {
	return newRecord(address, cfg, time.Now)
}

func newRecord(address Address, cfg Config, now func() time.Time) *Record {
	return &Record{
		address:                address,
		cfg:                    cfg,
		now:                    now,
		usePacketRateForStress: true,
		operational:            true,
		rampup:                 NewRateTracker(cfg.ParticipantRampupInterval),
	}
}

// Address returns the bridge's registry key.
func (r *Record) Address() Address { return r.address }

// SetStats merges a new status snapshot into the record. Contracts (SPEC_FULL
// §4.1):
//   - absent fields never clear previously recorded ones;
//   - a single field's parse failure never aborts the rest of the merge;
//   - once stress_level is reported, usePacketRateForStress flips to false and
//     never flips back;
//   - shutdown_in_progress=false clears a previously-set shutdown flag (the
//     decided Open Question from SPEC_FULL.md §9).
func (r *Record) SetStats(s Stats) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stats = s

	if v, ok := s.Region(); ok {
		r.region = v
	}
	if v, ok := s.RelayID(); ok {
		r.relayID = v
	}
	if v, ok := s.Version(); ok {
		r.version = v
	}
	if v, ok := s.OctoVersion(); ok {
		r.octoVer = v
	}
	if v, ok := s.AverageParticipantStress(); ok {
		r.avgParticipantStress = v
		r.haveAvgParticipantStress = true
	}
	if rate, ok := packetRateSum(s); ok {
		r.lastReportedPacketRate = rate
	}
	if v, ok := s.StressLevel(); ok {
		r.lastReportedStress = v
		r.usePacketRateForStress = false
	}
	if v, ok := s.ShutdownInProgress(); ok {
		r.shutdownInProgress = v
	}
}

func packetRateSum(s Stats) (int64, bool) {
	down, downOK := s.PacketRateDownload()
	up, upOK := s.PacketRateUpload()
	if !downOK && !upOK {
		return 0, false
	}
	return down + up, true
}

// Region returns the bridge's last-reported region, or "" if unknown.
func (r *Record) Region() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.region
}

// RelayID returns the bridge's last-reported relay id, or "" if it has none
// (and therefore cannot participate in a multi-bridge conference).
func (r *Record) RelayID() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.relayID
}

// HasRelay reports whether the bridge can participate in a multi-bridge
// (octo) conference.
func (r *Record) HasRelay() bool {
	return r.RelayID() != ""
}

// Version returns the bridge's last-reported software version.
func (r *Record) Version() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.version
}

// IsInGracefulShutdown reports whether the bridge last reported
// shutdown_in_progress=true.
func (r *Record) IsInGracefulShutdown() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.shutdownInProgress
}

// EndpointAdded records that the selector just placed one more participant on
// this bridge. Called immediately after a strategy picks this record.
func (r *Record) EndpointAdded() {
	r.rampup.Add(r.clock())
}

// recentEndpointCount is the current accumulated count from the rate
// tracker's sliding window.
func (r *Record) recentEndpointCount() int {
	n := r.rampup.Count(r.clock())
	if n < 0 {
		return 0
	}
	return n
}

// GetStress computes the current derived stress (SPEC_FULL.md §3). Values
// above 1.0 are intentionally allowed, to preserve ordering when every
// candidate is saturated.
func (r *Record) GetStress() float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	recent := float64(r.recentEndpointCount())

	if r.usePacketRateForStress {
		maxRate := r.cfg.MaxBridgePacketRatePps
		if maxRate <= 0 {
			maxRate = 1
		}
		return float64(r.lastReportedPacketRate+int64(recent*float64(r.cfg.AverageParticipantPacketRatePps))) / float64(maxRate)
	}

	avg := r.cfg.AverageParticipantStress
	if r.haveAvgParticipantStress {
		avg = r.avgParticipantStress
	}
	return r.lastReportedStress + recent*avg
}

// IsOverloaded reports whether the current stress is at or above the
// configured threshold.
func (r *Record) IsOverloaded() bool {
	return r.GetStress() >= r.cfg.StressThreshold
}

// SetIsOperational writes the operational flag. A true->false transition
// records the failure timestamp used by the reset lockout in IsOperational.
func (r *Record) SetIsOperational(flag bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.operational && !flag {
		r.failureTimestamp = r.now()
	}
	r.operational = flag
}

// IsOperational combines the stored flag with the failure-reset lockout: a
// bridge that flipped to non-operational stays reported non-operational
// until config.FailureResetThreshold has elapsed since the flip, even if the
// flag has since been set back to true. This intentionally also masks
// SetIsOperational(true) calls made outside the health path (SPEC_FULL.md §9
// Open Questions) — callers outside internal/health should expect the delay.
func (r *Record) IsOperational() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if !r.operational {
		return false
	}
	if r.cfg.FailureResetThreshold <= 0 {
		return true
	}
	if r.failureTimestamp.IsZero() {
		return true
	}
	return r.now().Sub(r.failureTimestamp) >= r.cfg.FailureResetThreshold
}

func (r *Record) clock() time.Time {
	if r.now != nil {
		return r.now()
	}
	return time.Now()
}

// tier is the primary sort key used by Compare: lower sorts first.
func (r *Record) tier() int {
	switch {
	case !r.IsOperational():
		return 3
	case r.IsInGracefulShutdown():
		return 2
	default:
		return 1
	}
}

// Compare orders two records the way the registry snapshot is sorted:
// operational-and-not-shutdown, then operational-and-shutdown, then
// non-operational; within a tier, ascending stress; ties break on address so
// the ordering is a deterministic total order (SPEC_FULL.md §3, §9).
func Compare(a, b *Record) int {
	at, bt := a.tier(), b.tier()
	if at != bt {
		return at - bt
	}

	as, bs := a.GetStress(), b.GetStress()
	switch {
	case as < bs:
		return -1
	case as > bs:
		return 1
	}

	switch {
	case a.address < b.address:
		return -1
	case a.address > b.address:
		return 1
	default:
		return 0
	}
}
