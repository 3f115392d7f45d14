package bridge

import "time"

// Config carries the subset of the configuration surface that bridge-record
// math depends on. It is passed in explicitly rather than read from a global,
// per the dependency-injection redesign in SPEC_FULL.md §9.
type Config struct {
	// AverageParticipantStress is the default per-participant stress
	// contribution used until a bridge reports its own value.
	AverageParticipantStress float64

	// AverageParticipantPacketRatePps estimates the packet rate a single
	// additional participant adds, used in the packet-rate stress formula.
	AverageParticipantPacketRatePps int64

	// MaxBridgePacketRatePps normalises the packet-rate stress formula into
	// roughly [0, 1].
	MaxBridgePacketRatePps int64

	// StressThreshold is the stress value at and above which a bridge is
	// considered overloaded.
	StressThreshold float64

	// FailureResetThreshold is how long a bridge stays forced non-operational
	// after an operational->false transition, regardless of the stored flag.
	FailureResetThreshold time.Duration

	// ParticipantRampupInterval is the sliding window width for the
	// endpoint rate tracker.
	ParticipantRampupInterval time.Duration
}

// DefaultConfig returns the documented defaults from the configuration
// surface (SPEC_FULL.md §6).
func DefaultConfig() Config {
	return Config{
		AverageParticipantStress:        0.01,
		AverageParticipantPacketRatePps: 500,
		MaxBridgePacketRatePps:          10_000_000,
		StressThreshold:                 0.8,
		FailureResetThreshold:           time.Minute,
		ParticipantRampupInterval:       20 * time.Second,
	}
}
