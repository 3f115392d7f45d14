package bridge

import "strconv"

// Canonical stat names reported by a bridge in its presence status extension.
const (
	StatPacketRateDownload       = "packet_rate_download"
	StatPacketRateUpload         = "packet_rate_upload"
	StatStressLevel              = "stress_level"
	StatAverageParticipantStress = "average_participant_stress"
	StatRegion                   = "region"
	StatRelayID                  = "relay_id"
	StatVersion                  = "version"
	StatOctoVersion              = "octo_version"
	StatShutdownInProgress       = "shutdown_in_progress"
)

// Stats is the raw, free-form snapshot a bridge publishes. Values are always
// strings on the wire; Stats never panics on absence or on an unparseable
// value. Every accessor returns (value, ok) so a missing or malformed field
// never aborts the merge in Record.SetStats.
type Stats map[string]string

func (s Stats) str(key string) (string, bool) {
	v, ok := s[key]
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

func (s Stats) float(key string) (float64, bool) {
	v, ok := s.str(key)
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func (s Stats) int(key string) (int64, bool) {
	v, ok := s.str(key)
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func (s Stats) bool(key string) (bool, bool) {
	v, ok := s.str(key)
	if !ok {
		return false, false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, false
	}
	return b, true
}

// Region returns the region tag, if reported.
func (s Stats) Region() (string, bool) { return s.str(StatRegion) }

// RelayID returns the relay identifier, if reported.
func (s Stats) RelayID() (string, bool) { return s.str(StatRelayID) }

// Version returns the reported software version, if present.
func (s Stats) Version() (string, bool) { return s.str(StatVersion) }

// OctoVersion returns the reported octo protocol version, if present.
func (s Stats) OctoVersion() (string, bool) { return s.str(StatOctoVersion) }

// StressLevel returns the bridge-reported stress value, if present and parseable.
func (s Stats) StressLevel() (float64, bool) { return s.float(StatStressLevel) }

// AverageParticipantStress returns the bridge-reported average per-participant
// stress contribution, if present and parseable.
func (s Stats) AverageParticipantStress() (float64, bool) {
	return s.float(StatAverageParticipantStress)
}

// PacketRateDownload returns the reported downlink packet rate in pps.
func (s Stats) PacketRateDownload() (int64, bool) { return s.int(StatPacketRateDownload) }

// PacketRateUpload returns the reported uplink packet rate in pps.
func (s Stats) PacketRateUpload() (int64, bool) { return s.int(StatPacketRateUpload) }

// ShutdownInProgress returns the reported graceful-shutdown flag.
func (s Stats) ShutdownInProgress() (bool, bool) { return s.bool(StatShutdownInProgress) }
