package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Standard attribute keys for bridge-pool spans.
const (
	AttrBridgeAddress     = "bridge.address"
	AttrBridgeRegion      = "bridge.region"
	AttrBridgeStress      = "bridge.stress"
	AttrConferenceID      = "conference.id"
	AttrStrategy          = "selection.strategy"
	AttrParticipantRegion = "participant.region"
	AttrCandidateCount    = "selection.candidate_count"
	AttrHealthOutcome     = "health.outcome"
)

// BridgeAttributes returns the attributes describing a single bridge at the
// moment a span touches it.
func BridgeAttributes(address, region string, stress float64) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrBridgeAddress, address),
		attribute.String(AttrBridgeRegion, region),
		attribute.Float64(AttrBridgeStress, stress),
	}
}

// SelectionAttributes returns the attributes describing one SelectBridge
// call: the conference it was for, the strategy consulted, the participant's
// region, and how many candidates survived the registry filters.
func SelectionAttributes(conferenceID, strategy, participantRegion string, candidateCount int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrConferenceID, conferenceID),
		attribute.String(AttrStrategy, strategy),
		attribute.String(AttrParticipantRegion, participantRegion),
		attribute.Int(AttrCandidateCount, candidateCount),
	}
}

// HealthProbeAttributes returns the attributes describing one health probe
// attempt against a bridge.
func HealthProbeAttributes(address, outcome string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrBridgeAddress, address),
		attribute.String(AttrHealthOutcome, outcome),
	}
}
