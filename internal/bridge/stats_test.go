package bridge

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStats_AccessorsNeverPanicOnAbsenceOrBadValue(t *testing.T) {
	s := Stats{"stress_level": "not-a-float", "relay_id": "r1"}

	_, ok := s.StressLevel()
	assert.False(t, ok)

	v, ok := s.RelayID()
	assert.True(t, ok)
	assert.Equal(t, "r1", v)

	_, ok = s.Region()
	assert.False(t, ok)

	_, ok = s.ShutdownInProgress()
	assert.False(t, ok)
}

func TestStats_ShutdownInProgressParsesBool(t *testing.T) {
	s := Stats{"shutdown_in_progress": "true"}
	v, ok := s.ShutdownInProgress()
	assert.True(t, ok)
	assert.True(t, v)
}
