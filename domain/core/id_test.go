package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewIDUniqueness tests that NewID generates unique identifiers
func TestNewIDUniqueness(t *testing.T) {
	const numIDs = 1000

	ids := make(map[ID]bool, numIDs)
	for i := 0; i < numIDs; i++ {
		id := NewID()
		require.False(t, id.IsEmpty(), "empty ID at iteration %d", i)
		require.False(t, ids[id], "duplicate ID %s", id)
		ids[id] = true
	}
}

func TestNewAnalysisID(t *testing.T) {
	a, b := NewAnalysisID(), NewAnalysisID()
	assert.NotEqual(t, a, b)
	assert.Len(t, a.String(), 36)
}

func TestParseNCTID(t *testing.T) {
	id, err := ParseNCTID("  nct01234567 ")
	require.NoError(t, err)
	assert.Equal(t, NCTID("NCT01234567"), id)

	_, err = ParseNCTID("12345")
	assert.ErrorIs(t, err, ErrInvalidNCTID)

	_, err = ParseNCTID("")
	assert.ErrorIs(t, err, ErrInvalidNCTID)
}

func TestNotFoundError(t *testing.T) {
	err := NewNotFoundError("trial", "NCT1")
	assert.True(t, IsNotFoundError(err))
	assert.True(t, IsNotFoundError(ErrTrialNotFound))
	assert.False(t, IsNotFoundError(ErrInvalidNCTID))
}
