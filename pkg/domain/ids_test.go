package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "bloodlink/pkg/domain-errors"
)

// TestParseID_Invariants validates the parsing invariant:
// IDs must be valid, non-empty, non-nil UUIDs.
func TestParseID_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseDonorID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseRequestID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParseHospitalID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		valid := uuid.New()
		donorID, err := ParseDonorID(valid.String())
		require.NoError(t, err)
		assert.Equal(t, DonorID(valid), donorID)
		assert.False(t, donorID.IsNil())
	})
}

// TestTypeDistinction documents that typed IDs prevent cross-entity
// assignment at compile time; a DonorID cannot be used as a RequestID.
func TestTypeDistinction(t *testing.T) {
	donorID := NewDonorID()
	requestID := NewRequestID()

	// var _ DonorID = requestID // compile error if uncommented
	assert.NotEqual(t, uuid.UUID(donorID), uuid.UUID(requestID))
}
