package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "bloodlink/pkg/domain-errors"
)

func TestParseBloodGroup(t *testing.T) {
	t.Run("accepts all eight labels", func(t *testing.T) {
		for _, label := range []string{"A+", "A-", "B+", "B-", "AB+", "AB-", "O+", "O-"} {
			g, err := ParseBloodGroup(label)
			require.NoError(t, err)
			assert.Equal(t, label, g.String())
		}
	})

	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseBloodGroup("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects unknown labels", func(t *testing.T) {
		for _, label := range []string{"C+", "ab+", "O", "O --", "0-"} {
			_, err := ParseBloodGroup(label)
			require.Error(t, err, "label %q", label)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
		}
	})
}
