package token

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "bloodlink/pkg/domain-errors"
)

func TestGenerateAndValidate(t *testing.T) {
	svc := NewService("test-signing-key", "bloodlink-test")
	actorID := uuid.New()

	signed, err := svc.Generate(actorID, ActorDonor, time.Hour)
	require.NoError(t, err)

	claims, err := svc.Validate(signed)
	require.NoError(t, err)
	assert.Equal(t, actorID.String(), claims.ActorID)
	assert.Equal(t, ActorDonor, claims.ActorType)
}

func TestValidateRejectsExpired(t *testing.T) {
	svc := NewService("test-signing-key", "bloodlink-test")

	signed, err := svc.Generate(uuid.New(), ActorHospital, -time.Minute)
	require.NoError(t, err)

	_, err = svc.Validate(signed)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestValidateRejectsWrongKey(t *testing.T) {
	issuer := NewService("key-one", "bloodlink-test")
	verifier := NewService("key-two", "bloodlink-test")

	signed, err := issuer.Generate(uuid.New(), ActorDonor, time.Hour)
	require.NoError(t, err)

	_, err = verifier.Validate(signed)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}
