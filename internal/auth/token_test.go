package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignAndVerifyRoundTrip(t *testing.T) {
	svc := NewTokenService("test-secret")

	token, err := svc.Sign(Identity{UserID: 42, Role: "lawyer"}, time.Minute)
	require.NoError(t, err)

	identity, err := svc.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, 42, identity.UserID)
	assert.Equal(t, "lawyer", identity.Role)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	svc := NewTokenService("test-secret")

	_, err := svc.Verify("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	token, err := NewTokenService("secret-a").Sign(Identity{UserID: 1, Role: "client"}, time.Minute)
	require.NoError(t, err)

	_, err = NewTokenService("secret-b").Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	svc := NewTokenService("test-secret")

	token, err := svc.Sign(Identity{UserID: 1, Role: "client"}, -time.Minute)
	require.NoError(t, err)

	_, err = svc.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsMissingID(t *testing.T) {
	svc := NewTokenService("test-secret")

	token, err := svc.Sign(Identity{Role: "client"}, time.Minute)
	require.NoError(t, err)

	_, err = svc.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
