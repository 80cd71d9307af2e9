package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestTokenManager_RoundTrip(t *testing.T) {
	tm := NewTokenManager(testSecret, "pantry-api", time.Hour)

	raw, issued, err := tm.GenerateToken("user-1", "a@b.com")
	require.NoError(t, err)
	require.NotEmpty(t, raw)
	assert.Equal(t, "user-1", issued.Subject)

	claims, err := tm.ValidateToken(raw)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "a@b.com", claims.Email)
	assert.False(t, claims.Invalid)
}

func TestTokenManager_Expired(t *testing.T) {
	tm := NewTokenManager(testSecret, "pantry-api", time.Minute)
	past := time.Now().Add(-2 * time.Hour)
	tm.now = func() time.Time { return past }

	raw, _, err := tm.GenerateToken("user-1", "a@b.com")
	require.NoError(t, err)

	tm.now = time.Now
	_, err = tm.ValidateToken(raw)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestTokenManager_WrongSecret(t *testing.T) {
	issuer := NewTokenManager(testSecret, "pantry-api", time.Hour)
	other := NewTokenManager("another-secret-another-secret-xx", "pantry-api", time.Hour)

	raw, _, err := issuer.GenerateToken("user-1", "a@b.com")
	require.NoError(t, err)

	_, err = other.ValidateToken(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenManager_WrongIssuer(t *testing.T) {
	issuer := NewTokenManager(testSecret, "someone-else", time.Hour)
	verifier := NewTokenManager(testSecret, "pantry-api", time.Hour)

	raw, _, err := issuer.GenerateToken("user-1", "a@b.com")
	require.NoError(t, err)

	_, err = verifier.ValidateToken(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenManager_Garbage(t *testing.T) {
	tm := NewTokenManager(testSecret, "pantry-api", time.Hour)
	_, err := tm.ValidateToken("not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenManager_ExpirationMatchesTTL(t *testing.T) {
	tm := NewTokenManager(testSecret, "pantry-api", 720*time.Hour)
	assert.Equal(t, 720*time.Hour, tm.GetExpirationTime())

	_, issued, err := tm.GenerateToken("user-1", "a@b.com")
	require.NoError(t, err)
	assert.WithinDuration(t, issued.IssuedAt.Add(tm.GetExpirationTime()), issued.ExpiresAt.Time, time.Second)
}
