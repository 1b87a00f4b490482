package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestTokensRoundTrip(t *testing.T) {
	tokens := NewTokens("secret", time.Hour)

	signed, expiresAt, err := tokens.Issue(42)
	require.NoError(t, err)
	require.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, time.Minute)

	userID, err := tokens.Parse(signed)
	require.NoError(t, err)
	require.Equal(t, uint(42), userID)
}

func TestTokensRejectForeignOrExpired(t *testing.T) {
	tokens := NewTokens("secret", time.Hour)

	other := NewTokens("other", time.Hour)
	signed, _, err := other.Issue(1)
	require.NoError(t, err)
	_, err = tokens.Parse(signed)
	require.ErrorIs(t, err, ErrInvalidToken)

	tokens.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	stale, _, err := tokens.Issue(1)
	require.NoError(t, err)
	tokens.now = time.Now
	_, err = tokens.Parse(stale)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokensAcceptNumericUserIDClaim(t *testing.T) {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"user_id": 7})
	signed, err := tok.SignedString([]byte("secret"))
	require.NoError(t, err)

	userID, err := NewTokens("secret", time.Hour).Parse(signed)
	require.NoError(t, err)
	require.Equal(t, uint(7), userID)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret!")
	require.NoError(t, err)
	require.NotEqual(t, "s3cret!", hash)

	require.NoError(t, CheckPassword(hash, "s3cret!"))
	require.ErrorIs(t, CheckPassword(hash, "wrong"), ErrInvalidCredentials)
	require.ErrorIs(t, CheckPassword("", "s3cret!"), ErrInvalidCredentials)
}

func TestSessionContext(t *testing.T) {
	_, ok := SessionFromContext(context.Background())
	require.False(t, ok)

	ctx := WithSession(context.Background(), Session{UserID: 3, Role: "teacher"})
	session, ok := SessionFromContext(ctx)
	require.True(t, ok)
	require.True(t, session.HasRole("admin", "Teacher"))
	require.False(t, session.HasRole("student"))
}
