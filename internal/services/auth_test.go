package services

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/syncraft-backend/internal/pkg/ctxutil"
	"github.com/yungbote/syncraft-backend/internal/pkg/logger"
)

func newAuth(t *testing.T, cfg AuthConfig) AuthService {
	t.Helper()
	as, err := NewAuthService(logger.Nop(), cfg)
	require.NoError(t, err)
	return as
}

func TestAuthIssueAndVerify(t *testing.T) {
	as := newAuth(t, AuthConfig{Secret: "s3cret", Issuer: "syncraft"})
	assert.Equal(t, 24*time.Hour, as.GetAccessTTL())

	tok, err := as.IssueToken("alice", "Alice", time.Minute)
	require.NoError(t, err)

	ctx, err := as.SetContextFromToken(context.Background(), " "+tok+" ")
	require.NoError(t, err)
	rd := ctxutil.GetRequestData(ctx)
	require.NotNil(t, rd)
	assert.Equal(t, "alice", rd.UserID)
	assert.Equal(t, "Alice", rd.Username)
	assert.Equal(t, tok, rd.TokenString)
}

func TestAuthRejectsBadTokens(t *testing.T) {
	as := newAuth(t, AuthConfig{Secret: "s3cret", Issuer: "syncraft"})

	_, err := as.SetContextFromToken(context.Background(), "")
	assert.ErrorIs(t, err, ErrMissingToken)

	other := newAuth(t, AuthConfig{Secret: "other", Issuer: "syncraft"})
	forged, err := other.IssueToken("mallory", "", time.Minute)
	require.NoError(t, err)
	_, err = as.SetContextFromToken(context.Background(), forged)
	assert.ErrorIs(t, err, ErrInvalidToken)

	foreign := newAuth(t, AuthConfig{Secret: "s3cret", Issuer: "elsewhere"})
	wrongIss, err := foreign.IssueToken("alice", "", time.Minute)
	require.NoError(t, err)
	_, err = as.SetContextFromToken(context.Background(), wrongIss)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "alice",
			Issuer:    "syncraft",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})
	signed, err := expired.SignedString([]byte("s3cret"))
	require.NoError(t, err)
	_, err = as.SetContextFromToken(context.Background(), signed)
	assert.ErrorIs(t, err, ErrInvalidToken)

	noSubject := jwt.NewWithClaims(jwt.SigningMethodHS256, JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{Issuer: "syncraft", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	})
	signed, err = noSubject.SignedString([]byte("s3cret"))
	require.NoError(t, err)
	_, err = as.SetContextFromToken(context.Background(), signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAuthDisabledFallsBackToLocalUser(t *testing.T) {
	as := newAuth(t, AuthConfig{Disabled: true, LocalUser: "me"})
	assert.True(t, as.Disabled())

	for _, tok := range []string{"", "garbage"} {
		ctx, err := as.SetContextFromToken(context.Background(), tok)
		require.NoError(t, err)
		rd := ctxutil.GetRequestData(ctx)
		require.NotNil(t, rd)
		assert.Equal(t, "me", rd.UserID)
	}

	_, err := as.IssueToken("me", "", time.Minute)
	assert.Error(t, err, "no secret configured")
}

func TestAuthRequiresSecret(t *testing.T) {
	_, err := NewAuthService(logger.Nop(), AuthConfig{})
	assert.Error(t, err)

	as := newAuth(t, AuthConfig{Disabled: true})
	rd := ctxutil.GetRequestData(as.LocalContext(context.Background()))
	require.NotNil(t, rd)
	assert.Equal(t, LocalUserID, rd.UserID)
}
