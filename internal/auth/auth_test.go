package auth

import (
	"crypto/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sparkapp/spark-server/internal/domain"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	require.NoError(t, err)
	assert.Contains(t, hash, "$argon2id$")

	ok, err := VerifyPassword(hash, "correct horse battery staple")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = VerifyPassword(hash, "wrong password")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyPassword_MalformedHash(t *testing.T) {
	ok, err := VerifyPassword("not-a-hash", "anything")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHashPassword_Empty(t *testing.T) {
	_, err := HashPassword("")
	assert.Error(t, err)
}

func newTestTokenService(t *testing.T, duration time.Duration) *TokenService {
	t.Helper()
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)

	svc, err := NewTokenService(key, duration)
	require.NoError(t, err)
	return svc
}

func TestTokenRoundTrip(t *testing.T) {
	svc := newTestTokenService(t, 15*time.Minute)
	user := &domain.User{ID: "user-1", Email: "sam@example.com"}

	token, err := svc.GenerateAccessToken(user)
	require.NoError(t, err)
	assert.Contains(t, token, "v4.local.")

	claims, err := svc.VerifyAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "sam@example.com", claims.Email)
	assert.Equal(t, "user-1", claims.Subject)
	assert.NotEmpty(t, claims.TokenID)
}

func TestVerifyAccessToken_Expired(t *testing.T) {
	svc := newTestTokenService(t, -time.Minute)

	token, err := svc.GenerateAccessToken(&domain.User{ID: "user-1", Email: "sam@example.com"})
	require.NoError(t, err)

	_, err = svc.VerifyAccessToken(token)
	assert.Error(t, err)
}

func TestVerifyAccessToken_WrongKey(t *testing.T) {
	issuer := newTestTokenService(t, time.Minute)
	verifier := newTestTokenService(t, time.Minute)

	token, err := issuer.GenerateAccessToken(&domain.User{ID: "user-1", Email: "sam@example.com"})
	require.NoError(t, err)

	_, err = verifier.VerifyAccessToken(token)
	assert.Error(t, err)
}

func TestLoadOrGenerateKey(t *testing.T) {
	dir := t.TempDir()

	first, err := LoadOrGenerateKey(dir)
	require.NoError(t, err)
	require.Len(t, first, 32)

	// Stable across restarts.
	second, err := LoadOrGenerateKey(dir)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
