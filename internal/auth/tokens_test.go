package auth

import (
	"path/filepath"
	"testing"

	"github.com/paravault/paravault/internal/services/user"
	"github.com/paravault/paravault/pkg/keyring"
	"github.com/paravault/paravault/pkg/logger"
	"github.com/paravault/paravault/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSecretManager(t *testing.T) *JWTSecretManager {
	t.Helper()
	km := keyring.NewFileOnlyKeyringManager(filepath.Join(t.TempDir(), "keyring.json"), "test-master-password")
	return NewJWTSecretManager(km)
}

func TestSecretIsGeneratedOnceAndPersisted(t *testing.T) {
	km := keyring.NewFileOnlyKeyringManager(filepath.Join(t.TempDir(), "keyring.json"), "test-master-password")

	first := NewJWTSecretManager(km)
	secret1, err := first.GetSecret()
	require.NoError(t, err)
	assert.Len(t, secret1, jwtSecretLength)

	// A fresh manager over the same keyring must load the same secret.
	second := NewJWTSecretManager(km)
	secret2, err := second.GetSecret()
	require.NoError(t, err)
	assert.Equal(t, secret1, secret2)
}

func TestRotateInvalidatesOldSecret(t *testing.T) {
	sm := testSecretManager(t)

	before, err := sm.GetSecret()
	require.NoError(t, err)

	after, err := sm.RotateSecret()
	require.NoError(t, err)
	assert.NotEqual(t, before, after)

	current, err := sm.GetSecret()
	require.NoError(t, err)
	assert.Equal(t, after, current)
}

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager(nil, testSecretManager(t), nil, logger.New("test", "test"))

	u := &user.User{
		ID:      "user-1",
		Email:   "ada@example.com",
		Role:    models.RoleAdmin,
		Enabled: true,
	}

	pair, err := tm.generateTokens(u, "session-1")
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
	assert.NotEqual(t, pair.AccessToken, pair.RefreshToken)

	claims, err := tm.parseToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "ada@example.com", claims.Email)
	assert.Equal(t, models.RoleAdmin, claims.Role)
	assert.Equal(t, "session-1", claims.SessionID)
	assert.Equal(t, "access", claims.TokenType)

	refreshClaims, err := tm.parseToken(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "refresh", refreshClaims.TokenType)
}

func TestTokenSignedWithDifferentSecretIsRejected(t *testing.T) {
	issuer := NewTokenManager(nil, testSecretManager(t), nil, logger.New("test", "test"))
	verifier := NewTokenManager(nil, testSecretManager(t), nil, logger.New("test", "test"))

	u := &user.User{ID: "user-1", Email: "ada@example.com", Role: models.RoleMember}
	pair, err := issuer.generateTokens(u, "session-1")
	require.NoError(t, err)

	_, err = verifier.parseToken(pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestGarbageTokenIsRejected(t *testing.T) {
	tm := NewTokenManager(nil, testSecretManager(t), nil, logger.New("test", "test"))

	_, err := tm.parseToken("not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
