package integration

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paravault/paravault/pkg/encryption"
	"github.com/paravault/paravault/pkg/keyring"
	"github.com/paravault/paravault/pkg/logger"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	km := keyring.NewFileOnlyKeyringManager(filepath.Join(t.TempDir(), "keyring.json"), "test-master-password")
	cipher := encryption.NewCredentialCipherWithManager(km)
	return NewService(nil, cipher, logger.New("test", "test"))
}

func TestCredentialSecretsRoundTrip(t *testing.T) {
	s := newTestService(t)

	credentials := `{"api_key":"sk-live-e5d1","workspace":"acme"}`
	refreshToken := "rt-9b7f"

	encrypted, encryptedRefresh, err := s.encryptSecrets(credentials, refreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, credentials, encrypted)
	assert.NotEqual(t, refreshToken, encryptedRefresh)

	gotCredentials, gotRefresh, err := s.decryptSecrets(encrypted, encryptedRefresh)
	require.NoError(t, err)
	assert.Equal(t, credentials, gotCredentials)
	assert.Equal(t, refreshToken, gotRefresh)
}

func TestCredentialSecretsWithoutRefreshToken(t *testing.T) {
	s := newTestService(t)

	encrypted, encryptedRefresh, err := s.encryptSecrets(`{"token":"abc"}`, "")
	require.NoError(t, err)
	assert.Empty(t, encryptedRefresh)

	gotCredentials, gotRefresh, err := s.decryptSecrets(encrypted, encryptedRefresh)
	require.NoError(t, err)
	assert.Equal(t, `{"token":"abc"}`, gotCredentials)
	assert.Empty(t, gotRefresh)
}

func TestEncryptSecretsRejectsEmptyCredentials(t *testing.T) {
	s := newTestService(t)

	_, _, err := s.encryptSecrets("", "")
	require.Error(t, err)
}

func TestDecryptSecretsRejectsTamperedBlob(t *testing.T) {
	s := newTestService(t)

	encrypted, _, err := s.encryptSecrets(`{"token":"abc"}`, "")
	require.NoError(t, err)

	_, _, err = s.decryptSecrets("tampered"+encrypted, "")
	require.Error(t, err)
}
