package encryption

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paravault/paravault/pkg/keyring"
)

func newTestCipher(t *testing.T) *CredentialCipher {
	t.Helper()
	km := keyring.NewFileOnlyKeyringManager(filepath.Join(t.TempDir(), "keyring.json"), "test-master-password")
	return NewCredentialCipherWithManager(km)
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	cc := newTestCipher(t)

	plaintext := `{"api_key":"sk-12345"}`
	encoded, err := cc.Encrypt(plaintext)
	require.NoError(t, err)
	assert.NotEqual(t, plaintext, encoded)

	decrypted, err := cc.Decrypt(encoded)
	require.NoError(t, err)
	assert.Equal(t, plaintext, decrypted)
}

func TestEncryptProducesFreshNonces(t *testing.T) {
	cc := newTestCipher(t)

	first, err := cc.Encrypt("same input")
	require.NoError(t, err)
	second, err := cc.Encrypt("same input")
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestDecryptWithDifferentKeyFails(t *testing.T) {
	cc := newTestCipher(t)
	encoded, err := cc.Encrypt("secret material")
	require.NoError(t, err)

	other := newTestCipher(t)
	_, err = other.Decrypt(encoded)
	require.Error(t, err)
}

func TestDecryptRejectsGarbage(t *testing.T) {
	cc := newTestCipher(t)

	_, err := cc.Decrypt("")
	require.Error(t, err)

	_, err = cc.Decrypt("not base64!!!")
	require.Error(t, err)

	_, err = cc.Decrypt("c2hvcnQ=")
	require.Error(t, err)
}

func TestHashFingerprintIsStableAndShort(t *testing.T) {
	a := HashFingerprint("credential blob")
	b := HashFingerprint("credential blob")
	c := HashFingerprint("different blob")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.NotContains(t, a, "credential")
}
