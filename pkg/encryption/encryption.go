package encryption

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"github.com/paravault/paravault/pkg/keyring"
)

const (
	// Keyring service name for ParaVault secrets
	KeyringService = "paravault-security"
	// Keyring key for the credential encryption key
	CredentialKeyName = "credential-encryption-key"
)

// CredentialCipher encrypts and decrypts integration credential blobs with
// AES-GCM. The data key lives in the keyring and is generated on first use.
type CredentialCipher struct {
	keyringManager *keyring.KeyringManager
}

// NewCredentialCipher creates a credential cipher backed by the keyring.
func NewCredentialCipher() *CredentialCipher {
	keyringPath := keyring.GetDefaultKeyringPath()
	masterPassword := keyring.GetMasterPasswordFromEnv()
	km := keyring.NewKeyringManager(keyringPath, masterPassword)

	return &CredentialCipher{keyringManager: km}
}

// NewCredentialCipherWithManager creates a credential cipher with an explicit
// keyring manager. Used by tests with a file keyring in a temp directory.
func NewCredentialCipherWithManager(km *keyring.KeyringManager) *CredentialCipher {
	return &CredentialCipher{keyringManager: km}
}

func (cc *CredentialCipher) dataKey() ([]byte, error) {
	stored, err := cc.keyringManager.Get(KeyringService, CredentialKeyName)
	if err == nil {
		raw, decErr := base64.StdEncoding.DecodeString(stored)
		if decErr != nil {
			return nil, fmt.Errorf("failed to decode credential key: %w", decErr)
		}
		return raw, nil
	}

	// First use: generate and persist a fresh 256-bit key
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return nil, fmt.Errorf("failed to generate credential key: %w", err)
	}
	if err := cc.keyringManager.Set(KeyringService, CredentialKeyName, base64.StdEncoding.EncodeToString(raw)); err != nil {
		return nil, fmt.Errorf("failed to store credential key: %w", err)
	}
	return raw, nil
}

// Encrypt encrypts a credential blob and returns it base64 encoded.
func (cc *CredentialCipher) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", errors.New("plaintext is required")
	}

	key, err := cc.dataKey()
	if err != nil {
		return "", err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	ciphertext := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// Decrypt decrypts a base64-encoded credential blob.
func (cc *CredentialCipher) Decrypt(encoded string) (string, error) {
	if encoded == "" {
		return "", errors.New("ciphertext is required")
	}

	key, err := cc.dataKey()
	if err != nil {
		return "", err
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("failed to decode ciphertext: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return "", errors.New("ciphertext too short")
	}

	plaintext, err := gcm.Open(nil, data[:nonceSize], data[nonceSize:], nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt credentials: %w", err)
	}
	return string(plaintext), nil
}

// HashFingerprint returns a short fingerprint for a credential blob, used in
// logs so raw credential material never appears in log output.
func HashFingerprint(blob string) string {
	sum := sha256.Sum256([]byte(blob))
	return base64.RawURLEncoding.EncodeToString(sum[:8])
}
