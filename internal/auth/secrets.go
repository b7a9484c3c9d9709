package auth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"sync"

	"github.com/paravault/paravault/pkg/keyring"
)

const (
	jwtKeyringService = "paravault-security"
	jwtSecretKeyName  = "jwt-signing-secret"
	jwtSecretLength   = 64
)

// JWTSecretManager holds the HMAC signing secret for the process. The
// secret lives in the keyring and is generated on first use; a cached
// copy avoids a keyring round-trip per token operation.
type JWTSecretManager struct {
	keyring *keyring.KeyringManager
	mu      sync.RWMutex
	cached  []byte
}

// NewJWTSecretManager creates a secret manager backed by the given keyring
func NewJWTSecretManager(km *keyring.KeyringManager) *JWTSecretManager {
	return &JWTSecretManager{keyring: km}
}

// GetSecret returns the signing secret, generating and persisting one
// if none exists yet.
func (m *JWTSecretManager) GetSecret() ([]byte, error) {
	m.mu.RLock()
	if m.cached != nil {
		secret := m.cached
		m.mu.RUnlock()
		return secret, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cached != nil {
		return m.cached, nil
	}

	stored, err := m.keyring.Get(jwtKeyringService, jwtSecretKeyName)
	if err == nil && stored != "" {
		secret, decodeErr := base64.StdEncoding.DecodeString(stored)
		if decodeErr != nil {
			return nil, fmt.Errorf("stored JWT secret is corrupted: %w", decodeErr)
		}
		m.cached = secret
		return secret, nil
	}

	secret := make([]byte, jwtSecretLength)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("failed to generate JWT secret: %w", err)
	}

	if err := m.keyring.Set(jwtKeyringService, jwtSecretKeyName, base64.StdEncoding.EncodeToString(secret)); err != nil {
		return nil, fmt.Errorf("failed to store JWT secret: %w", err)
	}

	m.cached = secret
	return secret, nil
}

// RotateSecret replaces the signing secret. Outstanding tokens become
// invalid immediately.
func (m *JWTSecretManager) RotateSecret() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	secret := make([]byte, jwtSecretLength)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("failed to generate JWT secret: %w", err)
	}

	if err := m.keyring.Set(jwtKeyringService, jwtSecretKeyName, base64.StdEncoding.EncodeToString(secret)); err != nil {
		return nil, fmt.Errorf("failed to store JWT secret: %w", err)
	}

	m.cached = secret
	return secret, nil
}
