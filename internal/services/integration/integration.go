package integration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/paravault/paravault/pkg/database"
	"github.com/paravault/paravault/pkg/encryption"
	"github.com/paravault/paravault/pkg/logger"
	"github.com/paravault/paravault/pkg/models"
)

// Service handles integration and credential operations. Credential
// blobs are encrypted at rest with the process data key.
type Service struct {
	db     *database.PostgreSQL
	cipher *encryption.CredentialCipher
	logger *logger.Logger
}

// NewService creates a new integration service
func NewService(db *database.PostgreSQL, cipher *encryption.CredentialCipher, logger *logger.Logger) *Service {
	return &Service{
		db:     db,
		cipher: cipher,
		logger: logger,
	}
}

// Integration represents an external provider that users can connect
type Integration struct {
	ID       string
	Name     string
	AuthType string
	Config   map[string]interface{}
	Enabled  bool
	models.AuditMetadata
}

// Credential binds one user to one integration. The Credentials field
// holds the decrypted opaque blob; it is never stored in the clear.
type Credential struct {
	ID            string
	UserID        string
	IntegrationID string
	Credentials   string
	RefreshToken  string
	ExpiresAt     *time.Time
	Active        bool
	models.AuditMetadata
}

const integrationColumns = "integration_id, integration_name, auth_type, config, integration_enabled, created, updated"

func scanIntegration(row pgx.Row) (*Integration, error) {
	var i Integration
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.AuthType,
		&i.Config,
		&i.Enabled,
		&i.Created,
		&i.Updated,
	)
	if err != nil {
		return nil, err
	}
	return &i, nil
}

// CreateIntegration registers a new integration provider
func (s *Service) CreateIntegration(ctx context.Context, name, authType string, config map[string]interface{}) (*Integration, error) {
	s.logger.Infof("Creating integration: %s", name)

	query := fmt.Sprintf(`
		INSERT INTO integrations (integration_name, auth_type, config, integration_enabled)
		VALUES ($1, $2, $3, true)
		RETURNING %s
	`, integrationColumns)

	i, err := scanIntegration(s.db.Pool().QueryRow(ctx, query, name, authType, config))
	if err != nil {
		s.logger.Errorf("Failed to create integration: %v", err)
		return nil, err
	}
	return i, nil
}

// GetIntegration retrieves an integration by ID
func (s *Service) GetIntegration(ctx context.Context, integrationID string) (*Integration, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM integrations
		WHERE integration_id = $1
	`, integrationColumns)

	i, err := scanIntegration(s.db.Pool().QueryRow(ctx, query, integrationID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.New("integration not found")
		}
		s.logger.Errorf("Failed to get integration: %v", err)
		return nil, err
	}
	return i, nil
}

// ListIntegrations retrieves all integrations
func (s *Service) ListIntegrations(ctx context.Context) ([]*Integration, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM integrations
		ORDER BY integration_name
	`, integrationColumns)

	rows, err := s.db.Pool().Query(ctx, query)
	if err != nil {
		s.logger.Errorf("Failed to list integrations: %v", err)
		return nil, fmt.Errorf("database query error: %w", err)
	}
	defer rows.Close()

	var integrations []*Integration
	for rows.Next() {
		i, err := scanIntegration(rows)
		if err != nil {
			return nil, err
		}
		integrations = append(integrations, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return integrations, nil
}

// StoreCredential encrypts and stores a credential blob for a user and
// integration pair
func (s *Service) StoreCredential(ctx context.Context, userID, integrationID, credentials, refreshToken string, expiresAt *time.Time) (*Credential, error) {
	s.logger.Infof("Storing credential for user %s, integration %s (fingerprint %s)",
		userID, integrationID, encryption.HashFingerprint(credentials))

	encrypted, encryptedRefresh, err := s.encryptSecrets(credentials, refreshToken)
	if err != nil {
		return nil, err
	}

	var c Credential
	err = s.db.Pool().QueryRow(ctx, `
		INSERT INTO credentials (user_id, integration_id, credentials, refresh_token, expires_at, credential_active)
		VALUES ($1, $2, $3, $4, $5, true)
		RETURNING credential_id, user_id, integration_id, expires_at, credential_active, created, updated
	`, userID, integrationID, encrypted, encryptedRefresh, expiresAt).Scan(
		&c.ID, &c.UserID, &c.IntegrationID, &c.ExpiresAt, &c.Active, &c.Created, &c.Updated)
	if err != nil {
		s.logger.Errorf("Failed to store credential: %v", err)
		return nil, err
	}

	c.Credentials = credentials
	c.RefreshToken = refreshToken
	return &c, nil
}

// GetCredential retrieves and decrypts a credential by ID
func (s *Service) GetCredential(ctx context.Context, credentialID string) (*Credential, error) {
	var c Credential
	var encrypted, encryptedRefresh string
	err := s.db.Pool().QueryRow(ctx, `
		SELECT credential_id, user_id, integration_id, credentials, refresh_token, expires_at, credential_active, created, updated
		FROM credentials
		WHERE credential_id = $1
	`, credentialID).Scan(
		&c.ID, &c.UserID, &c.IntegrationID, &encrypted, &encryptedRefresh,
		&c.ExpiresAt, &c.Active, &c.Created, &c.Updated)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.New("credential not found")
		}
		s.logger.Errorf("Failed to get credential: %v", err)
		return nil, err
	}

	c.Credentials, c.RefreshToken, err = s.decryptSecrets(encrypted, encryptedRefresh)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// encryptSecrets encrypts a credential blob and optional refresh token
func (s *Service) encryptSecrets(credentials, refreshToken string) (string, string, error) {
	encrypted, err := s.cipher.Encrypt(credentials)
	if err != nil {
		return "", "", fmt.Errorf("failed to encrypt credentials: %w", err)
	}

	var encryptedRefresh string
	if refreshToken != "" {
		encryptedRefresh, err = s.cipher.Encrypt(refreshToken)
		if err != nil {
			return "", "", fmt.Errorf("failed to encrypt refresh token: %w", err)
		}
	}
	return encrypted, encryptedRefresh, nil
}

// decryptSecrets reverses encryptSecrets
func (s *Service) decryptSecrets(encrypted, encryptedRefresh string) (string, string, error) {
	credentials, err := s.cipher.Decrypt(encrypted)
	if err != nil {
		return "", "", fmt.Errorf("failed to decrypt credentials: %w", err)
	}

	var refreshToken string
	if encryptedRefresh != "" {
		refreshToken, err = s.cipher.Decrypt(encryptedRefresh)
		if err != nil {
			return "", "", fmt.Errorf("failed to decrypt refresh token: %w", err)
		}
	}
	return credentials, refreshToken, nil
}

// ListCredentialsByUser retrieves all active credentials for a user.
// Blobs stay encrypted; only metadata is returned.
func (s *Service) ListCredentialsByUser(ctx context.Context, userID string) ([]*Credential, error) {
	rows, err := s.db.Pool().Query(ctx, `
		SELECT credential_id, user_id, integration_id, expires_at, credential_active, created, updated
		FROM credentials
		WHERE user_id = $1 AND credential_active = true
		ORDER BY created
	`, userID)
	if err != nil {
		s.logger.Errorf("Failed to list credentials: %v", err)
		return nil, fmt.Errorf("database query error: %w", err)
	}
	defer rows.Close()

	var credentials []*Credential
	for rows.Next() {
		var c Credential
		if err := rows.Scan(&c.ID, &c.UserID, &c.IntegrationID, &c.ExpiresAt, &c.Active, &c.Created, &c.Updated); err != nil {
			return nil, err
		}
		credentials = append(credentials, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return credentials, nil
}

// RotateCredential re-encrypts a credential with a fresh blob and
// optional refresh token
func (s *Service) RotateCredential(ctx context.Context, credentialID, credentials, refreshToken string, expiresAt *time.Time) error {
	s.logger.Infof("Rotating credential: %s", credentialID)

	encrypted, encryptedRefresh, err := s.encryptSecrets(credentials, refreshToken)
	if err != nil {
		return err
	}

	commandTag, err := s.db.Pool().Exec(ctx, `
		UPDATE credentials
		SET credentials = $1, refresh_token = $2, expires_at = $3, updated = CURRENT_TIMESTAMP
		WHERE credential_id = $4
	`, encrypted, encryptedRefresh, expiresAt, credentialID)
	if err != nil {
		s.logger.Errorf("Failed to rotate credential: %v", err)
		return err
	}

	if commandTag.RowsAffected() == 0 {
		return errors.New("credential not found")
	}
	return nil
}

// DeactivateCredential marks a credential inactive. Credentials are
// never hard-deleted.
func (s *Service) DeactivateCredential(ctx context.Context, credentialID string) error {
	s.logger.Infof("Deactivating credential: %s", credentialID)

	commandTag, err := s.db.Pool().Exec(ctx, `
		UPDATE credentials
		SET credential_active = false, updated = CURRENT_TIMESTAMP
		WHERE credential_id = $1
	`, credentialID)
	if err != nil {
		s.logger.Errorf("Failed to deactivate credential: %v", err)
		return err
	}

	if commandTag.RowsAffected() == 0 {
		return errors.New("credential not found")
	}
	return nil
}
