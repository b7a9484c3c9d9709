package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/paravault/paravault/pkg/database"
	"github.com/paravault/paravault/pkg/logger"
	"github.com/paravault/paravault/pkg/models"
	"golang.org/x/crypto/bcrypt"
)

// Service handles user-related operations
type Service struct {
	db     *database.PostgreSQL
	logger *logger.Logger
}

// NewService creates a new user service
func NewService(db *database.PostgreSQL, logger *logger.Logger) *Service {
	return &Service{
		db:     db,
		logger: logger,
	}
}

// User represents a user account
type User struct {
	ID           string
	Email        string
	Name         string
	Role         models.Role
	PasswordHash string
	Enabled      bool
	models.AuditMetadata
}

const userColumns = "user_id, user_email, user_name, user_role, user_password_hash, user_enabled, created, updated"

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.Name,
		&u.Role,
		&u.PasswordHash,
		&u.Enabled,
		&u.Created,
		&u.Updated,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Create creates a new user with a bcrypt-hashed password
func (s *Service) Create(ctx context.Context, email, name, password string, role models.Role) (*User, error) {
	s.logger.Infof("Creating user: %s", email)

	var emailExists bool
	err := s.db.Pool().QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM users WHERE user_email = $1)", email).Scan(&emailExists)
	if err != nil {
		return nil, fmt.Errorf("failed to check email existence: %w", err)
	}
	if emailExists {
		return nil, errors.New("user with this email already exists")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	if role == "" {
		role = models.RoleMember
	}

	query := fmt.Sprintf(`
		INSERT INTO users (user_email, user_name, user_role, user_password_hash, user_enabled)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING %s
	`, userColumns)

	user, err := scanUser(s.db.Pool().QueryRow(ctx, query, email, name, role, string(hashedPassword), true))
	if err != nil {
		s.logger.Errorf("Failed to create user: %v", err)
		return nil, err
	}
	return user, nil
}

// Get retrieves a user by ID
func (s *Service) Get(ctx context.Context, userID string) (*User, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM users
		WHERE user_id = $1
	`, userColumns)

	user, err := scanUser(s.db.Pool().QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.New("user not found")
		}
		s.logger.Errorf("Failed to get user: %v", err)
		return nil, err
	}
	return user, nil
}

// GetByEmail retrieves a user by email (globally unique)
func (s *Service) GetByEmail(ctx context.Context, email string) (*User, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM users
		WHERE user_email = $1
	`, userColumns)

	user, err := scanUser(s.db.Pool().QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.New("user not found")
		}
		s.logger.Errorf("Failed to get user by email: %v", err)
		return nil, err
	}
	return user, nil
}

// List retrieves all users
func (s *Service) List(ctx context.Context) ([]*User, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM users
		ORDER BY user_id
	`, userColumns)

	rows, err := s.db.Pool().Query(ctx, query)
	if err != nil {
		s.logger.Errorf("Failed to list users: %v", err)
		return nil, fmt.Errorf("database query error: %w", err)
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

// Update updates specific fields of a user
func (s *Service) Update(ctx context.Context, userID string, updates map[string]interface{}) (*User, error) {
	s.logger.Infof("Updating user: %s", userID)
	if len(updates) == 0 {
		return s.Get(ctx, userID)
	}

	query := "UPDATE users SET updated = CURRENT_TIMESTAMP"
	args := []interface{}{}
	argIndex := 1

	for field, value := range updates {
		query += fmt.Sprintf(", %s = $%d", field, argIndex)
		args = append(args, value)
		argIndex++
	}

	query += fmt.Sprintf(" WHERE user_id = $%d RETURNING %s", argIndex, userColumns)
	args = append(args, userID)

	user, err := scanUser(s.db.Pool().QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.New("user not found")
		}
		s.logger.Errorf("Failed to update user: %v", err)
		return nil, err
	}
	return user, nil
}

// UpdatePassword updates a user's password
func (s *Service) UpdatePassword(ctx context.Context, userID, newPassword string) error {
	s.logger.Infof("Updating password for user: %s", userID)

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	commandTag, err := s.db.Pool().Exec(ctx, `
		UPDATE users
		SET user_password_hash = $1, updated = CURRENT_TIMESTAMP
		WHERE user_id = $2
	`, string(hashedPassword), userID)
	if err != nil {
		s.logger.Errorf("Failed to update password: %v", err)
		return err
	}

	if commandTag.RowsAffected() == 0 {
		return errors.New("user not found")
	}
	return nil
}

// VerifyPassword verifies a user's password against the stored hash
func (s *Service) VerifyPassword(ctx context.Context, userID, password string) (bool, error) {
	var passwordHash string
	err := s.db.Pool().QueryRow(ctx, `
		SELECT user_password_hash
		FROM users
		WHERE user_id = $1
	`, userID).Scan(&passwordHash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, errors.New("user not found")
		}
		return false, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(password)); err != nil {
		return false, nil
	}
	return true, nil
}

// Delete deletes a user
func (s *Service) Delete(ctx context.Context, userID string) error {
	s.logger.Infof("Deleting user: %s", userID)

	commandTag, err := s.db.Pool().Exec(ctx, `
		DELETE FROM users
		WHERE user_id = $1
	`, userID)
	if err != nil {
		s.logger.Errorf("Failed to delete user: %v", err)
		return err
	}

	if commandTag.RowsAffected() == 0 {
		return errors.New("user not found")
	}
	return nil
}

// Exists checks if a user with the given ID exists
func (s *Service) Exists(ctx context.Context, userID string) (bool, error) {
	var exists bool
	err := s.db.Pool().QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM users WHERE user_id = $1)
	`, userID).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}
