package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/paravault/paravault/internal/services/user"
	"github.com/paravault/paravault/pkg/database"
	"github.com/paravault/paravault/pkg/logger"
	"github.com/paravault/paravault/pkg/models"
)

const (
	accessTokenExpiry  = time.Hour
	refreshTokenExpiry = 7 * 24 * time.Hour
	sessionKeyPrefix   = "session:"
)

// ErrInvalidCredentials is returned when email/password verification fails.
// The same error covers unknown email and wrong password so callers
// cannot probe for account existence.
var ErrInvalidCredentials = errors.New("invalid email or password")

// ErrInvalidToken is returned for expired, malformed, or revoked tokens.
var ErrInvalidToken = errors.New("invalid or expired token")

// JWTClaims are the claims carried by both access and refresh tokens
type JWTClaims struct {
	UserID    string      `json:"user_id"`
	Email     string      `json:"email"`
	Role      models.Role `json:"role"`
	SessionID string      `json:"session_id"`
	TokenType string      `json:"token_type"`
	jwt.RegisteredClaims
}

// Profile identifies the authenticated caller of a request
type Profile struct {
	UserID    string
	Email     string
	Role      models.Role
	SessionID string
}

// TokenPair is the result of a successful login or refresh
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// TokenManager issues and validates JWTs and tracks sessions in Redis.
// A session entry must exist for a token to validate; logout deletes
// the entry and revokes both tokens at once.
type TokenManager struct {
	users   *user.Service
	secrets *JWTSecretManager
	redis   *database.Redis
	logger  *logger.Logger
}

// NewTokenManager creates a new token manager
func NewTokenManager(users *user.Service, secrets *JWTSecretManager, redis *database.Redis, logger *logger.Logger) *TokenManager {
	return &TokenManager{
		users:   users,
		secrets: secrets,
		redis:   redis,
		logger:  logger,
	}
}

// Login verifies credentials and opens a new session
func (tm *TokenManager) Login(ctx context.Context, email, password string) (*Profile, *TokenPair, error) {
	u, err := tm.users.GetByEmail(ctx, email)
	if err != nil {
		tm.logger.Warnf("Login failed for %s: user lookup", email)
		return nil, nil, ErrInvalidCredentials
	}
	if !u.Enabled {
		tm.logger.Warnf("Login rejected for disabled user: %s", email)
		return nil, nil, ErrInvalidCredentials
	}

	ok, err := tm.users.VerifyPassword(ctx, u.ID, password)
	if err != nil {
		return nil, nil, fmt.Errorf("password verification error: %w", err)
	}
	if !ok {
		tm.logger.Warnf("Login failed for %s: wrong password", email)
		return nil, nil, ErrInvalidCredentials
	}

	sessionID, err := generateSessionID()
	if err != nil {
		return nil, nil, err
	}

	pair, err := tm.generateTokens(u, sessionID)
	if err != nil {
		return nil, nil, err
	}

	err = tm.redis.Client().Set(ctx, sessionKeyPrefix+sessionID, u.ID, refreshTokenExpiry).Err()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to store session: %w", err)
	}

	tm.logger.Infof("User %s logged in, session %s", u.ID, sessionID)

	profile := &Profile{UserID: u.ID, Email: u.Email, Role: u.Role, SessionID: sessionID}
	return profile, pair, nil
}

// Validate parses an access token and confirms its session is live
func (tm *TokenManager) Validate(ctx context.Context, tokenString string) (*Profile, error) {
	claims, err := tm.parseToken(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != "access" {
		return nil, ErrInvalidToken
	}

	exists, err := tm.redis.Client().Exists(ctx, sessionKeyPrefix+claims.SessionID).Result()
	if err != nil {
		return nil, fmt.Errorf("session lookup error: %w", err)
	}
	if exists == 0 {
		return nil, ErrInvalidToken
	}

	return &Profile{
		UserID:    claims.UserID,
		Email:     claims.Email,
		Role:      claims.Role,
		SessionID: claims.SessionID,
	}, nil
}

// Refresh exchanges a valid refresh token for a new token pair on the
// same session
func (tm *TokenManager) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := tm.parseToken(refreshToken)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != "refresh" {
		return nil, ErrInvalidToken
	}

	exists, err := tm.redis.Client().Exists(ctx, sessionKeyPrefix+claims.SessionID).Result()
	if err != nil {
		return nil, fmt.Errorf("session lookup error: %w", err)
	}
	if exists == 0 {
		return nil, ErrInvalidToken
	}

	u, err := tm.users.Get(ctx, claims.UserID)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if !u.Enabled {
		return nil, ErrInvalidToken
	}

	return tm.generateTokens(u, claims.SessionID)
}

// Logout closes the session; both tokens stop validating immediately
func (tm *TokenManager) Logout(ctx context.Context, sessionID string) error {
	err := tm.redis.Client().Del(ctx, sessionKeyPrefix+sessionID).Err()
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	tm.logger.Infof("Session %s logged out", sessionID)
	return nil
}

// ChangePassword verifies the old password before setting the new one
func (tm *TokenManager) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	ok, err := tm.users.VerifyPassword(ctx, userID, oldPassword)
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("current password is incorrect")
	}
	return tm.users.UpdatePassword(ctx, userID, newPassword)
}

func (tm *TokenManager) generateTokens(u *user.User, sessionID string) (*TokenPair, error) {
	secret, err := tm.secrets.GetSecret()
	if err != nil {
		return nil, fmt.Errorf("failed to get JWT secret: %w", err)
	}

	now := time.Now()
	expiresAt := now.Add(accessTokenExpiry)

	accessClaims := &JWTClaims{
		UserID:    u.ID,
		Email:     u.Email,
		Role:      u.Role,
		SessionID: sessionID,
		TokenType: "access",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   u.ID,
		},
	}
	accessToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims).SignedString(secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}

	refreshClaims := &JWTClaims{
		UserID:    u.ID,
		Email:     u.Email,
		Role:      u.Role,
		SessionID: sessionID,
		TokenType: "refresh",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(refreshTokenExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   u.ID,
		},
	}
	refreshToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, refreshClaims).SignedString(secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign refresh token: %w", err)
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    expiresAt,
	}, nil
}

func (tm *TokenManager) parseToken(tokenString string) (*JWTClaims, error) {
	secret, err := tm.secrets.GetSecret()
	if err != nil {
		return nil, fmt.Errorf("failed to get JWT secret: %w", err)
	}

	claims := &JWTClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func generateSessionID() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate session id: %w", err)
	}
	return hex.EncodeToString(b), nil
}
