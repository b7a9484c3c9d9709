package engine

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/paravault/paravault/internal/auth"
)

// AuthHandlers contains the authentication endpoint handlers
type AuthHandlers struct {
	engine *Engine
}

// NewAuthHandlers creates a new instance of AuthHandlers
func NewAuthHandlers(engine *Engine) *AuthHandlers {
	return &AuthHandlers{
		engine: engine,
	}
}

// Login handles POST /auth/login
func (ah *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	ah.engine.TrackOperation()
	defer ah.engine.UntrackOperation()

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ah.engine.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	if req.Email == "" || req.Password == "" {
		ah.engine.writeErrorResponse(w, http.StatusBadRequest, "email and password are required", "")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	profile, pair, err := ah.engine.tokens.Login(ctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			ah.engine.writeErrorResponse(w, http.StatusUnauthorized, "Login failed", err.Error())
			return
		}
		ah.engine.writeErrorResponse(w, http.StatusInternalServerError, "Login failed", err.Error())
		return
	}

	response := LoginResponse{
		Profile: Profile{
			UserID:    profile.UserID,
			Email:     profile.Email,
			Role:      profile.Role,
			SessionID: profile.SessionID,
		},
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresAt:    pair.ExpiresAt.UTC().Format(time.RFC3339),
		Status:       StatusSuccess,
	}
	ah.engine.writeJSONResponse(w, http.StatusOK, response)
}

// Refresh handles POST /auth/refresh
func (ah *AuthHandlers) Refresh(w http.ResponseWriter, r *http.Request) {
	ah.engine.TrackOperation()
	defer ah.engine.UntrackOperation()

	var req RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ah.engine.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	if req.RefreshToken == "" {
		ah.engine.writeErrorResponse(w, http.StatusBadRequest, "refresh_token is required", "")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	pair, err := ah.engine.tokens.Refresh(ctx, req.RefreshToken)
	if err != nil {
		ah.engine.writeErrorResponse(w, http.StatusUnauthorized, "Token refresh failed", err.Error())
		return
	}

	response := RefreshResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresAt:    pair.ExpiresAt.UTC().Format(time.RFC3339),
		Status:       StatusSuccess,
	}
	ah.engine.writeJSONResponse(w, http.StatusOK, response)
}

// Logout handles POST /auth/logout
func (ah *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	ah.engine.TrackOperation()
	defer ah.engine.UntrackOperation()

	profile, ok := r.Context().Value(profileContextKey).(*auth.Profile)
	if !ok || profile == nil {
		ah.engine.writeErrorResponse(w, http.StatusInternalServerError, "Profile not found in context", "")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	if err := ah.engine.tokens.Logout(ctx, profile.SessionID); err != nil {
		ah.engine.writeErrorResponse(w, http.StatusInternalServerError, "Logout failed", err.Error())
		return
	}

	ah.engine.writeJSONResponse(w, http.StatusOK, LogoutResponse{
		Message: "Logged out successfully",
		Status:  StatusSuccess,
	})
}

// GetProfile handles GET /auth/profile
func (ah *AuthHandlers) GetProfile(w http.ResponseWriter, r *http.Request) {
	ah.engine.TrackOperation()
	defer ah.engine.UntrackOperation()

	profile, ok := r.Context().Value(profileContextKey).(*auth.Profile)
	if !ok || profile == nil {
		ah.engine.writeErrorResponse(w, http.StatusInternalServerError, "Profile not found in context", "")
		return
	}

	ah.engine.writeJSONResponse(w, http.StatusOK, Profile{
		UserID:    profile.UserID,
		Email:     profile.Email,
		Role:      profile.Role,
		SessionID: profile.SessionID,
	})
}

// ChangePassword handles POST /auth/change-password
func (ah *AuthHandlers) ChangePassword(w http.ResponseWriter, r *http.Request) {
	ah.engine.TrackOperation()
	defer ah.engine.UntrackOperation()

	profile, ok := r.Context().Value(profileContextKey).(*auth.Profile)
	if !ok || profile == nil {
		ah.engine.writeErrorResponse(w, http.StatusInternalServerError, "Profile not found in context", "")
		return
	}

	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ah.engine.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	if req.OldPassword == "" || req.NewPassword == "" {
		ah.engine.writeErrorResponse(w, http.StatusBadRequest, "old_password and new_password are required", "")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	if err := ah.engine.tokens.ChangePassword(ctx, profile.UserID, req.OldPassword, req.NewPassword); err != nil {
		ah.engine.writeErrorResponse(w, http.StatusBadRequest, "Password change failed", err.Error())
		return
	}

	ah.engine.writeJSONResponse(w, http.StatusOK, ChangePasswordResponse{
		Message: "Password changed successfully",
		Status:  StatusSuccess,
	})
}
