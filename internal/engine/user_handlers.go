package engine

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/paravault/paravault/internal/auth"
	"github.com/paravault/paravault/internal/services/user"
	"github.com/paravault/paravault/pkg/models"
)

// UserHandlers contains the user endpoint handlers
type UserHandlers struct {
	engine *Engine
}

// NewUserHandlers creates a new instance of UserHandlers
func NewUserHandlers(engine *Engine) *UserHandlers {
	return &UserHandlers{
		engine: engine,
	}
}

// CreateUserRequest represents a signup or admin user-creation request
type CreateUserRequest struct {
	Email    string      `json:"email"`
	Name     string      `json:"name"`
	Password string      `json:"password"`
	Role     models.Role `json:"role,omitempty"`
}

// ModifyUserRequest represents a user update request
type ModifyUserRequest struct {
	Name    *string      `json:"name,omitempty"`
	Role    *models.Role `json:"role,omitempty"`
	Enabled *bool        `json:"enabled,omitempty"`
}

// ListUsersResponse represents a user listing
type ListUsersResponse struct {
	Users []UserResponse `json:"users"`
}

func toUserResponse(u *user.User) UserResponse {
	return UserResponse{
		UserID:    u.ID,
		UserEmail: u.Email,
		UserName:  u.Name,
		UserRole:  u.Role,
		Enabled:   u.Enabled,
	}
}

// callerProfile returns the authenticated profile, or nil on
// unauthenticated routes
func callerProfile(r *http.Request) *auth.Profile {
	profile, _ := r.Context().Value(profileContextKey).(*auth.Profile)
	return profile
}

// canAccessUser reports whether the caller may operate on the given
// account. Self-access is always allowed; anything else needs an
// admin role.
func canAccessUser(profile *auth.Profile, userID string) bool {
	if profile == nil {
		return false
	}
	if profile.UserID == userID {
		return true
	}
	return profile.Role.IsAdmin()
}

// CreateUser handles POST /api/v1/users
func (uh *UserHandlers) CreateUser(w http.ResponseWriter, r *http.Request) {
	uh.engine.TrackOperation()
	defer uh.engine.UntrackOperation()

	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		uh.engine.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	if req.Email == "" || req.Password == "" {
		uh.engine.writeErrorResponse(w, http.StatusBadRequest, "email and password are required", "")
		return
	}

	// Only an admin may grant elevated roles; signups become members
	role := req.Role
	profile := callerProfile(r)
	if profile == nil || !profile.Role.IsAdmin() {
		role = models.RoleMember
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	created, err := uh.engine.users.Create(ctx, req.Email, req.Name, req.Password, role)
	if err != nil {
		if strings.Contains(err.Error(), "already exists") {
			uh.engine.writeErrorResponse(w, http.StatusConflict, "User already exists", err.Error())
			return
		}
		uh.engine.writeErrorResponse(w, http.StatusInternalServerError, "Failed to create user", err.Error())
		return
	}

	uh.engine.writeJSONResponse(w, http.StatusCreated, toUserResponse(created))
}

// ListUsers handles GET /api/v1/users
func (uh *UserHandlers) ListUsers(w http.ResponseWriter, r *http.Request) {
	uh.engine.TrackOperation()
	defer uh.engine.UntrackOperation()

	profile := callerProfile(r)
	if profile == nil {
		uh.engine.writeErrorResponse(w, http.StatusInternalServerError, "Profile not found in context", "")
		return
	}
	if !profile.Role.IsAdmin() {
		uh.engine.writeErrorResponse(w, http.StatusForbidden, "Access denied", "admin role required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	users, err := uh.engine.users.List(ctx)
	if err != nil {
		uh.engine.writeErrorResponse(w, http.StatusInternalServerError, "Failed to list users", err.Error())
		return
	}

	response := ListUsersResponse{Users: make([]UserResponse, 0, len(users))}
	for _, u := range users {
		response.Users = append(response.Users, toUserResponse(u))
	}
	uh.engine.writeJSONResponse(w, http.StatusOK, response)
}

// ShowCurrentUser handles GET /api/v1/users/me
func (uh *UserHandlers) ShowCurrentUser(w http.ResponseWriter, r *http.Request) {
	uh.engine.TrackOperation()
	defer uh.engine.UntrackOperation()

	profile := callerProfile(r)
	if profile == nil {
		uh.engine.writeErrorResponse(w, http.StatusInternalServerError, "Profile not found in context", "")
		return
	}

	uh.showUser(w, r, profile.UserID)
}

// ShowUser handles GET /api/v1/users/{user_id}
func (uh *UserHandlers) ShowUser(w http.ResponseWriter, r *http.Request) {
	uh.engine.TrackOperation()
	defer uh.engine.UntrackOperation()

	userID := mux.Vars(r)["user_id"]
	if userID == "" {
		uh.engine.writeErrorResponse(w, http.StatusBadRequest, "user_id is required", "")
		return
	}

	if !canAccessUser(callerProfile(r), userID) {
		uh.engine.writeErrorResponse(w, http.StatusForbidden, "Access denied", "cannot access another user's account")
		return
	}

	uh.showUser(w, r, userID)
}

func (uh *UserHandlers) showUser(w http.ResponseWriter, r *http.Request, userID string) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	u, err := uh.engine.users.Get(ctx, userID)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			uh.engine.writeErrorResponse(w, http.StatusNotFound, "User not found", err.Error())
			return
		}
		uh.engine.writeErrorResponse(w, http.StatusInternalServerError, "Failed to get user", err.Error())
		return
	}

	uh.engine.writeJSONResponse(w, http.StatusOK, toUserResponse(u))
}

// ModifyUser handles PUT /api/v1/users/{user_id}
func (uh *UserHandlers) ModifyUser(w http.ResponseWriter, r *http.Request) {
	uh.engine.TrackOperation()
	defer uh.engine.UntrackOperation()

	userID := mux.Vars(r)["user_id"]
	if userID == "" {
		uh.engine.writeErrorResponse(w, http.StatusBadRequest, "user_id is required", "")
		return
	}

	profile := callerProfile(r)
	if !canAccessUser(profile, userID) {
		uh.engine.writeErrorResponse(w, http.StatusForbidden, "Access denied", "cannot modify another user's account")
		return
	}

	var req ModifyUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		uh.engine.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	updates := make(map[string]interface{})
	if req.Name != nil {
		updates["user_name"] = *req.Name
	}
	if req.Role != nil {
		// Role and enablement changes stay admin-only even on self
		if !profile.Role.IsAdmin() {
			uh.engine.writeErrorResponse(w, http.StatusForbidden, "Access denied", "admin role required to change roles")
			return
		}
		updates["user_role"] = *req.Role
	}
	if req.Enabled != nil {
		if !profile.Role.IsAdmin() {
			uh.engine.writeErrorResponse(w, http.StatusForbidden, "Access denied", "admin role required to enable or disable users")
			return
		}
		updates["user_enabled"] = *req.Enabled
	}
	if len(updates) == 0 {
		uh.engine.writeErrorResponse(w, http.StatusBadRequest, "No fields to update", "")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	u, err := uh.engine.users.Update(ctx, userID, updates)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			uh.engine.writeErrorResponse(w, http.StatusNotFound, "User not found", err.Error())
			return
		}
		uh.engine.writeErrorResponse(w, http.StatusInternalServerError, "Failed to update user", err.Error())
		return
	}

	uh.engine.writeJSONResponse(w, http.StatusOK, toUserResponse(u))
}

// DeleteUser handles DELETE /api/v1/users/{user_id}
func (uh *UserHandlers) DeleteUser(w http.ResponseWriter, r *http.Request) {
	uh.engine.TrackOperation()
	defer uh.engine.UntrackOperation()

	userID := mux.Vars(r)["user_id"]
	if userID == "" {
		uh.engine.writeErrorResponse(w, http.StatusBadRequest, "user_id is required", "")
		return
	}

	if !canAccessUser(callerProfile(r), userID) {
		uh.engine.writeErrorResponse(w, http.StatusForbidden, "Access denied", "cannot delete another user's account")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	if err := uh.engine.users.Delete(ctx, userID); err != nil {
		if strings.Contains(err.Error(), "not found") {
			uh.engine.writeErrorResponse(w, http.StatusNotFound, "User not found", err.Error())
			return
		}
		uh.engine.writeErrorResponse(w, http.StatusInternalServerError, "Failed to delete user", err.Error())
		return
	}

	uh.engine.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"message": "User deleted successfully",
		"status":  StatusDeleted,
	})
}
