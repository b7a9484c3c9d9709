package engine

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/paravault/paravault/internal/services/integration"
)

// IntegrationHandlers contains the integration and credential endpoint
// handlers
type IntegrationHandlers struct {
	engine *Engine
}

// NewIntegrationHandlers creates a new instance of IntegrationHandlers
func NewIntegrationHandlers(engine *Engine) *IntegrationHandlers {
	return &IntegrationHandlers{
		engine: engine,
	}
}

// IntegrationResponse is the REST representation of an integration
type IntegrationResponse struct {
	IntegrationID string                 `json:"integration_id"`
	Name          string                 `json:"name"`
	AuthType      string                 `json:"auth_type"`
	Config        map[string]interface{} `json:"config"`
	Enabled       bool                   `json:"enabled"`
}

// CredentialResponse is the REST representation of a credential. The
// blob itself is only included on direct single-credential reads.
type CredentialResponse struct {
	CredentialID  string `json:"credential_id"`
	UserID        string `json:"user_id"`
	IntegrationID string `json:"integration_id"`
	Credentials   string `json:"credentials,omitempty"`
	RefreshToken  string `json:"refresh_token,omitempty"`
	ExpiresAt     string `json:"expires_at,omitempty"`
	Active        bool   `json:"active"`
}

func toIntegrationResponse(i *integration.Integration) IntegrationResponse {
	return IntegrationResponse{
		IntegrationID: i.ID,
		Name:          i.Name,
		AuthType:      i.AuthType,
		Config:        i.Config,
		Enabled:       i.Enabled,
	}
}

func toCredentialResponse(c *integration.Credential, includeSecrets bool) CredentialResponse {
	resp := CredentialResponse{
		CredentialID:  c.ID,
		UserID:        c.UserID,
		IntegrationID: c.IntegrationID,
		Active:        c.Active,
	}
	if c.ExpiresAt != nil {
		resp.ExpiresAt = c.ExpiresAt.UTC().Format(time.RFC3339)
	}
	if includeSecrets {
		resp.Credentials = c.Credentials
		resp.RefreshToken = c.RefreshToken
	}
	return resp
}

// ListIntegrations handles GET /api/v1/integrations
func (ih *IntegrationHandlers) ListIntegrations(w http.ResponseWriter, r *http.Request) {
	ih.engine.TrackOperation()
	defer ih.engine.UntrackOperation()

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	integrations, err := ih.engine.integrations.ListIntegrations(ctx)
	if err != nil {
		ih.engine.writeErrorResponse(w, http.StatusInternalServerError, "Failed to list integrations", err.Error())
		return
	}

	response := make([]IntegrationResponse, 0, len(integrations))
	for _, i := range integrations {
		response = append(response, toIntegrationResponse(i))
	}
	ih.engine.writeJSONResponse(w, http.StatusOK, map[string]interface{}{"integrations": response})
}

// AddIntegration handles POST /api/v1/integrations
func (ih *IntegrationHandlers) AddIntegration(w http.ResponseWriter, r *http.Request) {
	ih.engine.TrackOperation()
	defer ih.engine.UntrackOperation()

	profile := callerProfile(r)
	if profile == nil {
		ih.engine.writeErrorResponse(w, http.StatusInternalServerError, "Profile not found in context", "")
		return
	}
	if !profile.Role.IsAdmin() {
		ih.engine.writeErrorResponse(w, http.StatusForbidden, "Access denied", "admin role required")
		return
	}

	var req struct {
		Name     string                 `json:"name"`
		AuthType string                 `json:"auth_type"`
		Config   map[string]interface{} `json:"config"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ih.engine.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	if req.Name == "" || req.AuthType == "" {
		ih.engine.writeErrorResponse(w, http.StatusBadRequest, "name and auth_type are required", "")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	i, err := ih.engine.integrations.CreateIntegration(ctx, req.Name, req.AuthType, req.Config)
	if err != nil {
		ih.engine.writeErrorResponse(w, http.StatusInternalServerError, "Failed to create integration", err.Error())
		return
	}

	ih.engine.writeJSONResponse(w, http.StatusCreated, toIntegrationResponse(i))
}

// ShowIntegration handles GET /api/v1/integrations/{integration_id}
func (ih *IntegrationHandlers) ShowIntegration(w http.ResponseWriter, r *http.Request) {
	ih.engine.TrackOperation()
	defer ih.engine.UntrackOperation()

	integrationID := mux.Vars(r)["integration_id"]

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	i, err := ih.engine.integrations.GetIntegration(ctx, integrationID)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			ih.engine.writeErrorResponse(w, http.StatusNotFound, "Integration not found", err.Error())
			return
		}
		ih.engine.writeErrorResponse(w, http.StatusInternalServerError, "Failed to get integration", err.Error())
		return
	}

	ih.engine.writeJSONResponse(w, http.StatusOK, toIntegrationResponse(i))
}

// StoreCredential handles POST /api/v1/credentials
func (ih *IntegrationHandlers) StoreCredential(w http.ResponseWriter, r *http.Request) {
	ih.engine.TrackOperation()
	defer ih.engine.UntrackOperation()

	profile := callerProfile(r)
	if profile == nil {
		ih.engine.writeErrorResponse(w, http.StatusInternalServerError, "Profile not found in context", "")
		return
	}

	var req struct {
		IntegrationID string `json:"integration_id"`
		Credentials   string `json:"credentials"`
		RefreshToken  string `json:"refresh_token"`
		ExpiresAt     string `json:"expires_at"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ih.engine.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	if req.IntegrationID == "" || req.Credentials == "" {
		ih.engine.writeErrorResponse(w, http.StatusBadRequest, "integration_id and credentials are required", "")
		return
	}

	var expiresAt *time.Time
	if req.ExpiresAt != "" {
		parsed, err := time.Parse(time.RFC3339, req.ExpiresAt)
		if err != nil {
			ih.engine.writeErrorResponse(w, http.StatusBadRequest, "Invalid expires_at timestamp", err.Error())
			return
		}
		expiresAt = &parsed
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	// Credentials attach to the authenticated caller only
	c, err := ih.engine.integrations.StoreCredential(ctx, profile.UserID, req.IntegrationID, req.Credentials, req.RefreshToken, expiresAt)
	if err != nil {
		ih.engine.writeErrorResponse(w, http.StatusInternalServerError, "Failed to store credential", err.Error())
		return
	}

	ih.engine.writeJSONResponse(w, http.StatusCreated, toCredentialResponse(c, false))
}

// ListCredentials handles GET /api/v1/credentials
func (ih *IntegrationHandlers) ListCredentials(w http.ResponseWriter, r *http.Request) {
	ih.engine.TrackOperation()
	defer ih.engine.UntrackOperation()

	profile := callerProfile(r)
	if profile == nil {
		ih.engine.writeErrorResponse(w, http.StatusInternalServerError, "Profile not found in context", "")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	credentials, err := ih.engine.integrations.ListCredentialsByUser(ctx, profile.UserID)
	if err != nil {
		ih.engine.writeErrorResponse(w, http.StatusInternalServerError, "Failed to list credentials", err.Error())
		return
	}

	response := make([]CredentialResponse, 0, len(credentials))
	for _, c := range credentials {
		response = append(response, toCredentialResponse(c, false))
	}
	ih.engine.writeJSONResponse(w, http.StatusOK, map[string]interface{}{"credentials": response})
}

// fetchOwnedCredential loads a credential and verifies the caller owns it
func (ih *IntegrationHandlers) fetchOwnedCredential(w http.ResponseWriter, r *http.Request) (*integration.Credential, bool) {
	profile := callerProfile(r)
	if profile == nil {
		ih.engine.writeErrorResponse(w, http.StatusInternalServerError, "Profile not found in context", "")
		return nil, false
	}

	credentialID := mux.Vars(r)["credential_id"]

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	c, err := ih.engine.integrations.GetCredential(ctx, credentialID)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			ih.engine.writeErrorResponse(w, http.StatusNotFound, "Credential not found", err.Error())
			return nil, false
		}
		ih.engine.writeErrorResponse(w, http.StatusInternalServerError, "Failed to get credential", err.Error())
		return nil, false
	}

	if c.UserID != profile.UserID && !profile.Role.IsAdmin() {
		ih.engine.writeErrorResponse(w, http.StatusForbidden, "Access denied", "cannot access another user's credential")
		return nil, false
	}
	return c, true
}

// ShowCredential handles GET /api/v1/credentials/{credential_id}
func (ih *IntegrationHandlers) ShowCredential(w http.ResponseWriter, r *http.Request) {
	ih.engine.TrackOperation()
	defer ih.engine.UntrackOperation()

	c, ok := ih.fetchOwnedCredential(w, r)
	if !ok {
		return
	}
	ih.engine.writeJSONResponse(w, http.StatusOK, toCredentialResponse(c, true))
}

// RotateCredential handles PUT /api/v1/credentials/{credential_id}/rotate
func (ih *IntegrationHandlers) RotateCredential(w http.ResponseWriter, r *http.Request) {
	ih.engine.TrackOperation()
	defer ih.engine.UntrackOperation()

	c, ok := ih.fetchOwnedCredential(w, r)
	if !ok {
		return
	}

	var req struct {
		Credentials  string `json:"credentials"`
		RefreshToken string `json:"refresh_token"`
		ExpiresAt    string `json:"expires_at"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ih.engine.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	if req.Credentials == "" {
		ih.engine.writeErrorResponse(w, http.StatusBadRequest, "credentials is required", "")
		return
	}

	var expiresAt *time.Time
	if req.ExpiresAt != "" {
		parsed, err := time.Parse(time.RFC3339, req.ExpiresAt)
		if err != nil {
			ih.engine.writeErrorResponse(w, http.StatusBadRequest, "Invalid expires_at timestamp", err.Error())
			return
		}
		expiresAt = &parsed
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	if err := ih.engine.integrations.RotateCredential(ctx, c.ID, req.Credentials, req.RefreshToken, expiresAt); err != nil {
		ih.engine.writeErrorResponse(w, http.StatusInternalServerError, "Failed to rotate credential", err.Error())
		return
	}

	ih.engine.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"message": "Credential rotated",
		"status":  StatusUpdated,
	})
}

// DeactivateCredential handles DELETE /api/v1/credentials/{credential_id}
func (ih *IntegrationHandlers) DeactivateCredential(w http.ResponseWriter, r *http.Request) {
	ih.engine.TrackOperation()
	defer ih.engine.UntrackOperation()

	c, ok := ih.fetchOwnedCredential(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	if err := ih.engine.integrations.DeactivateCredential(ctx, c.ID); err != nil {
		ih.engine.writeErrorResponse(w, http.StatusInternalServerError, "Failed to deactivate credential", err.Error())
		return
	}

	ih.engine.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"message": "Credential deactivated",
		"status":  StatusUpdated,
	})
}
