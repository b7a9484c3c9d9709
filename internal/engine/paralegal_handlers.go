package engine

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/paravault/paravault/internal/services/paralegal"
)

// ParalegalHandlers contains the virtual paralegal endpoint handlers
type ParalegalHandlers struct {
	engine *Engine
}

// NewParalegalHandlers creates a new instance of ParalegalHandlers
func NewParalegalHandlers(engine *Engine) *ParalegalHandlers {
	return &ParalegalHandlers{
		engine: engine,
	}
}

// AddParalegalRequest represents a paralegal creation request
type AddParalegalRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Description string `json:"description"`
}

// ModifyParalegalRequest represents a paralegal update request
type ModifyParalegalRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Status      *string `json:"status,omitempty"`
}

// ListParalegalsResponse represents a paralegal listing
type ListParalegalsResponse struct {
	Paralegals []ParalegalResponse `json:"paralegals"`
}

func toParalegalResponse(p *paralegal.Paralegal) ParalegalResponse {
	return ParalegalResponse{
		VPID:             p.ID,
		OwnerID:          p.OwnerID,
		Name:             p.Name,
		Email:            p.Email,
		Description:      p.Description,
		Status:           p.Status,
		Abilities:        p.Abilities,
		Behaviours:       p.Behaviours,
		TechTreeProgress: p.TechTreeProgress,
	}
}

// ownsParalegal reports whether the caller owns the paralegal or is an admin
func (ph *ParalegalHandlers) ownsParalegal(w http.ResponseWriter, r *http.Request, vpID string) (*paralegal.Paralegal, bool) {
	profile := callerProfile(r)
	if profile == nil {
		ph.engine.writeErrorResponse(w, http.StatusInternalServerError, "Profile not found in context", "")
		return nil, false
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	p, err := ph.engine.paralegals.Get(ctx, vpID)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			ph.engine.writeErrorResponse(w, http.StatusNotFound, "Paralegal not found", err.Error())
			return nil, false
		}
		ph.engine.writeErrorResponse(w, http.StatusInternalServerError, "Failed to get paralegal", err.Error())
		return nil, false
	}

	if p.OwnerID != profile.UserID && !profile.Role.IsAdmin() {
		ph.engine.writeErrorResponse(w, http.StatusForbidden, "Access denied", "cannot access another user's paralegal")
		return nil, false
	}
	return p, true
}

// ListParalegals handles GET /api/v1/paralegals
func (ph *ParalegalHandlers) ListParalegals(w http.ResponseWriter, r *http.Request) {
	ph.engine.TrackOperation()
	defer ph.engine.UntrackOperation()

	profile := callerProfile(r)
	if profile == nil {
		ph.engine.writeErrorResponse(w, http.StatusInternalServerError, "Profile not found in context", "")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	paralegals, err := ph.engine.paralegals.ListByOwner(ctx, profile.UserID)
	if err != nil {
		ph.engine.writeErrorResponse(w, http.StatusInternalServerError, "Failed to list paralegals", err.Error())
		return
	}

	response := ListParalegalsResponse{Paralegals: make([]ParalegalResponse, 0, len(paralegals))}
	for _, p := range paralegals {
		response.Paralegals = append(response.Paralegals, toParalegalResponse(p))
	}
	ph.engine.writeJSONResponse(w, http.StatusOK, response)
}

// AddParalegal handles POST /api/v1/paralegals
func (ph *ParalegalHandlers) AddParalegal(w http.ResponseWriter, r *http.Request) {
	ph.engine.TrackOperation()
	defer ph.engine.UntrackOperation()

	profile := callerProfile(r)
	if profile == nil {
		ph.engine.writeErrorResponse(w, http.StatusInternalServerError, "Profile not found in context", "")
		return
	}

	var req AddParalegalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ph.engine.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	if req.Name == "" {
		ph.engine.writeErrorResponse(w, http.StatusBadRequest, "name is required", "")
		return
	}
	if req.Email == "" {
		ph.engine.writeErrorResponse(w, http.StatusBadRequest, "email is required", "")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	p, err := ph.engine.paralegals.Create(ctx, profile.UserID, req.Name, req.Email, req.Description)
	if err != nil {
		if strings.Contains(err.Error(), "already exists") {
			ph.engine.writeErrorResponse(w, http.StatusConflict, "Paralegal already exists", err.Error())
			return
		}
		ph.engine.writeErrorResponse(w, http.StatusInternalServerError, "Failed to create paralegal", err.Error())
		return
	}

	ph.engine.writeJSONResponse(w, http.StatusCreated, toParalegalResponse(p))
}

// ShowParalegal handles GET /api/v1/paralegals/{vp_id}
func (ph *ParalegalHandlers) ShowParalegal(w http.ResponseWriter, r *http.Request) {
	ph.engine.TrackOperation()
	defer ph.engine.UntrackOperation()

	vpID := mux.Vars(r)["vp_id"]
	p, ok := ph.ownsParalegal(w, r, vpID)
	if !ok {
		return
	}
	ph.engine.writeJSONResponse(w, http.StatusOK, toParalegalResponse(p))
}

// ModifyParalegal handles PUT /api/v1/paralegals/{vp_id}
func (ph *ParalegalHandlers) ModifyParalegal(w http.ResponseWriter, r *http.Request) {
	ph.engine.TrackOperation()
	defer ph.engine.UntrackOperation()

	vpID := mux.Vars(r)["vp_id"]
	if _, ok := ph.ownsParalegal(w, r, vpID); !ok {
		return
	}

	var req ModifyParalegalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ph.engine.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	updates := make(map[string]interface{})
	if req.Name != nil {
		updates["vp_name"] = *req.Name
	}
	if req.Description != nil {
		updates["vp_description"] = *req.Description
	}
	if req.Status != nil {
		updates["vp_status"] = *req.Status
	}
	if len(updates) == 0 {
		ph.engine.writeErrorResponse(w, http.StatusBadRequest, "No fields to update", "")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	p, err := ph.engine.paralegals.Update(ctx, vpID, updates)
	if err != nil {
		ph.engine.writeErrorResponse(w, http.StatusInternalServerError, "Failed to update paralegal", err.Error())
		return
	}

	ph.engine.writeJSONResponse(w, http.StatusOK, toParalegalResponse(p))
}

// DeleteParalegal handles DELETE /api/v1/paralegals/{vp_id}
func (ph *ParalegalHandlers) DeleteParalegal(w http.ResponseWriter, r *http.Request) {
	ph.engine.TrackOperation()
	defer ph.engine.UntrackOperation()

	vpID := mux.Vars(r)["vp_id"]
	if _, ok := ph.ownsParalegal(w, r, vpID); !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	if err := ph.engine.paralegals.Delete(ctx, vpID); err != nil {
		ph.engine.writeErrorResponse(w, http.StatusInternalServerError, "Failed to delete paralegal", err.Error())
		return
	}

	ph.engine.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"message": "Paralegal deleted successfully",
		"status":  StatusDeleted,
	})
}

// GrantAbility handles POST /api/v1/paralegals/{vp_id}/abilities/{ability_id}
func (ph *ParalegalHandlers) GrantAbility(w http.ResponseWriter, r *http.Request) {
	ph.engine.TrackOperation()
	defer ph.engine.UntrackOperation()

	vars := mux.Vars(r)
	vpID := vars["vp_id"]
	abilityID := vars["ability_id"]

	if _, ok := ph.ownsParalegal(w, r, vpID); !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	// The ability must exist before it can be granted
	if _, err := ph.engine.abilities.Get(ctx, abilityID); err != nil {
		ph.engine.writeErrorResponse(w, http.StatusNotFound, "Ability not found", err.Error())
		return
	}

	p, err := ph.engine.paralegals.GrantAbility(ctx, vpID, abilityID)
	if err != nil {
		ph.engine.writeErrorResponse(w, http.StatusInternalServerError, "Failed to grant ability", err.Error())
		return
	}

	ph.engine.writeJSONResponse(w, http.StatusOK, toParalegalResponse(p))
}

// AssignBehaviour handles POST /api/v1/paralegals/{vp_id}/behaviours/{behaviour_id}
func (ph *ParalegalHandlers) AssignBehaviour(w http.ResponseWriter, r *http.Request) {
	ph.engine.TrackOperation()
	defer ph.engine.UntrackOperation()

	vars := mux.Vars(r)
	vpID := vars["vp_id"]
	behaviourID := vars["behaviour_id"]

	if _, ok := ph.ownsParalegal(w, r, vpID); !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	if _, err := ph.engine.behaviours.Get(ctx, behaviourID); err != nil {
		ph.engine.writeErrorResponse(w, http.StatusNotFound, "Behaviour not found", err.Error())
		return
	}

	p, err := ph.engine.paralegals.AssignBehaviour(ctx, vpID, behaviourID)
	if err != nil {
		ph.engine.writeErrorResponse(w, http.StatusInternalServerError, "Failed to assign behaviour", err.Error())
		return
	}

	ph.engine.writeJSONResponse(w, http.StatusOK, toParalegalResponse(p))
}

// SetTechTreeProgress handles PUT /api/v1/paralegals/{vp_id}/tech-tree/{node}
func (ph *ParalegalHandlers) SetTechTreeProgress(w http.ResponseWriter, r *http.Request) {
	ph.engine.TrackOperation()
	defer ph.engine.UntrackOperation()

	vars := mux.Vars(r)
	vpID := vars["vp_id"]
	node := vars["node"]

	if _, ok := ph.ownsParalegal(w, r, vpID); !ok {
		return
	}

	var req struct {
		Level int `json:"level"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ph.engine.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	if req.Level < 0 {
		ph.engine.writeErrorResponse(w, http.StatusBadRequest, "level must be non-negative", "")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	p, err := ph.engine.paralegals.SetTechTreeProgress(ctx, vpID, node, req.Level)
	if err != nil {
		ph.engine.writeErrorResponse(w, http.StatusInternalServerError, "Failed to set tech tree progress", err.Error())
		return
	}

	ph.engine.writeJSONResponse(w, http.StatusOK, toParalegalResponse(p))
}
