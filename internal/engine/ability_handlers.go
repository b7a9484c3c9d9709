package engine

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/paravault/paravault/internal/services/ability"
)

// AbilityHandlers contains the ability endpoint handlers
type AbilityHandlers struct {
	engine *Engine
}

// NewAbilityHandlers creates a new instance of AbilityHandlers
func NewAbilityHandlers(engine *Engine) *AbilityHandlers {
	return &AbilityHandlers{
		engine: engine,
	}
}

// AbilityResponse is the REST representation of an ability
type AbilityResponse struct {
	AbilityID    string                 `json:"ability_id"`
	Name         string                 `json:"name"`
	Description  string                 `json:"description"`
	Structure    map[string]interface{} `json:"structure"`
	Requirements map[string]interface{} `json:"requirements"`
}

// AbilityOperationResponse is the REST representation of an ability
// sub-operation
type AbilityOperationResponse struct {
	OperationID   string                 `json:"operation_id"`
	AbilityID     string                 `json:"ability_id"`
	OperationName string                 `json:"operation_name"`
	InputSchema   map[string]interface{} `json:"input_schema"`
	OutputSchema  map[string]interface{} `json:"output_schema"`
	WorkflowSteps []string               `json:"workflow_steps"`
	Constraints   map[string]interface{} `json:"constraints"`
	Permissions   []string               `json:"permissions"`
}

func toAbilityResponse(a *ability.Ability) AbilityResponse {
	return AbilityResponse{
		AbilityID:    a.ID,
		Name:         a.Name,
		Description:  a.Description,
		Structure:    a.Structure,
		Requirements: a.Requirements,
	}
}

func toOperationResponse(op *ability.AbilityOperation) AbilityOperationResponse {
	return AbilityOperationResponse{
		OperationID:   op.ID,
		AbilityID:     op.AbilityID,
		OperationName: op.OperationName,
		InputSchema:   op.InputSchema,
		OutputSchema:  op.OutputSchema,
		WorkflowSteps: op.WorkflowSteps,
		Constraints:   op.Constraints,
		Permissions:   op.Permissions,
	}
}

// requireAdmin writes a 403 and returns false unless the caller is an admin
func (abh *AbilityHandlers) requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	profile := callerProfile(r)
	if profile == nil {
		abh.engine.writeErrorResponse(w, http.StatusInternalServerError, "Profile not found in context", "")
		return false
	}
	if !profile.Role.IsAdmin() {
		abh.engine.writeErrorResponse(w, http.StatusForbidden, "Access denied", "admin role required")
		return false
	}
	return true
}

// ListAbilities handles GET /api/v1/abilities
func (abh *AbilityHandlers) ListAbilities(w http.ResponseWriter, r *http.Request) {
	abh.engine.TrackOperation()
	defer abh.engine.UntrackOperation()

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	abilities, err := abh.engine.abilities.List(ctx)
	if err != nil {
		abh.engine.writeErrorResponse(w, http.StatusInternalServerError, "Failed to list abilities", err.Error())
		return
	}

	response := make([]AbilityResponse, 0, len(abilities))
	for _, a := range abilities {
		response = append(response, toAbilityResponse(a))
	}
	abh.engine.writeJSONResponse(w, http.StatusOK, map[string]interface{}{"abilities": response})
}

// AddAbility handles POST /api/v1/abilities
func (abh *AbilityHandlers) AddAbility(w http.ResponseWriter, r *http.Request) {
	abh.engine.TrackOperation()
	defer abh.engine.UntrackOperation()

	if !abh.requireAdmin(w, r) {
		return
	}

	var req struct {
		Name         string                 `json:"name"`
		Description  string                 `json:"description"`
		Structure    map[string]interface{} `json:"structure"`
		Requirements map[string]interface{} `json:"requirements"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		abh.engine.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	if req.Name == "" {
		abh.engine.writeErrorResponse(w, http.StatusBadRequest, "name is required", "")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	a, err := abh.engine.abilities.Create(ctx, req.Name, req.Description, req.Structure, req.Requirements)
	if err != nil {
		abh.engine.writeErrorResponse(w, http.StatusInternalServerError, "Failed to create ability", err.Error())
		return
	}

	abh.engine.writeJSONResponse(w, http.StatusCreated, toAbilityResponse(a))
}

// ShowAbility handles GET /api/v1/abilities/{ability_id}
func (abh *AbilityHandlers) ShowAbility(w http.ResponseWriter, r *http.Request) {
	abh.engine.TrackOperation()
	defer abh.engine.UntrackOperation()

	abilityID := mux.Vars(r)["ability_id"]

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	a, err := abh.engine.abilities.Get(ctx, abilityID)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			abh.engine.writeErrorResponse(w, http.StatusNotFound, "Ability not found", err.Error())
			return
		}
		abh.engine.writeErrorResponse(w, http.StatusInternalServerError, "Failed to get ability", err.Error())
		return
	}

	abh.engine.writeJSONResponse(w, http.StatusOK, toAbilityResponse(a))
}

// ModifyAbility handles PUT /api/v1/abilities/{ability_id}
func (abh *AbilityHandlers) ModifyAbility(w http.ResponseWriter, r *http.Request) {
	abh.engine.TrackOperation()
	defer abh.engine.UntrackOperation()

	if !abh.requireAdmin(w, r) {
		return
	}

	abilityID := mux.Vars(r)["ability_id"]

	var req struct {
		Name         *string                `json:"name,omitempty"`
		Description  *string                `json:"description,omitempty"`
		Structure    map[string]interface{} `json:"structure,omitempty"`
		Requirements map[string]interface{} `json:"requirements,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		abh.engine.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	updates := make(map[string]interface{})
	if req.Name != nil {
		updates["ability_name"] = *req.Name
	}
	if req.Description != nil {
		updates["ability_description"] = *req.Description
	}
	if req.Structure != nil {
		updates["structure"] = req.Structure
	}
	if req.Requirements != nil {
		updates["requirements"] = req.Requirements
	}
	if len(updates) == 0 {
		abh.engine.writeErrorResponse(w, http.StatusBadRequest, "No fields to update", "")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	a, err := abh.engine.abilities.Update(ctx, abilityID, updates)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			abh.engine.writeErrorResponse(w, http.StatusNotFound, "Ability not found", err.Error())
			return
		}
		abh.engine.writeErrorResponse(w, http.StatusInternalServerError, "Failed to update ability", err.Error())
		return
	}

	abh.engine.writeJSONResponse(w, http.StatusOK, toAbilityResponse(a))
}

// DeleteAbility handles DELETE /api/v1/abilities/{ability_id}
func (abh *AbilityHandlers) DeleteAbility(w http.ResponseWriter, r *http.Request) {
	abh.engine.TrackOperation()
	defer abh.engine.UntrackOperation()

	if !abh.requireAdmin(w, r) {
		return
	}

	abilityID := mux.Vars(r)["ability_id"]

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	if err := abh.engine.abilities.Delete(ctx, abilityID); err != nil {
		if strings.Contains(err.Error(), "not found") {
			abh.engine.writeErrorResponse(w, http.StatusNotFound, "Ability not found", err.Error())
			return
		}
		abh.engine.writeErrorResponse(w, http.StatusInternalServerError, "Failed to delete ability", err.Error())
		return
	}

	abh.engine.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"message": "Ability deleted successfully",
		"status":  StatusDeleted,
	})
}

// ListOperations handles GET /api/v1/abilities/{ability_id}/operations
func (abh *AbilityHandlers) ListOperations(w http.ResponseWriter, r *http.Request) {
	abh.engine.TrackOperation()
	defer abh.engine.UntrackOperation()

	abilityID := mux.Vars(r)["ability_id"]

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	ops, err := abh.engine.abilities.GetOperations(ctx, abilityID)
	if err != nil {
		abh.engine.writeErrorResponse(w, http.StatusInternalServerError, "Failed to list ability operations", err.Error())
		return
	}

	response := make([]AbilityOperationResponse, 0, len(ops))
	for _, op := range ops {
		response = append(response, toOperationResponse(op))
	}
	abh.engine.writeJSONResponse(w, http.StatusOK, map[string]interface{}{"operations": response})
}

// AddOperation handles POST /api/v1/abilities/{ability_id}/operations
func (abh *AbilityHandlers) AddOperation(w http.ResponseWriter, r *http.Request) {
	abh.engine.TrackOperation()
	defer abh.engine.UntrackOperation()

	if !abh.requireAdmin(w, r) {
		return
	}

	abilityID := mux.Vars(r)["ability_id"]

	var req struct {
		OperationName string                 `json:"operation_name"`
		InputSchema   map[string]interface{} `json:"input_schema"`
		OutputSchema  map[string]interface{} `json:"output_schema"`
		WorkflowSteps []string               `json:"workflow_steps"`
		Constraints   map[string]interface{} `json:"constraints"`
		Permissions   []string               `json:"permissions"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		abh.engine.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	if req.OperationName == "" {
		abh.engine.writeErrorResponse(w, http.StatusBadRequest, "operation_name is required", "")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	op, err := abh.engine.abilities.AddOperation(ctx, &ability.AbilityOperation{
		AbilityID:     abilityID,
		OperationName: req.OperationName,
		InputSchema:   req.InputSchema,
		OutputSchema:  req.OutputSchema,
		WorkflowSteps: req.WorkflowSteps,
		Constraints:   req.Constraints,
		Permissions:   req.Permissions,
	})
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			abh.engine.writeErrorResponse(w, http.StatusNotFound, "Ability not found", err.Error())
			return
		}
		abh.engine.writeErrorResponse(w, http.StatusInternalServerError, "Failed to add ability operation", err.Error())
		return
	}

	abh.engine.writeJSONResponse(w, http.StatusCreated, toOperationResponse(op))
}
