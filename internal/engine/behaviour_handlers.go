package engine

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/paravault/paravault/internal/services/behaviour"
	"github.com/paravault/paravault/pkg/models"
)

// BehaviourHandlers contains the behaviour endpoint handlers
type BehaviourHandlers struct {
	engine *Engine
}

// NewBehaviourHandlers creates a new instance of BehaviourHandlers
func NewBehaviourHandlers(engine *Engine) *BehaviourHandlers {
	return &BehaviourHandlers{
		engine: engine,
	}
}

// BehaviourResponse is the REST representation of a behaviour
type BehaviourResponse struct {
	BehaviourID  string                 `json:"behaviour_id"`
	Name         string                 `json:"name"`
	SystemPrompt string                 `json:"system_prompt"`
	Status       models.BehaviourStatus `json:"status"`
}

func toBehaviourResponse(b *behaviour.Behaviour) BehaviourResponse {
	return BehaviourResponse{
		BehaviourID:  b.ID,
		Name:         b.Name,
		SystemPrompt: b.SystemPrompt,
		Status:       b.Status,
	}
}

func (bh *BehaviourHandlers) requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	profile := callerProfile(r)
	if profile == nil {
		bh.engine.writeErrorResponse(w, http.StatusInternalServerError, "Profile not found in context", "")
		return false
	}
	if !profile.Role.IsAdmin() {
		bh.engine.writeErrorResponse(w, http.StatusForbidden, "Access denied", "admin role required")
		return false
	}
	return true
}

// ListBehaviours handles GET /api/v1/behaviours
func (bh *BehaviourHandlers) ListBehaviours(w http.ResponseWriter, r *http.Request) {
	bh.engine.TrackOperation()
	defer bh.engine.UntrackOperation()

	status := models.BehaviourStatus(r.URL.Query().Get("status"))
	if status != "" && !status.Valid() {
		bh.engine.writeErrorResponse(w, http.StatusBadRequest, "Invalid status filter", string(status))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	behaviours, err := bh.engine.behaviours.List(ctx, status)
	if err != nil {
		bh.engine.writeErrorResponse(w, http.StatusInternalServerError, "Failed to list behaviours", err.Error())
		return
	}

	response := make([]BehaviourResponse, 0, len(behaviours))
	for _, b := range behaviours {
		response = append(response, toBehaviourResponse(b))
	}
	bh.engine.writeJSONResponse(w, http.StatusOK, map[string]interface{}{"behaviours": response})
}

// AddBehaviour handles POST /api/v1/behaviours
func (bh *BehaviourHandlers) AddBehaviour(w http.ResponseWriter, r *http.Request) {
	bh.engine.TrackOperation()
	defer bh.engine.UntrackOperation()

	if !bh.requireAdmin(w, r) {
		return
	}

	var req struct {
		Name         string `json:"name"`
		SystemPrompt string `json:"system_prompt"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		bh.engine.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	if req.Name == "" {
		bh.engine.writeErrorResponse(w, http.StatusBadRequest, "name is required", "")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	b, err := bh.engine.behaviours.Create(ctx, req.Name, req.SystemPrompt)
	if err != nil {
		if strings.Contains(err.Error(), "already exists") {
			bh.engine.writeErrorResponse(w, http.StatusConflict, "Behaviour already exists", err.Error())
			return
		}
		bh.engine.writeErrorResponse(w, http.StatusInternalServerError, "Failed to create behaviour", err.Error())
		return
	}

	bh.engine.writeJSONResponse(w, http.StatusCreated, toBehaviourResponse(b))
}

// ShowBehaviour handles GET /api/v1/behaviours/{behaviour_id}
func (bh *BehaviourHandlers) ShowBehaviour(w http.ResponseWriter, r *http.Request) {
	bh.engine.TrackOperation()
	defer bh.engine.UntrackOperation()

	behaviourID := mux.Vars(r)["behaviour_id"]

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	b, err := bh.engine.behaviours.Get(ctx, behaviourID)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			bh.engine.writeErrorResponse(w, http.StatusNotFound, "Behaviour not found", err.Error())
			return
		}
		bh.engine.writeErrorResponse(w, http.StatusInternalServerError, "Failed to get behaviour", err.Error())
		return
	}

	bh.engine.writeJSONResponse(w, http.StatusOK, toBehaviourResponse(b))
}

// ModifyBehaviour handles PUT /api/v1/behaviours/{behaviour_id}
func (bh *BehaviourHandlers) ModifyBehaviour(w http.ResponseWriter, r *http.Request) {
	bh.engine.TrackOperation()
	defer bh.engine.UntrackOperation()

	if !bh.requireAdmin(w, r) {
		return
	}

	behaviourID := mux.Vars(r)["behaviour_id"]

	var req struct {
		Name         *string                 `json:"name,omitempty"`
		SystemPrompt *string                 `json:"system_prompt,omitempty"`
		Status       *models.BehaviourStatus `json:"status,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		bh.engine.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	updates := make(map[string]interface{})
	if req.Name != nil {
		updates["behaviour_name"] = *req.Name
	}
	if req.SystemPrompt != nil {
		updates["system_prompt"] = *req.SystemPrompt
	}
	if req.Status != nil {
		if !req.Status.Valid() {
			bh.engine.writeErrorResponse(w, http.StatusBadRequest, "Invalid behaviour status", string(*req.Status))
			return
		}
		updates["behaviour_status"] = *req.Status
	}
	if len(updates) == 0 {
		bh.engine.writeErrorResponse(w, http.StatusBadRequest, "No fields to update", "")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	b, err := bh.engine.behaviours.Update(ctx, behaviourID, updates)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			bh.engine.writeErrorResponse(w, http.StatusNotFound, "Behaviour not found", err.Error())
			return
		}
		bh.engine.writeErrorResponse(w, http.StatusInternalServerError, "Failed to update behaviour", err.Error())
		return
	}

	bh.engine.writeJSONResponse(w, http.StatusOK, toBehaviourResponse(b))
}

// DeleteBehaviour handles DELETE /api/v1/behaviours/{behaviour_id}
func (bh *BehaviourHandlers) DeleteBehaviour(w http.ResponseWriter, r *http.Request) {
	bh.engine.TrackOperation()
	defer bh.engine.UntrackOperation()

	if !bh.requireAdmin(w, r) {
		return
	}

	behaviourID := mux.Vars(r)["behaviour_id"]

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	if err := bh.engine.behaviours.Delete(ctx, behaviourID); err != nil {
		if strings.Contains(err.Error(), "not found") {
			bh.engine.writeErrorResponse(w, http.StatusNotFound, "Behaviour not found", err.Error())
			return
		}
		bh.engine.writeErrorResponse(w, http.StatusInternalServerError, "Failed to delete behaviour", err.Error())
		return
	}

	bh.engine.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"message": "Behaviour deleted successfully",
		"status":  StatusDeleted,
	})
}
