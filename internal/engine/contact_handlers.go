package engine

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/paravault/paravault/internal/services/contact"
	"github.com/paravault/paravault/pkg/models"
)

// ContactHandlers contains the contact endpoint handlers
type ContactHandlers struct {
	engine *Engine
}

// NewContactHandlers creates a new instance of ContactHandlers
func NewContactHandlers(engine *Engine) *ContactHandlers {
	return &ContactHandlers{
		engine: engine,
	}
}

// ContactResponse is the REST representation of a contact
type ContactResponse struct {
	ContactID string `json:"contact_id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

// AssociationResponse is the REST representation of a contact
// association row
type AssociationResponse struct {
	AssociationID string             `json:"association_id"`
	ContactID     string             `json:"contact_id"`
	TargetID      string             `json:"target_id"`
	Role          models.ContactRole `json:"role"`
}

func toContactResponse(c *contact.Contact) ContactResponse {
	return ContactResponse{
		ContactID: c.ID,
		FirstName: c.FirstName,
		LastName:  c.LastName,
		Email:     c.Email,
		Phone:     c.Phone,
	}
}

func toAssociationResponse(a *contact.Association) AssociationResponse {
	return AssociationResponse{
		AssociationID: a.ID,
		ContactID:     a.ContactID,
		TargetID:      a.TargetID,
		Role:          a.Role,
	}
}

// ListContacts handles GET /api/v1/contacts
func (ch *ContactHandlers) ListContacts(w http.ResponseWriter, r *http.Request) {
	ch.engine.TrackOperation()
	defer ch.engine.UntrackOperation()

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	contacts, err := ch.engine.contacts.List(ctx)
	if err != nil {
		ch.engine.writeErrorResponse(w, http.StatusInternalServerError, "Failed to list contacts", err.Error())
		return
	}

	response := make([]ContactResponse, 0, len(contacts))
	for _, c := range contacts {
		response = append(response, toContactResponse(c))
	}
	ch.engine.writeJSONResponse(w, http.StatusOK, map[string]interface{}{"contacts": response})
}

// AddContact handles POST /api/v1/contacts
func (ch *ContactHandlers) AddContact(w http.ResponseWriter, r *http.Request) {
	ch.engine.TrackOperation()
	defer ch.engine.UntrackOperation()

	var req struct {
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		Email     string `json:"email"`
		Phone     string `json:"phone"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ch.engine.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	if req.FirstName == "" && req.LastName == "" {
		ch.engine.writeErrorResponse(w, http.StatusBadRequest, "first_name or last_name is required", "")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	c, err := ch.engine.contacts.Create(ctx, req.FirstName, req.LastName, req.Email, req.Phone)
	if err != nil {
		ch.engine.writeErrorResponse(w, http.StatusInternalServerError, "Failed to create contact", err.Error())
		return
	}

	ch.engine.writeJSONResponse(w, http.StatusCreated, toContactResponse(c))
}

// ShowContact handles GET /api/v1/contacts/{contact_id}
func (ch *ContactHandlers) ShowContact(w http.ResponseWriter, r *http.Request) {
	ch.engine.TrackOperation()
	defer ch.engine.UntrackOperation()

	contactID := mux.Vars(r)["contact_id"]

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	c, err := ch.engine.contacts.Get(ctx, contactID)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			ch.engine.writeErrorResponse(w, http.StatusNotFound, "Contact not found", err.Error())
			return
		}
		ch.engine.writeErrorResponse(w, http.StatusInternalServerError, "Failed to get contact", err.Error())
		return
	}

	ch.engine.writeJSONResponse(w, http.StatusOK, toContactResponse(c))
}

// ModifyContact handles PUT /api/v1/contacts/{contact_id}
func (ch *ContactHandlers) ModifyContact(w http.ResponseWriter, r *http.Request) {
	ch.engine.TrackOperation()
	defer ch.engine.UntrackOperation()

	contactID := mux.Vars(r)["contact_id"]

	var req struct {
		FirstName *string `json:"first_name,omitempty"`
		LastName  *string `json:"last_name,omitempty"`
		Email     *string `json:"email,omitempty"`
		Phone     *string `json:"phone,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ch.engine.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	updates := make(map[string]interface{})
	if req.FirstName != nil {
		updates["first_name"] = *req.FirstName
	}
	if req.LastName != nil {
		updates["last_name"] = *req.LastName
	}
	if req.Email != nil {
		updates["contact_email"] = *req.Email
	}
	if req.Phone != nil {
		updates["contact_phone"] = *req.Phone
	}
	if len(updates) == 0 {
		ch.engine.writeErrorResponse(w, http.StatusBadRequest, "No fields to update", "")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	c, err := ch.engine.contacts.Update(ctx, contactID, updates)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			ch.engine.writeErrorResponse(w, http.StatusNotFound, "Contact not found", err.Error())
			return
		}
		ch.engine.writeErrorResponse(w, http.StatusInternalServerError, "Failed to update contact", err.Error())
		return
	}

	ch.engine.writeJSONResponse(w, http.StatusOK, toContactResponse(c))
}

// DeleteContact handles DELETE /api/v1/contacts/{contact_id}
func (ch *ContactHandlers) DeleteContact(w http.ResponseWriter, r *http.Request) {
	ch.engine.TrackOperation()
	defer ch.engine.UntrackOperation()

	contactID := mux.Vars(r)["contact_id"]

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	if err := ch.engine.contacts.Delete(ctx, contactID); err != nil {
		if strings.Contains(err.Error(), "not found") {
			ch.engine.writeErrorResponse(w, http.StatusNotFound, "Contact not found", err.Error())
			return
		}
		ch.engine.writeErrorResponse(w, http.StatusInternalServerError, "Failed to delete contact", err.Error())
		return
	}

	ch.engine.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"message": "Contact deleted successfully",
		"status":  StatusDeleted,
	})
}

type linkRequest struct {
	TargetID string             `json:"target_id"`
	Role     models.ContactRole `json:"role"`
}

// LinkClient handles POST /api/v1/contacts/{contact_id}/clients
func (ch *ContactHandlers) LinkClient(w http.ResponseWriter, r *http.Request) {
	ch.link(w, r, true)
}

// LinkProject handles POST /api/v1/contacts/{contact_id}/projects
func (ch *ContactHandlers) LinkProject(w http.ResponseWriter, r *http.Request) {
	ch.link(w, r, false)
}

func (ch *ContactHandlers) link(w http.ResponseWriter, r *http.Request, client bool) {
	ch.engine.TrackOperation()
	defer ch.engine.UntrackOperation()

	contactID := mux.Vars(r)["contact_id"]

	var req linkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ch.engine.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	if req.TargetID == "" {
		ch.engine.writeErrorResponse(w, http.StatusBadRequest, "target_id is required", "")
		return
	}
	if !req.Role.Valid() {
		ch.engine.writeErrorResponse(w, http.StatusBadRequest, "Invalid contact role", string(req.Role))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	var a *contact.Association
	var err error
	if client {
		a, err = ch.engine.contacts.LinkClient(ctx, contactID, req.TargetID, req.Role)
	} else {
		a, err = ch.engine.contacts.LinkProject(ctx, contactID, req.TargetID, req.Role)
	}
	if err != nil {
		ch.engine.writeErrorResponse(w, http.StatusInternalServerError, "Failed to link contact", err.Error())
		return
	}

	ch.engine.writeJSONResponse(w, http.StatusCreated, toAssociationResponse(a))
}

// ListClientLinks handles GET /api/v1/contacts/{contact_id}/clients
func (ch *ContactHandlers) ListClientLinks(w http.ResponseWriter, r *http.Request) {
	ch.listLinks(w, r, true)
}

// ListProjectLinks handles GET /api/v1/contacts/{contact_id}/projects
func (ch *ContactHandlers) ListProjectLinks(w http.ResponseWriter, r *http.Request) {
	ch.listLinks(w, r, false)
}

func (ch *ContactHandlers) listLinks(w http.ResponseWriter, r *http.Request, client bool) {
	ch.engine.TrackOperation()
	defer ch.engine.UntrackOperation()

	contactID := mux.Vars(r)["contact_id"]

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	var associations []*contact.Association
	var err error
	if client {
		associations, err = ch.engine.contacts.ClientAssociations(ctx, contactID)
	} else {
		associations, err = ch.engine.contacts.ProjectAssociations(ctx, contactID)
	}
	if err != nil {
		ch.engine.writeErrorResponse(w, http.StatusInternalServerError, "Failed to list contact associations", err.Error())
		return
	}

	response := make([]AssociationResponse, 0, len(associations))
	for _, a := range associations {
		response = append(response, toAssociationResponse(a))
	}
	ch.engine.writeJSONResponse(w, http.StatusOK, map[string]interface{}{"associations": response})
}

// UnlinkClient handles DELETE /api/v1/contacts/{contact_id}/clients/{association_id}
func (ch *ContactHandlers) UnlinkClient(w http.ResponseWriter, r *http.Request) {
	ch.unlink(w, r, "contact_clients")
}

// UnlinkProject handles DELETE /api/v1/contacts/{contact_id}/projects/{association_id}
func (ch *ContactHandlers) UnlinkProject(w http.ResponseWriter, r *http.Request) {
	ch.unlink(w, r, "contact_projects")
}

func (ch *ContactHandlers) unlink(w http.ResponseWriter, r *http.Request, table string) {
	ch.engine.TrackOperation()
	defer ch.engine.UntrackOperation()

	associationID := mux.Vars(r)["association_id"]

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	if err := ch.engine.contacts.Unlink(ctx, table, associationID); err != nil {
		if strings.Contains(err.Error(), "not found") {
			ch.engine.writeErrorResponse(w, http.StatusNotFound, "Association not found", err.Error())
			return
		}
		ch.engine.writeErrorResponse(w, http.StatusInternalServerError, "Failed to unlink contact", err.Error())
		return
	}

	ch.engine.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"message": "Association removed",
		"status":  StatusDeleted,
	})
}
