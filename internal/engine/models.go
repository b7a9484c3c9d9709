package engine

import (
	"encoding/json"
	"net/http"

	"github.com/paravault/paravault/pkg/models"
)

// Status represents the status of an operation
type Status string

const (
	StatusSuccess      Status = "success"
	StatusError        Status = "error"
	StatusDeleted      Status = "deleted"
	StatusUpdated      Status = "updated"
	StatusAcknowledged Status = "acknowledged"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Status  Status `json:"status"`
}

// writeJSONResponse writes a JSON response
func (e *Engine) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		if e.logger != nil {
			e.logger.Errorf("Failed to encode JSON response: %v", err)
		}
	}
}

// writeErrorResponse writes an error response
func (e *Engine) writeErrorResponse(w http.ResponseWriter, statusCode int, message, errorDetail string) {
	// Log error responses for monitoring and debugging
	if e.logger != nil {
		if statusCode >= 500 {
			e.logger.Errorf("HTTP %d - %s: %s", statusCode, message, errorDetail)
		} else if statusCode >= 400 {
			e.logger.Warnf("HTTP %d - %s: %s", statusCode, message, errorDetail)
		}
	}

	response := ErrorResponse{
		Error:   errorDetail,
		Message: message,
		Status:  StatusError,
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		if e.logger != nil {
			e.logger.Errorf("Failed to encode error response: %v", err)
		}
	}
}

// UserResponse is the REST representation of a user
type UserResponse struct {
	UserID    string      `json:"user_id"`
	UserEmail string      `json:"user_email"`
	UserName  string      `json:"user_name"`
	UserRole  models.Role `json:"user_role"`
	Enabled   bool        `json:"enabled"`
}

// ParalegalResponse is the REST representation of a virtual paralegal
type ParalegalResponse struct {
	VPID             string         `json:"vp_id"`
	OwnerID          string         `json:"owner_id"`
	Name             string         `json:"name"`
	Email            string         `json:"email"`
	Description      string         `json:"description"`
	Status           string         `json:"status"`
	Abilities        []string       `json:"abilities"`
	Behaviours       []string       `json:"behaviours"`
	TechTreeProgress map[string]int `json:"tech_tree_progress"`
}
