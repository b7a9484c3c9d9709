package engine

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/paravault/paravault/internal/orchestrator"
)

// EmailHandlers contains the inbound-email endpoint handlers. Ingestion is
// acknowledged but not yet queued anywhere; routing classifies the message
// intent and reports where it would be dispatched.
type EmailHandlers struct {
	engine *Engine
}

// NewEmailHandlers creates a new instance of EmailHandlers
func NewEmailHandlers(engine *Engine) *EmailHandlers {
	return &EmailHandlers{
		engine: engine,
	}
}

// InboundEmailRequest represents an inbound email payload
type InboundEmailRequest struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Receive handles POST /api/v1/inbound-email/receive
func (eh *EmailHandlers) Receive(w http.ResponseWriter, r *http.Request) {
	eh.engine.TrackOperation()
	defer eh.engine.UntrackOperation()

	var req InboundEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		eh.engine.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	eh.engine.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"status":      StatusAcknowledged,
		"message_id":  uuid.New().String(),
		"received_at": time.Now().UTC().Format(time.RFC3339),
	})
}

// Route handles POST /api/v1/inbound-email/route
func (eh *EmailHandlers) Route(w http.ResponseWriter, r *http.Request) {
	eh.engine.TrackOperation()
	defer eh.engine.UntrackOperation()

	var req InboundEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		eh.engine.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	intent := orchestrator.IntentUnknown
	if eh.engine.classifier != nil {
		classified, err := eh.engine.classifier.Classify(r.Context(), req.Subject+"\n"+req.Body)
		if err != nil {
			eh.engine.logger.Warnf("Intent classification failed, routing as unknown: %v", err)
		} else {
			intent = classified
		}
	}

	eh.engine.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"status": StatusAcknowledged,
		"intent": intent,
		"routed": false,
	})
}
