package engine

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"
)

// WebhookHandlers contains the inbound webhook handler. Upstream identity
// providers retry aggressively on non-2xx responses, so after the shared
// secret check this endpoint always acknowledges with 200; processing
// failures are logged and reported in the body only.
type WebhookHandlers struct {
	engine *Engine

	// process can be replaced in tests.
	process func(ctx context.Context, event WebhookEvent) error
}

// NewWebhookHandlers creates a new instance of WebhookHandlers
func NewWebhookHandlers(engine *Engine) *WebhookHandlers {
	wh := &WebhookHandlers{
		engine: engine,
	}
	wh.process = wh.processEvent
	return wh
}

// WebhookEvent is the inbound event envelope
type WebhookEvent struct {
	EventType string                 `json:"event_type"`
	Data      map[string]interface{} `json:"data"`
}

// Receive handles POST /auth/webhooks
func (wh *WebhookHandlers) Receive(w http.ResponseWriter, r *http.Request) {
	wh.engine.TrackOperation()
	defer wh.engine.UntrackOperation()

	if secret := wh.engine.webhookSecret; secret != "" {
		provided := r.Header.Get("X-Webhook-Secret")
		if subtle.ConstantTimeCompare([]byte(provided), []byte(secret)) != 1 {
			wh.engine.writeErrorResponse(w, http.StatusUnauthorized, "Unauthorized", "invalid webhook secret")
			return
		}
	}

	var event WebhookEvent
	err := json.NewDecoder(r.Body).Decode(&event)
	if err == nil {
		err = wh.process(r.Context(), event)
	}

	if err != nil {
		if wh.engine.logger != nil {
			wh.engine.logger.Errorf("Webhook processing failed for event %s: %v", event.EventType, err)
		}
		wh.engine.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
			"status":  StatusAcknowledged,
			"success": false,
		})
		return
	}

	wh.engine.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"status":  StatusAcknowledged,
		"success": true,
	})
}

func (wh *WebhookHandlers) processEvent(ctx context.Context, event WebhookEvent) error {
	switch event.EventType {
	case "user.updated":
		userID, _ := event.Data["user_id"].(string)
		if userID == "" {
			return fmt.Errorf("user.updated event missing user_id")
		}
		updates := make(map[string]interface{})
		if name, ok := event.Data["user_name"].(string); ok {
			updates["user_name"] = name
		}
		if enabled, ok := event.Data["user_enabled"].(bool); ok {
			updates["user_enabled"] = enabled
		}
		if len(updates) == 0 {
			return fmt.Errorf("user.updated event carried no recognized fields")
		}
		_, err := wh.engine.users.Update(ctx, userID, updates)
		return err
	case "user.deleted":
		userID, _ := event.Data["user_id"].(string)
		if userID == "" {
			return fmt.Errorf("user.deleted event missing user_id")
		}
		return wh.engine.users.Delete(ctx, userID)
	default:
		return fmt.Errorf("unsupported webhook event type: %s", event.EventType)
	}
}
