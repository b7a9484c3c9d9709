package notifier

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/paravault/paravault/pkg/logger"
)

// DeliveryStatus tracks the lifecycle of an outbound notification
type DeliveryStatus string

const (
	StatusSending  DeliveryStatus = "sending"
	StatusRetrying DeliveryStatus = "retrying"
	StatusSuccess  DeliveryStatus = "success"
	StatusFailed   DeliveryStatus = "failed"
)

// maxTrackedDeliveries bounds the in-memory delivery tracker. When full,
// the oldest finished delivery is evicted to make room.
const maxTrackedDeliveries = 1000

// Delivery describes one outbound webhook notification
type Delivery struct {
	ID         string
	URL        string
	Event      string
	Payload    interface{}
	Secret     string
	MaxRetries int
	RetryDelay time.Duration
}

type deliveryState struct {
	ID             string
	Status         DeliveryStatus
	Attempts       int
	LastAttempt    time.Time
	LastError      string
	LastStatusCode int
}

// Notifier delivers event notifications to external HTTP endpoints with
// bounded retries. Deliveries are tracked in memory for inspection.
type Notifier struct {
	httpClient *http.Client
	logger     *logger.Logger

	tracker      map[string]*deliveryState
	trackerMutex sync.RWMutex

	metrics struct {
		sent      int64
		succeeded int64
		failed    int64
	}
}

// New creates a Notifier with a shared HTTP client
func New(lg *logger.Logger) *Notifier {
	return &Notifier{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{
					InsecureSkipVerify: false,
				},
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		logger:  lg,
		tracker: make(map[string]*deliveryState),
	}
}

// Send delivers the notification, retrying up to MaxRetries times. It
// returns the error of the final attempt if every attempt failed.
func (n *Notifier) Send(ctx context.Context, d Delivery) error {
	atomic.AddInt64(&n.metrics.sent, 1)
	if d.ID != "" {
		n.track(d.ID)
	}

	var lastErr error
	for attempt := 1; attempt <= d.MaxRetries+1; attempt++ {
		err := n.deliver(ctx, d)
		if err == nil {
			n.updateStatus(d.ID, StatusSuccess, "", http.StatusOK)
			atomic.AddInt64(&n.metrics.succeeded, 1)
			return nil
		}

		lastErr = err
		if attempt <= d.MaxRetries {
			n.updateStatus(d.ID, StatusRetrying, err.Error(), 0)
			if n.logger != nil {
				n.logger.Warnf("Notification %s attempt %d failed, retrying: %v", d.ID, attempt, err)
			}
			select {
			case <-ctx.Done():
				n.updateStatus(d.ID, StatusFailed, ctx.Err().Error(), 0)
				atomic.AddInt64(&n.metrics.failed, 1)
				return ctx.Err()
			case <-time.After(d.RetryDelay):
			}
			continue
		}
		n.updateStatus(d.ID, StatusFailed, err.Error(), 0)
	}

	atomic.AddInt64(&n.metrics.failed, 1)
	return fmt.Errorf("notification delivery failed after %d attempts: %w", d.MaxRetries+1, lastErr)
}

func (n *Notifier) deliver(ctx context.Context, d Delivery) error {
	body, err := json.Marshal(map[string]interface{}{
		"event": d.Event,
		"data":  d.Payload,
	})
	if err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if d.Secret != "" {
		req.Header.Set("X-Webhook-Secret", d.Secret)
	}

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

// GetMetrics returns delivery counters
func (n *Notifier) GetMetrics() map[string]int64 {
	return map[string]int64{
		"notifications_sent":      atomic.LoadInt64(&n.metrics.sent),
		"notifications_succeeded": atomic.LoadInt64(&n.metrics.succeeded),
		"notifications_failed":    atomic.LoadInt64(&n.metrics.failed),
	}
}

// Status returns the tracked state of a delivery
func (n *Notifier) Status(deliveryID string) (DeliveryStatus, bool) {
	n.trackerMutex.RLock()
	defer n.trackerMutex.RUnlock()

	state, ok := n.tracker[deliveryID]
	if !ok {
		return "", false
	}
	return state.Status, true
}

func (n *Notifier) track(deliveryID string) {
	n.trackerMutex.Lock()
	defer n.trackerMutex.Unlock()

	if _, exists := n.tracker[deliveryID]; !exists && len(n.tracker) >= maxTrackedDeliveries {
		n.evictOldestLocked()
	}
	n.tracker[deliveryID] = &deliveryState{
		ID:          deliveryID,
		Status:      StatusSending,
		LastAttempt: time.Now(),
	}
}

// evictOldestLocked removes the oldest finished delivery, or the oldest
// delivery outright when none have finished. Caller holds trackerMutex.
func (n *Notifier) evictOldestLocked() {
	var victim string
	var victimTime time.Time
	victimTerminal := false

	for id, state := range n.tracker {
		terminal := state.Status == StatusSuccess || state.Status == StatusFailed
		if terminal && !victimTerminal {
			victim, victimTime, victimTerminal = id, state.LastAttempt, true
			continue
		}
		if terminal == victimTerminal && (victim == "" || state.LastAttempt.Before(victimTime)) {
			victim, victimTime = id, state.LastAttempt
		}
	}
	if victim != "" {
		delete(n.tracker, victim)
	}
}

func (n *Notifier) updateStatus(deliveryID string, status DeliveryStatus, errMsg string, statusCode int) {
	if deliveryID == "" {
		return
	}
	n.trackerMutex.Lock()
	defer n.trackerMutex.Unlock()

	if state, ok := n.tracker[deliveryID]; ok {
		state.Status = status
		state.LastAttempt = time.Now()
		state.LastError = errMsg
		state.LastStatusCode = statusCode
		state.Attempts++
	}
}
