package notifier

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paravault/paravault/pkg/logger"
)

func TestSendDeliversPayloadWithSecretHeader(t *testing.T) {
	var gotSecret atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSecret.Store(r.Header.Get("X-Webhook-Secret"))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := New(logger.New("test", "test"))
	err := n.Send(context.Background(), Delivery{
		ID:      "d1",
		URL:     srv.URL,
		Event:   "task.created",
		Payload: map[string]string{"task_id": "t1"},
		Secret:  "hush",
	})
	require.NoError(t, err)
	assert.Equal(t, "hush", gotSecret.Load())

	status, ok := n.Status("d1")
	require.True(t, ok)
	assert.Equal(t, StatusSuccess, status)
}

func TestSendRetriesUntilSuccess(t *testing.T) {
	var calls int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt64(&calls, 1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := New(logger.New("test", "test"))
	err := n.Send(context.Background(), Delivery{
		ID:         "d2",
		URL:        srv.URL,
		Event:      "task.created",
		MaxRetries: 3,
		RetryDelay: time.Millisecond,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), atomic.LoadInt64(&calls))
}

func TestSendGivesUpAfterMaxRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	n := New(logger.New("test", "test"))
	err := n.Send(context.Background(), Delivery{
		ID:         "d3",
		URL:        srv.URL,
		Event:      "task.created",
		MaxRetries: 1,
		RetryDelay: time.Millisecond,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")

	status, ok := n.Status("d3")
	require.True(t, ok)
	assert.Equal(t, StatusFailed, status)

	metrics := n.GetMetrics()
	assert.Equal(t, int64(1), metrics["notifications_failed"])
}

func TestTrackerStaysBounded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := New(logger.New("test", "test"))
	total := maxTrackedDeliveries + 50
	for i := 0; i < total; i++ {
		err := n.Send(context.Background(), Delivery{
			ID:    fmt.Sprintf("d-%d", i),
			URL:   srv.URL,
			Event: "task.created",
		})
		require.NoError(t, err)
	}

	n.trackerMutex.RLock()
	tracked := len(n.tracker)
	n.trackerMutex.RUnlock()
	assert.LessOrEqual(t, tracked, maxTrackedDeliveries)

	// the most recent delivery is still queryable
	status, ok := n.Status(fmt.Sprintf("d-%d", total-1))
	require.True(t, ok)
	assert.Equal(t, StatusSuccess, status)
}
