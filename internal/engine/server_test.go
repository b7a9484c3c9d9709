package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paravault/paravault/internal/auth"
	"github.com/paravault/paravault/internal/memory"
	"github.com/paravault/paravault/internal/services/user"
	"github.com/paravault/paravault/pkg/health"
	"github.com/paravault/paravault/pkg/logger"
	"github.com/paravault/paravault/pkg/models"
)

type fakeAuthManager struct {
	profiles map[string]*auth.Profile
}

func (f *fakeAuthManager) Login(ctx context.Context, email, password string) (*auth.Profile, *auth.TokenPair, error) {
	return nil, nil, auth.ErrInvalidCredentials
}

func (f *fakeAuthManager) Validate(ctx context.Context, token string) (*auth.Profile, error) {
	if p, ok := f.profiles[token]; ok {
		return p, nil
	}
	return nil, auth.ErrInvalidToken
}

func (f *fakeAuthManager) Refresh(ctx context.Context, refreshToken string) (*auth.TokenPair, error) {
	return nil, auth.ErrInvalidToken
}

func (f *fakeAuthManager) Logout(ctx context.Context, sessionID string) error {
	return nil
}

func (f *fakeAuthManager) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	return nil
}

type fakeUserStore struct {
	users map[string]*user.User
}

func (f *fakeUserStore) Create(ctx context.Context, email, name, password string, role models.Role) (*user.User, error) {
	return nil, fmt.Errorf("not implemented")
}

func (f *fakeUserStore) Get(ctx context.Context, userID string) (*user.User, error) {
	if u, ok := f.users[userID]; ok {
		return u, nil
	}
	return nil, fmt.Errorf("user not found")
}

func (f *fakeUserStore) List(ctx context.Context) ([]*user.User, error) {
	out := make([]*user.User, 0, len(f.users))
	for _, u := range f.users {
		out = append(out, u)
	}
	return out, nil
}

func (f *fakeUserStore) Update(ctx context.Context, userID string, updates map[string]interface{}) (*user.User, error) {
	u, ok := f.users[userID]
	if !ok {
		return nil, fmt.Errorf("user not found")
	}
	if name, ok := updates["user_name"].(string); ok {
		u.Name = name
	}
	if enabled, ok := updates["user_enabled"].(bool); ok {
		u.Enabled = enabled
	}
	return u, nil
}

func (f *fakeUserStore) Delete(ctx context.Context, userID string) error {
	if _, ok := f.users[userID]; !ok {
		return fmt.Errorf("user not found")
	}
	delete(f.users, userID)
	return nil
}

// stubMemoryExecutor answers every memory operation with a canned record.
type stubMemoryExecutor struct {
	creates int
}

func (s *stubMemoryExecutor) Get(ctx context.Context, in memory.Input) (*memory.Record, error) {
	return &memory.Record{ID: "rec-1", VPID: in.VPID}, nil
}

func (s *stubMemoryExecutor) GetAll(ctx context.Context, in memory.Input) ([]memory.Record, error) {
	return []memory.Record{}, nil
}

func (s *stubMemoryExecutor) Create(ctx context.Context, in memory.Input) (*memory.Record, error) {
	s.creates++
	return &memory.Record{ID: "rec-1", VPID: in.VPID, Summary: in.Summary, Context: in.Context}, nil
}

func (s *stubMemoryExecutor) Update(ctx context.Context, in memory.Input) (*memory.Record, error) {
	return &memory.Record{ID: in.RecordID, VPID: in.VPID}, nil
}

func (s *stubMemoryExecutor) Delete(ctx context.Context, in memory.Input) error {
	return nil
}

func newTestServer(t *testing.T) (*Server, *Engine) {
	t.Helper()

	e := &Engine{
		logger:        logger.New("test", "test"),
		checker:       health.NewChecker(),
		webhookSecret: "topsecret",
		tokens: &fakeAuthManager{
			profiles: map[string]*auth.Profile{
				"token-alice": {UserID: "alice", Email: "alice@example.com", Role: models.RoleMember, SessionID: "s1"},
				"token-bob":   {UserID: "bob", Email: "bob@example.com", Role: models.RoleMember, SessionID: "s2"},
				"token-root":  {UserID: "root", Email: "root@example.com", Role: models.RoleAdmin, SessionID: "s3"},
			},
		},
		users: &fakeUserStore{
			users: map[string]*user.User{
				"alice": {ID: "alice", Email: "alice@example.com", Name: "Alice", Role: models.RoleMember, Enabled: true},
				"bob":   {ID: "bob", Email: "bob@example.com", Name: "Bob", Role: models.RoleMember, Enabled: true},
				"root":  {ID: "root", Email: "root@example.com", Name: "Root", Role: models.RoleAdmin, Enabled: true},
			},
		},
	}
	return NewServer(e), e
}

func doRequest(srv *Server, method, path, token string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func TestWebhookRejectsMissingOrWrongSecret(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(srv, http.MethodPost, "/auth/webhooks", "", map[string]interface{}{
		"event_type": "user.deleted",
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doRequest(srv, http.MethodPost, "/auth/webhooks", "", map[string]interface{}{
		"event_type": "user.deleted",
	}, map[string]string{"X-Webhook-Secret": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestWebhookAcknowledgesProcessingFailure(t *testing.T) {
	srv, _ := newTestServer(t)
	srv.webhookHandler.process = func(ctx context.Context, event WebhookEvent) error {
		return fmt.Errorf("downstream store unavailable")
	}

	rec := doRequest(srv, http.MethodPost, "/auth/webhooks", "", map[string]interface{}{
		"event_type": "user.updated",
		"data":       map[string]interface{}{"user_id": "alice"},
	}, map[string]string{"X-Webhook-Secret": "topsecret"})

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "acknowledged", body["status"])
	assert.Equal(t, false, body["success"])
}

func TestWebhookProcessesUserEvents(t *testing.T) {
	srv, e := newTestServer(t)

	rec := doRequest(srv, http.MethodPost, "/auth/webhooks", "", map[string]interface{}{
		"event_type": "user.updated",
		"data":       map[string]interface{}{"user_id": "alice", "user_name": "Alice Cooper"},
	}, map[string]string{"X-Webhook-Secret": "topsecret"})

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["success"])

	updated, err := e.users.Get(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "Alice Cooper", updated.Name)
}

func TestWebhookUnknownEventIsStillAcknowledged(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(srv, http.MethodPost, "/auth/webhooks", "", map[string]interface{}{
		"event_type": "session.revoked",
	}, map[string]string{"X-Webhook-Secret": "topsecret"})

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, false, body["success"])
}

func TestShowCurrentUserAlwaysSucceeds(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(srv, http.MethodGet, "/api/v1/users/me", "token-alice", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var body UserResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "alice", body.UserID)
	assert.Equal(t, "alice@example.com", body.UserEmail)
}

func TestCrossUserAccessRequiresAdminRole(t *testing.T) {
	srv, _ := newTestServer(t)

	// A member may read their own profile by ID.
	rec := doRequest(srv, http.MethodGet, "/api/v1/users/alice", "token-alice", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// But not someone else's.
	rec = doRequest(srv, http.MethodGet, "/api/v1/users/bob", "token-alice", nil, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Admins may.
	rec = doRequest(srv, http.MethodGet, "/api/v1/users/bob", "token-root", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthEndpointIsPublicAndReportsChecks(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(srv, http.MethodGet, "/health", "", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, string(health.StatusHealthy), body["status"])
	assert.Equal(t, "paravault", body["service"])
	checks, ok := body["checks"].(map[string]interface{})
	require.True(t, ok)
	assert.Empty(t, checks, "no backing stores configured, no checks to report")
}

func TestMemoryCreateAcceptsTrailingSlash(t *testing.T) {
	srv, e := newTestServer(t)
	exec := &stubMemoryExecutor{}
	e.memoryFlows = map[string]*memory.Workflow{
		memory.DomainConversationalHistory: memory.NewWorkflow(memory.Domain{
			Name:       memory.DomainConversationalHistory,
			TextFields: []memory.TextField{memory.FieldSummary, memory.FieldContext},
		}, exec, nil),
	}

	body := map[string]interface{}{
		"vp_id":   "vp-1",
		"summary": "call notes",
		"context": "client intake",
	}

	rec := doRequest(srv, http.MethodPost, "/longterm-memory/conversational-history", "token-alice", body, nil)
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(srv, http.MethodPost, "/longterm-memory/conversational-history/", "token-alice", body, nil)
	assert.Equal(t, http.StatusCreated, rec.Code)

	assert.Equal(t, 2, exec.creates)
}

func TestUnauthenticatedRequestIsRejected(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(srv, http.MethodGet, "/api/v1/users/me", "", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doRequest(srv, http.MethodGet, "/api/v1/users/me", "garbage-token", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
