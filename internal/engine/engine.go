package engine

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/paravault/paravault/internal/aicache"
	"github.com/paravault/paravault/internal/auth"
	"github.com/paravault/paravault/internal/memory"
	"github.com/paravault/paravault/internal/notifier"
	"github.com/paravault/paravault/internal/orchestrator"
	"github.com/paravault/paravault/internal/services/ability"
	"github.com/paravault/paravault/internal/services/behaviour"
	"github.com/paravault/paravault/internal/services/contact"
	"github.com/paravault/paravault/internal/services/integration"
	"github.com/paravault/paravault/internal/services/paralegal"
	"github.com/paravault/paravault/internal/services/user"
	"github.com/paravault/paravault/internal/tasks"
	"github.com/paravault/paravault/pkg/config"
	"github.com/paravault/paravault/pkg/database"
	"github.com/paravault/paravault/pkg/encryption"
	"github.com/paravault/paravault/pkg/health"
	"github.com/paravault/paravault/pkg/keyring"
	"github.com/paravault/paravault/pkg/logger"
	"github.com/paravault/paravault/pkg/models"
)

// authManager is the authentication boundary consumed by handlers and
// middleware. Satisfied by *auth.TokenManager; faked in tests.
type authManager interface {
	Login(ctx context.Context, email, password string) (*auth.Profile, *auth.TokenPair, error)
	Validate(ctx context.Context, token string) (*auth.Profile, error)
	Refresh(ctx context.Context, refreshToken string) (*auth.TokenPair, error)
	Logout(ctx context.Context, sessionID string) error
	ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error
}

type userStore interface {
	Create(ctx context.Context, email, name, password string, role models.Role) (*user.User, error)
	Get(ctx context.Context, userID string) (*user.User, error)
	List(ctx context.Context) ([]*user.User, error)
	Update(ctx context.Context, userID string, updates map[string]interface{}) (*user.User, error)
	Delete(ctx context.Context, userID string) error
}

type paralegalStore interface {
	Create(ctx context.Context, ownerID, name, email, description string) (*paralegal.Paralegal, error)
	Get(ctx context.Context, vpID string) (*paralegal.Paralegal, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*paralegal.Paralegal, error)
	Update(ctx context.Context, vpID string, updates map[string]interface{}) (*paralegal.Paralegal, error)
	GrantAbility(ctx context.Context, vpID, abilityID string) (*paralegal.Paralegal, error)
	AssignBehaviour(ctx context.Context, vpID, behaviourID string) (*paralegal.Paralegal, error)
	SetTechTreeProgress(ctx context.Context, vpID, node string, level int) (*paralegal.Paralegal, error)
	Delete(ctx context.Context, vpID string) error
}

type abilityStore interface {
	Create(ctx context.Context, name, description string, structure, requirements map[string]interface{}) (*ability.Ability, error)
	Get(ctx context.Context, abilityID string) (*ability.Ability, error)
	List(ctx context.Context) ([]*ability.Ability, error)
	Update(ctx context.Context, abilityID string, updates map[string]interface{}) (*ability.Ability, error)
	Delete(ctx context.Context, abilityID string) error
	AddOperation(ctx context.Context, op *ability.AbilityOperation) (*ability.AbilityOperation, error)
	GetOperations(ctx context.Context, abilityID string) ([]*ability.AbilityOperation, error)
}

type behaviourStore interface {
	Create(ctx context.Context, name, systemPrompt string) (*behaviour.Behaviour, error)
	Get(ctx context.Context, behaviourID string) (*behaviour.Behaviour, error)
	List(ctx context.Context, status models.BehaviourStatus) ([]*behaviour.Behaviour, error)
	Update(ctx context.Context, behaviourID string, updates map[string]interface{}) (*behaviour.Behaviour, error)
	Delete(ctx context.Context, behaviourID string) error
}

type contactStore interface {
	Create(ctx context.Context, firstName, lastName, email, phone string) (*contact.Contact, error)
	Get(ctx context.Context, contactID string) (*contact.Contact, error)
	List(ctx context.Context) ([]*contact.Contact, error)
	Update(ctx context.Context, contactID string, updates map[string]interface{}) (*contact.Contact, error)
	Delete(ctx context.Context, contactID string) error
	LinkClient(ctx context.Context, contactID, clientID string, role models.ContactRole) (*contact.Association, error)
	LinkProject(ctx context.Context, contactID, projectID string, role models.ContactRole) (*contact.Association, error)
	ClientAssociations(ctx context.Context, contactID string) ([]*contact.Association, error)
	ProjectAssociations(ctx context.Context, contactID string) ([]*contact.Association, error)
	Unlink(ctx context.Context, table, associationID string) error
}

type integrationStore interface {
	CreateIntegration(ctx context.Context, name, authType string, config map[string]interface{}) (*integration.Integration, error)
	GetIntegration(ctx context.Context, integrationID string) (*integration.Integration, error)
	ListIntegrations(ctx context.Context) ([]*integration.Integration, error)
	StoreCredential(ctx context.Context, userID, integrationID, credentials, refreshToken string, expiresAt *time.Time) (*integration.Credential, error)
	GetCredential(ctx context.Context, credentialID string) (*integration.Credential, error)
	ListCredentialsByUser(ctx context.Context, userID string) ([]*integration.Credential, error)
	RotateCredential(ctx context.Context, credentialID, credentials, refreshToken string, expiresAt *time.Time) error
	DeactivateCredential(ctx context.Context, credentialID string) error
}

// Engine owns the HTTP server and every domain collaborator behind it
type Engine struct {
	config *config.Config
	server *http.Server
	logger *logger.Logger

	db    *database.PostgreSQL
	redis *database.Redis

	tokens       authManager
	users        userStore
	paralegals   paralegalStore
	abilities    abilityStore
	behaviours   behaviourStore
	contacts     contactStore
	integrations integrationStore
	taskWorkflow *tasks.Workflow
	memoryFlows  map[string]*memory.Workflow
	classifier   orchestrator.IntentClassifier

	webhookSecret string

	notifier       *notifier.Notifier
	taskWebhookURL string
	checker        *health.Checker

	state struct {
		sync.Mutex
		isRunning         bool
		ongoingOperations int32
	}
	metrics struct {
		requestsProcessed int64
		errors            int64
	}
}

// NewEngine creates an engine from configuration
func NewEngine(cfg *config.Config) *Engine {
	return &Engine{
		config:  cfg,
		checker: health.NewChecker(),
	}
}

// SetLogger sets the logger for the engine
func (e *Engine) SetLogger(logger *logger.Logger) {
	e.logger = logger
}

// Start connects the backing stores, wires the domain services, and
// begins serving HTTP
func (e *Engine) Start(ctx context.Context) error {
	e.state.Lock()
	if e.state.isRunning {
		e.state.Unlock()
		return fmt.Errorf("engine is already running")
	}
	e.state.isRunning = true
	e.state.Unlock()

	if e.logger != nil {
		e.logger.Infof("Starting engine...")
	}

	db, err := database.New(ctx, database.FromConfig(e.config))
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	e.db = db

	redis, err := database.NewRedis(ctx, database.RedisFromConfig(e.config))
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	e.redis = redis

	km := keyring.NewKeyringManager(keyring.GetDefaultKeyringPath(), keyring.GetMasterPasswordFromEnv())
	cipher := encryption.NewCredentialCipherWithManager(km)

	users := user.NewService(db, e.logger)
	e.users = users
	e.paralegals = paralegal.NewService(db, e.logger)
	e.abilities = ability.NewService(db, e.logger)
	e.behaviours = behaviour.NewService(db, e.logger)
	e.contacts = contact.NewService(db, e.logger)
	e.integrations = integration.NewService(db, cipher, e.logger)
	e.taskWorkflow = tasks.NewWorkflow(tasks.NewPostgresExecutor(db, e.logger), e.logger)
	e.memoryFlows = memory.NewWorkflows(db, e.logger)
	e.tokens = auth.NewTokenManager(users, auth.NewJWTSecretManager(km), redis, e.logger)
	e.classifier = orchestrator.NewCachingClassifier(orchestrator.NewNoopClassifier(), aicache.DefaultMaxEntries)

	e.webhookSecret = e.config.Get("security.webhook.secret")
	e.notifier = notifier.New(e.logger)
	e.taskWebhookURL = e.config.Get("notifications.task.webhook.url")

	portStr := os.Getenv("PARAVAULT_HTTP_PORT")
	if portStr == "" {
		portStr = e.config.Get("api.http.port")
	}
	if portStr == "" {
		portStr = "8080"
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return fmt.Errorf("invalid port configuration: %w", err)
	}

	e.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: NewServer(e),
	}

	if e.logger != nil {
		e.logger.Infof("Starting HTTP server on port: %d", port)
	}

	go func() {
		if err := e.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			if e.logger != nil {
				e.logger.Errorf("HTTP server error: %v", err)
			}
			atomic.AddInt64(&e.metrics.errors, 1)
		}
	}()

	if e.logger != nil {
		e.logger.Infof("Engine started successfully")
	}
	return nil
}

// Stop shuts the HTTP server down and closes store connections
func (e *Engine) Stop(ctx context.Context) error {
	e.state.Lock()
	if !e.state.isRunning {
		e.state.Unlock()
		return nil
	}
	e.state.isRunning = false
	e.state.Unlock()

	if e.server != nil {
		if err := e.server.Shutdown(ctx); err != nil {
			return err
		}
	}
	if e.redis != nil {
		e.redis.Close()
	}
	if e.db != nil {
		e.db.Close()
	}
	return nil
}

// GetMetrics returns request counters
func (e *Engine) GetMetrics() map[string]int64 {
	return map[string]int64{
		"requests_processed": atomic.LoadInt64(&e.metrics.requestsProcessed),
		"errors":             atomic.LoadInt64(&e.metrics.errors),
	}
}

// CheckHealth reports whether the engine is running and its stores respond
func (e *Engine) CheckHealth(ctx context.Context) error {
	e.state.Lock()
	running := e.state.isRunning
	e.state.Unlock()

	if !running {
		return fmt.Errorf("service not initialized")
	}

	e.RunHealthChecks(ctx)
	if e.checker.GetOverallStatus() == health.StatusUnhealthy {
		return fmt.Errorf("backing stores unreachable")
	}
	return nil
}

// RunHealthChecks refreshes the per-store health checks
func (e *Engine) RunHealthChecks(ctx context.Context) {
	if e.db != nil {
		e.checker.RunCheck("database", func() error { return e.db.Ping(ctx) })
	}
	if e.redis != nil {
		e.checker.RunCheck("redis", func() error { return e.redis.Ping(ctx) })
	}
}

// TrackOperation increments the ongoing operation counter
func (e *Engine) TrackOperation() {
	atomic.AddInt32(&e.state.ongoingOperations, 1)
	atomic.AddInt64(&e.metrics.requestsProcessed, 1)
}

// UntrackOperation decrements the ongoing operation counter
func (e *Engine) UntrackOperation() {
	atomic.AddInt32(&e.state.ongoingOperations, -1)
}
