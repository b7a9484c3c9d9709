package engine

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

// Server wires the HTTP router, handlers, and middleware
type Server struct {
	engine             *Engine
	router             *mux.Router
	authHandler        *AuthHandlers
	userHandler        *UserHandlers
	paralegalHandler   *ParalegalHandlers
	abilityHandler     *AbilityHandlers
	behaviourHandler   *BehaviourHandlers
	contactHandler     *ContactHandlers
	integrationHandler *IntegrationHandlers
	taskHandler        *TaskHandlers
	memoryHandler      *MemoryHandlers
	emailHandler       *EmailHandlers
	webhookHandler     *WebhookHandlers
	middleware         *Middleware
}

// NewServer creates the HTTP surface for an engine
func NewServer(engine *Engine) *Server {
	s := &Server{
		engine:             engine,
		router:             mux.NewRouter(),
		authHandler:        NewAuthHandlers(engine),
		userHandler:        NewUserHandlers(engine),
		paralegalHandler:   NewParalegalHandlers(engine),
		abilityHandler:     NewAbilityHandlers(engine),
		behaviourHandler:   NewBehaviourHandlers(engine),
		contactHandler:     NewContactHandlers(engine),
		integrationHandler: NewIntegrationHandlers(engine),
		taskHandler:        NewTaskHandlers(engine),
		memoryHandler:      NewMemoryHandlers(engine),
		emailHandler:       NewEmailHandlers(engine),
		webhookHandler:     NewWebhookHandlers(engine),
		middleware:         NewMiddleware(engine),
	}
	s.setupRoutes()
	s.setupMiddleware()
	return s
}

func (s *Server) setupMiddleware() {
	// CORS middleware
	s.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Webhook-Secret")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	})

	// Request logging middleware
	s.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			if s.engine.logger != nil {
				s.engine.logger.Debugf("%s %s (%s)", r.Method, r.URL.Path, time.Since(start))
			}
		})
	})

	s.router.Use(s.middleware.AuthenticationMiddleware)
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	// Authentication endpoints
	auth := s.router.PathPrefix("/auth").Subrouter()
	auth.HandleFunc("/login", s.authHandler.Login).Methods(http.MethodPost)
	auth.HandleFunc("/logout", s.authHandler.Logout).Methods(http.MethodPost)
	auth.HandleFunc("/refresh", s.authHandler.Refresh).Methods(http.MethodPost)
	auth.HandleFunc("/profile", s.authHandler.GetProfile).Methods(http.MethodGet)
	auth.HandleFunc("/change-password", s.authHandler.ChangePassword).Methods(http.MethodPost)
	auth.HandleFunc("/webhooks", s.webhookHandler.Receive).Methods(http.MethodPost)

	api := s.router.PathPrefix("/api/v1").Subrouter()

	// User endpoints
	users := api.PathPrefix("/users").Subrouter()
	users.HandleFunc("", s.userHandler.CreateUser).Methods(http.MethodPost)
	users.HandleFunc("", s.userHandler.ListUsers).Methods(http.MethodGet)
	users.HandleFunc("/me", s.userHandler.ShowCurrentUser).Methods(http.MethodGet)
	users.HandleFunc("/{user_id}", s.userHandler.ShowUser).Methods(http.MethodGet)
	users.HandleFunc("/{user_id}", s.userHandler.ModifyUser).Methods(http.MethodPut)
	users.HandleFunc("/{user_id}", s.userHandler.DeleteUser).Methods(http.MethodDelete)

	// Paralegal endpoints
	paralegals := api.PathPrefix("/paralegals").Subrouter()
	paralegals.HandleFunc("", s.paralegalHandler.ListParalegals).Methods(http.MethodGet)
	paralegals.HandleFunc("", s.paralegalHandler.AddParalegal).Methods(http.MethodPost)
	paralegals.HandleFunc("/{vp_id}", s.paralegalHandler.ShowParalegal).Methods(http.MethodGet)
	paralegals.HandleFunc("/{vp_id}", s.paralegalHandler.ModifyParalegal).Methods(http.MethodPut)
	paralegals.HandleFunc("/{vp_id}", s.paralegalHandler.DeleteParalegal).Methods(http.MethodDelete)
	paralegals.HandleFunc("/{vp_id}/abilities/{ability_id}", s.paralegalHandler.GrantAbility).Methods(http.MethodPost)
	paralegals.HandleFunc("/{vp_id}/behaviours/{behaviour_id}", s.paralegalHandler.AssignBehaviour).Methods(http.MethodPost)
	paralegals.HandleFunc("/{vp_id}/tech-tree/{node}", s.paralegalHandler.SetTechTreeProgress).Methods(http.MethodPut)

	// Ability endpoints
	abilities := api.PathPrefix("/abilities").Subrouter()
	abilities.HandleFunc("", s.abilityHandler.ListAbilities).Methods(http.MethodGet)
	abilities.HandleFunc("", s.abilityHandler.AddAbility).Methods(http.MethodPost)
	abilities.HandleFunc("/{ability_id}", s.abilityHandler.ShowAbility).Methods(http.MethodGet)
	abilities.HandleFunc("/{ability_id}", s.abilityHandler.ModifyAbility).Methods(http.MethodPut)
	abilities.HandleFunc("/{ability_id}", s.abilityHandler.DeleteAbility).Methods(http.MethodDelete)
	abilities.HandleFunc("/{ability_id}/operations", s.abilityHandler.ListOperations).Methods(http.MethodGet)
	abilities.HandleFunc("/{ability_id}/operations", s.abilityHandler.AddOperation).Methods(http.MethodPost)

	// Behaviour endpoints
	behaviours := api.PathPrefix("/behaviours").Subrouter()
	behaviours.HandleFunc("", s.behaviourHandler.ListBehaviours).Methods(http.MethodGet)
	behaviours.HandleFunc("", s.behaviourHandler.AddBehaviour).Methods(http.MethodPost)
	behaviours.HandleFunc("/{behaviour_id}", s.behaviourHandler.ShowBehaviour).Methods(http.MethodGet)
	behaviours.HandleFunc("/{behaviour_id}", s.behaviourHandler.ModifyBehaviour).Methods(http.MethodPut)
	behaviours.HandleFunc("/{behaviour_id}", s.behaviourHandler.DeleteBehaviour).Methods(http.MethodDelete)

	// Contact endpoints
	contacts := api.PathPrefix("/contacts").Subrouter()
	contacts.HandleFunc("", s.contactHandler.ListContacts).Methods(http.MethodGet)
	contacts.HandleFunc("", s.contactHandler.AddContact).Methods(http.MethodPost)
	contacts.HandleFunc("/{contact_id}", s.contactHandler.ShowContact).Methods(http.MethodGet)
	contacts.HandleFunc("/{contact_id}", s.contactHandler.ModifyContact).Methods(http.MethodPut)
	contacts.HandleFunc("/{contact_id}", s.contactHandler.DeleteContact).Methods(http.MethodDelete)
	contacts.HandleFunc("/{contact_id}/clients", s.contactHandler.ListClientLinks).Methods(http.MethodGet)
	contacts.HandleFunc("/{contact_id}/clients", s.contactHandler.LinkClient).Methods(http.MethodPost)
	contacts.HandleFunc("/{contact_id}/clients/{association_id}", s.contactHandler.UnlinkClient).Methods(http.MethodDelete)
	contacts.HandleFunc("/{contact_id}/projects", s.contactHandler.ListProjectLinks).Methods(http.MethodGet)
	contacts.HandleFunc("/{contact_id}/projects", s.contactHandler.LinkProject).Methods(http.MethodPost)
	contacts.HandleFunc("/{contact_id}/projects/{association_id}", s.contactHandler.UnlinkProject).Methods(http.MethodDelete)

	// Integration and credential endpoints
	integrations := api.PathPrefix("/integrations").Subrouter()
	integrations.HandleFunc("", s.integrationHandler.ListIntegrations).Methods(http.MethodGet)
	integrations.HandleFunc("", s.integrationHandler.AddIntegration).Methods(http.MethodPost)
	integrations.HandleFunc("/{integration_id}", s.integrationHandler.ShowIntegration).Methods(http.MethodGet)

	credentials := api.PathPrefix("/credentials").Subrouter()
	credentials.HandleFunc("", s.integrationHandler.ListCredentials).Methods(http.MethodGet)
	credentials.HandleFunc("", s.integrationHandler.StoreCredential).Methods(http.MethodPost)
	credentials.HandleFunc("/{credential_id}", s.integrationHandler.ShowCredential).Methods(http.MethodGet)
	credentials.HandleFunc("/{credential_id}/rotate", s.integrationHandler.RotateCredential).Methods(http.MethodPut)
	credentials.HandleFunc("/{credential_id}", s.integrationHandler.DeactivateCredential).Methods(http.MethodDelete)

	// Task endpoints
	taskRoutes := api.PathPrefix("/tasks").Subrouter()
	taskRoutes.HandleFunc("", s.taskHandler.ListTasks).Methods(http.MethodGet)
	taskRoutes.HandleFunc("", s.taskHandler.AddTask).Methods(http.MethodPost)
	taskRoutes.HandleFunc("/{task_id}", s.taskHandler.ShowTask).Methods(http.MethodGet)
	taskRoutes.HandleFunc("/{task_id}", s.taskHandler.ModifyTask).Methods(http.MethodPut)
	taskRoutes.HandleFunc("/{task_id}", s.taskHandler.DeleteTask).Methods(http.MethodDelete)

	// Inbound email endpoints
	email := api.PathPrefix("/inbound-email").Subrouter()
	email.HandleFunc("/receive", s.emailHandler.Receive).Methods(http.MethodPost)
	email.HandleFunc("/route", s.emailHandler.Route).Methods(http.MethodPost)

	// Long-term memory endpoints. The selector segment is the typed
	// discriminator for knowledge domains and the record ID for
	// history domains.
	mem := s.router.PathPrefix("/longterm-memory/{domain}").Subrouter()
	// Register both slash forms: StrictSlash would redirect POSTs and
	// drop the body.
	mem.HandleFunc("", s.memoryHandler.Create).Methods(http.MethodPost)
	mem.HandleFunc("/", s.memoryHandler.Create).Methods(http.MethodPost)
	mem.HandleFunc("/{vp_id}", s.memoryHandler.Fetch).Methods(http.MethodGet)
	mem.HandleFunc("/{vp_id}", s.memoryHandler.Update).Methods(http.MethodPut)
	mem.HandleFunc("/{vp_id}", s.memoryHandler.Delete).Methods(http.MethodDelete)
	mem.HandleFunc("/{vp_id}/{selector}", s.memoryHandler.Fetch).Methods(http.MethodGet)
	mem.HandleFunc("/{vp_id}/{selector}", s.memoryHandler.Update).Methods(http.MethodPut)
	mem.HandleFunc("/{vp_id}/{selector}", s.memoryHandler.Delete).Methods(http.MethodDelete)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.engine.RunHealthChecks(r.Context())

	checks := make(map[string]string)
	for _, check := range s.engine.checker.GetAllChecks() {
		checks[check.Name] = string(check.Status)
	}

	response := map[string]interface{}{
		"status":    s.engine.checker.GetOverallStatus(),
		"service":   "paravault",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks":    checks,
		"metrics":   s.engine.GetMetrics(),
	}
	s.engine.writeJSONResponse(w, http.StatusOK, response)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
