package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/MrMouse2405/CSE362/internal/audit"
	"github.com/MrMouse2405/CSE362/internal/auth"
	"github.com/MrMouse2405/CSE362/internal/infrastructure/config"
	"github.com/MrMouse2405/CSE362/internal/infrastructure/database"
	"github.com/MrMouse2405/CSE362/internal/infrastructure/logging"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config   config.APIConfig
	Session  config.SessionConfig
	Logger   *logging.Logger
	DB       *database.DB // optional: health and pool stats
	Users    auth.UserRepository
	Sessions *auth.SessionManager
	Hasher   *auth.PasswordHasher
	Audit    audit.Repository // optional
	Events   EventPublisher   // optional: defaults to a no-op
	Status   []StatusProvider // optional: extra components for /system
	Version  string
}

// Server is the CSE362 authentication gateway.
//
// It resolves the session cookie on every protected request, enforces role
// guards, and serves user administration. Handlers never see raw tokens.
type Server struct {
	cfg       config.APIConfig
	cookie    cookieSettings
	logger    *logging.Logger
	db        *database.DB
	users     auth.UserRepository
	sessions  *auth.SessionManager
	hasher    *auth.PasswordHasher
	auditRepo audit.Repository
	audit     *audit.Recorder
	events    EventPublisher
	status    []StatusProvider
	version   string
	startTime time.Time

	// dummyHash is verified against when a login names an unknown user so
	// response time does not reveal whether the account exists.
	dummyHash string

	server *http.Server
}

// New creates a new API server with the given dependencies.
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	switch {
	case deps.Logger == nil:
		return nil, errors.New("logger is required")
	case deps.Users == nil:
		return nil, errors.New("user repository is required")
	case deps.Sessions == nil:
		return nil, errors.New("session manager is required")
	case deps.Hasher == nil:
		return nil, errors.New("password hasher is required")
	}

	dummy, err := auth.GenerateSecureRandomString()
	if err != nil {
		return nil, fmt.Errorf("generating dummy password: %w", err)
	}
	dummyHash, err := deps.Hasher.Hash(dummy)
	if err != nil {
		return nil, fmt.Errorf("hashing dummy password: %w", err)
	}

	events := deps.Events
	if events == nil {
		events = NopPublisher{}
	}

	return &Server{
		cfg:       deps.Config,
		cookie:    newCookieSettings(deps.Session, deps.Sessions.TTL()),
		logger:    deps.Logger,
		db:        deps.DB,
		users:     deps.Users,
		sessions:  deps.Sessions,
		hasher:    deps.Hasher,
		auditRepo: deps.Audit,
		audit:     audit.NewRecorder(deps.Audit, deps.Logger.Logger),
		events:    events,
		status:    deps.Status,
		version:   deps.Version,
		startTime: time.Now(),
		dummyHash: dummyHash,
	}, nil
}

// Handler returns the fully wired router. Start serves the same handler.
func (s *Server) Handler() http.Handler {
	return s.buildRouter()
}

// Start begins listening for HTTP connections in a background goroutine.
// The server can be stopped with Close().
func (s *Server) Start(_ context.Context) error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS", "address", s.server.Addr, "cert", s.cfg.TLS.CertFile)
			err = s.server.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			s.logger.Info("API server starting", "address", s.server.Addr)
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return errors.New("api server not started")
	}
	return nil
}
