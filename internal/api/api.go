// Package api provides the HTTP REST API server.
package api

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/good-yellow-bee/incidentdesk/internal/api/health"
	"github.com/good-yellow-bee/incidentdesk/internal/api/middleware"
	"github.com/good-yellow-bee/incidentdesk/internal/auth"
	"github.com/good-yellow-bee/incidentdesk/internal/incident"
	"github.com/good-yellow-bee/incidentdesk/internal/policy"
	"github.com/good-yellow-bee/incidentdesk/internal/security"
	"github.com/good-yellow-bee/incidentdesk/internal/session"
	"github.com/good-yellow-bee/incidentdesk/internal/storage"
)

// csrfKeyLength is the size of the gorilla/csrf authentication key.
const csrfKeyLength = 32

// cleanupInterval is how often idle limiter and lockout entries are dropped.
const cleanupInterval = time.Minute

// Config contains HTTP API server configuration.
type Config struct {
	Address          string
	SecureCookies    bool     // Mark cookies Secure even on plain HTTP (behind a TLS proxy)
	CSRFKey          []byte   // 32-byte key; a random key is used when empty
	TrustedOrigins   []string // Extra origins allowed to submit cookie-authenticated requests
	TLS              security.ServerTLSConfig
	RateLimitPerIP   int // Login attempts per minute per client IP; negative disables
	RateLimitPerUser int // API requests per minute per user; negative disables
	LockoutThreshold int
	LockoutDuration  time.Duration
	Verbose          bool
}

// SetDefaults applies default values for missing configuration.
func (c *Config) SetDefaults() {
	if c.Address == "" {
		c.Address = ":8080"
	}
	if c.RateLimitPerIP == 0 {
		c.RateLimitPerIP = 10
	}
	if c.RateLimitPerUser == 0 {
		c.RateLimitPerUser = 300
	}
	if c.LockoutThreshold == 0 {
		c.LockoutThreshold = 5
	}
	if c.LockoutDuration == 0 {
		c.LockoutDuration = 15 * time.Minute
	}
}

// Deps are the services the API serves.
type Deps struct {
	Storage       storage.Storage
	Issuer        session.Issuer
	Incidents     *incident.Service
	Authenticator *auth.Authenticator
	Authorizer    *policy.Authorizer
	Logger        zerolog.Logger
}

// Server is the HTTP API server.
type Server struct {
	config        *Config
	deps          Deps
	logger        zerolog.Logger
	cookies       *session.Cookies
	lockout       *auth.LockoutTracker
	ipLimiter     *middleware.RateLimiter
	userLimiter   *middleware.RateLimiter
	healthHandler *health.Handler
	handler       http.Handler
	server        *http.Server
}

// New creates a new API server.
func New(cfg *Config, deps Deps) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if deps.Storage == nil || deps.Issuer == nil || deps.Incidents == nil || deps.Authenticator == nil {
		return nil, errors.New("storage, issuer, incident service and authenticator are required")
	}
	if deps.Authorizer == nil {
		authz, err := policy.NewAuthorizer()
		if err != nil {
			return nil, err
		}
		deps.Authorizer = authz
	}

	cfg.SetDefaults()
	logger := deps.Logger.With().Str("component", "api").Logger()

	switch len(cfg.CSRFKey) {
	case 0:
		key := make([]byte, csrfKeyLength)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("generate csrf key: %w", err)
		}
		cfg.CSRFKey = key
		logger.Warn().Msg("no CSRF key configured; using a random key, CSRF tokens will not survive a restart")
	case csrfKeyLength:
	default:
		return nil, fmt.Errorf("csrf key must be %d bytes, got %d", csrfKeyLength, len(cfg.CSRFKey))
	}

	s := &Server{
		config:        cfg,
		deps:          deps,
		logger:        logger,
		cookies:       session.NewCookies(cfg.SecureCookies || cfg.TLS.Enabled()),
		lockout:       auth.NewLockoutTracker(cfg.LockoutThreshold, cfg.LockoutDuration),
		ipLimiter:     middleware.NewRateLimiter(cfg.RateLimitPerIP),
		userLimiter:   middleware.NewRateLimiter(cfg.RateLimitPerUser),
		healthHandler: health.NewHandler(),
	}
	s.healthHandler.RegisterChecker(health.NewDatabaseChecker("database", deps.Storage))
	s.handler = s.setupRouter()

	s.server = &http.Server{
		Addr:              cfg.Address,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	if cfg.TLS.Enabled() {
		tlsConfig, err := security.LoadServerTLS(&cfg.TLS)
		if err != nil {
			return nil, err
		}
		s.server.TLSConfig = tlsConfig
	}

	return s, nil
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run starts the HTTP server and blocks until ctx is canceled or the
// listener fails.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.config.Address, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is canceled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info().Str("addr", ln.Addr().String()).Bool("tls", s.server.TLSConfig != nil).Msg("HTTP API listening")
		var err error
		if s.server.TLSConfig != nil {
			err = s.server.ServeTLS(ln, "", "")
		} else {
			err = s.server.Serve(ln)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http api: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		s.logger.Info().Msg("shutting down HTTP API server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		s.lockout.Run(ctx, cleanupInterval)
		return nil
	})
	g.Go(func() error {
		s.ipLimiter.Run(ctx, cleanupInterval)
		return nil
	})
	g.Go(func() error {
		s.userLimiter.Run(ctx, cleanupInterval)
		return nil
	})

	return g.Wait()
}

// Address returns the configured listen address.
func (s *Server) Address() string {
	return s.config.Address
}

// RegisterHealthChecker adds a health checker to the server.
func (s *Server) RegisterHealthChecker(c health.Checker) {
	s.healthHandler.RegisterChecker(c)
}
