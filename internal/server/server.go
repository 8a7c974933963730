// Package server exposes the tournament HTTP API.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/yolodolo42/clawroyale/internal/contracts"
	"github.com/yolodolo42/clawroyale/internal/metrics"
	"github.com/yolodolo42/clawroyale/internal/store"
	"github.com/yolodolo42/clawroyale/internal/tournament"
)

// HTTP server timeouts.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

const (
	APIVersion     = "1.0.0"
	DefaultAddr    = ":3000"
	DefaultNetwork = "base-sepolia"
)

// Store is the persistence the API needs.
type Store interface {
	SaveRegistration(agentID, agentName, signature string) (*store.Registration, error)
	CountRegistrations() (int, error)
	SaveBet(battleID, agentID string, amountUSDC float64) (*store.Bet, error)
	Leaderboard(limit int) ([]store.LeaderboardEntry, error)
}

// StateSource serves the most recent tournament snapshot. *tournament.Poller
// implements it.
type StateSource interface {
	Latest() (*tournament.State, error)
}

// Config controls listener and API behaviour.
type Config struct {
	Addr      string
	Network   string
	Contracts contracts.Addresses

	// AuthSecret signs challenges and agent credentials. Auth endpoints are
	// disabled when empty.
	AuthSecret []byte
	// RequireAuth gates POST /register and /bet behind an agent credential.
	RequireAuth bool

	// RateLimit is requests per second per client on write endpoints.
	RateLimit float64
	RateBurst int
}

// Server wires the API routes to their dependencies.
type Server struct {
	cfg     Config
	store   Store
	state   StateSource
	auth    *Authenticator
	limiter *clientLimiter
	metrics *metrics.Manager
	logger  *slog.Logger
	hub     *streamHub
}

type Option func(*Server)

func WithMetrics(m *metrics.Manager) Option {
	return func(s *Server) { s.metrics = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

func New(cfg Config, st Store, state StateSource, opts ...Option) (*Server, error) {
	if st == nil {
		return nil, errors.New("server: store is required")
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.Network == "" {
		cfg.Network = DefaultNetwork
	}
	if cfg.RequireAuth && len(cfg.AuthSecret) == 0 {
		return nil, errors.New("server: auth secret is required when auth is enforced")
	}
	s := &Server{
		cfg:    cfg,
		store:  st,
		state:  state,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.hub = newStreamHub(func(n int) {
		if s.metrics != nil {
			s.metrics.SetStreamClients(n)
		}
	})
	if len(cfg.AuthSecret) > 0 {
		s.auth = NewAuthenticator(cfg.AuthSecret)
	}
	if cfg.RateLimit > 0 {
		s.limiter = newClientLimiter(cfg.RateLimit, cfg.RateBurst)
	}
	return s, nil
}

// Handler returns the routed API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.instrument("healthz", s.handleHealth))
	mux.HandleFunc("GET /api/v1/status", s.instrument("status", s.handleStatus))
	mux.HandleFunc("GET /api/v1/leaderboard", s.instrument("leaderboard", s.handleLeaderboard))
	mux.HandleFunc("GET /api/v1/stream", s.handleStream)

	mux.HandleFunc("GET /api/v1/register", s.instrument("register", s.handleRegisterInfo))
	mux.HandleFunc("POST /api/v1/register", s.instrument("register", s.limit(s.requireAgent(s.handleRegister))))
	mux.HandleFunc("POST /api/v1/bet", s.instrument("bet", s.limit(s.requireAgent(s.handleBet))))

	if s.auth != nil {
		mux.HandleFunc("GET /api/v1/auth", s.instrument("auth", s.handleAuthDiscovery))
		mux.HandleFunc("POST /api/v1/auth", s.instrument("auth", s.limit(s.handleAuth)))
	}
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}
	return mux
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", s.cfg.Addr, "network", s.cfg.Network)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	s.logger.Info("server stopped")
	return nil
}
