package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/nerrad567/device-relay/internal/hub"
	"github.com/nerrad567/device-relay/internal/infrastructure/config"
	"github.com/nerrad567/device-relay/internal/infrastructure/logging"
	"github.com/nerrad567/device-relay/internal/ingest"
	"github.com/nerrad567/device-relay/internal/relay"
	"github.com/nerrad567/device-relay/internal/supervisor"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// healthCheckTimeout bounds each dependency check of the health endpoint.
const healthCheckTimeout = 2 * time.Second

// Authenticator resolves a bearer token to a user id.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (string, error)
}

// HealthChecker is a dependency checked by GET /health.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// IngestStats exposes ingestion counters for the health endpoint.
type IngestStats interface {
	Stats() ingest.Stats
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config        config.APIConfig
	Logger        *logging.Logger
	Service       *relay.Service
	Hub           *hub.Hub
	Authenticator Authenticator
	Checks        map[string]HealthChecker // optional, keyed by component name
	Ingest        IngestStats              // optional
	Supervisor    *supervisor.Supervisor   // optional
	Version       string
}

// Server is the HTTP API server of the device relay.
type Server struct {
	cfg        config.APIConfig
	logger     *logging.Logger
	service    *relay.Service
	hub        *hub.Hub
	authn      Authenticator
	checks     map[string]HealthChecker
	ingest     IngestStats
	supervisor *supervisor.Supervisor
	version    string

	server   *http.Server
	listener net.Listener
}

// New creates a new API server with the given dependencies.
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Service == nil {
		return nil, fmt.Errorf("relay service is required")
	}
	if deps.Hub == nil {
		return nil, fmt.Errorf("push hub is required")
	}
	if deps.Authenticator == nil {
		return nil, fmt.Errorf("authenticator is required")
	}

	return &Server{
		cfg:        deps.Config,
		logger:     deps.Logger,
		service:    deps.Service,
		hub:        deps.Hub,
		authn:      deps.Authenticator,
		checks:     deps.Checks,
		ingest:     deps.Ingest,
		supervisor: deps.Supervisor,
		version:    deps.Version,
	}, nil
}

// Handler returns the fully wired router.
func (s *Server) Handler() http.Handler {
	return s.buildRouter()
}

// Start binds the listener and serves in a background goroutine.
// Binding errors (port in use) are returned; later serve errors are logged.
func (s *Server) Start(_ context.Context) error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       s.cfg.Timeouts.GetReadTimeout(),
		ReadHeaderTimeout: s.cfg.Timeouts.GetReadTimeout(),
		WriteTimeout:      s.cfg.Timeouts.GetWriteTimeout(),
		IdleTimeout:       s.cfg.Timeouts.GetIdleTimeout(),
	}

	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.server.Addr, err)
	}
	s.listener = ln

	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS",
				"address", ln.Addr().String(),
				"cert", s.cfg.TLS.CertFile,
			)
			err = s.server.ServeTLS(ln, s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			s.logger.Info("API server starting", "address", ln.Addr().String())
			err = s.server.Serve(ln)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Addr returns the bound listener address, or "" before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Close gracefully shuts down the server.
//
// Push connections are closed first; in-flight requests then get up to
// gracefulShutdownTimeout to complete.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	s.hub.Close()

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
		return fmt.Errorf("api server not started")
	}
	return nil
}
