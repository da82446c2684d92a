package api

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/nerrad567/lanlight/internal/device"
	"github.com/nerrad567/lanlight/internal/discovery"
	"github.com/nerrad567/lanlight/internal/infrastructure/config"
	"github.com/nerrad567/lanlight/internal/infrastructure/logging"
	"github.com/nerrad567/lanlight/internal/protocol"
	"github.com/nerrad567/lanlight/internal/router"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Coordinator is the view of the coordinator the API reads from.
// It is satisfied by *coordinator.Coordinator.
type Coordinator interface {
	Lights() *device.Lights
	Groups() *device.Groups
	RouterAttached() bool
	WaitForLoaded(ctx context.Context, timeout time.Duration) (bool, error)
}

// RouterStats exposes router counters. It is satisfied by *router.MQTTRouter.
type RouterStats interface {
	Stats() router.Stats
	PANSighted() bool
}

// SightingStore reads the sightings journal. It is satisfied by
// *discovery.Journal.
type SightingStore interface {
	List(ctx context.Context) ([]discovery.Sighting, error)
	Get(ctx context.Context, id protocol.DeviceID) (discovery.Sighting, error)
	Count(ctx context.Context) (int, error)
	Dropped() uint64
}

// HealthChecker is a component that can report its health.
// *database.DB, *mqtt.Client and *influxdb.Client satisfy it.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config      config.APIConfig
	Logger      *logging.Logger
	Coordinator Coordinator
	Router      RouterStats              // optional
	Journal     SightingStore            // optional; enables /sightings
	DB          *sql.DB                  // optional; pool stats in /metrics
	Checks      map[string]HealthChecker // optional; reported by /health
	Version     string
}

// Server is the HTTP status API.
//
// The server is created with New() and started with Start().
type Server struct {
	cfg         config.APIConfig
	logger      *logging.Logger
	coordinator Coordinator
	router      RouterStats
	journal     SightingStore
	db          *sql.DB
	checks      map[string]HealthChecker
	version     string
	startTime   time.Time

	// ready coalesces concurrent readiness waits with the same timeout.
	ready singleflight.Group

	server *http.Server
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Coordinator == nil {
		return nil, fmt.Errorf("coordinator is required")
	}

	return &Server{
		cfg:         deps.Config,
		logger:      deps.Logger,
		coordinator: deps.Coordinator,
		router:      deps.Router,
		journal:     deps.Journal,
		db:          deps.DB,
		checks:      deps.Checks,
		version:     deps.Version,
		startTime:   time.Now(),
	}, nil
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
		s.logger.Info("API server starting", "address", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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

// Handler returns the routed handler without starting a listener.
func (s *Server) Handler() http.Handler {
	return s.buildRouter()
}
