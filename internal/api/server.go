package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/openhaus/camsync-core/internal/auth"
	"github.com/openhaus/camsync-core/internal/camera"
	"github.com/openhaus/camsync-core/internal/device"
	"github.com/openhaus/camsync-core/internal/infrastructure/config"
	"github.com/openhaus/camsync-core/internal/infrastructure/database"
	"github.com/openhaus/camsync-core/internal/infrastructure/logging"
	"github.com/openhaus/camsync-core/internal/infrastructure/mqtt"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config    config.APIConfig
	WS        config.WebSocketConfig
	Security  config.SecurityConfig
	Logger    *logging.Logger
	Registry  *device.Registry
	Cameras   *camera.Manager
	UserRepo  auth.UserRepository
	TokenRepo auth.TokenRepository
	MQTT      *mqtt.Client
	DB        *database.DB
	Metrics   MetricSink
	Version   string
}

// MetricSink records setting changes for history. Satisfied by the
// InfluxDB client; nil disables recording.
type MetricSink interface {
	WriteSettingChange(cameraID, key string)
}

// Server is the HTTP API server for CamSync Core.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg       config.APIConfig
	wsCfg     config.WebSocketConfig
	secCfg    config.SecurityConfig
	logger    *logging.Logger
	registry  *device.Registry
	cameras   *camera.Manager
	userRepo  auth.UserRepository
	tokenRepo auth.TokenRepository
	mqtt      *mqtt.Client
	db        *database.DB
	metrics   MetricSink
	version   string
	startTime time.Time
	server    *http.Server
	hub       *Hub
	tickets   *ticketStore
	cancel    context.CancelFunc // cancels background goroutines on Close()
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Registry == nil {
		return nil, fmt.Errorf("device registry is required")
	}
	if deps.Cameras == nil {
		return nil, fmt.Errorf("camera manager is required")
	}
	if deps.UserRepo == nil || deps.TokenRepo == nil {
		return nil, fmt.Errorf("auth repositories are required")
	}
	// MQTT is optional — without it WebSocket event relay is disabled

	return &Server{
		cfg:       deps.Config,
		wsCfg:     deps.WS,
		secCfg:    deps.Security,
		logger:    deps.Logger,
		registry:  deps.Registry,
		cameras:   deps.Cameras,
		userRepo:  deps.UserRepo,
		tokenRepo: deps.TokenRepo,
		mqtt:      deps.MQTT,
		db:        deps.DB,
		metrics:   deps.Metrics,
		version:   deps.Version,
		startTime: time.Now(),
		tickets:   newTicketStore(),
	}, nil
}

// Start begins listening for HTTP connections.
//
// It sets up the router, starts the WebSocket hub, subscribes to MQTT
// event topics for real-time WebSocket relay, and launches the HTTP
// listener in a background goroutine. The server can be stopped with Close().
func (s *Server) Start(ctx context.Context) error {
	// Create internal context so Close() can stop background goroutines
	// independently of the parent context.
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	s.hub = NewHub(s.wsCfg, s.logger)
	go s.hub.Run(srvCtx)

	// Periodic ticket cleanup prevents the store growing unbounded
	go s.tickets.cleanLoop(srvCtx)

	if err := s.subscribeEventRelay(); err != nil {
		s.logger.Warn("failed to subscribe to events for WebSocket relay", "error", err)
	}

	router := s.buildRouter()

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           router,
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS",
				"address", s.server.Addr,
				"cert", s.cfg.TLS.CertFile,
			)
			err = s.server.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
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

	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running and responsive.
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
