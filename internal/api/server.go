package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/kestrelhq/kestrel-sync/internal/bus"
	"github.com/kestrelhq/kestrel-sync/internal/gateway"
	"github.com/kestrelhq/kestrel-sync/internal/infrastructure/config"
	"github.com/kestrelhq/kestrel-sync/internal/infrastructure/logging"
	"github.com/kestrelhq/kestrel-sync/internal/session"
	"github.com/kestrelhq/kestrel-sync/internal/store"
	"github.com/kestrelhq/kestrel-sync/internal/view"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config  config.APIConfig
	WS      config.WebSocketConfig
	Logger  *logging.Logger
	Store   *store.Store
	Rooms   *view.RoomController
	Devices *view.DeviceController
	Gateway *gateway.Client
	Bus     *bus.Bus

	// Sessions, when set, persists tokens obtained through the login
	// endpoint across restarts.
	Sessions session.Repository
	Version  string
}

// Server is the local panel HTTP server for Kestrel Sync.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub, and
// relays every internal bus event to subscribed WebSocket clients.
type Server struct {
	cfg      config.APIConfig
	wsCfg    config.WebSocketConfig
	logger   *logging.Logger
	store    *store.Store
	rooms    *view.RoomController
	devices  *view.DeviceController
	gw       *gateway.Client
	bus      *bus.Bus
	sessions session.Repository
	version  string
	server   *http.Server
	hub      *Hub
	cancel   context.CancelFunc
	unsub    func()
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if deps.Bus == nil {
		return nil, fmt.Errorf("bus is required")
	}

	return &Server{
		cfg:      deps.Config,
		wsCfg:    deps.WS,
		logger:   deps.Logger,
		store:    deps.Store,
		rooms:    deps.Rooms,
		devices:  deps.Devices,
		gw:       deps.Gateway,
		bus:      deps.Bus,
		sessions: deps.Sessions,
		version:  deps.Version,
	}, nil
}

// Start begins listening for HTTP connections.
//
// It sets up the router, starts the WebSocket hub, bridges the internal bus
// onto the hub for real-time broadcast, and launches the HTTP listener in a
// background goroutine. The server can be stopped with Close().
func (s *Server) Start(ctx context.Context) error {
	// Internal context so Close() can stop background goroutines
	// independently of the parent context.
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	s.hub = NewHub(s.wsCfg, s.logger)
	go s.hub.Run(srvCtx)

	// Relay every bus event to WebSocket clients. Channel names are the
	// string form of the topic, e.g. "device/abc/updated".
	s.unsub = s.bus.SubscribeAll(func(topic bus.Topic, payload any) {
		s.hub.Broadcast(topic, payload)
	})

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
		s.logger.Info("panel API server starting", "address", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("panel API server error", "error", err)
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

	if s.unsub != nil {
		s.unsub()
	}
	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("panel API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down panel API server: %w", err)
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
