// Kestrel Sync - dashboard state synchronisation daemon
//
// Kestrel Sync keeps a smart-home dashboard's local state in step with its
// cloud backend: it polls collections, applies optimistic control actions,
// raises threshold alerts, and serves the synchronised state to panel UIs
// over a local HTTP/WebSocket API. An optional MQTT subscription delivers
// push updates between polls.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/kestrelhq/kestrel-sync/migrations"

	"github.com/kestrelhq/kestrel-sync/internal/api"
	"github.com/kestrelhq/kestrel-sync/internal/bus"
	"github.com/kestrelhq/kestrel-sync/internal/cache"
	"github.com/kestrelhq/kestrel-sync/internal/gateway"
	"github.com/kestrelhq/kestrel-sync/internal/infrastructure/config"
	"github.com/kestrelhq/kestrel-sync/internal/infrastructure/database"
	"github.com/kestrelhq/kestrel-sync/internal/infrastructure/logging"
	"github.com/kestrelhq/kestrel-sync/internal/push"
	"github.com/kestrelhq/kestrel-sync/internal/session"
	"github.com/kestrelhq/kestrel-sync/internal/store"
	"github.com/kestrelhq/kestrel-sync/internal/view"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Cancel on interrupt signals (Ctrl+C, SIGTERM) for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Kestrel Sync",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
	db, err := database.Open(ctx, database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	// Run migrations
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Backend gateway
	gw, err := gateway.New(gateway.Config{
		BaseURL: cfg.Backend.BaseURL,
		Timeout: cfg.GetBackendTimeout(),
	})
	if err != nil {
		return fmt.Errorf("creating backend gateway: %w", err)
	}

	// Authenticate: reuse the persisted session when its token is still
	// valid, otherwise log in with the configured credentials.
	sessions := session.NewRepository(db.DB)
	if authErr := authenticate(ctx, gw, sessions, cfg, log); authErr != nil {
		return fmt.Errorf("authenticating with backend: %w", authErr)
	}

	// Event bus, cache, and data store
	b := bus.New()
	b.SetLogger(log)
	deviceCache := cache.NewDeviceCache()

	st := store.New(gw, b, deviceCache)
	st.SetLogger(log)
	st.SetPollInterval(cfg.GetPollInterval())
	st.SetActiveView(store.View(cfg.Sync.DefaultView))

	// View controllers
	rooms := view.NewRoomController(gw, st, deviceCache, b)
	rooms.SetLogger(log)
	rooms.SetDebounce(cfg.GetDebounce())

	devices := view.NewDeviceController(gw, st, b)
	devices.SetLogger(log)
	devices.SetDebounce(cfg.GetDebounce())

	// Panel API server
	server, err := api.New(api.Deps{
		Config:   cfg.API,
		WS:       cfg.WebSocket,
		Logger:   log,
		Store:    st,
		Rooms:    rooms,
		Devices:  devices,
		Gateway:  gw,
		Bus:      b,
		Sessions: sessions,
		Version:  version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	// Toasts travel the bus like any other event; the WebSocket relay
	// carries them to subscribed panels.
	st.SetNotifier(api.NewToastNotifier(b))

	if startErr := server.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()
	log.Info("panel API started", "address", fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port))

	// Optional push channel; polling alone keeps state in sync when disabled
	if cfg.MQTT.Enabled {
		pushClient, pushErr := push.Connect(cfg.MQTT)
		if pushErr != nil {
			return fmt.Errorf("connecting push channel: %w", pushErr)
		}
		defer func() {
			log.Info("disconnecting push channel")
			if closeErr := pushClient.Close(); closeErr != nil {
				log.Error("error closing push channel", "error", closeErr)
			}
		}()
		pushClient.SetLogger(log)

		listener := push.NewListener(cfg.MQTT.TopicPrefix, byte(cfg.MQTT.QoS), st)
		if listenErr := listener.Start(pushClient); listenErr != nil {
			return fmt.Errorf("subscribing push channel: %w", listenErr)
		}
		log.Info("push channel connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"prefix", cfg.MQTT.TopicPrefix,
		)
	} else {
		log.Info("push channel disabled")
	}

	// Initial load, then background polling
	st.LoadInitial(ctx)
	go st.Run(ctx)
	log.Info("initial state loaded",
		"devices", len(st.Devices()),
		"rooms", len(st.Rooms()),
		"unread", st.UnreadCount(),
	)

	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")
	rooms.Close()
	devices.Close()

	log.Info("Kestrel Sync stopped")
	return nil
}

// authenticate installs a backend token on the gateway. A persisted session
// with an unexpired token is reused; otherwise the configured credentials
// are exchanged for a fresh token, which is persisted for the next start.
func authenticate(ctx context.Context, gw *gateway.Client, sessions *session.SQLiteRepository, cfg *config.Config, log *logging.Logger) error {
	sess, err := sessions.Load(ctx)
	if err == nil {
		gw.SetToken(sess.Token)
		log.Info("session restored", "user", sess.User.Email)
		return nil
	}
	if !errors.Is(err, session.ErrNoSession) {
		log.Warn("failed to load persisted session", "error", err)
	}

	if cfg.Backend.Email == "" || cfg.Backend.Password == "" {
		log.Warn("no backend credentials configured; waiting for login through the panel API")
		return nil
	}

	result, err := gw.Login(ctx, cfg.Backend.Email, cfg.Backend.Password)
	if err != nil {
		return err
	}
	log.Info("logged in to backend", "user", result.User.Email)

	if saveErr := sessions.Save(ctx, result.Token, result.User); saveErr != nil {
		log.Warn("failed to persist session", "error", saveErr)
	}
	return nil
}

// getConfigPath returns the configuration file path.
// Uses KESTREL_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("KESTREL_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
