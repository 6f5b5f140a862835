// CamSync Core - Capability-Driven Camera Configuration
//
// This is the main entry point for the CamSync Core application.
// CamSync keeps a fleet of ISAPI cameras configured from one place:
//   - Capability-driven settings synthesis (only offer what a camera accepts)
//   - Byte-preserving configuration writes
//   - Sensor-fed text overlays kept in sync over MQTT
//   - Offline-first operation on the local network
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/openhaus/camsync-core/migrations"

	"github.com/openhaus/camsync-core/internal/api"
	"github.com/openhaus/camsync-core/internal/auth"
	"github.com/openhaus/camsync-core/internal/camera"
	"github.com/openhaus/camsync-core/internal/device"
	"github.com/openhaus/camsync-core/internal/events"
	"github.com/openhaus/camsync-core/internal/infrastructure/config"
	"github.com/openhaus/camsync-core/internal/infrastructure/database"
	"github.com/openhaus/camsync-core/internal/infrastructure/influxdb"
	"github.com/openhaus/camsync-core/internal/infrastructure/logging"
	"github.com/openhaus/camsync-core/internal/infrastructure/mqtt"
	"github.com/openhaus/camsync-core/internal/overlay"
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
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
func run(ctx context.Context) error { //nolint:gocognit,gocyclo // startup sequencing is linear but long
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting CamSync Core",
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
	db, err := database.Open(database.Config{
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

	// Initialise device registry
	deviceRepo := device.NewSQLiteRepository(db.DB)
	deviceRegistry := device.NewRegistry(deviceRepo)
	deviceRegistry.SetLogger(log)

	if refreshErr := deviceRegistry.RefreshCache(ctx); refreshErr != nil {
		return fmt.Errorf("loading device registry: %w", refreshErr)
	}
	log.Info("device registry initialised", "devices", deviceRegistry.GetDeviceCount())

	// Connect to MQTT broker. The broker is optional: without it
	// cameras still register and accept writes, but sensor-fed overlays
	// and the WebSocket relay are disabled.
	var mqttClient *mqtt.Client
	mqttClient, err = mqtt.Connect(cfg.MQTT)
	if err != nil {
		log.Warn("MQTT unavailable, overlays will be static only", "error", err)
		mqttClient = nil
	} else {
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		mqttClient.SetLogger(log)
		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})
	}

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
	} else {
		log.Info("InfluxDB disabled")
	}

	// Event bus feeds overlay slots from sensor readings on MQTT.
	var bus *events.Bus
	if mqttClient != nil {
		bus = events.NewBus(mqttClient, byte(cfg.MQTT.QoS))
		bus.SetLogger(log)
		defer bus.Close()
	}

	// Recorder mirrors every sensor reading into InfluxDB for history.
	if mqttClient != nil && influxClient != nil {
		recorder, recErr := events.NewRecorder(mqttClient, influxClient, byte(cfg.MQTT.QoS), log)
		if recErr != nil {
			log.Warn("sensor history recorder failed to start", "error", recErr)
		} else {
			defer recorder.Close()
			log.Info("sensor history recorder started")
		}
	}

	// Camera manager runs one overlay sync loop per registered camera.
	managerCfg := camera.Config{
		Devices:      deviceRegistry,
		Store:        overlay.NewSQLiteStore(db.DB),
		SyncInterval: cfg.GetOverlayInterval(),
		Logger:       log,
	}
	if bus != nil {
		managerCfg.Events = camera.BusSource(bus)
	}
	if mqttClient != nil {
		managerCfg.Publisher = mqttClient
	}
	if influxClient != nil {
		managerCfg.Metrics = influxClient
	}
	cameraManager := camera.NewManager(managerCfg)
	defer func() {
		log.Info("stopping cameras")
		cameraManager.Close(context.Background())
	}()

	if cfg.Sync.RegisterOnStartup {
		registerCameras(ctx, cameraManager, deviceRegistry, log)
	}

	// Auth repositories and first-boot owner seeding
	userRepo := auth.NewUserRepository(db.DB)
	tokenRepo := auth.NewTokenRepository(db.DB)
	if _, seedErr := auth.SeedOwner(ctx, userRepo, log.Logger); seedErr != nil {
		return fmt.Errorf("seeding owner account: %w", seedErr)
	}

	// HTTP API
	apiServer, err := api.New(api.Deps{
		Config:    cfg.API,
		WS:        cfg.WebSocket,
		Security:  cfg.Security,
		Logger:    log,
		Registry:  deviceRegistry,
		Cameras:   cameraManager,
		UserRepo:  userRepo,
		TokenRepo: tokenRepo,
		MQTT:      mqttClient,
		DB:        db,
		Metrics:   metricsSink(influxClient),
		Version:   version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := apiServer.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := apiServer.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()
	log.Info("API server started", "address", fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port))

	// Verify infrastructure connections are healthy
	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// API server, cameras, recorder, bus, InfluxDB, MQTT, database.

	log.Info("CamSync Core stopped")
	return nil
}

// registerCameras brings every enabled camera device under management.
// Per-camera failures are logged and skipped so one unreachable camera
// cannot block startup.
func registerCameras(ctx context.Context, manager *camera.Manager, registry *device.Registry, log *logging.Logger) {
	cams, err := registry.GetDevicesByType(ctx, device.DeviceTypeCamera)
	if err != nil {
		log.Error("listing cameras for startup registration", "error", err)
		return
	}

	registered := 0
	for i := range cams {
		dev := &cams[i]
		if !dev.Enabled {
			continue
		}
		if _, regErr := manager.Register(ctx, dev.ID); regErr != nil {
			log.Warn("startup camera registration failed", "camera", dev.ID, "error", regErr)
			continue
		}
		registered++
	}
	log.Info("startup camera registration complete", "registered", registered, "total", len(cams))
}

// metricsSink returns the InfluxDB client as the API's metric sink, or
// nil when InfluxDB is disabled. The explicit nil avoids a non-nil
// interface wrapping a nil pointer.
func metricsSink(c *influxdb.Client) api.MetricSink {
	if c == nil {
		return nil
	}
	return c
}

// getConfigPath returns the configuration file path.
// Uses CAMSYNC_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("CAMSYNC_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies infrastructure connections are healthy. MQTT and
// InfluxDB are optional and skipped when absent.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}
