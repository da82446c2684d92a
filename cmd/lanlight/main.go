// lanlight - LAN smart-light coordination service
//
// lanlight keeps a live model of the lights on a local network. It polls
// the lights through a LAN gateway reached over MQTT, tracks which lights
// are present and which tag groups they belong to, evicts lights that stop
// answering, and exposes the model through a read-only HTTP API.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nerrad567/lanlight/internal/api"
	"github.com/nerrad567/lanlight/internal/coordinator"
	"github.com/nerrad567/lanlight/internal/discovery"
	"github.com/nerrad567/lanlight/internal/infrastructure/config"
	"github.com/nerrad567/lanlight/internal/infrastructure/database"
	"github.com/nerrad567/lanlight/internal/infrastructure/influxdb"
	"github.com/nerrad567/lanlight/internal/infrastructure/logging"
	"github.com/nerrad567/lanlight/internal/infrastructure/mqtt"
	"github.com/nerrad567/lanlight/internal/router"
	"github.com/nerrad567/lanlight/migrations"
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
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the application logic, separated from main for testability.
// It returns nil on clean shutdown.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting lanlight",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
	db, err := database.Open(database.ConfigFrom(cfg.Database))
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", db.Path())

	if migrateErr := db.Migrate(ctx, migrations.FS); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Sightings journal
	journal := discovery.NewJournal(db.DB)
	journal.SetLogger(log.Component("journal"))
	if startErr := journal.Start(ctx); startErr != nil {
		return fmt.Errorf("starting sightings journal: %w", startErr)
	}
	defer journal.Stop()

	// Connect to MQTT broker
	mqttClient, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	mqttClient.SetLogger(log.Component("mqtt"))
	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB, cfg.Site.ID)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err, "failures", influxClient.WriteFailures())
		})
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	// Coordinator and router
	coord, rt, err := startCoordinator(cfg, mqttClient, influxClient, journal, log)
	if err != nil {
		return err
	}
	defer func() {
		log.Info("stopping router")
		if stopErr := rt.Stop(); stopErr != nil {
			log.Warn("error stopping router", "error", stopErr)
		}
	}()
	defer coord.Close()

	loaded, err := coord.WaitForLoaded(ctx, cfg.LAN.StartupTimeout)
	switch {
	case err != nil && errors.Is(err, ctx.Err()):
		log.Info("startup wait interrupted")
	case err != nil:
		log.Warn("waiting for initial light load", "error", err)
	case !loaded:
		log.Warn("initial light load incomplete, continuing",
			"timeout", cfg.LAN.StartupTimeout,
			"pan_sighted", rt.PANSighted(),
			"lights", coord.Lights().Len(),
		)
	default:
		log.Info("initial light load complete",
			"lights", coord.Lights().Len(),
			"groups", coord.Groups().Len(),
		)
	}

	// Status API (optional)
	if cfg.API.Enabled {
		checks := map[string]api.HealthChecker{
			"database": db,
			"mqtt":     mqttClient,
		}
		if influxClient != nil {
			checks["influxdb"] = influxClient
		}

		srv, apiErr := api.New(api.Deps{
			Config:      cfg.API,
			Logger:      log.Component("api"),
			Coordinator: coord,
			Router:      rt,
			Journal:     journal,
			DB:          db.DB,
			Checks:      checks,
			Version:     version,
		})
		if apiErr != nil {
			return fmt.Errorf("creating API server: %w", apiErr)
		}
		if startErr := srv.Start(ctx); startErr != nil {
			return fmt.Errorf("starting API server: %w", startErr)
		}
		defer func() {
			if closeErr := srv.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
	} else {
		log.Info("API disabled")
	}

	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred calls run in reverse order:
	// API, coordinator, router, InfluxDB, MQTT, journal, database.

	log.Info("lanlight stopped")
	return nil
}

// startCoordinator builds the coordinator, wires the router and registry
// listeners, and opens the polling timeline.
func startCoordinator(
	cfg *config.Config,
	mqttClient *mqtt.Client,
	influxClient *influxdb.Client,
	journal *discovery.Journal,
	log *logging.Logger,
) (*coordinator.Coordinator, *router.MQTTRouter, error) {
	coord := coordinator.New(coordinator.OptionsFromConfig(cfg.LAN, log.Component("coordinator")))

	qos := byte(cfg.MQTT.QoS) // #nosec G115 -- validated to 0..2
	rt := router.New(mqttClient, router.Options{
		QoS:    qos,
		Logger: log.Component("router"),
	})
	rt.SetHandler(coord.HandleMessage)

	lights := coord.Lights()
	lights.AddListener(journal)
	if cfg.LAN.PublishState {
		lights.AddListener(router.NewStatePublisher(mqttClient, qos, log.Component("state")))
	}
	if influxClient != nil {
		lights.AddListener(influxdb.NewLightRecorder(influxClient, lights, coord.Groups()))
	}

	if err := coord.SetRouter(rt); err != nil {
		return nil, nil, fmt.Errorf("attaching router: %w", err)
	}
	if err := rt.Start(); err != nil {
		return nil, nil, fmt.Errorf("starting router: %w", err)
	}
	if err := coord.Open(); err != nil {
		_ = rt.Stop()
		return nil, nil, fmt.Errorf("opening coordinator: %w", err)
	}

	log.Info("coordinator started",
		"poll_interval", cfg.LAN.PollInterval,
		"stale_after", cfg.LAN.StaleAfter,
		"source", rt.Source(),
	)
	return coord, rt, nil
}

// getConfigPath returns the configuration file path.
// Uses LANLIGHT_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("LANLIGHT_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
// influxClient may be nil when InfluxDB is disabled.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}
