// CSE362 Core - session authentication gateway.
//
// This is the main entry point. It loads configuration, opens and migrates
// the SQLite database, seeds the root account and serves the /api/v0
// gateway until SIGINT or SIGTERM.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/MrMouse2405/CSE362/migrations"

	"github.com/MrMouse2405/CSE362/internal/api"
	"github.com/MrMouse2405/CSE362/internal/audit"
	"github.com/MrMouse2405/CSE362/internal/auth"
	"github.com/MrMouse2405/CSE362/internal/infrastructure/config"
	"github.com/MrMouse2405/CSE362/internal/infrastructure/database"
	"github.com/MrMouse2405/CSE362/internal/infrastructure/influxdb"
	"github.com/MrMouse2405/CSE362/internal/infrastructure/logging"
	"github.com/MrMouse2405/CSE362/internal/infrastructure/mqtt"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const (
	defaultConfigPath = "configs/config.yaml"
	envFilePath       = ".env"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run wires every component and blocks until ctx is cancelled.
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting CSE362 Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	if err := config.LoadEnvFile(envFilePath); err != nil {
		return err
	}

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, version)

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

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	hasher := auth.NewPasswordHasher(cfg.Security.SecretKey)
	users := auth.NewUserRepository(db.DB)
	sessions := auth.NewSessionManager(auth.NewSQLiteStore(db.DB),
		auth.WithTTL(cfg.SessionTTL()),
		auth.WithLogger(log.Logger),
	)

	if _, err := auth.SeedRoot(ctx, users, hasher, cfg.Security.Root.Username, cfg.Security.Root.Password, log.Logger); err != nil {
		return fmt.Errorf("seeding root account: %w", err)
	}

	status := []api.StatusProvider{}

	// Interface-typed so a disabled client stays a true nil for the fan-out.
	var bus api.EventBus
	if cfg.MQTT.Enabled {
		mqttClient, connErr := mqtt.Connect(cfg.MQTT)
		if connErr != nil {
			return fmt.Errorf("connecting to MQTT: %w", connErr)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log)
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
			"topic_prefix", mqttClient.Topics().Prefix(),
		)
		bus = mqttClient
		status = append(status, api.NamedStatus("mqtt", mqttClient.HealthCheck))
	} else {
		log.Info("MQTT disabled")
	}

	var telemetry api.Telemetry
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(ctx, cfg.InfluxDB)
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
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
		telemetry = influxClient
		status = append(status, api.NamedStatus("influxdb", influxClient.HealthCheck))
	} else {
		log.Info("InfluxDB disabled")
	}

	if schedule := cfg.Security.Session.SweepSchedule; schedule != "" {
		sweeper, sweepErr := auth.NewSessionSweeper(sessions, schedule, log.Logger)
		if sweepErr != nil {
			return fmt.Errorf("creating session sweeper: %w", sweepErr)
		}
		if influxClient != nil {
			sweeper.OnSwept(influxClient.WriteSweep)
		}
		sweeper.Start()
		defer sweeper.Stop(context.Background())
		log.Info("session sweeper started", "schedule", schedule)
	}

	server, err := api.New(api.Deps{
		Config:   cfg.API,
		Session:  cfg.Security.Session,
		Logger:   log,
		DB:       db,
		Users:    users,
		Sessions: sessions,
		Hasher:   hasher,
		Audit:    audit.NewSQLiteRepository(db.DB),
		Events:   api.NewEventPublisher(bus, telemetry, log),
		Status:   status,
		Version:  version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")

	return nil
}

// getConfigPath returns CSE362_CONFIG if set, otherwise the default path.
// A default path that does not exist falls back to built-in defaults plus
// environment variables.
func getConfigPath() string {
	if path := os.Getenv("CSE362_CONFIG"); path != "" {
		return path
	}
	if _, err := os.Stat(defaultConfigPath); err != nil {
		return ""
	}
	return defaultConfigPath
}
