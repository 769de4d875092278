// Package config loads process settings from the environment (optionally seeded from
// .env files) and the builder definitions from a YAML file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
	StoreMemory   = "memory"

	BusPostgres = "postgres"
	BusNATS     = "nats"
	BusMemory   = "memory"
)

type Config struct {
	Port            string
	LogLevel        slog.Level
	CoordinatorName string

	Store       string
	DatabaseURL string
	SQLitePath  string

	EventBus string
	NATSURL  string

	BuildersFile string
	QueueOrder   string

	CoordinatorHeartbeat time.Duration
	ReclaimInterval      time.Duration
	CoordinatorTimeout   time.Duration
	WorkerGrace          time.Duration
	StartupWorkerGrace   time.Duration
	IdempotencyTTL       time.Duration
}

// Load reads the configuration. Variables already set in the process win over values
// from .env and .env.local.
func Load() (Config, error) {
	loadEnvFiles(".env", ".env.local")

	hostname, _ := os.Hostname()
	cfg := Config{
		Port:            envString("PORT", "8080"),
		CoordinatorName: envString("COORDINATOR_NAME", hostname),

		Store:       strings.ToLower(envString("STORE", StorePostgres)),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		SQLitePath:  envString("SQLITE_PATH", "build-mesh.db"),

		EventBus: strings.ToLower(envString("EVENT_BUS", "")),
		NATSURL:  envString("NATS_URL", "nats://127.0.0.1:4222"),

		BuildersFile: envString("BUILDERS_FILE", "builders.yaml"),
		QueueOrder:   envString("QUEUE_ORDER", "lexicographic"),

		CoordinatorHeartbeat: envDuration("COORDINATOR_HEARTBEAT_SECONDS", 10*time.Second),
		ReclaimInterval:      envDuration("RECLAIM_INTERVAL_SECONDS", 30*time.Second),
		CoordinatorTimeout:   envDuration("COORDINATOR_TIMEOUT_SECONDS", 60*time.Second),
		WorkerGrace:          envDuration("WORKER_GRACE_SECONDS", 2*time.Minute),
		StartupWorkerGrace:   envDuration("STARTUP_WORKER_GRACE_SECONDS", 30*time.Second),
		IdempotencyTTL:       envDuration("IDEMPOTENCY_TTL_SECONDS", 24*time.Hour),
	}
	if cfg.CoordinatorName == "" {
		cfg.CoordinatorName = "build-mesh"
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(envString("LOG_LEVEL", "info"))); err != nil {
		return Config{}, fmt.Errorf("LOG_LEVEL: %w", err)
	}

	// The bus follows the store unless chosen explicitly.
	if cfg.EventBus == "" {
		switch cfg.Store {
		case StorePostgres:
			cfg.EventBus = BusPostgres
		default:
			cfg.EventBus = BusMemory
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	switch c.Store {
	case StorePostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL not set"))
		}
	case StoreSQLite, StoreMemory:
	default:
		errs = append(errs, fmt.Errorf("STORE %q: want postgres, sqlite or memory", c.Store))
	}

	switch c.EventBus {
	case BusPostgres:
		if c.Store != StorePostgres {
			errs = append(errs, errors.New("EVENT_BUS=postgres needs STORE=postgres"))
		}
	case BusNATS, BusMemory:
	default:
		errs = append(errs, fmt.Errorf("EVENT_BUS %q: want postgres, nats or memory", c.EventBus))
	}

	if c.CoordinatorTimeout <= c.CoordinatorHeartbeat {
		errs = append(errs, errors.New("COORDINATOR_TIMEOUT_SECONDS must exceed COORDINATOR_HEARTBEAT_SECONDS"))
	}
	return errors.Join(errs...)
}

// loadEnvFiles loads every file that exists. Missing files are not an error.
func loadEnvFiles(paths ...string) {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			slog.Warn("failed to load env file", "path", p, "error", err)
			continue
		}
		slog.Debug("loaded env file", "path", p)
	}
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

// envDuration reads an integer-seconds env var and returns a Duration.
// Falls back to defaultVal if the var is unset or invalid.
func envDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
		slog.Warn("ignoring invalid duration", "key", key, "value", v)
	}
	return defaultVal
}
