// Package config loads process configuration via viper, the same
// layered defaults/env/file approach as the teacher, re-sectioned around
// the database/supervisor/worker/http/metrics concerns this program
// actually has.
package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Database   DatabaseConfig
	Supervisor SupervisorConfig
	Worker     WorkerConfig
	HTTP       HTTPConfig
	Metrics    MetricsConfig
	Auth       AuthConfig
	LogLevel   string
}

// DatabaseConfig holds the Postgres DSN and pool timing constants from
// spec.md §6.
type DatabaseConfig struct {
	DSN            string
	AcquireTimeout time.Duration
}

// SupervisorConfig holds the supervisor's timing knobs.
type SupervisorConfig struct {
	MaintenanceInterval time.Duration
	HeartbeatTimeout    time.Duration
}

// WorkerConfig holds a worker process's identity and timing knobs. ID is
// usually supplied via the `work --id` flag rather than this file.
type WorkerConfig struct {
	ID                string
	HeartbeatInterval time.Duration
	ListenAddr        string
}

// HTTPConfig holds the task/admin HTTP surface's settings.
type HTTPConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	RateLimitRPS int
}

type MetricsConfig struct {
	Enabled bool
	Path    string
}

// AuthConfig guards the read-only admin surface (spec_full.md §4.9).
type AuthConfig struct {
	Enabled   bool
	JWTSecret string
	APIKeys   []string
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/scheduler")

	setDefaults()

	viper.SetEnvPrefix("SCHEDULER")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults() {
	// Database defaults, matching spec.md §6's DB_ACQUIRE_TIMEOUT.
	viper.SetDefault("database.dsn", "postgres://127.0.0.1:5432/scheduler?sslmode=disable")
	viper.SetDefault("database.acquiretimeout", 5*time.Second)

	// Supervisor defaults, matching spec.md §6's MAINTENANCE_INTERVAL and
	// HEARTBEAT_TIMEOUT.
	viper.SetDefault("supervisor.maintenanceinterval", 1*time.Second)
	viper.SetDefault("supervisor.heartbeattimeout", 3*time.Second)

	// Worker defaults, matching spec.md §6's HEARTBEAT_DURATION.
	viper.SetDefault("worker.id", "")
	viper.SetDefault("worker.heartbeatinterval", 1*time.Second)
	viper.SetDefault("worker.listenaddr", ":8080")

	// HTTP defaults.
	viper.SetDefault("http.host", "0.0.0.0")
	viper.SetDefault("http.port", 8080)
	viper.SetDefault("http.readtimeout", 30*time.Second)
	viper.SetDefault("http.writetimeout", 30*time.Second)
	viper.SetDefault("http.idletimeout", 120*time.Second)
	viper.SetDefault("http.ratelimitrps", 1000)

	// Metrics defaults.
	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.path", "/metrics")

	// Auth defaults — the read-only admin surface is open by default,
	// matching the teacher's own default-disabled posture.
	viper.SetDefault("auth.enabled", false)
	viper.SetDefault("auth.jwtsecret", "")
	viper.SetDefault("auth.apikeys", []string{})

	// Logging defaults, matching the original's RUST_LOG=fcs=info default.
	viper.SetDefault("loglevel", "info")
}
