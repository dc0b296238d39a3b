package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	// Clear any existing config files from search path
	originalDir, _ := os.Getwd()
	tmpDir := t.TempDir()
	os.Chdir(tmpDir)
	defer os.Chdir(originalDir)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres://127.0.0.1:5432/scheduler?sslmode=disable", cfg.Database.DSN)
	assert.Equal(t, 5*time.Second, cfg.Database.AcquireTimeout)

	assert.Equal(t, 1*time.Second, cfg.Supervisor.MaintenanceInterval)
	assert.Equal(t, 3*time.Second, cfg.Supervisor.HeartbeatTimeout)

	assert.Equal(t, "", cfg.Worker.ID)
	assert.Equal(t, 1*time.Second, cfg.Worker.HeartbeatInterval)
	assert.Equal(t, ":8080", cfg.Worker.ListenAddr)

	assert.Equal(t, "0.0.0.0", cfg.HTTP.Host)
	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, 30*time.Second, cfg.HTTP.ReadTimeout)
	assert.Equal(t, 1000, cfg.HTTP.RateLimitRPS)

	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)

	assert.False(t, cfg.Auth.Enabled)

	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoad_WithConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := tmpDir + "/config.yaml"

	configContent := `
database:
  dsn: "postgres://127.0.0.1:5432/scheduler_test?sslmode=disable"

http:
  host: "127.0.0.1"
  port: 9090

worker:
  id: "test-worker"

loglevel: "warn"
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	require.NoError(t, err)

	originalDir, _ := os.Getwd()
	os.Chdir(tmpDir)
	defer os.Chdir(originalDir)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres://127.0.0.1:5432/scheduler_test?sslmode=disable", cfg.Database.DSN)
	assert.Equal(t, "127.0.0.1", cfg.HTTP.Host)
	assert.Equal(t, 9090, cfg.HTTP.Port)
	assert.Equal(t, "test-worker", cfg.Worker.ID)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestDatabaseConfig_Fields(t *testing.T) {
	cfg := DatabaseConfig{
		DSN:            "postgres://localhost/db",
		AcquireTimeout: 10 * time.Second,
	}

	assert.Equal(t, "postgres://localhost/db", cfg.DSN)
	assert.Equal(t, 10*time.Second, cfg.AcquireTimeout)
}

func TestSupervisorConfig_Fields(t *testing.T) {
	cfg := SupervisorConfig{
		MaintenanceInterval: 2 * time.Second,
		HeartbeatTimeout:    6 * time.Second,
	}

	assert.Equal(t, 2*time.Second, cfg.MaintenanceInterval)
	assert.Equal(t, 6*time.Second, cfg.HeartbeatTimeout)
}

func TestWorkerConfig_Fields(t *testing.T) {
	cfg := WorkerConfig{
		ID:                "worker-1",
		HeartbeatInterval: 1 * time.Second,
		ListenAddr:        ":9000",
	}

	assert.Equal(t, "worker-1", cfg.ID)
	assert.Equal(t, ":9000", cfg.ListenAddr)
}

func TestHTTPConfig_Fields(t *testing.T) {
	cfg := HTTPConfig{
		Host:         "localhost",
		Port:         8080,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
		RateLimitRPS: 500,
	}

	assert.Equal(t, "localhost", cfg.Host)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 500, cfg.RateLimitRPS)
}
