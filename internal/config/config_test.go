package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/garage-tracking/internal/models"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, BackendFile, cfg.Store.Backend)
	assert.Equal(t, "data", cfg.Data.Dir)
	assert.Equal(t, "garage", cfg.Mongo.DB)
	assert.Equal(t, "records", cfg.Mongo.Collection)
	assert.Equal(t, "qr_codes", cfg.QR.Dir)
	assert.Equal(t, models.StatusPending, cfg.DefaultStatus)
	assert.Equal(t, 200*time.Millisecond, cfg.Scan.Interval)
	assert.Equal(t, 10, cfg.FleetSize)
	assert.False(t, cfg.MinIO.Enabled())
	assert.False(t, cfg.MQTT.Enabled())
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("STORE_BACKEND", "Mongo")
	t.Setenv("MONGO_URI", "mongodb://localhost:27017")
	t.Setenv("MONGO_DB", "workshop")
	t.Setenv("DEFAULT_SERVICE_STATUS", "in process")
	t.Setenv("MINIO_ENDPOINT", "localhost:9000")
	t.Setenv("MINIO_ACCESS_KEY", "minio")
	t.Setenv("MQTT_BROKER", "tcp://localhost:1883")
	t.Setenv("SCAN_INTERVAL", "50ms")
	t.Setenv("FLEET_SIZE", "3")
	t.Setenv("SIM_TICK_SECONDS", "5")

	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, BackendMongo, cfg.Store.Backend)
	assert.Equal(t, "mongodb://localhost:27017", cfg.Mongo.URI)
	assert.Equal(t, "workshop", cfg.Mongo.DB)
	assert.Equal(t, models.StatusInProcess, cfg.DefaultStatus)
	assert.Equal(t, "minio", cfg.MinIO.AccessKey)
	assert.True(t, cfg.MinIO.Enabled())
	assert.True(t, cfg.MQTT.Enabled())
	assert.Equal(t, 50*time.Millisecond, cfg.Scan.Interval)
	assert.Equal(t, 3, cfg.FleetSize)
	assert.Equal(t, 5, cfg.Sim.TickSeconds)
}

func TestLoad_FlagsOverrideEnvironment(t *testing.T) {
	t.Setenv("DATA_DIR", "/from/env")
	t.Setenv("QR_DIR", "/qr/env")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("data-dir", "", "")
	fs.String("qr-dir", "ignored-default", "")
	require.NoError(t, fs.Parse([]string{"--data-dir", "/from/flag"}))

	cfg, err := Load(fs)
	require.NoError(t, err)
	assert.Equal(t, "/from/flag", cfg.Data.Dir)
	assert.Equal(t, "/qr/env", cfg.QR.Dir, "unchanged flag must not override env")
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "garage.yaml"), []byte("store:\n  backend: postgres\npostgres:\n  dsn: host=db user=garage\n"), 0o644))
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv("CONFIG_NAME", "garage")

	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, BackendPostgres, cfg.Store.Backend)
	assert.Equal(t, "host=db user=garage", cfg.Postgres.DSN)
}

func TestLoad_DotEnv(t *testing.T) {
	t.Run("values are picked up", func(t *testing.T) {
		chdir(t, t.TempDir())
		require.NoError(t, os.WriteFile(".env", []byte("QR_DIR=/from/dotenv\n"), 0o644))
		t.Cleanup(func() { _ = os.Unsetenv("QR_DIR") })

		cfg, err := Load(nil)
		require.NoError(t, err)
		assert.Equal(t, "/from/dotenv", cfg.QR.Dir)
	})

	t.Run("unreadable file is an error", func(t *testing.T) {
		chdir(t, t.TempDir())
		// a directory named .env cannot be read as a file
		require.NoError(t, os.Mkdir(".env", 0o755))

		_, err := Load(nil)
		assert.ErrorContains(t, err, "load .env")
	})

	t.Run("missing file is fine", func(t *testing.T) {
		chdir(t, t.TempDir())
		_, err := Load(nil)
		assert.NoError(t, err)
	})
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown backend", map[string]string{"STORE_BACKEND": "sqlite"}},
		{"mongo without uri", map[string]string{"STORE_BACKEND": "mongo"}},
		{"postgres without dsn", map[string]string{"STORE_BACKEND": "postgres"}},
		{"bad default status", map[string]string{"DEFAULT_SERVICE_STATUS": "Waiting"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(nil)
			assert.Error(t, err)
		})
	}
}

func TestConfigureLogging(t *testing.T) {
	defer log.SetLevel(log.GetLevel())
	defer log.SetFormatter(log.StandardLogger().Formatter)

	require.NoError(t, ConfigureLogging(LogConfig{Level: "debug", Format: "json"}))
	assert.Equal(t, log.DebugLevel, log.GetLevel())
	assert.IsType(t, &log.JSONFormatter{}, log.StandardLogger().Formatter)

	require.NoError(t, ConfigureLogging(LogConfig{Level: "warn", Format: "text"}))
	assert.Equal(t, log.WarnLevel, log.GetLevel())

	assert.Error(t, ConfigureLogging(LogConfig{Level: "loud"}))
	assert.Error(t, ConfigureLogging(LogConfig{Level: "info", Format: "xml"}))
}
