// Package config loads runtime settings from .env, an optional config file,
// environment variables and command line flags, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/ukydev/garage-tracking/internal/models"
)

// Store backends.
const (
	BackendFile     = "file"
	BackendMongo    = "mongo"
	BackendPostgres = "postgres"
)

type Config struct {
	Store    StoreConfig    `mapstructure:"store"`
	Data     DataConfig     `mapstructure:"data"`
	Mongo    MongoConfig    `mapstructure:"mongo"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	QR       QRConfig       `mapstructure:"qr"`
	MinIO    MinIOConfig    `mapstructure:"minio"`
	MQTT     MQTTConfig     `mapstructure:"mqtt"`
	Scan     ScanConfig     `mapstructure:"scan"`
	Log      LogConfig      `mapstructure:"log"`
	Sim      SimConfig      `mapstructure:"sim"`

	DefaultServiceStatus string `mapstructure:"default_service_status"`
	FleetSize            int    `mapstructure:"fleet_size"`

	// DefaultStatus is DefaultServiceStatus parsed.
	DefaultStatus models.ServiceStatus `mapstructure:"-"`
}

type StoreConfig struct {
	Backend string `mapstructure:"backend"`
}

type DataConfig struct {
	Dir string `mapstructure:"dir"`
}

type MongoConfig struct {
	URI        string `mapstructure:"uri"`
	DB         string `mapstructure:"db"`
	Collection string `mapstructure:"collection"`
}

type PostgresConfig struct {
	DSN string `mapstructure:"dsn"`
}

type QRConfig struct {
	Dir string `mapstructure:"dir"`
}

type MinIOConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

// Enabled reports whether QR images should also go to a bucket.
func (c MinIOConfig) Enabled() bool { return c.Endpoint != "" }

type MQTTConfig struct {
	Broker      string `mapstructure:"broker"`
	ClientID    string `mapstructure:"client_id"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
	TopicPrefix string `mapstructure:"topic_prefix"`
}

func (c MQTTConfig) Enabled() bool { return c.Broker != "" }

type ScanConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type SimConfig struct {
	TickSeconds int `mapstructure:"tick_seconds"`
}

// flagKeys maps command line flag names to config keys.
var flagKeys = map[string]string{
	"store":          "store.backend",
	"data-dir":       "data.dir",
	"qr-dir":         "qr.dir",
	"mongo-uri":      "mongo.uri",
	"postgres-dsn":   "postgres.dsn",
	"mqtt-broker":    "mqtt.broker",
	"scan-interval":  "scan.interval",
	"log-level":      "log.level",
	"log-format":     "log.format",
	"default-status": "default_service_status",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("store.backend", BackendFile)
	v.SetDefault("data.dir", "data")
	v.SetDefault("mongo.uri", "")
	v.SetDefault("mongo.db", "garage")
	v.SetDefault("mongo.collection", "records")
	v.SetDefault("postgres.dsn", "")
	v.SetDefault("qr.dir", "qr_codes")
	v.SetDefault("minio.endpoint", "")
	v.SetDefault("minio.access_key", "")
	v.SetDefault("minio.secret_key", "")
	v.SetDefault("minio.bucket", "garage-qr")
	v.SetDefault("minio.use_ssl", false)
	v.SetDefault("mqtt.broker", "")
	v.SetDefault("mqtt.client_id", "")
	v.SetDefault("mqtt.username", "")
	v.SetDefault("mqtt.password", "")
	v.SetDefault("mqtt.topic_prefix", "garage")
	v.SetDefault("scan.interval", 200*time.Millisecond)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("default_service_status", string(models.DefaultStatus))
	v.SetDefault("fleet_size", 10)
	v.SetDefault("sim.tick_seconds", 2)
}

// Load builds the configuration. Keys map to environment variables by
// upper-casing and replacing '.' with '_', so mongo.uri is MONGO_URI. flags
// may be nil; only flags the caller changed override other sources.
func Load(flags *pflag.FlagSet) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if name := os.Getenv("CONFIG_NAME"); name != "" {
		v.SetConfigName(name)
		v.AddConfigPath("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config file: %w", err)
			}
			log.WithField("config_name", name).Warn("Config file not found, using environment only")
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	c.Store.Backend = strings.ToLower(strings.TrimSpace(c.Store.Backend))
	switch c.Store.Backend {
	case BackendFile:
		if c.Data.Dir == "" {
			return fmt.Errorf("DATA_DIR is required for the file store")
		}
	case BackendMongo:
		if c.Mongo.URI == "" {
			return fmt.Errorf("MONGO_URI is required for the mongo store")
		}
	case BackendPostgres:
		if c.Postgres.DSN == "" {
			return fmt.Errorf("POSTGRES_DSN is required for the postgres store")
		}
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}

	status, err := models.ParseServiceStatus(c.DefaultServiceStatus)
	if err != nil {
		return fmt.Errorf("DEFAULT_SERVICE_STATUS: %w", err)
	}
	c.DefaultStatus = status

	if c.FleetSize < 1 {
		c.FleetSize = 1
	}
	if c.Sim.TickSeconds < 1 {
		c.Sim.TickSeconds = 1
	}
	return nil
}

// ConfigureLogging applies level and format to the standard logrus logger.
func ConfigureLogging(c LogConfig) error {
	level, err := log.ParseLevel(c.Level)
	if err != nil {
		return fmt.Errorf("LOG_LEVEL: %w", err)
	}
	log.SetLevel(level)
	switch strings.ToLower(c.Format) {
	case "json":
		log.SetFormatter(&log.JSONFormatter{})
	case "", "text":
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	default:
		return fmt.Errorf("LOG_FORMAT: unknown format %q", c.Format)
	}
	return nil
}
