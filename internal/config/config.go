// Package config loads service configuration from defaults, an optional
// YAML file, and STUDYPING_-prefixed environment variables, in that order.
// The resulting struct is built once at startup and passed by reference;
// business logic never reads the environment directly.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config is the root configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Log       LogConfig       `koanf:"log"`
	CORS      CORSConfig      `koanf:"cors"`
	Storage   StorageConfig   `koanf:"storage"`
	Database  DatabaseConfig  `koanf:"database"`
	Canvas    CanvasConfig    `koanf:"canvas"`
	LLM       LLMConfig       `koanf:"llm"`
	SMS       SMSConfig       `koanf:"sms"`
	Scheduler SchedulerConfig `koanf:"scheduler"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host              string        `koanf:"host"`
	Port              string        `koanf:"port"`
	MetricsPort       string        `koanf:"metrics_port"`
	ReadTimeout       time.Duration `koanf:"read_timeout"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout"`
	WriteTimeout      time.Duration `koanf:"write_timeout"`
	IdleTimeout       time.Duration `koanf:"idle_timeout"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins []string `koanf:"allowed_origins"`
}

// StorageConfig selects the subscription registry driver.
type StorageConfig struct {
	Driver   string `koanf:"driver"` // "file" or "postgres"
	FilePath string `koanf:"file_path"`
}

// DatabaseConfig holds postgres settings, used only with the postgres driver.
type DatabaseConfig struct {
	URL             string        `koanf:"url"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnectTimeout  time.Duration `koanf:"connect_timeout"`
	ConnectAttempts int           `koanf:"connect_attempts"`
}

// CanvasConfig holds course API settings.
type CanvasConfig struct {
	BaseURL string `koanf:"base_url"`
}

// LLMConfig holds text-generation API settings.
type LLMConfig struct {
	BaseURL string `koanf:"base_url"`
	APIKey  string `koanf:"api_key"`
	Model   string `koanf:"model"`
}

// SMSConfig holds SMS delivery settings.
type SMSConfig struct {
	BaseURL         string  `koanf:"base_url"`
	APIKey          string  `koanf:"api_key"`
	Sender          string  `koanf:"sender"`
	WebhookSecret   string  `koanf:"webhook_secret"`
	ReplyWebhookURL string  `koanf:"reply_webhook_url"`
	RateLimit       float64 `koanf:"rate_limit"` // messages/sec, 0 = unlimited
}

// SchedulerConfig holds daily batch trigger settings.
type SchedulerConfig struct {
	Enabled  bool   `koanf:"enabled"`
	Hour     int    `koanf:"hour"`
	Minute   int    `koanf:"minute"`
	Timezone string `koanf:"timezone"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host:              "0.0.0.0",
			Port:              "8080",
			MetricsPort:       "9090",
			ReadTimeout:       15 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"*"},
		},
		Storage: StorageConfig{
			Driver:   "file",
			FilePath: "subscriptions.json",
		},
		Database: DatabaseConfig{
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 30 * time.Minute,
			ConnectTimeout:  30 * time.Second,
			ConnectAttempts: 3,
		},
		Canvas: CanvasConfig{
			BaseURL: "https://canvas.instructure.com",
		},
		LLM: LLMConfig{
			BaseURL: "https://api.openai.com/v1",
			Model:   "gpt-4o-mini",
		},
		SMS: SMSConfig{
			BaseURL: "https://textbelt.com",
		},
		Scheduler: SchedulerConfig{
			Enabled:  true,
			Hour:     8,
			Minute:   0,
			Timezone: "America/New_York",
		},
	}
}

// envPrefix is stripped from environment variables; "__" nests keys,
// e.g. STUDYPING_SERVER__PORT=8081 sets server.port.
const envPrefix = "STUDYPING_"

// Load builds the configuration. path may be empty or point to a YAML file;
// a missing file at the default path is not an error.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("load config file %s: %w", path, err)
			}
		}
	}

	err := k.Load(env.ProviderWithValue(envPrefix, ".", func(key, value string) (string, interface{}) {
		key = strings.ToLower(strings.TrimPrefix(key, envPrefix))
		key = strings.ReplaceAll(key, "__", ".")
		return key, value
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks settings that would otherwise fail at an awkward time.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "file":
		if c.Storage.FilePath == "" {
			return fmt.Errorf("storage.file_path is required with the file driver")
		}
	case "postgres":
		if c.Database.URL == "" {
			return fmt.Errorf("database.url is required with the postgres driver")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}

	if c.Scheduler.Hour < 0 || c.Scheduler.Hour > 23 {
		return fmt.Errorf("scheduler.hour must be 0-23, got %d", c.Scheduler.Hour)
	}
	if c.Scheduler.Minute < 0 || c.Scheduler.Minute > 59 {
		return fmt.Errorf("scheduler.minute must be 0-59, got %d", c.Scheduler.Minute)
	}
	if _, err := time.LoadLocation(c.Scheduler.Timezone); err != nil {
		return fmt.Errorf("scheduler.timezone: %w", err)
	}

	return nil
}
