package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "9090", cfg.Server.MetricsPort)
	assert.Equal(t, "file", cfg.Storage.Driver)
	assert.Equal(t, "subscriptions.json", cfg.Storage.FilePath)
	assert.Equal(t, "https://canvas.instructure.com", cfg.Canvas.BaseURL)
	assert.Equal(t, "https://api.openai.com/v1", cfg.LLM.BaseURL)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
	assert.Equal(t, "https://textbelt.com", cfg.SMS.BaseURL)
	assert.True(t, cfg.Scheduler.Enabled)
	assert.Equal(t, 8, cfg.Scheduler.Hour)
	assert.Equal(t, "America/New_York", cfg.Scheduler.Timezone)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  port: "9000"
canvas:
  base_url: https://canvas.example.edu
scheduler:
  hour: 17
  minute: 30
  timezone: Europe/Berlin
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, "https://canvas.example.edu", cfg.Canvas.BaseURL)
	assert.Equal(t, 17, cfg.Scheduler.Hour)
	assert.Equal(t, 30, cfg.Scheduler.Minute)
	assert.Equal(t, "Europe/Berlin", cfg.Scheduler.Timezone)

	// Untouched sections keep their defaults.
	assert.Equal(t, "file", cfg.Storage.Driver)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
server:
  port: "9000"
`)

	t.Setenv("STUDYPING_SERVER__PORT", "9001")
	t.Setenv("STUDYPING_LLM__API_KEY", "sk-from-env")
	t.Setenv("STUDYPING_SMS__RATE_LIMIT", "2.5")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9001", cfg.Server.Port)
	assert.Equal(t, "sk-from-env", cfg.LLM.APIKey)
	assert.Equal(t, 2.5, cfg.SMS.RateLimit)
}

func TestLoad_MalformedFile(t *testing.T) {
	path := writeConfig(t, "server: [not: valid")

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "unknown driver",
			mutate:  func(c *Config) { c.Storage.Driver = "redis" },
			wantErr: "storage driver",
		},
		{
			name:    "file driver without path",
			mutate:  func(c *Config) { c.Storage.FilePath = "" },
			wantErr: "file_path",
		},
		{
			name:    "postgres driver without url",
			mutate:  func(c *Config) { c.Storage.Driver = "postgres" },
			wantErr: "database.url",
		},
		{
			name:    "hour out of range",
			mutate:  func(c *Config) { c.Scheduler.Hour = 24 },
			wantErr: "scheduler.hour",
		},
		{
			name:    "minute out of range",
			mutate:  func(c *Config) { c.Scheduler.Minute = 60 },
			wantErr: "scheduler.minute",
		},
		{
			name:    "bad timezone",
			mutate:  func(c *Config) { c.Scheduler.Timezone = "Mars/Olympus" },
			wantErr: "scheduler.timezone",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_PostgresDriver(t *testing.T) {
	cfg := Default()
	cfg.Storage.Driver = "postgres"
	cfg.Database.URL = "postgres://localhost/studyping"

	assert.NoError(t, cfg.Validate())
}
