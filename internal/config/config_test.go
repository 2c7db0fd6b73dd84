package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func valid() Config {
	return Config{
		Port:               8080,
		StateDir:           "/state",
		SpecURL:            "/api/openapi.yaml",
		LogLevel:           "info",
		DrainIntervalHours: 12,
	}
}

func TestLoad(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	viper.Set("port", 9090)
	viper.Set("state_dir", "/tmp/state")
	viper.Set("spec_url", "/api/v1/openapi.yaml")
	viper.Set("log_level", "debug")
	viper.Set("persist", true)
	viper.Set("drain_interval_hours", 6.5)

	cfg := Load()
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "/tmp/state", cfg.StateDir)
	assert.Equal(t, "/api/v1/openapi.yaml", cfg.SpecURL)
	assert.True(t, cfg.Persist)
	assert.False(t, cfg.Dev)
	assert.Equal(t, 6*time.Hour+30*time.Minute, cfg.DrainInterval())
	assert.Equal(t, ":9090", cfg.Addr())
}

func TestLoadFromEnv(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	viper.SetEnvPrefix("STORMSTATS")
	viper.AutomaticEnv()
	t.Setenv("STORMSTATS_SPEC_URL", "/spec.json")

	assert.Equal(t, "/spec.json", Load().SpecURL)
}

func TestValidate(t *testing.T) {
	require.NoError(t, valid().Validate())

	tests := map[string]func(*Config){
		"port":      func(c *Config) { c.Port = 0 },
		"state dir": func(c *Config) { c.StateDir = "" },
		"spec url":  func(c *Config) { c.SpecURL = "" },
		"log level": func(c *Config) { c.LogLevel = "loud" },
		"drain":     func(c *Config) { c.DrainIntervalHours = 0 },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			c := valid()
			mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}
