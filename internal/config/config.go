package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Version is set at build time via -ldflags.
var Version = "dev"

// Config holds all runtime configuration for stormstats.
type Config struct {
	Port     int    `validate:"min=1,max=65535"`
	StateDir string `validate:"required"`
	SpecURL  string `validate:"required"`
	LogLevel string `validate:"oneof=debug info warn error"`
	Persist  bool
	Dev      bool

	// DrainIntervalHours separates rain events; fractional hours are allowed.
	DrainIntervalHours float64 `validate:"gt=0"`
}

// Load reads configuration from viper, which merges flag values, env vars,
// and defaults (set up by the cobra command in cmd/stormstats).
func Load() Config {
	return Config{
		Port:               viper.GetInt("port"),
		StateDir:           viper.GetString("state_dir"),
		SpecURL:            viper.GetString("spec_url"),
		LogLevel:           viper.GetString("log_level"),
		Persist:            viper.GetBool("persist"),
		Dev:                viper.GetBool("dev"),
		DrainIntervalHours: viper.GetFloat64("drain_interval_hours"),
	}
}

var validate = validator.New()

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// DrainInterval is DrainIntervalHours as a duration.
func (c Config) DrainInterval() time.Duration {
	return time.Duration(c.DrainIntervalHours * float64(time.Hour))
}

// Addr is the listen address of the HTTP server.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
