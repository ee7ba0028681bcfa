/*
Package config loads server settings from the environment.

ENVIRONMENT:
  BONUS_HTTP_PORT            Listen port (8080)
  BONUS_DB_PATH              SQLite file (bonus.db)
  BONUS_PLAN_FILE            Optional plan file, YAML or JSON
  BONUS_PLAN_PRESET          Optional named plan (standard, double-days, launch-week)
  BONUS_LOG_LEVEL            debug | info | warn | error (info)
  BONUS_LOG_FORMAT           text | json (text)
  BONUS_SCHEDULER_ENABLED    Run the daily team bonus payouts (true)
  BONUS_SCHEDULER_INTERVAL   Payout tick (1h)
  BONUS_CORS_ORIGINS         Comma-separated allowed origins
  BONUS_READ_TIMEOUT / BONUS_WRITE_TIMEOUT / BONUS_IDLE_TIMEOUT

Command-line flags in cmd/server override these values.
*/
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the full server configuration.
type Config struct {
	HTTP      HTTPConfig
	Storage   StorageConfig
	Logging   LoggingConfig
	Scheduler SchedulerConfig

	// PlanFile, when set, replaces the stored or default plan at startup.
	PlanFile string `env:"BONUS_PLAN_FILE"`
	// PlanPreset names a built-in plan; PlanFile wins when both are set.
	PlanPreset string `env:"BONUS_PLAN_PRESET"`
}

type HTTPConfig struct {
	Port         string        `env:"BONUS_HTTP_PORT"     envDefault:"8080"`
	CORSOrigins  []string      `env:"BONUS_CORS_ORIGINS"  envSeparator:"," envDefault:"http://localhost:3000,http://localhost:5173,http://localhost:8080"`
	ReadTimeout  time.Duration `env:"BONUS_READ_TIMEOUT"  envDefault:"15s"`
	WriteTimeout time.Duration `env:"BONUS_WRITE_TIMEOUT" envDefault:"15s"`
	IdleTimeout  time.Duration `env:"BONUS_IDLE_TIMEOUT"  envDefault:"60s"`
}

type StorageConfig struct {
	DBPath string `env:"BONUS_DB_PATH" envDefault:"bonus.db"`
}

// LoggingConfig selects the slog handler.
type LoggingConfig struct {
	Level         string `env:"BONUS_LOG_LEVEL"  envDefault:"info"`
	Format        string `env:"BONUS_LOG_FORMAT" envDefault:"text"`
	IncludeCaller bool   `env:"BONUS_LOG_CALLER"`
}

type SchedulerConfig struct {
	Enabled  bool          `env:"BONUS_SCHEDULER_ENABLED"  envDefault:"true"`
	Interval time.Duration `env:"BONUS_SCHEDULER_INTERVAL" envDefault:"1h"`
}

// Load parses the environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.Scheduler.Interval <= 0 {
		return Config{}, fmt.Errorf("parse env: BONUS_SCHEDULER_INTERVAL must be positive, got %s", cfg.Scheduler.Interval)
	}
	return cfg, nil
}

// Addr is the listen address for the HTTP server.
func (c HTTPConfig) Addr() string {
	return ":" + c.Port
}
