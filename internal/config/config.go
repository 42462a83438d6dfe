package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config holds process-level settings read from the environment once at
// startup. Game-facing settings (limits, bonuses, reset time) live in the
// YAML settings file and support hot reload; see Store.
type Config struct {
	Port         int    `env:"PORT" envDefault:"8080"`
	DatabaseURL  string `env:"DATABASE_URL"`
	DataFile     string `env:"DATA_FILE" envDefault:"playtimes.json"`
	SettingsFile string `env:"SETTINGS_FILE" envDefault:"playtimer.yml"`
	LogLevel     string `env:"LOG_LEVEL" envDefault:"info"`
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
