// internal/config/config.go

// Package config reads the service configuration from the environment.
// main blank-imports godotenv/autoload, so a local .env file is folded
// in before parsing.
package config

import (
	"github.com/caarlos0/env/v11"
	"github.com/sirupsen/logrus"
)

// Config is the full service configuration.
type Config struct {
	// Addr is the listen address for the HTTP/WebSocket server.
	Addr string `env:"CODEPICS_ADDR" envDefault:":8080"`

	// CardsDir is the root directory scanned for card-art collections.
	CardsDir string `env:"CODEPICS_CARDS_DIR" envDefault:"./cards"`

	// Debug enables the synthetic-client harness commands.
	Debug bool `env:"CODEPICS_DEBUG" envDefault:"false"`

	// LogLevel is any level name logrus understands.
	LogLevel string `env:"CODEPICS_LOG_LEVEL" envDefault:"info"`
}

// Load parses the configuration from the environment.
func Load() (Config, error) {
	return env.ParseAs[Config]()
}

// ParseLogLevel resolves the configured level, falling back to Info on
// an unknown name.
func (c Config) ParseLogLevel() logrus.Level {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}
