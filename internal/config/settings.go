package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Settings are the process-level options read from the environment.
type Settings struct {
	ConfigDir     string `env:"MSGPULSE_CONFIG_DIR"     envDefault:"config"`
	LocalesDir    string `env:"MSGPULSE_LOCALES_DIR"    envDefault:"translations"`
	DefaultLocale string `env:"MSGPULSE_DEFAULT_LOCALE" envDefault:"en-US"`
	Journal       string `env:"MSGPULSE_JOURNAL"`
	LogLevel      string `env:"MSGPULSE_LOG_LEVEL"      envDefault:"info"`
	WriteExamples bool   `env:"MSGPULSE_WRITE_EXAMPLES"`
	OTelEndpoint  string `env:"MSGPULSE_OTEL_ENDPOINT"`
	OTelEnabled   bool   `env:"MSGPULSE_OTEL_ENABLED"   envDefault:"true"`
}

// LoadSettings parses Settings from the environment.
func LoadSettings() (Settings, error) {
	var s Settings
	if err := ParseEnv(&s); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// ParseEnv parses environment variables into target.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// SlogLevel maps LogLevel to a slog level. Unknown values select info.
func (s Settings) SlogLevel() slog.Level {
	switch strings.ToLower(strings.TrimSpace(s.LogLevel)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
