// Package config loads the service settings and opens its shared resources.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Port        string `env:"PORT" envDefault:"8080"`
	GinMode     string `env:"GIN_MODE"`
	DBDriver    string `env:"DB_DRIVER" envDefault:"postgres"`
	DatabaseURL string `env:"DATABASE_URL"`
	SQLitePath  string `env:"SQLITE_PATH" envDefault:"judging.db"`
	// AutoMigrate runs pending migrations on startup.
	AutoMigrate bool `env:"AUTO_MIGRATE" envDefault:"false"`

	TotalRounds        int    `env:"TOTAL_ROUNDS" envDefault:"2"`
	RoundCloseSchedule string `env:"ROUND_CLOSE_SCHEDULE"`
	AutoAdvance        bool   `env:"AUTO_ADVANCE" envDefault:"false"`

	CORSAllowedOrigins []string      `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000,http://127.0.0.1:3000"`
	ScoreRateLimit     float64       `env:"SCORE_RATE_LIMIT" envDefault:"5"`
	ScoreRateBurst     int           `env:"SCORE_RATE_BURST" envDefault:"10"`
	StreamKeepAlive    time.Duration `env:"STREAM_KEEP_ALIVE" envDefault:"15s"`

	NATSURL     string `env:"NATS_URL"`
	NATSSubject string `env:"NATS_SUBJECT" envDefault:"hackjudge.events"`

	LogLevel     string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat    string `env:"LOG_FORMAT" envDefault:"text"`
	OTELEndpoint string `env:"OTEL_ENDPOINT"`

	// EnvFileLoaded reports whether a .env file was found.
	EnvFileLoaded bool `env:"-"`
}

// Load reads an optional .env file and then the process environment.
func Load() (Config, error) {
	loaded := godotenv.Load() == nil
	cfg, err := parse(env.Options{})
	if err != nil {
		return Config{}, err
	}
	cfg.EnvFileLoaded = loaded
	return cfg, nil
}

// LogSource records where the settings came from. Load runs before the
// logger exists, so callers log this once they have one.
func (c Config) LogSource(logger *slog.Logger) {
	if !c.EnvFileLoaded {
		logger.Info("no .env file found, using environment variables")
		return
	}
	logger.Debug("loaded .env file")
}

func parse(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	switch c.DBDriver {
	case "postgres":
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required when DB_DRIVER=postgres"))
		}
	case "sqlite":
		if c.SQLitePath == "" {
			errs = append(errs, errors.New("SQLITE_PATH must not be empty"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported DB_DRIVER %q (postgres or sqlite)", c.DBDriver))
	}
	if c.TotalRounds < 1 {
		errs = append(errs, fmt.Errorf("TOTAL_ROUNDS must be at least 1, got %d", c.TotalRounds))
	}
	if c.ScoreRateLimit < 0 {
		errs = append(errs, fmt.Errorf("SCORE_RATE_LIMIT must not be negative, got %v", c.ScoreRateLimit))
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("unsupported LOG_FORMAT %q (text or json)", c.LogFormat))
	}
	return errors.Join(errs...)
}
