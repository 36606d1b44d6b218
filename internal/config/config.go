package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config carries the process configuration, read once at startup.
type Config struct {
	Env           string
	Port          string
	DatabaseDSN   string // empty = in-memory session store
	JWTSecret     string
	SeedDir       string // directory holding the initial JSON snapshot
	SweepInterval time.Duration
}

// Load reads configuration from the environment, with an optional .env file.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("could not read .env file")
	}

	cfg := &Config{
		Env:           getenv("ENV", "development"),
		Port:          getenv("PORT", "8080"),
		DatabaseDSN:   os.Getenv("DATABASE_DSN"),
		JWTSecret:     getenv("JWT_SECRET", "bidhaus-secret-key"),
		SeedDir:       getenv("SEED_DIR", "data"),
		SweepInterval: time.Second,
	}

	if raw := os.Getenv("SWEEP_INTERVAL"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			log.Warn().Str("value", raw).Msg("invalid SWEEP_INTERVAL, using default")
		} else {
			cfg.SweepInterval = d
		}
	}

	return cfg
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
