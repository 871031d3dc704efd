package main

import (
	"os"
	"time"

	"libraryapi/internal/config"
)

type settings struct {
	dsn     string
	timeout time.Duration
	dir     string
}

// loadSettings reads only what migrations need; JWT and HTTP settings are ignored.
func loadSettings() (settings, error) {
	cfg, err := config.Load()
	if err != nil {
		return settings{}, err
	}
	timeout := cfg.DBTimeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return settings{dsn: cfg.DBDSN, timeout: timeout, dir: migrationsDir()}, nil
}

func migrationsDir() string {
	if v := os.Getenv("MIGRATIONS_DIR"); v != "" {
		return v
	}
	return "db/migrations"
}
