// Package config loads runtime configuration from the environment.
//
// A .env file is honored when present; real environment variables win.
// Flags in cmd/server override both.
package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

// Config is the process configuration.
type Config struct {
	// Port the HTTP server listens on.
	Port string

	// DBPath is the SQLite database file. Empty selects the in-memory store.
	DBPath string

	// Environment tags audit entries: "SIMULATION" or "PRODUCTION".
	Environment string

	// Demo seeds the store with demo data on startup.
	Demo bool
}

// Load reads configuration from .env and the environment.
func Load() Config {
	if err := godotenv.Load(".env"); err != nil {
		log.Println("Warning: .env file not found, reading from system environment variables")
	}

	return Config{
		Port:        getenv("PORT", "8080"),
		DBPath:      os.Getenv("DB_PATH"),
		Environment: getenv("ENVIRONMENT", "SIMULATION"),
		Demo:        os.Getenv("DEMO") == "true",
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
