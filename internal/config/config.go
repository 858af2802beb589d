package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration loaded from environment variables.
// A .env file in the working directory is read first if present; real
// environment variables win over it. DATABASE_URL and CRON_SECRET are required.
type Config struct {
	// Server
	HTTPPort        string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	// Database
	DatabaseURL    string
	DBMaxConns     int32
	DBMinConns     int32
	MigrationsPath string

	// Trigger authentication
	CronSecret string

	// External collaborators
	GeneratorURL    string
	DeliveryURL     string
	ProviderTimeout time.Duration

	// Rate limiting: maximum calls per second per collaborator
	GenerationRateLimit int
	DeliveryRateLimit   int

	// Dispatch run
	DispatchWorkers int
	StepTimeout     time.Duration
	RunTimeout      time.Duration
	MatchTolerance  int // minutes

	// In-process trigger; empty disables it
	CronSpec string

	LogLevel string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	secret := os.Getenv("CRON_SECRET")
	if secret == "" {
		return nil, fmt.Errorf("CRON_SECRET is required")
	}

	cfg := &Config{
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		ReadTimeout:     getDuration("READ_TIMEOUT", 5*time.Second),
		WriteTimeout:    getDuration("WRITE_TIMEOUT", 5*time.Minute),
		ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT", 30*time.Second),

		DatabaseURL:    dbURL,
		DBMaxConns:     int32(getInt("DB_MAX_CONNS", 25)),
		DBMinConns:     int32(getInt("DB_MIN_CONNS", 5)),
		MigrationsPath: getEnv("MIGRATIONS_PATH", "file://migrations"),

		CronSecret: secret,

		GeneratorURL:    getEnv("GENERATOR_URL", "http://localhost:9001/generate"),
		DeliveryURL:     getEnv("DELIVERY_URL", "http://localhost:9002/deliver"),
		ProviderTimeout: getDuration("PROVIDER_TIMEOUT", 30*time.Second),

		GenerationRateLimit: getInt("GENERATION_RATE_LIMIT", 10),
		DeliveryRateLimit:   getInt("DELIVERY_RATE_LIMIT", 20),

		DispatchWorkers: getInt("DISPATCH_WORKERS", 8),
		StepTimeout:     getDuration("STEP_TIMEOUT", 45*time.Second),
		RunTimeout:      getDuration("RUN_TIMEOUT", 4*time.Minute),
		MatchTolerance:  getInt("MATCH_TOLERANCE", 5),

		CronSpec: os.Getenv("CRON_SPEC"),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	if cfg.DispatchWorkers < 1 {
		return nil, fmt.Errorf("DISPATCH_WORKERS must be at least 1, got %d", cfg.DispatchWorkers)
	}
	if cfg.StepTimeout <= 0 || cfg.RunTimeout <= 0 {
		return nil, fmt.Errorf("STEP_TIMEOUT and RUN_TIMEOUT must be positive")
	}
	return cfg, nil
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
