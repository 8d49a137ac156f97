package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Store     StoreConfig
	Session   SessionConfig
	Ingest    IngestConfig
	Generator GeneratorConfig
	Log       LogConfig
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host         string
	Port         string
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
}

// StoreConfig selects the durable key-value backend.
type StoreConfig struct {
	Backend       string // "postgres" or "memory"
	MaxValueBytes int    // per-key quota, 0 disables the check
}

// SessionConfig selects the ephemeral (per browser session) key-value backend.
type SessionConfig struct {
	Backend       string // "memory" or "redis"
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	TTL           time.Duration
}

// IngestConfig holds file ingestion settings
type IngestConfig struct {
	MaxUploadSize int64 // in bytes
	DecodeWorkers int
	PreviewRows   int
	FetchTimeout  time.Duration
	MaxFetchBytes int64
	IdleTTL       time.Duration // unused sessions are closed after this long
}

// GeneratorConfig points at the remote draft generation endpoint
type GeneratorConfig struct {
	URL     string
	Timeout time.Duration
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string
	Format string // "json" or "pretty"
}

// Load reads configuration from environment variables. A .env file in the
// working directory is loaded first when present; real environment variables win.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			ReadTimeout:     getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getDurationEnv("SERVER_WRITE_TIMEOUT", 120*time.Second),
			ShutdownTimeout: getDurationEnv("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", "postgres"),
			Name:         getEnv("DB_NAME", "sports_newsroom"),
			SSLMode:      getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns: getIntEnv("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns: getIntEnv("DB_MAX_IDLE_CONNS", 5),
			MaxLifetime:  getDurationEnv("DB_MAX_LIFETIME", 5*time.Minute),
		},
		Store: StoreConfig{
			Backend:       getEnv("STORE_BACKEND", "postgres"),
			MaxValueBytes: getIntEnv("STORE_MAX_VALUE_BYTES", 5*1024*1024), // 5MB, same as browser storage
		},
		Session: SessionConfig{
			Backend:       getEnv("SESSION_BACKEND", "memory"),
			RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
			RedisDB:       getIntEnv("REDIS_DB", 0),
			TTL:           getDurationEnv("SESSION_TTL", 24*time.Hour),
		},
		Ingest: IngestConfig{
			MaxUploadSize: getInt64Env("MAX_UPLOAD_SIZE", 50*1024*1024), // 50MB
			DecodeWorkers: getIntEnv("INGEST_DECODE_WORKERS", 8),
			PreviewRows:   getIntEnv("INGEST_PREVIEW_ROWS", 10),
			FetchTimeout:  getDurationEnv("INGEST_FETCH_TIMEOUT", 30*time.Second),
			MaxFetchBytes: getInt64Env("INGEST_MAX_FETCH_BYTES", 50*1024*1024),
			IdleTTL:       getDurationEnv("INGEST_SESSION_IDLE_TTL", 30*time.Minute),
		},
		Generator: GeneratorConfig{
			URL:     getEnv("GENERATOR_URL", "http://127.0.0.1:8000/api/generate-report"),
			Timeout: getDurationEnv("GENERATOR_TIMEOUT", 120*time.Second),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case "postgres":
		if c.Database.Host == "" {
			return fmt.Errorf("DB_HOST is required")
		}
		if c.Database.Name == "" {
			return fmt.Errorf("DB_NAME is required")
		}
	case "memory":
	default:
		return fmt.Errorf("STORE_BACKEND must be one of: postgres, memory")
	}

	switch c.Session.Backend {
	case "memory":
	case "redis":
		if c.Session.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required when SESSION_BACKEND=redis")
		}
	default:
		return fmt.Errorf("SESSION_BACKEND must be one of: memory, redis")
	}

	if c.Ingest.DecodeWorkers < 1 {
		return fmt.Errorf("INGEST_DECODE_WORKERS must be at least 1")
	}
	if c.Ingest.PreviewRows < 1 {
		return fmt.Errorf("INGEST_PREVIEW_ROWS must be at least 1")
	}
	if c.Ingest.IdleTTL < 0 {
		return fmt.Errorf("INGEST_SESSION_IDLE_TTL must not be negative")
	}
	if c.Generator.URL == "" {
		return fmt.Errorf("GENERATOR_URL is required")
	}
	return nil
}

// GetDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// Helper functions for environment variable parsing

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getInt64Env(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
