package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("STORE_BACKEND", "memory")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("Expected port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Ingest.PreviewRows != 10 {
		t.Errorf("Expected 10 preview rows, got %d", cfg.Ingest.PreviewRows)
	}
	if cfg.Session.Backend != "memory" {
		t.Errorf("Expected memory session backend, got %s", cfg.Session.Backend)
	}
	if cfg.Ingest.IdleTTL != 30*time.Minute {
		t.Errorf("Expected 30m idle TTL, got %v", cfg.Ingest.IdleTTL)
	}
	if cfg.Store.MaxValueBytes != 5*1024*1024 {
		t.Errorf("Expected 5MB quota, got %d", cfg.Store.MaxValueBytes)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("STORE_BACKEND", "memory")
	t.Setenv("PORT", "9090")
	t.Setenv("SESSION_TTL", "90m")
	t.Setenv("INGEST_DECODE_WORKERS", "3")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != "9090" {
		t.Errorf("Expected port 9090, got %s", cfg.Server.Port)
	}
	if cfg.Session.TTL != 90*time.Minute {
		t.Errorf("Expected 90m TTL, got %v", cfg.Session.TTL)
	}
	if cfg.Ingest.DecodeWorkers != 3 {
		t.Errorf("Expected 3 workers, got %d", cfg.Ingest.DecodeWorkers)
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Database:  DatabaseConfig{Host: "localhost", Name: "db"},
			Store:     StoreConfig{Backend: "postgres"},
			Session:   SessionConfig{Backend: "memory"},
			Ingest:    IngestConfig{DecodeWorkers: 1, PreviewRows: 10},
			Generator: GeneratorConfig{URL: "http://gen"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"unknown store backend", func(c *Config) { c.Store.Backend = "mongo" }, true},
		{"postgres without host", func(c *Config) { c.Database.Host = "" }, true},
		{"memory store ignores database", func(c *Config) { c.Store.Backend = "memory"; c.Database.Host = "" }, false},
		{"redis without addr", func(c *Config) { c.Session.Backend = "redis" }, true},
		{"redis with addr", func(c *Config) { c.Session.Backend = "redis"; c.Session.RedisAddr = "r:6379" }, false},
		{"zero workers", func(c *Config) { c.Ingest.DecodeWorkers = 0 }, true},
		{"negative idle ttl", func(c *Config) { c.Ingest.IdleTTL = -time.Second }, true},
		{"missing generator", func(c *Config) { c.Generator.URL = "" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
