package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/sports-newsroom-api/internal/api"
	"github.com/sports-newsroom-api/internal/config"
	"github.com/sports-newsroom-api/internal/database"
	"github.com/sports-newsroom-api/internal/generator"
	"github.com/sports-newsroom-api/internal/ingest"
	"github.com/sports-newsroom-api/internal/kv"
	"github.com/sports-newsroom-api/internal/metrics"
	"github.com/sports-newsroom-api/internal/repository"
	"github.com/sports-newsroom-api/internal/service"
	"github.com/sports-newsroom-api/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New("info", "json")
		bootLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	log.Info().Msg("Starting Sports Newsroom API server...")

	m := metrics.New()

	// Durable store
	var store kv.Store
	switch cfg.Store.Backend {
	case "postgres":
		db, err := database.New(&cfg.Database, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to database")
		}
		defer db.Close()

		if err := db.RunMigrations(); err != nil {
			log.Fatal().Err(err).Msg("Failed to run database migrations")
		}
		store = kv.NewPostgresStore(db.DB, cfg.Store.MaxValueBytes)
	default:
		log.Warn().Msg("Using in-memory article store, data is lost on restart")
		store = kv.NewMemoryStore(cfg.Store.MaxValueBytes)
	}

	// Session store
	var sessions kv.Store
	switch cfg.Session.Backend {
	case "redis":
		client, err := kv.NewRedisClient(cfg.Session)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to redis")
		}
		defer client.Close()
		sessions = kv.NewRedisStore(client, cfg.Session.TTL)
		log.Info().Str("addr", cfg.Session.RedisAddr).Dur("ttl", cfg.Session.TTL).Msg("Session store connected")
	default:
		sessions = kv.NewMemoryStore(0)
	}

	// Initialize repositories
	repos := repository.New(store, m)

	// Ingestion sessions
	manager := ingest.NewManager(
		ingest.Options{
			DecodeWorkers: cfg.Ingest.DecodeWorkers,
			PreviewRows:   cfg.Ingest.PreviewRows,
			IdleTTL:       cfg.Ingest.IdleTTL,
		},
		ingest.NewHTTPFetcher(cfg.Ingest.FetchTimeout, cfg.Ingest.MaxFetchBytes),
		m,
		log,
	)

	// Close sessions whose page went away without closing them
	go manager.StartJanitor(context.Background())

	gen := generator.NewClient(cfg.Generator.URL, cfg.Generator.Timeout, log)

	// Initialize services
	services := service.NewServices(repos, sessions, manager, gen, log)

	// Initialize router
	router := api.NewRouter(services, cfg, m, log)

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.ReadTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Release every outstanding image reference
	manager.StopJanitor()
	manager.Shutdown()

	log.Info().Msg("Server exited gracefully")
}
