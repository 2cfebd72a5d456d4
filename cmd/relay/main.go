// Command relay serves the sequence reconciliation API and runs its
// background workers.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/deppfellow/instrument-relay/internal/config"
	"github.com/deppfellow/instrument-relay/internal/database"
	"github.com/deppfellow/instrument-relay/internal/handler"
	"github.com/deppfellow/instrument-relay/internal/logger"
	"github.com/deppfellow/instrument-relay/internal/repository"
	"github.com/deppfellow/instrument-relay/internal/router"
	"github.com/deppfellow/instrument-relay/internal/server"
	"github.com/deppfellow/instrument-relay/internal/service"
)

// DefaultContextTimeout bounds migrations at start-up and the graceful shutdown.
const DefaultContextTimeout = 30 * time.Second

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		// No logger yet: the observability block is part of the config.
		l := logger.NewLogger(config.DefaultObservabilityConfig())
		l.Fatal().Err(err).Msg("failed to load config")
	}

	loggerService := logger.NewLoggerService(cfg.Observability)
	defer loggerService.Shutdown()

	log := logger.NewLoggerWithService(cfg.Observability, loggerService)

	// The reconciler calls get_max_id and reset_sequence, installed by the migrations.
	migrateCtx, cancel := context.WithTimeout(context.Background(), DefaultContextTimeout)
	if err := database.Migrate(migrateCtx, &log, cfg); err != nil {
		cancel()
		log.Fatal().Err(err).Msg("failed to migrate database")
	}
	cancel()

	srv, err := server.New(cfg, &log, loggerService)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize server")
	}

	repos := repository.NewRepositories(srv)

	services, err := service.NewService(srv, repos)
	if err != nil {
		log.Fatal().Err(err).Msg("could not create services")
	}

	srv.Job.InitHandlers(cfg, &log, services.Reconcile)
	if err := srv.Job.Start(); err != nil {
		// Synchronous runs only need PostgreSQL.
		log.Error().Err(err).Msg("failed to start job service, async and scheduled runs are disabled")
	}

	handlers := handler.NewHandlers(srv, services)
	r := router.NewRouter(srv, handlers, services)

	srv.SetupHTTPServer(r)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), DefaultContextTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited properly")
}
