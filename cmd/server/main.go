// Package main provides the entry point for the sitedex API server, the
// unified index over tasks, mail, documents and drive files.
package main

import (
	"log/slog"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/sitedex/sitedex/domain/content"
	"github.com/sitedex/sitedex/domain/health"
	"github.com/sitedex/sitedex/domain/hierarchy"
	"github.com/sitedex/sitedex/domain/ingest"
	"github.com/sitedex/sitedex/domain/involvement"
	"github.com/sitedex/sitedex/domain/items"
	"github.com/sitedex/sitedex/domain/monitoring"
	"github.com/sitedex/sitedex/domain/operations"
	"github.com/sitedex/sitedex/domain/people"
	"github.com/sitedex/sitedex/domain/query"
	"github.com/sitedex/sitedex/domain/scheduler"
	"github.com/sitedex/sitedex/domain/unified"
	"github.com/sitedex/sitedex/internal/config"
	"github.com/sitedex/sitedex/internal/database"
	"github.com/sitedex/sitedex/internal/server"
	"github.com/sitedex/sitedex/internal/storage"
	"github.com/sitedex/sitedex/pkg/auth"
	"github.com/sitedex/sitedex/pkg/logger"
)

func main() {
	// Load .env files if present (for local development)
	// Order matters: .env.local overrides .env
	_ = godotenv.Load("../../.env")
	_ = godotenv.Overload("../../.env.local")

	fx.New(
		// Logging
		fx.WithLogger(func(log *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: log}
		}),

		// Infrastructure modules
		logger.Module,
		config.Module,
		database.Module,
		server.Module,
		storage.Module,

		// Auth module
		auth.Module,

		// Domain modules
		health.Module,
		monitoring.Module,
		items.Module,
		hierarchy.Module,
		people.Module,
		involvement.Module,
		operations.Module,
		unified.Module,
		query.Module,
		content.Module,

		// Ingestion queue and its worker
		ingest.Module,

		// Scheduler module (cron-based maintenance)
		scheduler.Module,
	).Run()
}
