package content

import (
	"context"
	"log/slog"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"

	"github.com/sitedex/sitedex/internal/config"
	"github.com/sitedex/sitedex/internal/jobs"
	"github.com/sitedex/sitedex/pkg/auth"
)

// Module provides the content domain
var Module = fx.Module("content",
	fx.Provide(
		NewRepository,
		NewService,
		NewHandler,
	),
	fx.Invoke(
		RegisterRoutes,
		registerWorkers,
	),
)

// RegisterRoutes registers the content routes
func RegisterRoutes(e *echo.Echo, handler *Handler, authMiddleware *auth.Middleware) {
	api := e.Group("/api/content", authMiddleware.RequireAdmin())
	api.PUT("/:hash", handler.StorePayload)
	api.GET("/:hash", handler.GetRecord)
	api.GET("/stats", handler.Stats)
}

func registerWorkers(lc fx.Lifecycle, service *Service, cfg *config.Config, log *slog.Logger) {
	upload := jobs.NewWorker(jobs.WorkerConfig{
		Name:         "content-upload",
		PollInterval: cfg.Queue.PollInterval,
	}, log, service.ProcessUploadBatch)

	processing := jobs.NewWorker(jobs.WorkerConfig{
		Name:         "content-processing",
		PollInterval: cfg.Queue.PollInterval,
	}, log, service.ProcessIndexBatch)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := upload.Start(ctx); err != nil {
				return err
			}
			return processing.Start(ctx)
		},
		OnStop: func(ctx context.Context) error {
			if err := upload.Stop(ctx); err != nil {
				return err
			}
			return processing.Stop(ctx)
		},
	})
}
