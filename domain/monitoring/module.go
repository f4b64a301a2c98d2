package monitoring

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
)

// Module provides the monitoring metrics and the /metrics endpoint
var Module = fx.Module("monitoring",
	fx.Provide(NewMetrics),
	fx.Invoke(RegisterRoutes),
)

// RegisterRoutes exposes the prometheus scrape endpoint
func RegisterRoutes(e *echo.Echo) {
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}
