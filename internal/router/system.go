package router

import (
	"github.com/deppfellow/instrument-relay/internal/handler"
	"github.com/deppfellow/instrument-relay/internal/server"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// registerSystemRoutes registers the endpoints that are not business logic:
// health, Prometheus metrics, the docs UI and the static files it loads.
func registerSystemRoutes(r *echo.Echo, s *server.Server, h *handler.Handlers) {
	r.GET("/status", h.Health.CheckHealth)

	r.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.Registry, promhttp.HandlerOpts{
		Registry:          s.Registry,
		EnableOpenMetrics: true,
	})))

	r.Static("/static", "static")

	r.GET("/docs", h.OpenAPI.ServeOpenAPIUI)
	r.GET("/docs/emails/:template", h.OpenAPI.PreviewEmail)
}
