// Package router initializes the HTTP router (using Echo).
//
// It registers the middlewares and defines the API route groups,
// mapping specific paths to their corresponding handlers
package router

import (
	"net/http"

	"github.com/deppfellow/instrument-relay/internal/handler"
	"github.com/deppfellow/instrument-relay/internal/middleware"
	"github.com/deppfellow/instrument-relay/internal/server"
	"github.com/deppfellow/instrument-relay/internal/service"
	"github.com/labstack/echo/v4"
)

// NewRouter builds the Echo instance with the global middleware chain,
// the system routes and the admin routes.
//
// Order matters: RequestID and the New Relic transaction must exist before
// the context enhancer builds the request logger, and the request logger
// must wrap everything that can return an error.
func NewRouter(s *server.Server, h *handler.Handlers, services *service.Services) *echo.Echo {
	mw := middleware.NewMiddlewares(s, services)

	router := echo.New()
	router.HideBanner = true
	router.HidePort = true
	router.HTTPErrorHandler = mw.Global.GlobalErrorHandler

	router.Use(
		mw.RateLimit.GlobalLimiter(),
		mw.Global.CORS(),
		mw.Global.Secure(),
		middleware.RequestID(),
		mw.Tracing.NewRelicMiddleware(),
		mw.Tracing.EnhanceTracing(),
		mw.ContextEnhancer.EnhanceContext(),
		mw.Metrics.Record(),
		mw.Global.RequestLogger(),
		mw.Global.Recover(),
	)

	registerSystemRoutes(router, s, h)
	registerAdminRoutes(router, mw, h)

	return router
}

// registerAdminRoutes registers the sequence endpoints. Every one of them
// needs an authenticated admin. Both reconcile paths share one limiter.
func registerAdminRoutes(r *echo.Echo, mw *middleware.Middlewares, h *handler.Handlers) {
	reset := handler.Handle(h.Reconcile.Handler, h.Reconcile.ResetAllSequences, http.StatusOK, &handler.ReconcileRequest{})
	limiter := mw.RateLimit.AdminLimiter()

	// Path kept for existing callers.
	legacy := r.Group("/admin", mw.Auth.RequireAuth, mw.Auth.RequireAdmin)
	legacy.POST("/reset-all-sequences", reset, limiter)

	admin := r.Group("/api/v1/admin/sequences", mw.Auth.RequireAuth, mw.Auth.RequireAdmin)
	admin.GET("", handler.Handle(h.Reconcile.Handler, h.Reconcile.ListSequences, http.StatusOK, &handler.EmptyRequest{}))
	admin.GET("/export", handler.HandleFile(h.Reconcile.Handler, h.Reconcile.ExportRegistry, http.StatusOK,
		&handler.EmptyRequest{}, "sequence-registry.yaml", "application/yaml"))
	admin.POST("/reconcile", reset, limiter)
}
