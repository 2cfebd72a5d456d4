package handler

import (
	"github.com/deppfellow/instrument-relay/internal/server"
	"github.com/deppfellow/instrument-relay/internal/service"
)

// Handlers groups all HTTP handlers so router setup takes a single value.
type Handlers struct {
	Health    *HealthHandler    // /status
	OpenAPI   *OpenAPIHandler   // /docs
	Reconcile *ReconcileHandler // admin sequence endpoints
}

// NewHandlers constructs the handler container.
func NewHandlers(s *server.Server, services *service.Services) *Handlers {
	return &Handlers{
		Health:    NewHealthHandler(s),
		OpenAPI:   NewOpenAPIHandler(s),
		Reconcile: NewReconcileHandler(s, services.Reconcile),
	}
}
