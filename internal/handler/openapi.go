package handler

import (
	"fmt"
	"net/http"
	"os"

	"github.com/deppfellow/instrument-relay/internal/errs"
	"github.com/deppfellow/instrument-relay/internal/lib/email"
	"github.com/deppfellow/instrument-relay/internal/server"
	"github.com/labstack/echo/v4"
)

// OpenAPIUIPath is the docs page served at /docs. It loads openapi.json
// from /static.
const OpenAPIUIPath = "static/openapi.html"

// OpenAPIHandler serves the API documentation UI.
type OpenAPIHandler struct {
	Handler
}

func NewOpenAPIHandler(s *server.Server) *OpenAPIHandler {
	return &OpenAPIHandler{
		Handler: NewHandler(s),
	}
}

// ServeOpenAPIUI reads the docs page on every request, with caching
// disabled, so edits show up without a restart.
func (h *OpenAPIHandler) ServeOpenAPIUI(c echo.Context) error {
	templateBytes, err := os.ReadFile(OpenAPIUIPath)

	c.Response().Header().Set("Cache-Control", "no-cache")

	if err != nil {
		return fmt.Errorf("failed to read OpenAPI UI template: %w", err)
	}

	if err := c.HTML(http.StatusOK, string(templateBytes)); err != nil {
		return fmt.Errorf("failed to write HTML response: %w", err)
	}

	return nil
}

// PreviewEmail renders an email template with its sample data, so template
// changes can be checked in a browser. It is disabled in production.
func (h *OpenAPIHandler) PreviewEmail(c echo.Context) error {
	if h.server.Config.Observability != nil && h.server.Config.Observability.IsProduction() {
		return errs.NewNotFoundError("Route not found", false, nil)
	}

	tmpl := email.Template(c.Param("template"))
	data, ok := email.PreviewData[tmpl]
	if !ok {
		return errs.NewNotFoundError("Unknown email template", true, nil)
	}

	html, err := email.Render(tmpl, data)
	if err != nil {
		return fmt.Errorf("failed to render email preview: %w", err)
	}

	c.Response().Header().Set("Cache-Control", "no-cache")
	return c.HTML(http.StatusOK, html)
}
