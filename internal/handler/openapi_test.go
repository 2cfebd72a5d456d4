package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/deppfellow/instrument-relay/internal/config"
	"github.com/deppfellow/instrument-relay/internal/middleware"
	"github.com/deppfellow/instrument-relay/internal/server"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func previewEcho(env string) *echo.Echo {
	l := zerolog.Nop()
	s := &server.Server{
		Config: &config.Config{
			Primary:       config.Primary{Env: env},
			Observability: &config.ObservabilityConfig{Environment: env},
		},
		Logger: &l,
	}
	h := NewOpenAPIHandler(s)

	e := echo.New()
	e.HTTPErrorHandler = middleware.NewGlobalMiddlewares(s).GlobalErrorHandler
	e.GET("/docs/emails/:template", h.PreviewEmail)
	return e
}

func TestPreviewEmail(t *testing.T) {
	tests := []struct {
		name     string
		env      string
		template string
		status   int
	}{
		{name: "renders report", env: "development", template: "reconciliation_report", status: http.StatusOK},
		{name: "unknown template", env: "development", template: "welcome", status: http.StatusNotFound},
		{name: "hidden in production", env: "production", template: "reconciliation_report", status: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			previewEcho(tt.env).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/docs/emails/"+tt.template, nil))

			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusOK {
				assert.Contains(t, rec.Body.String(), "thai_instrument_thaiinstrument_id_seq")
			}
		})
	}
}
