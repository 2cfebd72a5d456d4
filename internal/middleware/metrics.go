package middleware

import (
	"errors"

	"github.com/deppfellow/instrument-relay/internal/metrics"
	"github.com/labstack/echo/v4"
)

// unmatchedRoute is the route label shared by requests that matched no route.
const unmatchedRoute = "unmatched"

// MetricsMiddleware records Prometheus request metrics.
type MetricsMiddleware struct {
	collector *metrics.Collector
}

func NewMetricsMiddleware(collector *metrics.Collector) *MetricsMiddleware {
	return &MetricsMiddleware{collector: collector}
}

// Record counts every request by method, route template and final status.
func (m *MetricsMiddleware) Record() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if m.collector == nil {
				return next(c)
			}

			done := m.collector.RequestStarted(c.Request().Method)
			err := next(c)

			route := c.Path()
			if route == "" || errors.Is(err, echo.ErrNotFound) {
				route = unmatchedRoute
			}
			done(route, statusFromError(err, c.Response().Status))

			return err
		}
	}
}
