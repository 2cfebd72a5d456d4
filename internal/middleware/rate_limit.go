package middleware

import (
	"strconv"
	"time"

	"github.com/deppfellow/instrument-relay/internal/errs"
	"github.com/deppfellow/instrument-relay/internal/server"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

// Limits for the whole API, per client IP.
const (
	GlobalRate  rate.Limit = 20
	GlobalBurst            = 40
)

// Reconciliation rewrites every counter in the registry, so admin calls are
// throttled per caller.
const (
	AdminRateInterval = 5 * time.Second
	AdminRateBurst    = 3
	AdminRateExpiry   = 3 * time.Minute
)

type RateLimitMiddleware struct {
	server *server.Server
}

func NewRateLimitMiddleware(s *server.Server) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		server: s,
	}
}

// GlobalLimiter returns echo's in-memory rate limiter keyed by client IP.
func (r *RateLimitMiddleware) GlobalLimiter() echo.MiddlewareFunc {
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
			Rate:  GlobalRate,
			Burst: GlobalBurst,
		}),
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			r.RecordRateLimitHit(c.Path())
			return errs.NewTooManyRequestsError("Too many requests", time.Second.String())
		},
	})
}

// AdminLimiter returns echo's in-memory rate limiter keyed by user id, or
// by client IP when no user is authenticated yet.
func (r *RateLimitMiddleware) AdminLimiter() echo.MiddlewareFunc {
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
			Rate:      rate.Every(AdminRateInterval),
			Burst:     AdminRateBurst,
			ExpiresIn: AdminRateExpiry,
		}),
		IdentifierExtractor: func(c echo.Context) (string, error) {
			if userID := GetUserID(c); userID != "" {
				return "user:" + userID, nil
			}
			return "ip:" + c.RealIP(), nil
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			r.RecordRateLimitHit(c.Path())
			c.Response().Header().Set("Retry-After", strconv.Itoa(int(AdminRateInterval.Seconds())))
			GetLogger(c).Warn().
				Str("identifier", identifier).
				Msg("rate limit exceeded")
			return errs.NewTooManyRequestsError("Too many reconciliation requests", AdminRateInterval.String())
		},
	})
}

// RecordRateLimitHit records a RateLimitHit custom event in New Relic.
func (r *RateLimitMiddleware) RecordRateLimitHit(endpoint string) {
	if r.server.LoggerService != nil && r.server.LoggerService.GetApplication() != nil {
		r.server.LoggerService.GetApplication().RecordCustomEvent("RateLimitHit", map[string]interface{}{
			"endpoint": endpoint,
		})
	}
}
