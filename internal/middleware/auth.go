package middleware

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/clerk/clerk-sdk-go/v2"
	clerkhttp "github.com/clerk/clerk-sdk-go/v2/http"
	"github.com/deppfellow/instrument-relay/internal/config"
	"github.com/deppfellow/instrument-relay/internal/errs"
	"github.com/deppfellow/instrument-relay/internal/server"
	"github.com/deppfellow/instrument-relay/internal/service"
	"github.com/labstack/echo/v4"
)

// AuthMiddleware holds the app Server so middleware can access shared deps
// like Logger and Config, and the AuthService that verifies callers.
type AuthMiddleware struct {
	server *server.Server
	auth   *service.AuthService
}

// NewAuthMiddleware constructs an AuthMiddleware.
func NewAuthMiddleware(s *server.Server, auth *service.AuthService) *AuthMiddleware {
	return &AuthMiddleware{
		server: s,
		auth:   auth,
	}
}

// RequireAuth authenticates the caller with the configured provider and
// stores user_id and user_role in the Echo context.
func (auth *AuthMiddleware) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	if auth.auth.Provider() == config.AuthProviderJWT {
		return auth.requireJWT(next)
	}
	return auth.requireClerk(next)
}

// RequireAdmin rejects callers whose role is not the configured admin role.
// It must run after RequireAuth.
func (auth *AuthMiddleware) RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		role, _ := c.Get(UserRoleKey).(string)
		if !auth.auth.IsAdmin(role) {
			GetLogger(c).Warn().
				Str("function", "RequireAdmin").
				Str("user_role", role).
				Msg("caller is not an admin")
			return errs.NewForbiddenError("Admin role required", false)
		}
		return next(c)
	}
}

// requireClerk wraps Clerk's net/http middleware. Clerk reads the bearer
// token, verifies it and puts the session claims into the request context.
func (auth *AuthMiddleware) requireClerk(next echo.HandlerFunc) echo.HandlerFunc {
	return echo.WrapMiddleware(
		clerkhttp.WithHeaderAuthorization(
			clerkhttp.AuthorizationFailureHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				start := time.Now()

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)

				if err := json.NewEncoder(w).Encode(errs.NewUnauthorizedError("Unauthorized", false)); err != nil {
					auth.server.Logger.Error().
						Err(err).
						Str("function", "RequireAuth").
						Dur("duration", time.Since(start)).
						Msg("failed to write JSON response")
				} else {
					auth.server.Logger.Warn().
						Str("function", "RequireAuth").
						Str("request_id", r.Header.Get(RequestIDHeader)).
						Dur("duration", time.Since(start)).
						Msg("clerk rejected the session token")
				}
			}))))(
		func(c echo.Context) error {
			start := time.Now()

			claims, ok := clerk.SessionClaimsFromContext(c.Request().Context())
			if !ok {
				auth.server.Logger.Error().
					Str("function", "RequireAuth").
					Str("request_id", GetRequestID(c)).
					Dur("duration", time.Since(start)).
					Msg("could not get session claims from context")

				return errs.NewUnauthorizedError("Unauthorized", false)
			}

			c.Set(UserIDKey, claims.Subject)
			c.Set(UserRoleKey, claims.ActiveOrganizationRole)
			c.Set("permissions", claims.Claims.ActiveOrganizationPermissions)

			auth.server.Logger.Info().
				Str("function", "RequireAuth").
				Str("user_id", claims.Subject).
				Str("request_id", GetRequestID(c)).
				Dur("duration", time.Since(start)).
				Msg("user authenticated successfully")

			return next(c)
		})
}

// requireJWT verifies an HS256 bearer token signed with auth.secret_key.
func (auth *AuthMiddleware) requireJWT(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()

		raw, ok := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
		if !ok {
			return errs.NewUnauthorizedError("Missing bearer token", false)
		}

		principal, err := auth.auth.VerifyToken(raw)
		if err != nil {
			auth.server.Logger.Warn().
				Err(err).
				Str("function", "RequireAuth").
				Str("request_id", GetRequestID(c)).
				Dur("duration", time.Since(start)).
				Msg("token verification failed")
			return errs.NewUnauthorizedError("Unauthorized", false)
		}

		c.Set(UserIDKey, principal.Subject)
		c.Set(UserRoleKey, principal.Role)

		auth.server.Logger.Info().
			Str("function", "RequireAuth").
			Str("user_id", principal.Subject).
			Str("request_id", GetRequestID(c)).
			Dur("duration", time.Since(start)).
			Msg("user authenticated successfully")

		return next(c)
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
