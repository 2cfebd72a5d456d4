// Package middleware stores global and route-specific middleware.
//
// These intercept requests to handle cross-cutting concerns such as
// authentication (Clerk or HS256 JWT), the admin role check, request
// logging, Prometheus metrics, CORS, rate limiting and panic recovery.
package middleware
