// Package errs defines the error shapes the API returns.
//
// Every failure that reaches a client is an *HTTPError serialized as JSON,
// so callers always see the same fields: code, message, status, optional
// field errors, an optional action hint and, for orchestration failures,
// a diagnostic detail.
package errs
