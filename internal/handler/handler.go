// Package handler is the first layer after the router.
//
// It binds requests, validates them with the validation package, calls
// the service layer and shapes the result into the API response.
package handler
