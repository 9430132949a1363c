// Package http implements the HTTP handlers for the insight web service.
// Handlers are a thin layer between chi and the service layer: they parse
// and validate requests, delegate to services, and render responses. All
// error responses follow RFC 7807 Problem Details via the shared
// ErrorHandler; business logic never lives here.
package http
