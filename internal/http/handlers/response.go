// Package handlers provides HTTP handler implementations for the public API.
//
// This file defines the standard response envelope used across all
// endpoints. Every response has the same top-level shape, making the API
// predictable for machine clients:
//
// Success:
//
//	HTTP/1.1 200 OK
//	{ "data": { "event": { … }, "notify_enqueued": true } }
//
// Failure:
//
//	HTTP/1.1 404 Not Found
//	{
//	  "data": null,
//	  "error": { "code": "not_found", "message": "session not found" },
//	  "request_id": "123e4567-e89b-12d3-a456-426614174000"
//	}
//
// fail() centralizes error formatting and ensures 5xx responses are logged
// with request context.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/voxops/go-voicelog-backend/internal/http/middleware"
)

// ErrorBody is the `error` member of a failed response.
type ErrorBody struct {
	// Stable, machine-readable code (see errors.go constants)
	Code string `json:"code" example:"not_found"`
	// Human-readable message (safe to show to users)
	Message string `json:"message" example:"session not found"`
	// Optional structured details (field names, offending values)
	Details map[string]any `json:"details,omitempty"`
}

// ErrorResponse is the standard envelope returned by all failing endpoints.
type ErrorResponse struct {
	// Always null on failure
	Data any `json:"data"`
	// Machine-readable error description
	Error ErrorBody `json:"error"`
	// Correlates server logs and client errors
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
}

// SuccessResponse is the standard envelope returned by all succeeding
// endpoints.
type SuccessResponse struct {
	Data any `json:"data"`
}

// fail aborts the request with a structured error envelope.
//
// Server errors (>=500) are logged using the request-scoped logger from
// middleware.
func fail(c *gin.Context, status int, code, msg string) {
	failWith(c, status, code, msg, nil)
}

// failWith is fail with optional structured details.
func failWith(c *gin.Context, status int, code, msg string, details map[string]any) {
	resp := ErrorResponse{
		Error: ErrorBody{
			Code:    code,
			Message: msg,
			Details: details,
		},
		RequestID: middleware.RequestIDFrom(c),
	}

	if status >= http.StatusInternalServerError {
		lg := middleware.LoggerFrom(c)
		lg.Error().
			Int("status", status).
			Str("code", code).
			Str("message", msg).
			Msg("api error")
	}

	c.AbortWithStatusJSON(status, resp)
}

// Fail is the exported variant of fail(), for router-level fallbacks.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

// ok writes a success envelope with the given status.
func ok(c *gin.Context, status int, data any) {
	c.JSON(status, SuccessResponse{Data: data})
}
