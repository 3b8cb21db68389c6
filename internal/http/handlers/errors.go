// Package handlers defines HTTP-layer error codes used across all API
// endpoints.
//
// These symbolic constants form the stable, machine-readable taxonomy that
// clients branch on; the human-readable message alongside each code is
// informational only.
//
// Conventions:
//   - Codes are lowercase snake_case.
//   - Generic codes (bad_request, not_found) mirror common HTTP status
//     semantics.
//   - invalid_state marks requests that reference a real entity in a state
//     the operation does not apply to (e.g. rolling back an event type with
//     no rollback semantics).

package handlers

const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeValidation   = "validation_failed"
	ErrCodeNotFound     = "not_found"
	ErrCodeInvalidState = "invalid_state"
	ErrCodeRateLimited  = "too_many_requests"
	ErrCodeInternal     = "internal_error"

	ErrCodeMethodNotAllowed = "method_not_allowed"
)
