// Package services defines the business logic for the session event log:
// appending events, mutating transcript segments, rollback/replay, and
// notify re-dispatch. This file centralizes common service-level error
// values so that they can be consistently returned by service methods and
// checked by callers.
//
// The values form the explicit result taxonomy of the API: every handler
// must branch on each sentinel rather than inspecting error strings.
// Translation into HTTP statuses happens at the handler layer.
package services

import "errors"

var (
	// ErrValidation is returned when a request carries malformed or missing
	// required identifiers or content.
	ErrValidation = errors.New("validation failed")

	// ErrSessionNotFound indicates that the referenced session does not
	// exist.
	ErrSessionNotFound = errors.New("session not found")

	// ErrEventNotFound indicates that the referenced event does not exist
	// or belongs to a different session.
	ErrEventNotFound = errors.New("event not found")

	// ErrMessageNotFound indicates that the referenced message does not
	// exist or belongs to a different session.
	ErrMessageNotFound = errors.New("message not found")

	// ErrSegmentNotFound indicates that the referenced transcript segment
	// does not exist or belongs to a different message.
	ErrSegmentNotFound = errors.New("segment not found")

	// ErrNotRollbackable is returned when rollback is requested for an
	// event type with no defined rollback semantics (only edit/delete-class
	// transcript events qualify).
	ErrNotRollbackable = errors.New("event type is not rollback-able")

	// ErrNoNotifyMetadata is returned when a resend is requested for an
	// event that carries no notify job description.
	ErrNoNotifyMetadata = errors.New("event does not contain notify metadata")
)
