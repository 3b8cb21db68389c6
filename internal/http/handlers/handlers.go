// Package handlers provides HTTP handler implementations for the public API.
//
// Handlers are transport-thin: they validate and normalize inputs, bind the
// performer identity into the canonical actor shape, delegate to application
// services, and translate the service sentinel errors into the error
// envelope. No business logic lives here.
package handlers

import (
	"github.com/voxops/go-voicelog-backend/internal/services"
)

// Handlers bundles the injected services behind the route methods.
type Handlers struct {
	sessions   *services.SessionService
	events     *services.EventLogService
	transcript *services.TranscriptService
	rollback   *services.RollbackService
}

// New constructs the handler set from its service dependencies.
func New(
	sessions *services.SessionService,
	events *services.EventLogService,
	transcript *services.TranscriptService,
	rollback *services.RollbackService,
) *Handlers {
	return &Handlers{
		sessions:   sessions,
		events:     events,
		transcript: transcript,
		rollback:   rollback,
	}
}
