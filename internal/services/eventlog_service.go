// Package services – EventLogService.
//
// This file implements the append and listing paths of the session event
// log. Append is the single funnel every other service writes through: it
// verifies the owning session, delegates the durable insert to the store,
// and, for notify-worthy event types, enqueues the downstream job after
// the write has been acknowledged.
//
// The enqueue is deliberately decoupled from the write: a broken or absent
// queue never fails the mutation, it only flips the notify_enqueued flag
// and logs a warning. The log entry is the source of truth.
//
// Observability: public methods are OpenTelemetry-instrumented; spans carry
// session and event identifiers.
package services

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/voxops/go-voicelog-backend/internal/domain"
	"github.com/voxops/go-voicelog-backend/internal/notify"
	"github.com/voxops/go-voicelog-backend/internal/repo"
)

// EventLogService owns the append-only session event log.
type EventLogService struct {
	DB    *gorm.DB
	Queue *notify.Dispatcher
}

// AppendInput describes one event to append. SessionID and EventName are
// required; everything else is optional and defaulted by the store.
type AppendInput struct {
	SessionID     string
	MessageID     *string
	EventName     string
	Actor         domain.Actor
	Source        domain.Source
	Target        *domain.Target
	Action        domain.ActionRef
	Reason        *string
	CorrelationID *string
	SourceEventID *string
	IsReplay      bool
	Metadata      domain.EventMetadata
}

// Append verifies the session, persists one immutable event, and enqueues
// a notify job when the event type is notify-worthy.
//
// The returned bool reports whether a notify job was enqueued. An enqueue
// failure is logged and reported as false; it never fails the append.
func (s *EventLogService) Append(ctx context.Context, in AppendInput) (*domain.SessionLogEvent, bool, error) {
	tr := otel.Tracer("services/EventLogService")
	ctx, span := tr.Start(ctx, "Append",
		trace.WithAttributes(
			attribute.String("session.id", in.SessionID),
			attribute.String("event.name", in.EventName),
		),
	)
	defer span.End()

	if strings.TrimSpace(in.EventName) == "" {
		return nil, false, ErrValidation
	}

	session, err := repo.GetSession(ctx, s.DB, in.SessionID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, false, ErrSessionNotFound
		}
		return nil, false, err
	}

	doc := &domain.SessionLogEvent{
		SessionID:     session.ID,
		MessageID:     in.MessageID,
		ProjectID:     session.ProjectID,
		EventName:     in.EventName,
		Actor:         in.Actor,
		Source:        in.Source,
		Target:        in.Target,
		Action:        in.Action,
		Reason:        in.Reason,
		CorrelationID: in.CorrelationID,
		SourceEventID: in.SourceEventID,
		IsReplay:      in.IsReplay,
		Metadata:      in.Metadata,
	}

	ev, err := repo.InsertEvent(ctx, s.DB, doc)
	if err != nil {
		if errors.Is(err, repo.ErrInvalidEvent) {
			return nil, false, ErrValidation
		}
		return nil, false, err
	}

	enqueued := false
	if domain.IsNotifyWorthy(ev.EventName) {
		enqueued = s.enqueueNotify(ctx, ev)
	}
	return ev, enqueued, nil
}

// enqueueNotify publishes the notify job for an already-persisted event.
// Failures are warnings only; the caller surfaces them as
// notify_enqueued=false.
func (s *EventLogService) enqueueNotify(ctx context.Context, ev *domain.SessionLogEvent) bool {
	job := notify.Job{
		Event:     ev.Metadata.NotifyEvent,
		SessionID: ev.SessionID,
		EventID:   ev.ID,
		Payload:   ev.Metadata.NotifyPayload,
	}
	if job.Event == "" {
		job.Event = ev.EventName
	}
	if ev.ProjectID != nil {
		job.ProjectID = *ev.ProjectID
	}
	if err := s.Queue.Enqueue(ctx, job); err != nil {
		log.Warn().
			Err(err).
			Str("session_id", ev.SessionID).
			Str("event_id", ev.ID).
			Str("notify_event", job.Event).
			Msg("failed to enqueue notify job")
		return false
	}
	return true
}

// List returns the newest events of a session first, verifying the session
// exists.
func (s *EventLogService) List(ctx context.Context, sessionID string, limit int) ([]domain.SessionLogEvent, error) {
	tr := otel.Tracer("services/EventLogService")
	ctx, span := tr.Start(ctx, "List",
		trace.WithAttributes(
			attribute.String("session.id", sessionID),
			attribute.Int("limit", limit),
		),
	)
	defer span.End()

	if _, err := repo.GetSession(ctx, s.DB, sessionID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return repo.ListSessionEvents(ctx, s.DB, sessionID, limit)
}
