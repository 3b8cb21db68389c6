// Package services – SessionService.
//
// Lifecycle of the entities the log records changes about: sessions,
// messages, and their transcript segments. Creation and closing append
// their own lifecycle events through the same funnel every mutation uses.
package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/voxops/go-voicelog-backend/internal/domain"
	"github.com/voxops/go-voicelog-backend/internal/repo"
)

// SessionService manages sessions and message ingestion.
type SessionService struct {
	DB     *gorm.DB
	Events *EventLogService
}

// CreateSessionInput carries the optional project binding and title of a
// new session plus the caller context for the lifecycle event.
type CreateSessionInput struct {
	ProjectID *string
	Title     string
	Actor     domain.Actor
	Source    domain.Source
}

// CreateSession creates a session and appends its session_created event.
func (s *SessionService) CreateSession(ctx context.Context, in CreateSessionInput) (*domain.Session, error) {
	tr := otel.Tracer("services/SessionService")
	ctx, span := tr.Start(ctx, "CreateSession")
	defer span.End()

	sess, err := repo.CreateSession(ctx, s.DB, in.ProjectID, strings.TrimSpace(in.Title))
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("session.id", sess.ID))

	target := BuildTarget(domain.EntitySession, sess.ID, "/sessions/"+sess.ID)
	if _, _, err := s.Events.Append(ctx, AppendInput{
		SessionID: sess.ID,
		EventName: domain.EventSessionCreated,
		Actor:     in.Actor,
		Source:    in.Source,
		Target:    &target,
		Action:    domain.NoAction(),
	}); err != nil {
		return nil, err
	}
	return sess, nil
}

// GetSession fetches a session by ID.
func (s *SessionService) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	sess, err := repo.GetSession(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return sess, nil
}

// CloseResult reports the closed session and whether the close notification
// was enqueued.
type CloseResult struct {
	Session  *domain.Session
	Enqueued bool
}

// CloseSession marks a session closed and appends the notify-worthy
// session_closed event. Closing an already closed session is a no-op that
// still appends the event; the log records every attempt.
func (s *SessionService) CloseSession(ctx context.Context, id string, actor domain.Actor, source domain.Source) (*CloseResult, error) {
	tr := otel.Tracer("services/SessionService")
	ctx, span := tr.Start(ctx, "CloseSession",
		trace.WithAttributes(attribute.String("session.id", id)),
	)
	defer span.End()

	sess, err := s.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.Status != domain.SessionClosed {
		sess.Status = domain.SessionClosed
		sess.UpdatedAt = time.Now().UTC()
		err := s.DB.WithContext(ctx).Model(&domain.Session{}).
			Where("id = ?", sess.ID).
			Updates(map[string]any{"status": sess.Status, "updated_at": sess.UpdatedAt}).Error
		if err != nil {
			return nil, err
		}
	}

	target := BuildTarget(domain.EntitySession, sess.ID, "/sessions/"+sess.ID)
	_, enqueued, err := s.Events.Append(ctx, AppendInput{
		SessionID: sess.ID,
		EventName: domain.EventSessionClosed,
		Actor:     actor,
		Source:    source,
		Target:    &target,
		Action:    domain.NoAction(),
	})
	if err != nil {
		return nil, err
	}
	return &CloseResult{Session: sess, Enqueued: enqueued}, nil
}

// IngestMessageInput is one captured voice message with its transcript
// split into ordered segments.
type IngestMessageInput struct {
	SessionID string
	Segments  []string
	Actor     domain.Actor
	Source    domain.Source
}

// IngestMessage creates a message and its transcript segments under a
// session. Empty segment texts are skipped; a message with no usable
// segments is still created (the transcript may arrive later).
func (s *SessionService) IngestMessage(ctx context.Context, in IngestMessageInput) (*domain.Message, []domain.TranscriptSegment, error) {
	tr := otel.Tracer("services/SessionService")
	ctx, span := tr.Start(ctx, "IngestMessage",
		trace.WithAttributes(attribute.String("session.id", in.SessionID)),
	)
	defer span.End()

	if _, err := s.GetSession(ctx, in.SessionID); err != nil {
		return nil, nil, err
	}

	msg, err := repo.CreateMessage(ctx, s.DB, in.SessionID)
	if err != nil {
		return nil, nil, err
	}

	segments := make([]domain.TranscriptSegment, 0, len(in.Segments))
	pos := 0
	for _, text := range in.Segments {
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		seg, err := repo.CreateSegment(ctx, s.DB, msg.ID, pos, text)
		if err != nil {
			return nil, nil, err
		}
		segments = append(segments, *seg)
		pos++
	}
	return msg, segments, nil
}

// ListMessages returns a session's messages with their segments attached.
func (s *SessionService) ListMessages(ctx context.Context, sessionID string) ([]MessageWithSegments, error) {
	if _, err := s.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	msgs, err := repo.ListMessages(ctx, s.DB, sessionID)
	if err != nil {
		return nil, err
	}
	out := make([]MessageWithSegments, 0, len(msgs))
	for i := range msgs {
		segs, err := repo.ListSegments(ctx, s.DB, msgs[i].ID)
		if err != nil {
			return nil, err
		}
		out = append(out, MessageWithSegments{Message: msgs[i], Segments: segs})
	}
	return out, nil
}

// MessageWithSegments is the read shape of a message and its transcript.
type MessageWithSegments struct {
	Message  domain.Message             `json:"message"`
	Segments []domain.TranscriptSegment `json:"segments"`
}
