// Package services – RollbackService.
//
// The rollback/replay engine. Given a source event it produces and persists
// a NEW event that restores the state the source event replaced; history
// is never mutated. The same engine also powers the manual replay routes:
// notify resend and categorization retry, which share the
// source-event-plus-optional-reason request pattern.
//
// There is intentionally no idempotence guard: rolling back the same source
// twice yields two restoration events. The log records both attempts;
// deduplication is a caller concern.
package services

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/voxops/go-voicelog-backend/internal/domain"
	"github.com/voxops/go-voicelog-backend/internal/notify"
	"github.com/voxops/go-voicelog-backend/internal/repo"
)

// RollbackService implements rollback and the manual replay operations.
type RollbackService struct {
	DB     *gorm.DB
	Events *EventLogService
	Queue  *notify.Dispatcher
}

// ReplayInput is the shared request shape of rollback/resend/retry: a
// source event within a session, an optional free-text reason, and the
// caller context.
type ReplayInput struct {
	SessionID     string
	SourceEventID string
	Reason        *string
	Actor         domain.Actor
	Source        domain.Source
}

// ReplayResult carries the replay event and, where a notify or
// categorization job was published, whether the enqueue succeeded.
type ReplayResult struct {
	Event    *domain.SessionLogEvent
	Enqueued bool
}

// Rollback restores the state described by the source event and appends a
// transcript_segment_restored event linked to it.
//
// Failure modes:
//   - ErrSessionNotFound / ErrEventNotFound when the references are stale
//     or cross-session.
//   - ErrNotRollbackable when the source event type has no rollback
//     semantics.
//   - ErrValidation when the source event lacks the segment reference or
//     content snapshot needed to reconstruct prior state.
func (s *RollbackService) Rollback(ctx context.Context, in ReplayInput) (*domain.SessionLogEvent, error) {
	tr := otel.Tracer("services/RollbackService")
	ctx, span := tr.Start(ctx, "Rollback",
		trace.WithAttributes(
			attribute.String("session.id", in.SessionID),
			attribute.String("source_event.id", in.SourceEventID),
		),
	)
	defer span.End()

	source, err := s.resolveSourceEvent(ctx, in)
	if err != nil {
		return nil, err
	}
	if !domain.IsRollbackable(source.EventName) {
		return nil, ErrNotRollbackable
	}
	if source.MessageID == nil || source.Target == nil || source.Target.EntityID == "" {
		return nil, ErrValidation
	}

	segmentID := source.Target.EntityID
	if _, err := repo.GetSegment(ctx, s.DB, segmentID, *source.MessageID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrSegmentNotFound
		}
		return nil, err
	}

	// Reconstruct prior state from the snapshot the source event captured.
	var restoreText *string
	var restoredMeta domain.EventMetadata
	switch source.EventName {
	case domain.EventTranscriptSegmentEdited:
		if source.Metadata.PreviousText == nil {
			return nil, ErrValidation
		}
		restoreText = source.Metadata.PreviousText
		restoredMeta = domain.EventMetadata{
			PreviousText: source.Metadata.NextText,
			NextText:     source.Metadata.PreviousText,
		}
	case domain.EventTranscriptSegmentDeleted:
		// Undelete; the text itself was left in place.
		restoredMeta = domain.EventMetadata{
			NextText: source.Metadata.PreviousText,
		}
	}

	if err := repo.RestoreSegment(ctx, s.DB, segmentID, *source.MessageID, restoreText); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrSegmentNotFound
		}
		return nil, err
	}

	target := *source.Target
	ev, _, err := s.Events.Append(ctx, AppendInput{
		SessionID:     in.SessionID,
		MessageID:     source.MessageID,
		EventName:     domain.EventTranscriptSegmentRestored,
		Actor:         in.Actor,
		Source:        in.Source,
		Target:        &target,
		Action:        domain.NoAction(),
		Reason:        in.Reason,
		SourceEventID: &source.ID,
		IsReplay:      true,
		Metadata:      restoredMeta,
	})
	return ev, err
}

// ResendNotify re-enqueues the notification described by a previously
// logged notify-worthy event, recording the attempt as a notify_resent
// replay event. The enqueue outcome is reported, not raised: a dead queue
// still yields a successful log write with Enqueued=false.
func (s *RollbackService) ResendNotify(ctx context.Context, in ReplayInput) (*ReplayResult, error) {
	tr := otel.Tracer("services/RollbackService")
	ctx, span := tr.Start(ctx, "ResendNotify",
		trace.WithAttributes(
			attribute.String("session.id", in.SessionID),
			attribute.String("source_event.id", in.SourceEventID),
		),
	)
	defer span.End()

	source, err := s.resolveSourceEvent(ctx, in)
	if err != nil {
		return nil, err
	}
	if source.Metadata.NotifyEvent == "" {
		return nil, ErrNoNotifyMetadata
	}

	ev, enqueued, err := s.Events.Append(ctx, AppendInput{
		SessionID:     in.SessionID,
		MessageID:     source.MessageID,
		EventName:     domain.EventNotifyResent,
		Actor:         in.Actor,
		Source:        in.Source,
		Target:        source.Target,
		Action:        domain.NoAction(),
		Reason:        in.Reason,
		SourceEventID: &source.ID,
		IsReplay:      true,
		Metadata: domain.EventMetadata{
			NotifyEvent:   source.Metadata.NotifyEvent,
			NotifyPayload: source.Metadata.NotifyPayload,
		},
	})
	if err != nil {
		return nil, err
	}
	return &ReplayResult{Event: ev, Enqueued: enqueued}, nil
}

// RetryCategorization re-runs categorization for the message referenced by
// the source event (or the whole session when the source has no message),
// logging a categorization_retried replay event and enqueuing the job.
func (s *RollbackService) RetryCategorization(ctx context.Context, in ReplayInput) (*ReplayResult, error) {
	tr := otel.Tracer("services/RollbackService")
	ctx, span := tr.Start(ctx, "RetryCategorization",
		trace.WithAttributes(
			attribute.String("session.id", in.SessionID),
			attribute.String("source_event.id", in.SourceEventID),
		),
	)
	defer span.End()

	source, err := s.resolveSourceEvent(ctx, in)
	if err != nil {
		return nil, err
	}

	ev, _, err := s.Events.Append(ctx, AppendInput{
		SessionID:     in.SessionID,
		MessageID:     source.MessageID,
		EventName:     domain.EventCategorizationRetried,
		Actor:         in.Actor,
		Source:        in.Source,
		Target:        source.Target,
		Action:        domain.NoAction(),
		Reason:        in.Reason,
		SourceEventID: &source.ID,
		IsReplay:      true,
	})
	if err != nil {
		return nil, err
	}

	enqueued := s.enqueueCategorization(ctx, ev, "event")
	return &ReplayResult{Event: ev, Enqueued: enqueued}, nil
}

// SegmentRetryInput identifies a single segment whose categorization should
// be re-run.
type SegmentRetryInput struct {
	SessionID string
	MessageID string
	SegmentID string
	Reason    *string
	Actor     domain.Actor
	Source    domain.Source
}

// RetryCategorizationSegment re-runs categorization for one segment,
// logging a categorization_chunk_retry_enqueued event and enqueuing the
// job.
func (s *RollbackService) RetryCategorizationSegment(ctx context.Context, in SegmentRetryInput) (*ReplayResult, error) {
	tr := otel.Tracer("services/RollbackService")
	ctx, span := tr.Start(ctx, "RetryCategorizationSegment",
		trace.WithAttributes(
			attribute.String("session.id", in.SessionID),
			attribute.String("segment.id", in.SegmentID),
		),
	)
	defer span.End()

	if _, err := repo.GetSession(ctx, s.DB, in.SessionID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	if _, err := repo.GetMessage(ctx, s.DB, in.MessageID, in.SessionID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrMessageNotFound
		}
		return nil, err
	}
	if _, err := repo.GetSegment(ctx, s.DB, in.SegmentID, in.MessageID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrSegmentNotFound
		}
		return nil, err
	}

	target := BuildTarget(
		domain.EntityCategorization,
		in.SegmentID,
		domain.SegmentPath(in.MessageID, in.SegmentID),
	)
	target.Stage = "categorization"

	ev, _, err := s.Events.Append(ctx, AppendInput{
		SessionID: in.SessionID,
		MessageID: &in.MessageID,
		EventName: domain.EventCategorizationChunkRetryEnqueued,
		Actor:     in.Actor,
		Source:    in.Source,
		Target:    &target,
		Action:    domain.NoAction(),
		Reason:    in.Reason,
	})
	if err != nil {
		return nil, err
	}

	enqueued := s.enqueueCategorization(ctx, ev, "chunk")
	return &ReplayResult{Event: ev, Enqueued: enqueued}, nil
}

// resolveSourceEvent loads the source event scoped to the caller's session,
// translating misses into the sentinel taxonomy.
func (s *RollbackService) resolveSourceEvent(ctx context.Context, in ReplayInput) (*domain.SessionLogEvent, error) {
	if _, err := repo.GetSession(ctx, s.DB, in.SessionID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	source, err := repo.GetEvent(ctx, s.DB, in.SourceEventID, in.SessionID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	return source, nil
}

// enqueueCategorization publishes the categorization job for a persisted
// replay event; failures degrade to a warning.
func (s *RollbackService) enqueueCategorization(ctx context.Context, ev *domain.SessionLogEvent, kind string) bool {
	job := notify.Job{
		Event:     "categorization_" + kind,
		SessionID: ev.SessionID,
		EventID:   ev.ID,
	}
	if ev.ProjectID != nil {
		job.ProjectID = *ev.ProjectID
	}
	if err := s.Queue.EnqueueCategorization(ctx, job); err != nil {
		log.Warn().
			Err(err).
			Str("session_id", ev.SessionID).
			Str("event_id", ev.ID).
			Msg("failed to enqueue categorization job")
		return false
	}
	return true
}
