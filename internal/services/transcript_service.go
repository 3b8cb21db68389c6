// Package services – TranscriptService.
//
// Transcript segment mutations: edit replaces the text, delete soft-flags
// the segment. Both capture the pre-mutation content in the appended
// event's metadata so the rollback engine can restore it later, and both
// mark the event with an available rollback action.
package services

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/voxops/go-voicelog-backend/internal/domain"
	"github.com/voxops/go-voicelog-backend/internal/repo"
)

// TranscriptService coordinates segment mutations with their log events.
type TranscriptService struct {
	DB     *gorm.DB
	Events *EventLogService
}

// SegmentMutation identifies one segment and the caller context for a
// mutation. Text is only used by EditSegment.
type SegmentMutation struct {
	SessionID string
	MessageID string
	SegmentID string
	Text      string
	Reason    *string
	Actor     domain.Actor
	Source    domain.Source
}

// EditSegment replaces a segment's text and appends a
// transcript_segment_edited event carrying the previous and next content.
func (s *TranscriptService) EditSegment(ctx context.Context, in SegmentMutation) (*domain.SessionLogEvent, error) {
	tr := otel.Tracer("services/TranscriptService")
	ctx, span := tr.Start(ctx, "EditSegment",
		trace.WithAttributes(
			attribute.String("session.id", in.SessionID),
			attribute.String("segment.id", in.SegmentID),
		),
	)
	defer span.End()

	nextText := strings.TrimSpace(in.Text)
	if nextText == "" {
		return nil, ErrValidation
	}

	seg, err := s.resolveSegment(ctx, in)
	if err != nil {
		return nil, err
	}
	previousText := seg.Text

	if err := repo.UpdateSegmentText(ctx, s.DB, seg.ID, seg.MessageID, nextText); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrSegmentNotFound
		}
		return nil, err
	}

	ev, _, err := s.Events.Append(ctx, AppendInput{
		SessionID: in.SessionID,
		MessageID: &in.MessageID,
		EventName: domain.EventTranscriptSegmentEdited,
		Actor:     in.Actor,
		Source:    in.Source,
		Target:    s.segmentTarget(in),
		Action:    domain.RollbackAction(),
		Reason:    in.Reason,
		Metadata: domain.EventMetadata{
			PreviousText: &previousText,
			NextText:     &nextText,
		},
	})
	return ev, err
}

// DeleteSegment soft-deletes a segment and appends a
// transcript_segment_deleted event carrying the deleted content.
func (s *TranscriptService) DeleteSegment(ctx context.Context, in SegmentMutation) (*domain.SessionLogEvent, error) {
	tr := otel.Tracer("services/TranscriptService")
	ctx, span := tr.Start(ctx, "DeleteSegment",
		trace.WithAttributes(
			attribute.String("session.id", in.SessionID),
			attribute.String("segment.id", in.SegmentID),
		),
	)
	defer span.End()

	seg, err := s.resolveSegment(ctx, in)
	if err != nil {
		return nil, err
	}
	previousText := seg.Text

	if err := repo.MarkSegmentDeleted(ctx, s.DB, seg.ID, seg.MessageID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrSegmentNotFound
		}
		return nil, err
	}

	ev, _, err := s.Events.Append(ctx, AppendInput{
		SessionID: in.SessionID,
		MessageID: &in.MessageID,
		EventName: domain.EventTranscriptSegmentDeleted,
		Actor:     in.Actor,
		Source:    in.Source,
		Target:    s.segmentTarget(in),
		Action:    domain.RollbackAction(),
		Reason:    in.Reason,
		Metadata: domain.EventMetadata{
			PreviousText: &previousText,
		},
	})
	return ev, err
}

// resolveSegment walks session → message → segment, translating each miss
// into its specific not-found sentinel so callers can report precisely
// which referenced entity was invalid.
func (s *TranscriptService) resolveSegment(ctx context.Context, in SegmentMutation) (*domain.TranscriptSegment, error) {
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
	seg, err := repo.GetSegment(ctx, s.DB, in.SegmentID, in.MessageID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrSegmentNotFound
		}
		return nil, err
	}
	return seg, nil
}

func (s *TranscriptService) segmentTarget(in SegmentMutation) *domain.Target {
	t := BuildTarget(
		domain.EntityTranscriptSegment,
		in.SegmentID,
		domain.SegmentPath(in.MessageID, in.SegmentID),
	)
	t.Stage = "transcript"
	return &t
}
