// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file is the event log store.
//
// The store is append-only by construction: InsertEvent is the only write
// path and there is deliberately no update or delete function for
// SessionLogEvent rows. Any correction is a new event linked to its source
// via SourceEventID.
//
// Error semantics:
//   - ErrInvalidEvent for malformed/missing required identifiers on write.
//   - gorm.ErrRecordNotFound (aliased as ErrNotFound) for scoped reads that
//     match nothing.
//   - Raw gorm errors for everything else.
package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/voxops/go-voicelog-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// ErrInvalidEvent is returned by InsertEvent when the event document is
// missing required identifiers or carries metadata that does not match its
// event type.
var ErrInvalidEvent = errors.New("invalid session log event")

// maxEventPageSize caps how many events a single listing returns.
const maxEventPageSize = 500

// InsertEvent appends one event row. The store assigns the identifier, the
// per-session sequence number, CreatedAt (UTC, when unset), the derived
// event group, and defaults for Status and EventVersion. The sequence
// assignment and the insert run in one transaction so two concurrent
// appends to the same session can never claim the same Seq.
//
// The input doc is not mutated; the persisted event is returned.
func InsertEvent(ctx context.Context, db *gorm.DB, doc *domain.SessionLogEvent) (*domain.SessionLogEvent, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: nil document", ErrInvalidEvent)
	}
	if _, err := uuid.Parse(doc.SessionID); err != nil {
		return nil, fmt.Errorf("%w: session_id is required and must be a UUID", ErrInvalidEvent)
	}
	if doc.EventName == "" {
		return nil, fmt.Errorf("%w: event_name is required", ErrInvalidEvent)
	}
	if err := doc.Metadata.ValidateFor(doc.EventName); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}

	ev := *doc
	ev.ID = uuid.NewString()
	ev.EventGroup = domain.EventGroupFor(ev.EventName)
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	if ev.Status == "" {
		ev.Status = "done"
	}
	if ev.EventVersion == 0 {
		ev.EventVersion = 1
	}
	if ev.Actor.Type == "" {
		ev.Actor.Type = domain.ActorUnknown
	}
	if ev.Action.Type == "" {
		ev.Action = domain.NoAction()
	}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var maxSeq int64
		if err := tx.Raw(
			"SELECT COALESCE(MAX(seq), 0) FROM session_log_events WHERE session_id = ?",
			ev.SessionID,
		).Scan(&maxSeq).Error; err != nil {
			return err
		}
		ev.Seq = maxSeq + 1
		return tx.Create(&ev).Error
	})
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

// GetEvent fetches a single event scoped to its session. Events from other
// sessions are invisible: a wrong session yields ErrNotFound, not a leak.
func GetEvent(ctx context.Context, db *gorm.DB, id, sessionID string) (*domain.SessionLogEvent, error) {
	var ev domain.SessionLogEvent
	err := db.WithContext(ctx).
		Where("id = ? AND session_id = ?", id, sessionID).
		First(&ev).Error
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

// ListSessionEvents returns the newest events of a session first, ordered by
// (created_at DESC, seq DESC). Limit is clamped to maxEventPageSize; values
// <= 0 select the cap.
func ListSessionEvents(ctx context.Context, db *gorm.DB, sessionID string, limit int) ([]domain.SessionLogEvent, error) {
	if limit <= 0 || limit > maxEventPageSize {
		limit = maxEventPageSize
	}
	var out []domain.SessionLogEvent
	err := db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at DESC, seq DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

// CountEvents uses a raw COUNT so a missing table surfaces as an error.
func CountEvents(ctx context.Context, db *gorm.DB, sessionID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Raw("SELECT COUNT(*) FROM session_log_events WHERE session_id = ?", sessionID).
		Scan(&total).Error
	return total, err
}

// EventStats returns the event count and the newest CreatedAt for a session.
// Used by handlers to build weak ETags for the session_log listing.
func EventStats(ctx context.Context, db *gorm.DB, sessionID string) (int64, *time.Time, error) {
	total, err := CountEvents(ctx, db, sessionID)
	if err != nil {
		return 0, nil, err
	}
	if total == 0 {
		return 0, nil, nil
	}
	var maxTS time.Time
	err = db.WithContext(ctx).
		Raw("SELECT MAX(created_at) FROM session_log_events WHERE session_id = ?", sessionID).
		Scan(&maxTS).Error
	if err != nil {
		return 0, nil, err
	}
	return total, &maxTS, nil
}
