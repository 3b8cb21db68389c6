// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// TranscriptSegment model.
//
// Segments are mutable (unlike the event log): edits replace the text,
// deletions are soft flags, and rollbacks restore either. Every caller of
// these functions is expected to append the matching SessionLogEvent.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/voxops/go-voicelog-backend/internal/domain"
)

// CreateSegment inserts a transcript segment at the given position.
func CreateSegment(ctx context.Context, db *gorm.DB, messageID string, position int, text string) (*domain.TranscriptSegment, error) {
	seg := &domain.TranscriptSegment{
		ID:        uuid.NewString(),
		MessageID: messageID,
		Position:  position,
		Text:      text,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(seg).Error; err != nil {
		return nil, err
	}
	return seg, nil
}

// GetSegment fetches a segment scoped to its message. A segment belonging
// to a different message yields ErrNotFound.
func GetSegment(ctx context.Context, db *gorm.DB, id, messageID string) (*domain.TranscriptSegment, error) {
	var seg domain.TranscriptSegment
	err := db.WithContext(ctx).
		Where("id = ? AND message_id = ?", id, messageID).
		First(&seg).Error
	if err != nil {
		return nil, err
	}
	return &seg, nil
}

// ListSegments returns a message's segments in transcript order.
func ListSegments(ctx context.Context, db *gorm.DB, messageID string) ([]domain.TranscriptSegment, error) {
	var out []domain.TranscriptSegment
	err := db.WithContext(ctx).
		Where("message_id = ?", messageID).
		Order("position ASC, id ASC").
		Find(&out).Error
	return out, err
}

// UpdateSegmentText replaces a segment's text and marks it edited.
// Returns ErrNotFound when no row matched.
func UpdateSegmentText(ctx context.Context, db *gorm.DB, id, messageID, text string) error {
	res := db.WithContext(ctx).
		Model(&domain.TranscriptSegment{}).
		Where("id = ? AND message_id = ?", id, messageID).
		Updates(map[string]any{
			"text":       text,
			"is_edited":  true,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkSegmentDeleted soft-deletes a segment. Returns ErrNotFound when no
// row matched.
func MarkSegmentDeleted(ctx context.Context, db *gorm.DB, id, messageID string) error {
	res := db.WithContext(ctx).
		Model(&domain.TranscriptSegment{}).
		Where("id = ? AND message_id = ?", id, messageID).
		Updates(map[string]any{
			"is_deleted": true,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// RestoreSegment reverses a prior edit or deletion: when restoreText is
// non-nil the text is put back, otherwise the soft-delete flag is cleared.
func RestoreSegment(ctx context.Context, db *gorm.DB, id, messageID string, restoreText *string) error {
	fields := map[string]any{"updated_at": time.Now().UTC()}
	if restoreText != nil {
		fields["text"] = *restoreText
	} else {
		fields["is_deleted"] = false
	}
	res := db.WithContext(ctx).
		Model(&domain.TranscriptSegment{}).
		Where("id = ? AND message_id = ?", id, messageID).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
