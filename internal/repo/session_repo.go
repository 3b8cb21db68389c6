// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Session
// and Message models.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations. They
// follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/voxops/go-voicelog-backend/internal/domain"
)

// CreateSession inserts a new Session row. The session ID is a randomly
// generated UUID and CreatedAt is set to UTC.
func CreateSession(ctx context.Context, db *gorm.DB, projectID *string, title string) (*domain.Session, error) {
	s := &domain.Session{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		Title:     title,
		Status:    domain.SessionActive,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(s).Error; err != nil {
		return nil, err
	}
	return s, nil
}

// GetSession fetches a single session by ID, or ErrNotFound if missing.
func GetSession(ctx context.Context, db *gorm.DB, id string) (*domain.Session, error) {
	var s domain.Session
	if err := db.WithContext(ctx).Where("id = ?", id).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// CreateMessage inserts a new Message row under the given session.
func CreateMessage(ctx context.Context, db *gorm.DB, sessionID string) (*domain.Message, error) {
	m := &domain.Message{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(m).Error; err != nil {
		return nil, err
	}
	return m, nil
}

// GetMessage fetches a message scoped to its session. A message belonging
// to a different session yields ErrNotFound.
func GetMessage(ctx context.Context, db *gorm.DB, id, sessionID string) (*domain.Message, error) {
	var m domain.Message
	err := db.WithContext(ctx).
		Where("id = ? AND session_id = ?", id, sessionID).
		First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// ListMessages returns a session's messages ordered by creation time.
func ListMessages(ctx context.Context, db *gorm.DB, sessionID string) ([]domain.Message, error) {
	var out []domain.Message
	err := db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC, id ASC").
		Find(&out).Error
	return out, err
}
