package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/voxops/go-voicelog-backend/internal/domain"
	"github.com/voxops/go-voicelog-backend/internal/notify"
	"github.com/voxops/go-voicelog-backend/internal/repo"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:eventlogsvc_%s?mode=memory&cache=shared", uuid.NewString())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.Exec("PRAGMA foreign_keys=ON;")
	if err := db.AutoMigrate(
		&domain.Session{}, &domain.Message{},
		&domain.TranscriptSegment{}, &domain.SessionLogEvent{},
	); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func seedSession(t *testing.T, db *gorm.DB) *domain.Session {
	t.Helper()
	s, err := repo.CreateSession(context.Background(), db, nil, "t")
	if err != nil {
		t.Fatalf("seed session: %v", err)
	}
	return s
}

func seedSegment(t *testing.T, db *gorm.DB, sessionID, text string) (*domain.Message, *domain.TranscriptSegment) {
	t.Helper()
	msg, err := repo.CreateMessage(context.Background(), db, sessionID)
	if err != nil {
		t.Fatalf("seed message: %v", err)
	}
	seg, err := repo.CreateSegment(context.Background(), db, msg.ID, 0, text)
	if err != nil {
		t.Fatalf("seed segment: %v", err)
	}
	return msg, seg
}

func countEvents(t *testing.T, db *gorm.DB, sessionID string) int64 {
	t.Helper()
	n, err := repo.CountEvents(context.Background(), db, sessionID)
	if err != nil {
		t.Fatalf("count events: %v", err)
	}
	return n
}

func strptr(s string) *string { return &s }

// recordingPublisher captures published subjects and payloads.
type recordingPublisher struct {
	subjects []string
	payloads [][]byte
}

func (p *recordingPublisher) Publish(subj string, data []byte) error {
	p.subjects = append(p.subjects, subj)
	p.payloads = append(p.payloads, data)
	return nil
}

// failingPublisher simulates a broken broker connection.
type failingPublisher struct{}

func (failingPublisher) Publish(string, []byte) error {
	return errors.New("connection refused")
}

func newQueue(p notify.Publisher) *notify.Dispatcher {
	return &notify.Dispatcher{Conn: p, SubjectPrefix: "voicelog"}
}

func TestAppend_SessionNotFound(t *testing.T) {
	db := newTestDB(t)
	svc := &EventLogService{DB: db, Queue: newQueue(nil)}

	missing := uuid.NewString()
	_, _, err := svc.Append(context.Background(), AppendInput{
		SessionID: missing,
		EventName: domain.EventSessionCreated,
	})
	if !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if n := countEvents(t, db, missing); n != 0 {
		t.Fatalf("failed append must not insert rows, got %d", n)
	}
}

func TestAppend_EmptyEventName(t *testing.T) {
	db := newTestDB(t)
	sess := seedSession(t, db)
	svc := &EventLogService{DB: db, Queue: newQueue(nil)}

	_, _, err := svc.Append(context.Background(), AppendInput{
		SessionID: sess.ID,
		EventName: "   ",
	})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestAppend_Success(t *testing.T) {
	db := newTestDB(t)
	sess := seedSession(t, db)
	svc := &EventLogService{DB: db, Queue: newQueue(nil)}

	ev, enqueued, err := svc.Append(context.Background(), AppendInput{
		SessionID: sess.ID,
		EventName: domain.EventSessionCreated,
		Actor:     domain.Actor{Type: domain.ActorUser, ID: "usr_1"},
	})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if enqueued {
		t.Fatalf("non-notify event must not report enqueued")
	}
	if ev.Seq != 1 || ev.EventGroup != domain.GroupSession {
		t.Fatalf("unexpected event: %+v", ev)
	}
}

func TestAppend_NotifyWorthy_Enqueues(t *testing.T) {
	db := newTestDB(t)
	sess := seedSession(t, db)
	pub := &recordingPublisher{}
	svc := &EventLogService{DB: db, Queue: newQueue(pub)}

	_, enqueued, err := svc.Append(context.Background(), AppendInput{
		SessionID: sess.ID,
		EventName: domain.EventNotifyRequested,
		Metadata:  domain.EventMetadata{NotifyEvent: "stage_changed"},
	})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if !enqueued {
		t.Fatalf("expected enqueued=true")
	}
	if len(pub.subjects) != 1 || pub.subjects[0] != "voicelog.notifies.stage_changed" {
		t.Fatalf("unexpected subjects: %v", pub.subjects)
	}
}

func TestAppend_BrokenQueue_StillSucceeds(t *testing.T) {
	db := newTestDB(t)
	sess := seedSession(t, db)
	svc := &EventLogService{DB: db, Queue: newQueue(failingPublisher{})}

	ev, enqueued, err := svc.Append(context.Background(), AppendInput{
		SessionID: sess.ID,
		EventName: domain.EventNotifyRequested,
		Metadata:  domain.EventMetadata{NotifyEvent: "stage_changed"},
	})
	if err != nil {
		t.Fatalf("broken queue must not fail the append: %v", err)
	}
	if enqueued {
		t.Fatalf("expected enqueued=false")
	}
	// The event is durable regardless.
	if _, err := repo.GetEvent(context.Background(), db, ev.ID, sess.ID); err != nil {
		t.Fatalf("event not persisted: %v", err)
	}
}

func TestAppend_NilQueueConn_StillSucceeds(t *testing.T) {
	db := newTestDB(t)
	sess := seedSession(t, db)
	svc := &EventLogService{DB: db, Queue: newQueue(nil)}

	_, enqueued, err := svc.Append(context.Background(), AppendInput{
		SessionID: sess.ID,
		EventName: domain.EventNotifyRequested,
		Metadata:  domain.EventMetadata{NotifyEvent: "stage_changed"},
	})
	if err != nil {
		t.Fatalf("disabled queue must not fail the append: %v", err)
	}
	if enqueued {
		t.Fatalf("expected enqueued=false with nil conn")
	}
}

func TestList(t *testing.T) {
	db := newTestDB(t)
	sess := seedSession(t, db)
	svc := &EventLogService{DB: db, Queue: newQueue(nil)}

	for i := 0; i < 2; i++ {
		if _, _, err := svc.Append(context.Background(), AppendInput{
			SessionID: sess.ID,
			EventName: domain.EventSessionCreated,
		}); err != nil {
			t.Fatalf("append #%d: %v", i, err)
		}
	}

	events, err := svc.List(context.Background(), sess.ID, 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("len = %d, want 2", len(events))
	}

	if _, err := svc.List(context.Background(), uuid.NewString(), 10); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("missing session: got %v, want ErrSessionNotFound", err)
	}
}
