package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/voxops/go-voicelog-backend/internal/domain"
	"github.com/voxops/go-voicelog-backend/internal/repo"
)

func newSessionSvc(db *gorm.DB, pub *recordingPublisher) *SessionService {
	var q = newQueue(nil)
	if pub != nil {
		q = newQueue(pub)
	}
	return &SessionService{DB: db, Events: &EventLogService{DB: db, Queue: q}}
}

func TestCreateSession_AppendsLifecycleEvent(t *testing.T) {
	db := newTestDB(t)
	svc := newSessionSvc(db, nil)

	sess, err := svc.CreateSession(context.Background(), CreateSessionInput{
		ProjectID: strptr("proj1"),
		Title:     "  onboarding call  ",
		Actor:     domain.Actor{Type: domain.ActorUser, ID: "usr_1"},
	})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if sess.Title != "onboarding call" {
		t.Fatalf("title not trimmed: %q", sess.Title)
	}
	if sess.ProjectID == nil || *sess.ProjectID != "proj1" {
		t.Fatalf("project binding lost: %v", sess.ProjectID)
	}
	if sess.Status != domain.SessionActive {
		t.Fatalf("new session status = %q", sess.Status)
	}

	events, err := repo.ListSessionEvents(context.Background(), db, sess.ID, 0)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(events) != 1 || events[0].EventName != domain.EventSessionCreated {
		t.Fatalf("lifecycle event missing: %+v", events)
	}
	if events[0].Target == nil || events[0].Target.EntityID != sess.ID {
		t.Fatalf("lifecycle event target: %+v", events[0].Target)
	}
}

func TestGetSession_NotFound(t *testing.T) {
	db := newTestDB(t)
	svc := newSessionSvc(db, nil)

	if _, err := svc.GetSession(context.Background(), uuid.NewString()); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestCloseSession(t *testing.T) {
	db := newTestDB(t)
	pub := &recordingPublisher{}
	svc := newSessionSvc(db, pub)
	sess := seedSession(t, db)

	res, err := svc.CloseSession(context.Background(), sess.ID, domain.Actor{Type: domain.ActorUser, ID: "usr_1"}, domain.Source{})
	if err != nil {
		t.Fatalf("CloseSession: %v", err)
	}
	if res.Session.Status != domain.SessionClosed {
		t.Fatalf("status = %q", res.Session.Status)
	}
	if !res.Enqueued {
		t.Fatalf("session_closed is notify-worthy, expected Enqueued=true")
	}
	if len(pub.subjects) != 1 || pub.subjects[0] != "voicelog.notifies.session_closed" {
		t.Fatalf("unexpected subjects: %v", pub.subjects)
	}

	// Closing again still appends; the log records every attempt.
	if _, err := svc.CloseSession(context.Background(), sess.ID, domain.Actor{}, domain.Source{}); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if n := countEvents(t, db, sess.ID); n != 2 {
		t.Fatalf("event count = %d, want 2", n)
	}
}

func TestIngestMessage(t *testing.T) {
	db := newTestDB(t)
	svc := newSessionSvc(db, nil)
	sess := seedSession(t, db)

	msg, segs, err := svc.IngestMessage(context.Background(), IngestMessageInput{
		SessionID: sess.ID,
		Segments:  []string{"first part", "   ", "", "second part"},
	})
	if err != nil {
		t.Fatalf("IngestMessage: %v", err)
	}
	if msg.SessionID != sess.ID {
		t.Fatalf("message session binding: %+v", msg)
	}
	// Blank texts are dropped and positions stay dense.
	if len(segs) != 2 || segs[0].Position != 0 || segs[1].Position != 1 {
		t.Fatalf("unexpected segments: %+v", segs)
	}
	if segs[0].Text != "first part" || segs[1].Text != "second part" {
		t.Fatalf("segment texts: %+v", segs)
	}
}

func TestIngestMessage_EmptyTranscriptStillCreates(t *testing.T) {
	db := newTestDB(t)
	svc := newSessionSvc(db, nil)
	sess := seedSession(t, db)

	msg, segs, err := svc.IngestMessage(context.Background(), IngestMessageInput{
		SessionID: sess.ID,
	})
	if err != nil {
		t.Fatalf("IngestMessage: %v", err)
	}
	if msg == nil || len(segs) != 0 {
		t.Fatalf("expected message with no segments, got %+v / %+v", msg, segs)
	}
}

func TestIngestMessage_MissingSession(t *testing.T) {
	db := newTestDB(t)
	svc := newSessionSvc(db, nil)

	_, _, err := svc.IngestMessage(context.Background(), IngestMessageInput{
		SessionID: uuid.NewString(),
		Segments:  []string{"x"},
	})
	if !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestListMessages(t *testing.T) {
	db := newTestDB(t)
	svc := newSessionSvc(db, nil)
	sess := seedSession(t, db)

	for _, texts := range [][]string{{"a", "b"}, {"c"}} {
		if _, _, err := svc.IngestMessage(context.Background(), IngestMessageInput{
			SessionID: sess.ID,
			Segments:  texts,
		}); err != nil {
			t.Fatalf("ingest: %v", err)
		}
	}

	got, err := svc.ListMessages(context.Background(), sess.ID)
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if len(got[0].Segments) != 2 || len(got[1].Segments) != 1 {
		t.Fatalf("segments not attached: %+v", got)
	}

	if _, err := svc.ListMessages(context.Background(), uuid.NewString()); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("missing session: got %v, want ErrSessionNotFound", err)
	}
}
