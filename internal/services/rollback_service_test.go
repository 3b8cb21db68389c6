package services

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/voxops/go-voicelog-backend/internal/domain"
	"github.com/voxops/go-voicelog-backend/internal/notify"
	"github.com/voxops/go-voicelog-backend/internal/repo"
)

func newRollbackSvc(db *gorm.DB, pub notify.Publisher) *RollbackService {
	q := newQueue(pub)
	events := &EventLogService{DB: db, Queue: q}
	return &RollbackService{DB: db, Events: events, Queue: q}
}

// editThenSource performs one edit and returns the resulting source event.
func editThenSource(t *testing.T, db *gorm.DB, sessionID, messageID, segmentID, text string) *domain.SessionLogEvent {
	t.Helper()
	svc := newTranscriptSvc(db)
	ev, err := svc.EditSegment(context.Background(), SegmentMutation{
		SessionID: sessionID,
		MessageID: messageID,
		SegmentID: segmentID,
		Text:      text,
	})
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	return ev
}

func TestRollback_EditRestoresPreviousText(t *testing.T) {
	db := newTestDB(t)
	sess := seedSession(t, db)
	msg, seg := seedSegment(t, db, sess.ID, "the original")

	source := editThenSource(t, db, sess.ID, msg.ID, seg.ID, "the replacement")

	svc := newRollbackSvc(db, nil)
	restored, err := svc.Rollback(context.Background(), ReplayInput{
		SessionID:     sess.ID,
		SourceEventID: source.ID,
		Actor:         domain.Actor{Type: domain.ActorUser, ID: "usr_1"},
	})
	if err != nil {
		t.Fatalf("Rollback: %v", err)
	}

	// The segment is back to its pre-edit content.
	got, err := repo.GetSegment(context.Background(), db, seg.ID, msg.ID)
	if err != nil {
		t.Fatalf("get segment: %v", err)
	}
	if got.Text != "the original" {
		t.Fatalf("text not restored: %q", got.Text)
	}

	// The restoration event links back and flags itself as a replay.
	if restored.EventName != domain.EventTranscriptSegmentRestored {
		t.Fatalf("event name = %q", restored.EventName)
	}
	if restored.SourceEventID == nil || *restored.SourceEventID != source.ID {
		t.Fatalf("source_event_id missing: %v", restored.SourceEventID)
	}
	if !restored.IsReplay {
		t.Fatalf("restoration event must set is_replay")
	}
	// Snapshots swap direction: previous is what was live, next is what
	// came back.
	if *restored.Metadata.PreviousText != "the replacement" || *restored.Metadata.NextText != "the original" {
		t.Fatalf("snapshot swap broken: %+v", restored.Metadata)
	}
}

func TestRollback_SourceEventUntouched(t *testing.T) {
	db := newTestDB(t)
	sess := seedSession(t, db)
	msg, seg := seedSegment(t, db, sess.ID, "before")
	source := editThenSource(t, db, sess.ID, msg.ID, seg.ID, "after")

	before, err := repo.GetEvent(context.Background(), db, source.ID, sess.ID)
	if err != nil {
		t.Fatalf("get source before: %v", err)
	}
	beforeJSON, _ := json.Marshal(before)

	svc := newRollbackSvc(db, nil)
	if _, err := svc.Rollback(context.Background(), ReplayInput{
		SessionID: sess.ID, SourceEventID: source.ID,
	}); err != nil {
		t.Fatalf("Rollback: %v", err)
	}

	after, err := repo.GetEvent(context.Background(), db, source.ID, sess.ID)
	if err != nil {
		t.Fatalf("get source after: %v", err)
	}
	afterJSON, _ := json.Marshal(after)
	if !reflect.DeepEqual(beforeJSON, afterJSON) {
		t.Fatalf("source event mutated by rollback:\nbefore=%s\nafter=%s", beforeJSON, afterJSON)
	}
}

func TestRollback_Twice_YieldsTwoEvents(t *testing.T) {
	db := newTestDB(t)
	sess := seedSession(t, db)
	msg, seg := seedSegment(t, db, sess.ID, "start")
	source := editThenSource(t, db, sess.ID, msg.ID, seg.ID, "changed")

	svc := newRollbackSvc(db, nil)
	first, err := svc.Rollback(context.Background(), ReplayInput{SessionID: sess.ID, SourceEventID: source.ID})
	if err != nil {
		t.Fatalf("first rollback: %v", err)
	}
	second, err := svc.Rollback(context.Background(), ReplayInput{SessionID: sess.ID, SourceEventID: source.ID})
	if err != nil {
		t.Fatalf("second rollback: %v", err)
	}
	if first.ID == second.ID {
		t.Fatalf("repeated rollback must create distinct events")
	}

	// 1 edit + 2 restorations.
	if n := countEvents(t, db, sess.ID); n != 3 {
		t.Fatalf("event count = %d, want 3", n)
	}
}

func TestRollback_DeleteUndeletes(t *testing.T) {
	db := newTestDB(t)
	sess := seedSession(t, db)
	msg, seg := seedSegment(t, db, sess.ID, "keep me")

	tsvc := newTranscriptSvc(db)
	source, err := tsvc.DeleteSegment(context.Background(), SegmentMutation{
		SessionID: sess.ID, MessageID: msg.ID, SegmentID: seg.ID,
	})
	if err != nil {
		t.Fatalf("delete: %v", err)
	}

	svc := newRollbackSvc(db, nil)
	if _, err := svc.Rollback(context.Background(), ReplayInput{
		SessionID: sess.ID, SourceEventID: source.ID,
	}); err != nil {
		t.Fatalf("Rollback: %v", err)
	}

	got, err := repo.GetSegment(context.Background(), db, seg.ID, msg.ID)
	if err != nil {
		t.Fatalf("get segment: %v", err)
	}
	if got.IsDeleted {
		t.Fatalf("rollback of delete must clear the flag: %+v", got)
	}
	if got.Text != "keep me" {
		t.Fatalf("text changed by undelete: %q", got.Text)
	}
}

func TestRollback_MissingEvent_NoInserts(t *testing.T) {
	db := newTestDB(t)
	sess := seedSession(t, db)

	svc := newRollbackSvc(db, nil)
	_, err := svc.Rollback(context.Background(), ReplayInput{
		SessionID:     sess.ID,
		SourceEventID: uuid.NewString(),
	})
	if !errors.Is(err, ErrEventNotFound) {
		t.Fatalf("expected ErrEventNotFound, got %v", err)
	}
	if n := countEvents(t, db, sess.ID); n != 0 {
		t.Fatalf("failed rollback must not insert rows, got %d", n)
	}
}

func TestRollback_NotifyEvent_NotRollbackable(t *testing.T) {
	db := newTestDB(t)
	sess := seedSession(t, db)

	events := &EventLogService{DB: db, Queue: newQueue(nil)}
	source, _, err := events.Append(context.Background(), AppendInput{
		SessionID: sess.ID,
		EventName: domain.EventNotifyRequested,
		Metadata:  domain.EventMetadata{NotifyEvent: "stage_changed"},
	})
	if err != nil {
		t.Fatalf("append notify: %v", err)
	}

	svc := newRollbackSvc(db, nil)
	_, err = svc.Rollback(context.Background(), ReplayInput{
		SessionID: sess.ID, SourceEventID: source.ID,
	})
	if !errors.Is(err, ErrNotRollbackable) {
		t.Fatalf("expected ErrNotRollbackable, got %v", err)
	}
	if n := countEvents(t, db, sess.ID); n != 1 {
		t.Fatalf("failed rollback must not insert rows, got %d", n)
	}
}

func TestRollback_CrossSessionEventInvisible(t *testing.T) {
	db := newTestDB(t)
	s1 := seedSession(t, db)
	s2 := seedSession(t, db)
	msg, seg := seedSegment(t, db, s1.ID, "a")
	source := editThenSource(t, db, s1.ID, msg.ID, seg.ID, "b")

	svc := newRollbackSvc(db, nil)
	_, err := svc.Rollback(context.Background(), ReplayInput{
		SessionID: s2.ID, SourceEventID: source.ID,
	})
	if !errors.Is(err, ErrEventNotFound) {
		t.Fatalf("cross-session rollback: got %v, want ErrEventNotFound", err)
	}
}

func TestResendNotify(t *testing.T) {
	db := newTestDB(t)
	sess := seedSession(t, db)
	pub := &recordingPublisher{}

	svc := newRollbackSvc(db, pub)
	source, _, err := svc.Events.Append(context.Background(), AppendInput{
		SessionID: sess.ID,
		EventName: domain.EventNotifyRequested,
		Metadata: domain.EventMetadata{
			NotifyEvent:   "stage_changed",
			NotifyPayload: map[string]any{"stage": "qualified"},
		},
	})
	if err != nil {
		t.Fatalf("append notify: %v", err)
	}

	res, err := svc.ResendNotify(context.Background(), ReplayInput{
		SessionID: sess.ID, SourceEventID: source.ID,
	})
	if err != nil {
		t.Fatalf("ResendNotify: %v", err)
	}
	if !res.Enqueued {
		t.Fatalf("expected Enqueued=true")
	}
	if res.Event.EventName != domain.EventNotifyResent || !res.Event.IsReplay {
		t.Fatalf("unexpected replay event: %+v", res.Event)
	}
	if res.Event.SourceEventID == nil || *res.Event.SourceEventID != source.ID {
		t.Fatalf("source link missing: %v", res.Event.SourceEventID)
	}
	// Original publish + resend publish.
	if len(pub.subjects) != 2 {
		t.Fatalf("publishes = %d, want 2: %v", len(pub.subjects), pub.subjects)
	}
}

func TestResendNotify_NoMetadata(t *testing.T) {
	db := newTestDB(t)
	sess := seedSession(t, db)
	msg, seg := seedSegment(t, db, sess.ID, "a")
	source := editThenSource(t, db, sess.ID, msg.ID, seg.ID, "b")

	svc := newRollbackSvc(db, nil)
	_, err := svc.ResendNotify(context.Background(), ReplayInput{
		SessionID: sess.ID, SourceEventID: source.ID,
	})
	if !errors.Is(err, ErrNoNotifyMetadata) {
		t.Fatalf("expected ErrNoNotifyMetadata, got %v", err)
	}
}

func TestResendNotify_BrokenQueue(t *testing.T) {
	db := newTestDB(t)
	sess := seedSession(t, db)

	// Seed the source notify event with a working queue so the metadata
	// is in place, then break the connection for the resend.
	seedSvc := newRollbackSvc(db, &recordingPublisher{})
	source, _, err := seedSvc.Events.Append(context.Background(), AppendInput{
		SessionID: sess.ID,
		EventName: domain.EventNotifyRequested,
		Metadata:  domain.EventMetadata{NotifyEvent: "stage_changed"},
	})
	if err != nil {
		t.Fatalf("append notify: %v", err)
	}

	svc := newRollbackSvc(db, failingPublisher{})
	res, err := svc.ResendNotify(context.Background(), ReplayInput{
		SessionID: sess.ID, SourceEventID: source.ID,
	})
	if err != nil {
		t.Fatalf("broken queue must not fail the resend: %v", err)
	}
	if res.Enqueued {
		t.Fatalf("expected Enqueued=false")
	}
	// The replay event is still durable.
	if _, err := repo.GetEvent(context.Background(), db, res.Event.ID, sess.ID); err != nil {
		t.Fatalf("replay event not persisted: %v", err)
	}
}

func TestRetryCategorization(t *testing.T) {
	db := newTestDB(t)
	sess := seedSession(t, db)
	msg, seg := seedSegment(t, db, sess.ID, "a")
	source := editThenSource(t, db, sess.ID, msg.ID, seg.ID, "b")

	pub := &recordingPublisher{}
	svc := newRollbackSvc(db, pub)
	res, err := svc.RetryCategorization(context.Background(), ReplayInput{
		SessionID: sess.ID, SourceEventID: source.ID,
	})
	if err != nil {
		t.Fatalf("RetryCategorization: %v", err)
	}
	if res.Event.EventName != domain.EventCategorizationRetried || !res.Event.IsReplay {
		t.Fatalf("unexpected event: %+v", res.Event)
	}
	if !res.Enqueued {
		t.Fatalf("expected Enqueued=true")
	}
	if len(pub.subjects) != 1 || pub.subjects[0] != "voicelog.categorize.categorization_event" {
		t.Fatalf("unexpected subjects: %v", pub.subjects)
	}
}

func TestRetryCategorizationSegment(t *testing.T) {
	db := newTestDB(t)
	sess := seedSession(t, db)
	msg, seg := seedSegment(t, db, sess.ID, "a")

	pub := &recordingPublisher{}
	svc := newRollbackSvc(db, pub)
	res, err := svc.RetryCategorizationSegment(context.Background(), SegmentRetryInput{
		SessionID: sess.ID,
		MessageID: msg.ID,
		SegmentID: seg.ID,
	})
	if err != nil {
		t.Fatalf("RetryCategorizationSegment: %v", err)
	}
	if res.Event.EventName != domain.EventCategorizationChunkRetryEnqueued {
		t.Fatalf("unexpected event: %+v", res.Event)
	}
	if res.Event.Target == nil || res.Event.Target.Stage != "categorization" {
		t.Fatalf("unexpected target: %+v", res.Event.Target)
	}
	if len(pub.subjects) != 1 || pub.subjects[0] != "voicelog.categorize.categorization_chunk" {
		t.Fatalf("unexpected subjects: %v", pub.subjects)
	}

	_, err = svc.RetryCategorizationSegment(context.Background(), SegmentRetryInput{
		SessionID: sess.ID,
		MessageID: msg.ID,
		SegmentID: uuid.NewString(),
	})
	if !errors.Is(err, ErrSegmentNotFound) {
		t.Fatalf("missing segment: got %v, want ErrSegmentNotFound", err)
	}
}
