// Package domain defines the persistence models for voice sessions and their
// append-only event log. These types are mapped with GORM and form the core
// data layer of the service.
//
// The central type is SessionLogEvent: an immutable record of something that
// happened to a session's content or lifecycle. Events are only ever
// inserted; corrections and rollbacks are expressed as new events that point
// back to their source via SourceEventID.
package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Event name taxonomy. Names are stable wire values; grouping is derived
// from the prefix (see EventGroupFor).
const (
	EventSessionCreated = "session_created"
	EventSessionClosed  = "session_closed"

	EventTranscriptSegmentEdited   = "transcript_segment_edited"
	EventTranscriptSegmentDeleted  = "transcript_segment_deleted"
	EventTranscriptSegmentRestored = "transcript_segment_restored"

	EventNotifyRequested = "notify_requested"
	EventNotifyResent    = "notify_resent"

	EventCategorizationRetried            = "categorization_retried"
	EventCategorizationChunkRetryEnqueued = "categorization_chunk_retry_enqueued"
	EventCategorizationRowsDeleted        = "categorization_rows_deleted"
)

// Event groups used for filtering in the audit UI.
const (
	GroupSession        = "session"
	GroupMessageIngest  = "message_ingest"
	GroupTranscript     = "transcript"
	GroupCategorization = "categorization"
	GroupNotify         = "notify_webhook"
	GroupFileFlow       = "file_flow"
	GroupSystem         = "system"
)

// EventGroupFor derives the coarse event group from an event name prefix.
// Unknown names fall into the "system" group rather than failing.
func EventGroupFor(eventName string) string {
	switch {
	case eventName == "":
		return GroupSystem
	case strings.HasPrefix(eventName, "session_"):
		return GroupSession
	case strings.HasPrefix(eventName, "message_ingested_"):
		return GroupMessageIngest
	case strings.HasPrefix(eventName, "transcript_"), strings.HasPrefix(eventName, "transcription_"):
		return GroupTranscript
	case strings.HasPrefix(eventName, "categorization_"):
		return GroupCategorization
	case strings.HasPrefix(eventName, "notify_"):
		return GroupNotify
	case strings.HasPrefix(eventName, "file_"):
		return GroupFileFlow
	default:
		return GroupSystem
	}
}

// rollbackable is the set of event names the rollback engine knows how to
// reverse. Only edit/delete-class transcript events qualify.
var rollbackable = map[string]struct{}{
	EventTranscriptSegmentEdited:  {},
	EventTranscriptSegmentDeleted: {},
}

// IsRollbackable reports whether events with this name can be rolled back.
func IsRollbackable(eventName string) bool {
	_, ok := rollbackable[eventName]
	return ok
}

// notifyWorthy is the set of event names whose occurrence should trigger a
// downstream notification job.
var notifyWorthy = map[string]struct{}{
	EventNotifyRequested: {},
	EventNotifyResent:    {},
	EventSessionClosed:   {},
}

// IsNotifyWorthy reports whether events with this name trigger a notify job.
func IsNotifyWorthy(eventName string) bool {
	_, ok := notifyWorthy[eventName]
	return ok
}

// Actor kinds.
const (
	ActorUser     = "user"
	ActorTelegram = "telegram"
	ActorService  = "service"
	ActorUnknown  = "unknown"
)

// Actor is the normalized identity of whoever triggered an event. Handlers
// never store raw user objects in the log; they bind the performer context
// into this shape first.
type Actor struct {
	Type        string `json:"type"`
	ID          string `json:"id,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
}

// Source describes where an action originated (web UI, Telegram, API).
type Source struct {
	Channel   string `json:"channel"`
	Transport string `json:"transport,omitempty"`
	Reference string `json:"reference,omitempty"`
}

// Target entity types known to the taxonomy.
const (
	EntityTranscriptSegment = "transcript_segment"
	EntitySession           = "session"
	EntityMessage           = "message"
	EntityProjectAssignment = "project_assignment"
	EntityCategorization    = "categorization"
)

// Target identifies the sub-resource an event affected and where in its
// structure. Unknown entity types are passed through with Warning set, so a
// misbehaving upstream never blocks the log write.
type Target struct {
	EntityType string `json:"entity_type"`
	EntityID   string `json:"entity_oid"`
	Path       string `json:"path,omitempty"`
	Stage      string `json:"stage,omitempty"`
	Warning    bool   `json:"warning,omitempty"`
}

// Action kinds for ActionRef.Type.
const (
	ActionRollback = "rollback"
	ActionResend   = "resend"
	ActionNone     = "none"
)

// ActionRef describes whether the event itself can be acted upon further
// (rolled back, resent) and which handler performs it.
type ActionRef struct {
	Type      string `json:"type"`
	Available bool   `json:"available"`
	Handler   string `json:"handler,omitempty"`
}

// NoAction is the ActionRef for events that cannot be acted upon.
func NoAction() ActionRef { return ActionRef{Type: ActionNone, Available: false} }

// RollbackAction marks an event as rollback-able via the rollback_event route.
func RollbackAction() ActionRef {
	return ActionRef{Type: ActionRollback, Available: true, Handler: "rollback_event"}
}

// CategorizationCleanup summarizes derived categorization rows removed as a
// consequence of a transcript mutation.
type CategorizationCleanup struct {
	RemovedRows int    `json:"removed_rows"`
	Cause       string `json:"cause,omitempty"`
}

// EventMetadata is the per-event-type payload. It is a tagged union keyed by
// the owning event's name: transcript mutations carry content snapshots,
// notify events carry the outbound job description, categorization events
// carry cleanup stats. ValidateFor enforces the shape at the store boundary.
type EventMetadata struct {
	// Transcript mutation snapshots.
	PreviousText *string `json:"previous_text,omitempty"`
	NextText     *string `json:"next_text,omitempty"`

	// Notify job description.
	NotifyEvent   string         `json:"notify_event,omitempty"`
	NotifyPayload map[string]any `json:"notify_payload,omitempty"`

	// Categorization side effects.
	Cleanup *CategorizationCleanup `json:"categorization_cleanup,omitempty"`
}

// IsZero reports whether no metadata fields are set.
func (m EventMetadata) IsZero() bool {
	return m.PreviousText == nil && m.NextText == nil &&
		m.NotifyEvent == "" && len(m.NotifyPayload) == 0 && m.Cleanup == nil
}

// ValidateFor checks that the metadata carries the fields the given event
// type requires. Event types outside the tagged union accept any shape.
func (m EventMetadata) ValidateFor(eventName string) error {
	switch eventName {
	case EventTranscriptSegmentEdited:
		if m.PreviousText == nil || m.NextText == nil {
			return fmt.Errorf("%s metadata requires previous_text and next_text", eventName)
		}
	case EventTranscriptSegmentDeleted:
		if m.PreviousText == nil {
			return fmt.Errorf("%s metadata requires previous_text", eventName)
		}
	case EventNotifyRequested, EventNotifyResent:
		if m.NotifyEvent == "" {
			return fmt.Errorf("%s metadata requires notify_event", eventName)
		}
	}
	return nil
}

// SessionLogEvent is one immutable row of the session event log.
//
// Invariants:
//   - Rows are inserted exactly once and never updated or deleted; there is
//     deliberately no UpdatedAt/DeletedAt column.
//   - Seq is a per-session monotonic counter assigned at insert time and,
//     together with CreatedAt, defines the total order within a session.
//   - SourceEventID, when set, references an earlier event of the same
//     session (rollback/replay lineage); it never cycles because a new event
//     can only reference rows that already exist.
type SessionLogEvent struct {
	ID        string  `json:"id"         gorm:"type:char(36);primaryKey"`
	SessionID string  `json:"session_id" gorm:"type:char(36);not null;index:idx_session_events,priority:1;uniqueIndex:ux_session_seq,priority:1"`
	MessageID *string `json:"message_id,omitempty" gorm:"type:char(36);index"`
	ProjectID *string `json:"project_id,omitempty" gorm:"type:char(36);index"`

	// Seq orders events within one session even when CreatedAt collides.
	Seq int64 `json:"seq" gorm:"not null;uniqueIndex:ux_session_seq,priority:2;index:idx_session_events,priority:2"`

	EventName  string `json:"event_name"  gorm:"type:varchar(64);not null;index"`
	EventGroup string `json:"event_group" gorm:"type:varchar(32);not null;index"`
	Status     string `json:"status"      gorm:"type:varchar(16);not null;default:'done'"`

	Actor  Actor     `json:"actor"            gorm:"type:text"`
	Source Source    `json:"source"           gorm:"type:text"`
	Target *Target   `json:"target,omitempty" gorm:"type:text"`
	Action ActionRef `json:"action"           gorm:"type:text"`

	Reason        *string `json:"reason,omitempty"         gorm:"type:text"`
	CorrelationID *string `json:"correlation_id,omitempty" gorm:"type:varchar(64);index"`

	SourceEventID *string `json:"source_event_id,omitempty" gorm:"type:char(36);index"`
	IsReplay      bool    `json:"is_replay"                 gorm:"not null;default:false"`

	EventVersion int           `json:"event_version" gorm:"not null;default:1"`
	Metadata     EventMetadata `json:"metadata"      gorm:"type:text"`

	CreatedAt time.Time `json:"created_at" gorm:"index:idx_session_events,priority:3"`
}

// TableName returns the database table name for SessionLogEvent.
func (SessionLogEvent) TableName() string { return "session_log_events" }

// ---- JSON column plumbing ----
//
// The structured sub-documents (actor, source, target, action, metadata) are
// persisted as JSON text. Value/Scan implementations below keep GORM mapping
// free of driver-specific types.

func jsonValue(v any) (driver.Value, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func jsonScan(dst any, src any) error {
	switch s := src.(type) {
	case nil:
		return nil
	case []byte:
		if len(s) == 0 {
			return nil
		}
		return json.Unmarshal(s, dst)
	case string:
		if s == "" {
			return nil
		}
		return json.Unmarshal([]byte(s), dst)
	default:
		return errors.New("unsupported source type for JSON column")
	}
}

func (a Actor) Value() (driver.Value, error)  { return jsonValue(a) }
func (a *Actor) Scan(src any) error           { return jsonScan(a, src) }
func (s Source) Value() (driver.Value, error) { return jsonValue(s) }
func (s *Source) Scan(src any) error          { return jsonScan(s, src) }
func (t Target) Value() (driver.Value, error) { return jsonValue(t) }
func (t *Target) Scan(src any) error          { return jsonScan(t, src) }

func (a ActionRef) Value() (driver.Value, error) { return jsonValue(a) }
func (a *ActionRef) Scan(src any) error          { return jsonScan(a, src) }

func (m EventMetadata) Value() (driver.Value, error) { return jsonValue(m) }
func (m *EventMetadata) Scan(src any) error          { return jsonScan(m, src) }
