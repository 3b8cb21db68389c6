// Session, message, and transcript segment models. Unlike the event log,
// these rows are mutable: segments are the mutation target that the log
// records changes about.
package domain

import (
	"time"

	"gorm.io/gorm"
)

// Session statuses.
const (
	SessionActive = "active"
	SessionClosed = "closed"
)

// Session represents one voice capture session. A session exclusively owns
// its event stream; no other entity appends to it.
type Session struct {
	ID        string         `json:"id"         gorm:"type:char(36);primaryKey"`
	ProjectID *string        `json:"project_id,omitempty" gorm:"type:char(36);index"`
	Title     string         `json:"title"      gorm:"type:varchar(255);not null;default:''"`
	Status    string         `json:"status"     gorm:"type:varchar(16);not null;default:'active';check:status IN ('active','closed')"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-"          gorm:"index"`
}

// TableName returns the database table name for Session.
func (Session) TableName() string { return "sessions" }

// Message is one captured voice message within a session. Its transcript is
// stored as ordered TranscriptSegment rows.
type Message struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	SessionID string    `json:"session_id" gorm:"type:char(36);not null;index:idx_session_msgs"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Session is the owning session. Messages are cascade-deleted if their
	// session is removed.
	Session Session `json:"-" gorm:"foreignKey:SessionID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Message.
func (Message) TableName() string { return "messages" }

// TranscriptSegment is one chunk of transcribed speech inside a message.
// Edits flip IsEdited, deletions flip IsDeleted; either mutation also
// appends a SessionLogEvent carrying the previous content so the change can
// be rolled back.
type TranscriptSegment struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	MessageID string    `json:"message_id" gorm:"type:char(36);not null;index:idx_msg_segments,priority:1"`
	Position  int       `json:"position"   gorm:"not null;index:idx_msg_segments,priority:2"`
	Text      string    `json:"text"       gorm:"type:text;not null"`
	IsEdited  bool      `json:"is_edited"  gorm:"not null;default:false"`
	IsDeleted bool      `json:"is_deleted" gorm:"not null;default:false"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Message is the parent message. Segments are cascade-deleted if their
	// message is removed.
	Message Message `json:"-" gorm:"foreignKey:MessageID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for TranscriptSegment.
func (TranscriptSegment) TableName() string { return "transcript_segments" }

// SegmentPath renders the canonical target path of a segment inside its
// message, as stored in event targets.
func SegmentPath(messageID, segmentID string) string {
	return "/messages/" + messageID + "/transcription/segments[id=" + segmentID + "]"
}
