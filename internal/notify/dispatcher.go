// Package notify decouples event logging from side-effecting notification
// delivery via NATS. The write path only ever publishes a job description;
// delivery (Telegram message, socket push) happens in the worker.
//
// Delivery is explicitly not auto-retried: one Enqueue call publishes
// exactly one message, and a failed delivery is surfaced for manual resend
// through the resend_notify_event route.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go"
)

// ErrQueueUnavailable is returned when no broker connection is configured.
// Callers treat this as a warning, not a failure of the parent mutation:
// the event log write already succeeded and is the source of truth.
var ErrQueueUnavailable = errors.New("notify queue unavailable")

// Subject tree segments under the configured prefix.
const (
	subjectNotifies   = "notifies"
	subjectCategorize = "categorize"
)

// Job is the payload published for one downstream notification or
// categorization task. It is denormalized so the worker can act without
// re-querying the event log.
type Job struct {
	Event     string         `json:"event"`
	SessionID string         `json:"session_id"`
	ProjectID string         `json:"project_id,omitempty"`
	EventID   string         `json:"event_id,omitempty"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// Publisher is the subset of *nats.Conn the dispatcher needs. Tests swap in
// a recording fake.
type Publisher interface {
	Publish(subj string, data []byte) error
}

// interface guard
var _ Publisher = (*nats.Conn)(nil)

// Dispatcher publishes notify and categorization jobs. A nil Conn is a
// valid configuration (broker disabled); Enqueue then reports
// ErrQueueUnavailable and the caller decides how loudly to complain.
type Dispatcher struct {
	Conn          Publisher
	SubjectPrefix string // e.g. "voicelog"
}

// Enqueue publishes exactly one notify job. No retry is attempted here.
func (d *Dispatcher) Enqueue(ctx context.Context, job Job) error {
	return d.publish(ctx, subjectNotifies, job)
}

// EnqueueCategorization publishes exactly one categorization job.
func (d *Dispatcher) EnqueueCategorization(ctx context.Context, job Job) error {
	return d.publish(ctx, subjectCategorize, job)
}

func (d *Dispatcher) publish(ctx context.Context, kind string, job Job) error {
	if d == nil || d.Conn == nil {
		return ErrQueueUnavailable
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if job.Event == "" {
		return errors.New("notify job requires an event name")
	}
	if job.SessionID == "" {
		return errors.New("notify job requires a session id")
	}
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal notify job: %w", err)
	}
	return d.Conn.Publish(d.subject(kind, job.Event), data)
}

// subject renders "<prefix>.<kind>.<event>", defaulting the prefix to
// "voicelog" when unset.
func (d *Dispatcher) subject(kind, event string) string {
	prefix := d.SubjectPrefix
	if prefix == "" {
		prefix = "voicelog"
	}
	return prefix + "." + kind + "." + event
}
