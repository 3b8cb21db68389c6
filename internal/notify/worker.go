// Notify worker: consumes queued notification jobs and delivers them to the
// configured webhook endpoint (the stand-in for Telegram/socket push
// delivery, which lives outside this service).
//
// A failed delivery is logged and dropped; the manual resend route is the
// recovery path, mirroring the no-auto-retry contract of the dispatcher.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// Worker subscribes to the notify subject tree and forwards each job to a
// webhook. It owns no state beyond the subscription.
type Worker struct {
	Conn          *nats.Conn
	SubjectPrefix string
	WebhookURL    string
	Logger        zerolog.Logger

	// Client may be overridden in tests; defaults to a 10s-timeout client.
	Client *http.Client
}

// Run subscribes and blocks until ctx is cancelled, then drains the
// subscription so in-flight deliveries finish.
func (w *Worker) Run(ctx context.Context) error {
	if w.Conn == nil {
		return ErrQueueUnavailable
	}
	prefix := w.SubjectPrefix
	if prefix == "" {
		prefix = "voicelog"
	}

	sub, err := w.Conn.Subscribe(prefix+"."+subjectNotifies+".>", func(msg *nats.Msg) {
		w.deliver(ctx, msg)
	})
	if err != nil {
		return err
	}

	w.Logger.Info().Str("subject", sub.Subject).Msg("notify worker started")
	<-ctx.Done()
	return sub.Drain()
}

func (w *Worker) deliver(ctx context.Context, msg *nats.Msg) {
	var job Job
	if err := json.Unmarshal(msg.Data, &job); err != nil {
		w.Logger.Error().Err(err).Str("subject", msg.Subject).Msg("discarding malformed notify job")
		return
	}

	lg := w.Logger.With().
		Str("notify_event", job.Event).
		Str("session_id", job.SessionID).
		Str("event_id", job.EventID).
		Logger()

	if w.WebhookURL == "" {
		// No delivery endpoint configured: log-only mode.
		lg.Info().Msg("notify job received (no webhook configured)")
		return
	}

	body, err := json.Marshal(job)
	if err != nil {
		lg.Error().Err(err).Msg("marshal webhook body")
		return
	}

	reqCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, w.WebhookURL, bytes.NewReader(body))
	if err != nil {
		lg.Error().Err(err).Msg("build webhook request")
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client().Do(req)
	if err != nil {
		lg.Warn().Err(err).Msg("notify delivery failed; waiting for manual resend")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		lg.Warn().Int("status", resp.StatusCode).Msg("notify delivery rejected; waiting for manual resend")
		return
	}
	lg.Info().Int("status", resp.StatusCode).Msg("notify delivered")
}

func (w *Worker) client() *http.Client {
	if w.Client != nil {
		return w.Client
	}
	return &http.Client{Timeout: 10 * time.Second}
}
