// Session and message HTTP handlers.
//
// Minimal create/read surface for the entities the log records changes
// about:
//   - POST /sessions                 (create a session)
//   - GET  /sessions/:id             (fetch a session)
//   - POST /sessions/:id/close      (close a session; notify-worthy)
//   - POST /sessions/:id/messages   (ingest a voice message with segments)
//   - GET  /sessions/:id/messages   (list messages with transcripts)
//   - GET  /sessions/:id/events     (REST read alias with weak ETag)
package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/voxops/go-voicelog-backend/internal/domain"
	"github.com/voxops/go-voicelog-backend/internal/repo"
	"github.com/voxops/go-voicelog-backend/internal/services"
	"github.com/voxops/go-voicelog-backend/internal/utils"
)

// CreateSessionRequest is the payload for opening a session.
type CreateSessionRequest struct {
	ProjectID *string `json:"project_id,omitempty" format:"uuid"`
	Title     string  `json:"title,omitempty" example:"Site visit 2026-09-01"`
}

// SessionResponse wraps one session. NotifyEnqueued is set by the close
// endpoint.
type SessionResponse struct {
	Session        *domain.Session `json:"session"`
	NotifyEnqueued *bool           `json:"notify_enqueued,omitempty"`
}

// IngestMessageRequest carries one voice message's transcript, pre-split
// into ordered segments by the transcriber.
type IngestMessageRequest struct {
	Segments []string `json:"segments" binding:"required"`
}

// IngestMessageResponse is the created message and its stored segments.
type IngestMessageResponse struct {
	Message  *domain.Message            `json:"message"`
	Segments []domain.TranscriptSegment `json:"segments"`
}

// ListSessionMessagesResponse is the transcript read shape of a session.
type ListSessionMessagesResponse struct {
	Messages []services.MessageWithSegments `json:"messages"`
}

// CreateSession godoc
// @ID          createSession
// @Summary     Create a session
// @Tags        Sessions
// @Accept      json
// @Produce     json
// @Param       body  body      handlers.CreateSessionRequest  true  "Session payload"
// @Success     201   {object}  handlers.SuccessResponse
// @Failure     400   {object}  handlers.ErrorResponse  "Bad request"
// @Failure     500   {object}  handlers.ErrorResponse  "Internal error"
// @Router      /sessions [post]
func (h *Handlers) CreateSession(c *gin.Context) {
	ctx := c.Request.Context()

	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid session payload")
		return
	}
	if req.ProjectID != nil && !requireUUID(c, "project_id", *req.ProjectID) {
		return
	}

	sess, err := h.sessions.CreateSession(ctx, services.CreateSessionInput{
		ProjectID: req.ProjectID,
		Title:     req.Title,
		Actor:     actorFrom(c),
		Source:    sourceFrom(c),
	})
	if err != nil {
		svcFail(c, err)
		return
	}
	ok(c, http.StatusCreated, SessionResponse{Session: sess})
}

// GetSession godoc
// @ID          getSession
// @Summary     Fetch a session
// @Tags        Sessions
// @Produce     json
// @Param       id   path      string  true  "Session ID (UUID)"  format(uuid)
// @Success     200  {object}  handlers.SuccessResponse
// @Failure     404  {object}  handlers.ErrorResponse  "Session not found"
// @Router      /sessions/{id} [get]
func (h *Handlers) GetSession(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")
	if !requireUUID(c, "id", id) {
		return
	}

	sess, err := h.sessions.GetSession(ctx, id)
	if err != nil {
		svcFail(c, err)
		return
	}
	ok(c, http.StatusOK, SessionResponse{Session: sess})
}

// CloseSession godoc
// @ID          closeSession
// @Summary     Close a session
// @Description Marks the session closed and appends the notify-worthy
// @Description session_closed event. Closing twice appends twice.
// @Tags        Sessions
// @Produce     json
// @Param       id   path      string  true  "Session ID (UUID)"  format(uuid)
// @Success     200  {object}  handlers.SuccessResponse
// @Failure     404  {object}  handlers.ErrorResponse  "Session not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /sessions/{id}/close [post]
func (h *Handlers) CloseSession(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")
	if !requireUUID(c, "id", id) {
		return
	}

	res, err := h.sessions.CloseSession(ctx, id, actorFrom(c), sourceFrom(c))
	if err != nil {
		svcFail(c, err)
		return
	}
	ok(c, http.StatusOK, SessionResponse{Session: res.Session, NotifyEnqueued: &res.Enqueued})
}

// IngestMessage godoc
// @ID          ingestMessage
// @Summary     Ingest a voice message
// @Description Creates a message under the session with its transcript
// @Description segments in order. Empty segment texts are skipped.
// @Tags        Sessions
// @Accept      json
// @Produce     json
// @Param       id    path      string  true  "Session ID (UUID)"  format(uuid)
// @Param       body  body      handlers.IngestMessageRequest  true  "Transcript segments"
// @Success     201   {object}  handlers.SuccessResponse
// @Failure     400   {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404   {object}  handlers.ErrorResponse  "Session not found"
// @Failure     500   {object}  handlers.ErrorResponse  "Internal error"
// @Router      /sessions/{id}/messages [post]
func (h *Handlers) IngestMessage(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")
	if !requireUUID(c, "id", id) {
		return
	}

	var req IngestMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "segments required")
		return
	}

	msg, segs, err := h.sessions.IngestMessage(ctx, services.IngestMessageInput{
		SessionID: id,
		Segments:  req.Segments,
		Actor:     actorFrom(c),
		Source:    sourceFrom(c),
	})
	if err != nil {
		svcFail(c, err)
		return
	}
	ok(c, http.StatusCreated, IngestMessageResponse{Message: msg, Segments: segs})
}

// ListSessionMessages godoc
// @ID          listSessionMessages
// @Summary     List a session's messages with transcripts
// @Tags        Sessions
// @Produce     json
// @Param       id   path      string  true  "Session ID (UUID)"  format(uuid)
// @Success     200  {object}  handlers.SuccessResponse
// @Failure     404  {object}  handlers.ErrorResponse  "Session not found"
// @Router      /sessions/{id}/messages [get]
func (h *Handlers) ListSessionMessages(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")
	if !requireUUID(c, "id", id) {
		return
	}

	msgs, err := h.sessions.ListMessages(ctx, id)
	if err != nil {
		svcFail(c, err)
		return
	}
	ok(c, http.StatusOK, ListSessionMessagesResponse{Messages: msgs})
}

// ListSessionEvents godoc
// @ID          listSessionEvents
// @Summary     List a session's events (REST alias)
// @Description Read alias of /session_log for clients that prefer GET with
// @Description conditional requests. Supports a weak ETag derived from the
// @Description event count and newest timestamp.
// @Tags        EventLog
// @Produce     json
// @Param       id     path      string  true   "Session ID (UUID)"  format(uuid)
// @Param       limit  query     int     false  "Max events"  minimum(1) maximum(500)
// @Success     200    {object}  handlers.SuccessResponse
// @Success     304    "Not modified"
// @Failure     404    {object}  handlers.ErrorResponse  "Session not found"
// @Router      /sessions/{id}/events [get]
func (h *Handlers) ListSessionEvents(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")
	if !requireUUID(c, "id", id) {
		return
	}

	// ETag pre-check (best effort). The log is append-only, so count plus
	// newest timestamp fully identifies its state.
	if count, maxTS, err := repo.EventStats(ctx, h.events.DB, id); err == nil {
		var ts int64
		if maxTS != nil {
			ts = maxTS.Unix()
		}
		etag := fmt.Sprintf(`W/"events:%s:%d:%d"`, id, count, ts)
		c.Header("ETag", etag)
		if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
			c.Status(http.StatusNotModified)
			return
		}
	}

	limit := utils.AtoiDefault(c.Query("limit"), 0)
	events, err := h.events.List(ctx, id, limit)
	if err != nil {
		svcFail(c, err)
		return
	}
	ok(c, http.StatusOK, SessionLogResponse{Events: events})
}
