// Event log HTTP handlers.
//
// This file exposes the log read path plus the raw append and replay
// endpoints:
//   - POST /session_log                  (list a session's events, newest first)
//   - POST /append_event                 (raw append for upstream processors)
//   - POST /rollback_event               (restore the state a source event replaced)
//   - POST /resend_notify_event          (re-enqueue a logged notification)
//   - POST /retry_categorization_event   (re-run categorization for a source event)
//   - POST /retry_categorization_chunk   (re-run categorization for one segment)
//
// All routes are POST with JSON bodies, mirroring the upstream gateway's
// RPC-over-POST convention.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/voxops/go-voicelog-backend/internal/domain"
	"github.com/voxops/go-voicelog-backend/internal/http/middleware"
	"github.com/voxops/go-voicelog-backend/internal/services"
)

//
// DTOs
//

// SessionLogRequest selects a session's events.
type SessionLogRequest struct {
	// SessionID is the session whose log is read.
	SessionID string `json:"session_id" binding:"required" format:"uuid"`
	// Limit caps the number of returned events; the server clamps it.
	Limit int `json:"limit"`
}

// SessionLogResponse is a page of events, newest first.
type SessionLogResponse struct {
	Events []domain.SessionLogEvent `json:"events"`
}

// AppendEventRequest is the raw append payload used by upstream processors
// (transcribers, categorizers) that log their own domain events.
type AppendEventRequest struct {
	SessionID     string                `json:"session_id" binding:"required" format:"uuid"`
	MessageID     *string               `json:"message_id,omitempty"`
	EventName     string                `json:"event_name" binding:"required" example:"notify_requested"`
	Target        *domain.Target        `json:"target,omitempty"`
	Metadata      *domain.EventMetadata `json:"metadata,omitempty"`
	Reason        string                `json:"reason,omitempty"`
	CorrelationID *string               `json:"correlation_id,omitempty"`
}

// EventResponse wraps one appended event. NotifyEnqueued is only meaningful
// on endpoints that attempt a queue publish.
type EventResponse struct {
	Event          *domain.SessionLogEvent `json:"event"`
	NotifyEnqueued *bool                   `json:"notify_enqueued,omitempty"`
}

// ReplayRequest identifies the source event of a rollback/resend/retry.
type ReplayRequest struct {
	SessionID     string `json:"session_id" binding:"required" format:"uuid"`
	SourceEventID string `json:"source_event_id" binding:"required" format:"uuid"`
	Reason        string `json:"reason,omitempty"`
}

// SegmentRetryRequest identifies one segment for a categorization retry.
type SegmentRetryRequest struct {
	SessionID string `json:"session_id" binding:"required" format:"uuid"`
	MessageID string `json:"message_id" binding:"required" format:"uuid"`
	SegmentID string `json:"segment_id" binding:"required" format:"uuid"`
	Reason    string `json:"reason,omitempty"`
}

//
// Helpers
//

// svcFail maps a service sentinel error to its HTTP response. The mapping is
// the single place where the result taxonomy meets status codes.
func svcFail(c *gin.Context, err error) {
	switch err {
	case services.ErrValidation:
		fail(c, http.StatusBadRequest, ErrCodeValidation, "request validation failed")
	case services.ErrSessionNotFound:
		fail(c, http.StatusNotFound, ErrCodeNotFound, "session not found")
	case services.ErrEventNotFound:
		fail(c, http.StatusNotFound, ErrCodeNotFound, "event not found")
	case services.ErrMessageNotFound:
		fail(c, http.StatusNotFound, ErrCodeNotFound, "message not found")
	case services.ErrSegmentNotFound:
		fail(c, http.StatusNotFound, ErrCodeNotFound, "segment not found")
	case services.ErrNotRollbackable:
		fail(c, http.StatusBadRequest, ErrCodeInvalidState, "event type cannot be rolled back")
	case services.ErrNoNotifyMetadata:
		fail(c, http.StatusBadRequest, ErrCodeInvalidState, "event carries no notify metadata")
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
	}
}

// requireUUID validates one id field at the edge, failing with a field-level
// detail when malformed.
func requireUUID(c *gin.Context, field, value string) bool {
	if _, err := uuid.Parse(value); err != nil {
		failWith(c, http.StatusBadRequest, ErrCodeValidation, field+" must be a UUID",
			map[string]any{"field": field})
		return false
	}
	return true
}

// recordAppend updates the domain metrics after a successful append.
func recordAppend(ev *domain.SessionLogEvent, enqueueAttempted, enqueued bool) {
	middleware.CountEventAppended(ev.EventGroup)
	if enqueueAttempted && !enqueued {
		middleware.CountNotifyEnqueueFailure()
	}
}

//
// Handlers
//

// SessionLog godoc
// @ID          sessionLog
// @Summary     Read a session's event log
// @Description Returns the session's events newest first, capped by limit.
// @Tags        EventLog
// @Accept      json
// @Produce     json
// @Param       body  body      handlers.SessionLogRequest  true  "Log selector"
// @Success     200   {object}  handlers.SuccessResponse
// @Failure     400   {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404   {object}  handlers.ErrorResponse  "Session not found"
// @Failure     500   {object}  handlers.ErrorResponse  "Internal error"
// @Router      /session_log [post]
func (h *Handlers) SessionLog(c *gin.Context) {
	ctx := c.Request.Context()

	var req SessionLogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "session_id required")
		return
	}
	if !requireUUID(c, "session_id", req.SessionID) {
		return
	}

	events, err := h.events.List(ctx, req.SessionID, req.Limit)
	if err != nil {
		svcFail(c, err)
		return
	}
	ok(c, http.StatusOK, SessionLogResponse{Events: events})
}

// AppendEvent godoc
// @ID          appendEvent
// @Summary     Append a raw event
// @Description Appends one immutable event to a session's log. Intended for
// @Description upstream processors; transcript mutations have dedicated routes.
// @Tags        EventLog
// @Accept      json
// @Produce     json
// @Param       body  body      handlers.AppendEventRequest  true  "Event payload"
// @Success     201   {object}  handlers.SuccessResponse
// @Failure     400   {object}  handlers.ErrorResponse  "Validation failed"
// @Failure     404   {object}  handlers.ErrorResponse  "Session not found"
// @Failure     500   {object}  handlers.ErrorResponse  "Internal error"
// @Router      /append_event [post]
func (h *Handlers) AppendEvent(c *gin.Context) {
	ctx := c.Request.Context()

	var req AppendEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "session_id and event_name required")
		return
	}
	if !requireUUID(c, "session_id", req.SessionID) {
		return
	}
	if req.MessageID != nil && !requireUUID(c, "message_id", *req.MessageID) {
		return
	}

	meta := domain.EventMetadata{}
	if req.Metadata != nil {
		meta = *req.Metadata
	}

	ev, enqueued, err := h.events.Append(ctx, services.AppendInput{
		SessionID:     req.SessionID,
		MessageID:     req.MessageID,
		EventName:     req.EventName,
		Actor:         actorFrom(c),
		Source:        sourceFrom(c),
		Target:        req.Target,
		Action:        domain.NoAction(),
		Reason:        reasonPtr(req.Reason),
		CorrelationID: req.CorrelationID,
		Metadata:      meta,
	})
	if err != nil {
		svcFail(c, err)
		return
	}

	notifyWorthy := domain.IsNotifyWorthy(ev.EventName)
	recordAppend(ev, notifyWorthy, enqueued)

	resp := EventResponse{Event: ev}
	if notifyWorthy {
		resp.NotifyEnqueued = &enqueued
	}
	ok(c, http.StatusCreated, resp)
}

// RollbackEvent godoc
// @ID          rollbackEvent
// @Summary     Roll back a transcript mutation
// @Description Restores the state the source event replaced and appends a
// @Description linked transcript_segment_restored event. The source event is
// @Description never modified; repeating the call appends another event.
// @Tags        Replay
// @Accept      json
// @Produce     json
// @Param       body  body      handlers.ReplayRequest  true  "Source event selector"
// @Success     201   {object}  handlers.SuccessResponse
// @Failure     400   {object}  handlers.ErrorResponse  "Not rollback-able"
// @Failure     404   {object}  handlers.ErrorResponse  "Session or event not found"
// @Failure     500   {object}  handlers.ErrorResponse  "Internal error"
// @Router      /rollback_event [post]
func (h *Handlers) RollbackEvent(c *gin.Context) {
	ctx := c.Request.Context()

	req, okReq := bindReplay(c)
	if !okReq {
		return
	}

	ev, err := h.rollback.Rollback(ctx, services.ReplayInput{
		SessionID:     req.SessionID,
		SourceEventID: req.SourceEventID,
		Reason:        reasonPtr(req.Reason),
		Actor:         actorFrom(c),
		Source:        sourceFrom(c),
	})
	if err != nil {
		svcFail(c, err)
		return
	}
	recordAppend(ev, false, false)
	ok(c, http.StatusCreated, EventResponse{Event: ev})
}

// ResendNotifyEvent godoc
// @ID          resendNotifyEvent
// @Summary     Re-enqueue a logged notification
// @Description Appends a notify_resent replay event and publishes the notify
// @Description job again. A queue failure still returns 201 with
// @Description notify_enqueued=false.
// @Tags        Replay
// @Accept      json
// @Produce     json
// @Param       body  body      handlers.ReplayRequest  true  "Source event selector"
// @Success     201   {object}  handlers.SuccessResponse
// @Failure     400   {object}  handlers.ErrorResponse  "No notify metadata"
// @Failure     404   {object}  handlers.ErrorResponse  "Session or event not found"
// @Failure     500   {object}  handlers.ErrorResponse  "Internal error"
// @Router      /resend_notify_event [post]
func (h *Handlers) ResendNotifyEvent(c *gin.Context) {
	ctx := c.Request.Context()

	req, okReq := bindReplay(c)
	if !okReq {
		return
	}

	res, err := h.rollback.ResendNotify(ctx, services.ReplayInput{
		SessionID:     req.SessionID,
		SourceEventID: req.SourceEventID,
		Reason:        reasonPtr(req.Reason),
		Actor:         actorFrom(c),
		Source:        sourceFrom(c),
	})
	if err != nil {
		svcFail(c, err)
		return
	}
	recordAppend(res.Event, true, res.Enqueued)
	ok(c, http.StatusCreated, EventResponse{Event: res.Event, NotifyEnqueued: &res.Enqueued})
}

// RetryCategorizationEvent godoc
// @ID          retryCategorizationEvent
// @Summary     Re-run categorization for a source event
// @Tags        Replay
// @Accept      json
// @Produce     json
// @Param       body  body      handlers.ReplayRequest  true  "Source event selector"
// @Success     201   {object}  handlers.SuccessResponse
// @Failure     400   {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404   {object}  handlers.ErrorResponse  "Session or event not found"
// @Failure     500   {object}  handlers.ErrorResponse  "Internal error"
// @Router      /retry_categorization_event [post]
func (h *Handlers) RetryCategorizationEvent(c *gin.Context) {
	ctx := c.Request.Context()

	req, okReq := bindReplay(c)
	if !okReq {
		return
	}

	res, err := h.rollback.RetryCategorization(ctx, services.ReplayInput{
		SessionID:     req.SessionID,
		SourceEventID: req.SourceEventID,
		Reason:        reasonPtr(req.Reason),
		Actor:         actorFrom(c),
		Source:        sourceFrom(c),
	})
	if err != nil {
		svcFail(c, err)
		return
	}
	recordAppend(res.Event, true, res.Enqueued)
	ok(c, http.StatusCreated, EventResponse{Event: res.Event, NotifyEnqueued: &res.Enqueued})
}

// RetryCategorizationChunk godoc
// @ID          retryCategorizationChunk
// @Summary     Re-run categorization for one transcript segment
// @Tags        Replay
// @Accept      json
// @Produce     json
// @Param       body  body      handlers.SegmentRetryRequest  true  "Segment selector"
// @Success     201   {object}  handlers.SuccessResponse
// @Failure     400   {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404   {object}  handlers.ErrorResponse  "Session, message, or segment not found"
// @Failure     500   {object}  handlers.ErrorResponse  "Internal error"
// @Router      /retry_categorization_chunk [post]
func (h *Handlers) RetryCategorizationChunk(c *gin.Context) {
	ctx := c.Request.Context()

	var req SegmentRetryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "session_id, message_id and segment_id required")
		return
	}
	if !requireUUID(c, "session_id", req.SessionID) ||
		!requireUUID(c, "message_id", req.MessageID) ||
		!requireUUID(c, "segment_id", req.SegmentID) {
		return
	}

	res, err := h.rollback.RetryCategorizationSegment(ctx, services.SegmentRetryInput{
		SessionID: req.SessionID,
		MessageID: req.MessageID,
		SegmentID: req.SegmentID,
		Reason:    reasonPtr(req.Reason),
		Actor:     actorFrom(c),
		Source:    sourceFrom(c),
	})
	if err != nil {
		svcFail(c, err)
		return
	}
	recordAppend(res.Event, true, res.Enqueued)
	ok(c, http.StatusCreated, EventResponse{Event: res.Event, NotifyEnqueued: &res.Enqueued})
}

// bindReplay binds and validates the shared replay request shape.
func bindReplay(c *gin.Context) (ReplayRequest, bool) {
	var req ReplayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "session_id and source_event_id required")
		return req, false
	}
	if !requireUUID(c, "session_id", req.SessionID) {
		return req, false
	}
	if !requireUUID(c, "source_event_id", req.SourceEventID) {
		return req, false
	}
	return req, true
}
