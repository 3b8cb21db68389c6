// Transcript mutation HTTP handlers.
//
// This file exposes the two segment mutation endpoints:
//   - POST /edit_transcript_chunk    (replace a segment's text)
//   - POST /delete_transcript_chunk  (soft-delete a segment)
//
// Both mutate the segment row and append a rollback-able event carrying the
// previous content. The response is the appended event; clients read the
// action block to learn whether rollback is available.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/voxops/go-voicelog-backend/internal/services"
)

// EditChunkRequest is the payload for replacing a segment's text.
type EditChunkRequest struct {
	SessionID string `json:"session_id" binding:"required" format:"uuid"`
	MessageID string `json:"message_id" binding:"required" format:"uuid"`
	SegmentID string `json:"segment_id" binding:"required" format:"uuid"`
	// Text is the replacement content. Must be non-empty after trimming.
	Text   string `json:"text" binding:"required,min=1"`
	Reason string `json:"reason,omitempty"`
}

// DeleteChunkRequest is the payload for soft-deleting a segment.
type DeleteChunkRequest struct {
	SessionID string `json:"session_id" binding:"required" format:"uuid"`
	MessageID string `json:"message_id" binding:"required" format:"uuid"`
	SegmentID string `json:"segment_id" binding:"required" format:"uuid"`
	Reason    string `json:"reason,omitempty"`
}

// EditTranscriptChunk godoc
// @ID          editTranscriptChunk
// @Summary     Edit a transcript segment
// @Description Replaces the segment's text and appends a rollback-able
// @Description transcript_segment_edited event carrying the previous content.
// @Tags        Transcript
// @Accept      json
// @Produce     json
// @Param       body  body      handlers.EditChunkRequest  true  "Edit payload"
// @Success     201   {object}  handlers.SuccessResponse
// @Failure     400   {object}  handlers.ErrorResponse  "Validation failed"
// @Failure     404   {object}  handlers.ErrorResponse  "Session, message, or segment not found"
// @Failure     500   {object}  handlers.ErrorResponse  "Internal error"
// @Router      /edit_transcript_chunk [post]
func (h *Handlers) EditTranscriptChunk(c *gin.Context) {
	ctx := c.Request.Context()

	var req EditChunkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "session_id, message_id, segment_id and text required")
		return
	}
	if !requireUUID(c, "session_id", req.SessionID) ||
		!requireUUID(c, "message_id", req.MessageID) ||
		!requireUUID(c, "segment_id", req.SegmentID) {
		return
	}

	ev, err := h.transcript.EditSegment(ctx, services.SegmentMutation{
		SessionID: req.SessionID,
		MessageID: req.MessageID,
		SegmentID: req.SegmentID,
		Text:      req.Text,
		Reason:    reasonPtr(req.Reason),
		Actor:     actorFrom(c),
		Source:    sourceFrom(c),
	})
	if err != nil {
		svcFail(c, err)
		return
	}
	recordAppend(ev, false, false)
	ok(c, http.StatusCreated, EventResponse{Event: ev})
}

// DeleteTranscriptChunk godoc
// @ID          deleteTranscriptChunk
// @Summary     Delete a transcript segment
// @Description Soft-deletes the segment and appends a rollback-able
// @Description transcript_segment_deleted event carrying the removed content.
// @Tags        Transcript
// @Accept      json
// @Produce     json
// @Param       body  body      handlers.DeleteChunkRequest  true  "Delete payload"
// @Success     201   {object}  handlers.SuccessResponse
// @Failure     400   {object}  handlers.ErrorResponse  "Validation failed"
// @Failure     404   {object}  handlers.ErrorResponse  "Session, message, or segment not found"
// @Failure     500   {object}  handlers.ErrorResponse  "Internal error"
// @Router      /delete_transcript_chunk [post]
func (h *Handlers) DeleteTranscriptChunk(c *gin.Context) {
	ctx := c.Request.Context()

	var req DeleteChunkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "session_id, message_id and segment_id required")
		return
	}
	if !requireUUID(c, "session_id", req.SessionID) ||
		!requireUUID(c, "message_id", req.MessageID) ||
		!requireUUID(c, "segment_id", req.SegmentID) {
		return
	}

	ev, err := h.transcript.DeleteSegment(ctx, services.SegmentMutation{
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
	recordAppend(ev, false, false)
	ok(c, http.StatusCreated, EventResponse{Event: ev})
}
