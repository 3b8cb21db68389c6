// Performer and source extraction.
//
// The API is fronted by a gateway that authenticates callers and forwards
// their identity as headers; handlers never see credentials. This file turns
// those headers into the binder's Performer shape and derives the source
// document recorded on every event.
package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/voxops/go-voicelog-backend/internal/domain"
	"github.com/voxops/go-voicelog-backend/internal/services"
)

// performerFrom reads the forwarded identity headers. Precedence matches the
// binder: user > telegram > service.
func performerFrom(c *gin.Context) services.Performer {
	return services.Performer{
		UserID:           strings.TrimSpace(c.GetHeader("X-User-ID")),
		UserName:         strings.TrimSpace(c.GetHeader("X-User-Name")),
		TelegramID:       strings.TrimSpace(c.GetHeader("X-Telegram-ID")),
		TelegramUsername: strings.TrimSpace(c.GetHeader("X-Telegram-Username")),
		ServiceName:      strings.TrimSpace(c.GetHeader("X-Service-Name")),
	}
}

// actorFrom binds the request's performer into the canonical actor shape.
func actorFrom(c *gin.Context) domain.Actor {
	return services.BuildActor(performerFrom(c))
}

// sourceFrom derives the origin document recorded on events. The channel
// follows the performer kind; the referer, when present, is kept as the
// reference so the audit UI can link back to the page that triggered the
// mutation.
func sourceFrom(c *gin.Context) domain.Source {
	p := performerFrom(c)
	channel := "web"
	switch {
	case p.TelegramID != "":
		channel = "telegram"
	case p.ServiceName != "":
		channel = "api"
	}
	return domain.Source{
		Channel:   channel,
		Transport: "http",
		Reference: strings.TrimSpace(c.Request.Referer()),
	}
}

// reasonPtr trims an optional reason field; empty becomes nil so the column
// stays NULL rather than "".
func reasonPtr(raw string) *string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}
	return &s
}
