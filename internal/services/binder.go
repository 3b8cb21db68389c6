// Package services – actor/target binder.
//
// Heterogeneous caller contexts (authenticated web user, Telegram identity,
// internal service) are normalized into the canonical Actor shape before an
// event is logged, and mutation targets are normalized into the canonical
// Target shape. Binding is deliberately non-blocking: an unrecognizable
// performer degrades to an "unknown" actor and an unknown entity type is
// passed through with a warning flag, because actor/target binding must
// never prevent a mutation from being logged.
package services

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/voxops/go-voicelog-backend/internal/domain"
)

// Performer carries whatever identity material the transport layer could
// extract from the request. Zero or more fields may be set; precedence is
// user > telegram > service.
type Performer struct {
	UserID   string
	UserName string

	TelegramID       string
	TelegramUsername string

	ServiceName string
}

var displayCaser = cases.Title(language.English)

// BuildActor normalizes a performer into the canonical actor shape. It
// never fails: an empty performer yields {type: unknown}.
func BuildActor(p Performer) domain.Actor {
	switch {
	case p.UserID != "":
		return domain.Actor{
			Type:        domain.ActorUser,
			ID:          "usr_" + p.UserID,
			DisplayName: strings.TrimSpace(p.UserName),
		}
	case p.TelegramID != "":
		name := strings.TrimSpace(p.TelegramUsername)
		if name != "" && !strings.HasPrefix(name, "@") {
			name = "@" + name
		}
		return domain.Actor{
			Type:        domain.ActorTelegram,
			ID:          "tg_" + p.TelegramID,
			DisplayName: name,
		}
	case p.ServiceName != "":
		return domain.Actor{
			Type:        domain.ActorService,
			ID:          "svc_" + p.ServiceName,
			DisplayName: serviceDisplayName(p.ServiceName),
		}
	default:
		return domain.Actor{Type: domain.ActorUnknown}
	}
}

// serviceDisplayName turns a machine identifier like "categorization-worker"
// into a human-readable label ("Categorization Worker").
func serviceDisplayName(name string) string {
	s := strings.NewReplacer("-", " ", "_", " ").Replace(name)
	return displayCaser.String(strings.TrimSpace(s))
}

// knownEntityTypes is the target taxonomy the binder validates against.
var knownEntityTypes = map[string]struct{}{
	domain.EntityTranscriptSegment: {},
	domain.EntitySession:           {},
	domain.EntityMessage:           {},
	domain.EntityProjectAssignment: {},
	domain.EntityCategorization:    {},
}

// BuildTarget normalizes the entity/sub-path being mutated. Unknown entity
// types are passed through with Warning set rather than rejected, keeping
// the log append-only and non-blocking for new upstream entity kinds.
func BuildTarget(entityType, entityID, path string) domain.Target {
	_, known := knownEntityTypes[entityType]
	return domain.Target{
		EntityType: entityType,
		EntityID:   entityID,
		Path:       path,
		Warning:    !known,
	}
}
