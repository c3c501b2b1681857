// Package audit defines the portal-wide audit trail. Domain services emit
// events through a Publisher; sinks (Postgres, Kafka) persist and fan them
// out. Events are append-only and transport-agnostic.
package audit

import (
	"time"

	id "github.com/navigategovuk/telldoug2-sub001/pkg/domain"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	EventType     string
	EntityType    string
	EntityID      string
	OrgID         id.OrgID
	ActorUserID   *id.UserID // nil = system
	Metadata      map[string]any
	CorrelationID string
	Timestamp     time.Time
}

// Event types emitted by the moderation core.
const (
	EventModerationEvaluated = "moderation.evaluated"
	EventModerationOverride  = "moderation.override"
	EventPolicyPublished     = "policy.published"
	EventAIFallback          = "ai.fallback"
)

// Entity types referenced by audit events.
const (
	EntityModerationItem = "moderation_item"
	EntityPolicyVersion  = "policy_version"
)
