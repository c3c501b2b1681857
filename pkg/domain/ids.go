// Package domain defines typed identifiers shared across the portal's
// moderation core. Typed IDs prevent cross-type assignment mistakes (an
// organization ID can never be passed where a moderation item ID is
// expected) and keep tenant scoping explicit in every signature.
package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// OrgID identifies an organization (tenant).
type OrgID uuid.UUID

// UserID identifies a portal user (applicant, caseworker, or admin).
type UserID uuid.UUID

// ModerationItemID identifies a persisted moderation evaluation record.
type ModerationItemID uuid.UUID

// ModerationEventID identifies an entry in the append-only moderation log.
type ModerationEventID uuid.UUID

// PolicyVersionID identifies a published rule-set version.
type PolicyVersionID uuid.UUID

func (id OrgID) String() string             { return uuid.UUID(id).String() }
func (id UserID) String() string            { return uuid.UUID(id).String() }
func (id ModerationItemID) String() string  { return uuid.UUID(id).String() }
func (id ModerationEventID) String() string { return uuid.UUID(id).String() }
func (id PolicyVersionID) String() string   { return uuid.UUID(id).String() }

func (id OrgID) IsNil() bool            { return uuid.UUID(id) == uuid.Nil }
func (id UserID) IsNil() bool           { return uuid.UUID(id) == uuid.Nil }
func (id ModerationItemID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id PolicyVersionID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }

// NewOrgID returns a random organization ID.
func NewOrgID() OrgID { return OrgID(uuid.New()) }

// NewUserID returns a random user ID.
func NewUserID() UserID { return UserID(uuid.New()) }

// NewModerationItemID returns a random moderation item ID.
func NewModerationItemID() ModerationItemID { return ModerationItemID(uuid.New()) }

// NewModerationEventID returns a random moderation event ID.
func NewModerationEventID() ModerationEventID { return ModerationEventID(uuid.New()) }

// NewPolicyVersionID returns a random policy version ID.
func NewPolicyVersionID() PolicyVersionID { return PolicyVersionID(uuid.New()) }

// ParseOrgID parses a UUID string into an OrgID.
func ParseOrgID(s string) (OrgID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return OrgID{}, fmt.Errorf("parse org id: %w", err)
	}
	return OrgID(u), nil
}

// ParseUserID parses a UUID string into a UserID.
func ParseUserID(s string) (UserID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return UserID{}, fmt.Errorf("parse user id: %w", err)
	}
	return UserID(u), nil
}

// ParseModerationItemID parses a UUID string into a ModerationItemID.
func ParseModerationItemID(s string) (ModerationItemID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return ModerationItemID{}, fmt.Errorf("parse moderation item id: %w", err)
	}
	return ModerationItemID(u), nil
}

// ParsePolicyVersionID parses a UUID string into a PolicyVersionID.
func ParsePolicyVersionID(s string) (PolicyVersionID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return PolicyVersionID{}, fmt.Errorf("parse policy version id: %w", err)
	}
	return PolicyVersionID(u), nil
}

// Text marshalling renders IDs as canonical UUID strings in JSON and
// cache payloads.

func (id OrgID) MarshalText() ([]byte, error)             { return uuid.UUID(id).MarshalText() }
func (id UserID) MarshalText() ([]byte, error)            { return uuid.UUID(id).MarshalText() }
func (id ModerationItemID) MarshalText() ([]byte, error)  { return uuid.UUID(id).MarshalText() }
func (id ModerationEventID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id PolicyVersionID) MarshalText() ([]byte, error)   { return uuid.UUID(id).MarshalText() }

func (id *OrgID) UnmarshalText(text []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(text)
}

func (id *UserID) UnmarshalText(text []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(text)
}

func (id *ModerationItemID) UnmarshalText(text []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(text)
}

func (id *ModerationEventID) UnmarshalText(text []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(text)
}

func (id *PolicyVersionID) UnmarshalText(text []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(text)
}
