package policy

import (
	"context"

	id "github.com/navigategovuk/telldoug2-sub001/pkg/domain"
)

// Store persists policy versions. Implementations must honor the
// single-active-version-per-organization invariant under the publish
// sequence the service drives (lock, read max, deactivate, insert).
type Store interface {
	// AcquirePublishLock serializes publishes for one organization. It
	// must be called inside a transaction; the lock is released on commit
	// or rollback.
	AcquirePublishLock(ctx context.Context, orgID id.OrgID) error

	// MaxVersionNumber returns the highest version number published for
	// the organization, or 0 if none exist.
	MaxVersionNumber(ctx context.Context, orgID id.OrgID) (int, error)

	// DeactivateActive clears the active flag on the organization's
	// currently active version, if any.
	DeactivateActive(ctx context.Context, orgID id.OrgID) error

	// CreateVersion inserts a new policy version row.
	CreateVersion(ctx context.Context, version *Version) error

	// ActiveVersion returns the organization's active version, or
	// sentinel.ErrNotFound when none is active. When more than one row is
	// flagged active the highest version number wins.
	ActiveVersion(ctx context.Context, orgID id.OrgID) (*Version, error)

	// ListVersions returns all versions for the organization, newest
	// first.
	ListVersions(ctx context.Context, orgID id.OrgID) ([]*Version, error)
}
