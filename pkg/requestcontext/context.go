// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values. Middleware sets them; services read them. Keeping
// the package free of net/http lets services import only what they need.
//
// Usage in services (read values):
//
//	orgID := requestcontext.OrgID(ctx)
//	correlationID := requestcontext.CorrelationID(ctx)
//	now := requestcontext.Now(ctx)
//
// Usage in tests (inject values):
//
//	ctx = requestcontext.WithTime(ctx, fixedTime)
//	ctx = requestcontext.WithOrgID(ctx, orgID)
package requestcontext

import (
	"context"
	"time"

	id "github.com/navigategovuk/telldoug2-sub001/pkg/domain"
)

type (
	orgIDKey         struct{}
	userIDKey        struct{}
	correlationIDKey struct{}
	requestTimeKey   struct{}
)

// Exported context keys for tests that need raw context.WithValue.
var (
	ContextKeyOrgID         = orgIDKey{}
	ContextKeyUserID        = userIDKey{}
	ContextKeyCorrelationID = correlationIDKey{}
	ContextKeyRequestTime   = requestTimeKey{}
)

// OrgID retrieves the caller's organization scope from the context.
// Returns the zero value if not set.
func OrgID(ctx context.Context) id.OrgID {
	if orgID, ok := ctx.Value(ContextKeyOrgID).(id.OrgID); ok {
		return orgID
	}
	return id.OrgID{}
}

// WithOrgID injects an organization ID into the context.
func WithOrgID(ctx context.Context, orgID id.OrgID) context.Context {
	return context.WithValue(ctx, ContextKeyOrgID, orgID)
}

// UserID retrieves the authenticated user ID from the context.
// Returns the zero value if not set.
func UserID(ctx context.Context) id.UserID {
	if userID, ok := ctx.Value(ContextKeyUserID).(id.UserID); ok {
		return userID
	}
	return id.UserID{}
}

// WithUserID injects a user ID into the context.
func WithUserID(ctx context.Context, userID id.UserID) context.Context {
	return context.WithValue(ctx, ContextKeyUserID, userID)
}

// CorrelationID retrieves the request correlation ID from the context.
// Every moderation evaluation and audit write carries it for cross-system
// tracing.
func CorrelationID(ctx context.Context) string {
	if cid, ok := ctx.Value(ContextKeyCorrelationID).(string); ok {
		return cid
	}
	return ""
}

// WithCorrelationID injects a correlation ID into the context.
func WithCorrelationID(ctx context.Context, correlationID string) context.Context {
	return context.WithValue(ctx, ContextKeyCorrelationID, correlationID)
}

// Now retrieves the request-scoped time from context. Falls back to
// time.Now() for non-HTTP contexts (workers, CLI, tests).
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(ContextKeyRequestTime).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context. Useful for service unit
// tests that don't run the full HTTP middleware chain.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, ContextKeyRequestTime, t)
}
