package testutil

import (
	"net/http"

	id "github.com/navigategovuk/telldoug2-sub001/pkg/domain"
	"github.com/navigategovuk/telldoug2-sub001/pkg/requestcontext"
)

// WithOrgID adds an organization scope to the request context.
// This simulates what the auth middleware would do for authenticated requests.
// If the orgID is not a valid UUID, it will not be added to the context.
func WithOrgID(req *http.Request, orgID string) *http.Request {
	if parsedOrgID, err := id.ParseOrgID(orgID); err == nil {
		return req.WithContext(requestcontext.WithOrgID(req.Context(), parsedOrgID))
	}
	return req
}

// WithUserID adds a user ID to the request context.
// If the userID is not a valid UUID, it will not be added to the context.
func WithUserID(req *http.Request, userID string) *http.Request {
	if parsedUserID, err := id.ParseUserID(userID); err == nil {
		return req.WithContext(requestcontext.WithUserID(req.Context(), parsedUserID))
	}
	return req
}

// WithAuth adds both organization and user IDs to the request context.
// This is the typical state for an authenticated request.
// Invalid IDs are silently ignored.
func WithAuth(req *http.Request, orgID, userID string) *http.Request {
	ctx := req.Context()
	if orgID != "" {
		if parsedOrgID, err := id.ParseOrgID(orgID); err == nil {
			ctx = requestcontext.WithOrgID(ctx, parsedOrgID)
		}
	}
	if userID != "" {
		if parsedUserID, err := id.ParseUserID(userID); err == nil {
			ctx = requestcontext.WithUserID(ctx, parsedUserID)
		}
	}
	return req.WithContext(ctx)
}

// WithCorrelationID adds a correlation ID to the request context.
func WithCorrelationID(req *http.Request, correlationID string) *http.Request {
	return req.WithContext(requestcontext.WithCorrelationID(req.Context(), correlationID))
}
