package owners

import (
	"context"

	id "github.com/navigategovuk/telldoug2-sub001/pkg/domain"
)

// Store persists owning entities and applies moderation outcomes to
// them. Lookups are organization-scoped; a missing entity is reported
// as sentinel.ErrNotFound.
type Store interface {
	CreateMessage(ctx context.Context, message *Message) error
	GetMessage(ctx context.Context, orgID id.OrgID, messageID string) (*Message, error)
	// SetMessageModeration copies the decision onto the message and
	// sets its visibility.
	SetMessageModeration(ctx context.Context, orgID id.OrgID, messageID string, decision string, visibility Visibility) error

	CreateDocument(ctx context.Context, document *Document) error
	GetDocument(ctx context.Context, orgID id.OrgID, documentID string) (*Document, error)
	// SetDocumentModeration copies the decision onto the document.
	SetDocumentModeration(ctx context.Context, orgID id.OrgID, documentID string, decision string) error

	CreateApplication(ctx context.Context, application *Application) error
	GetApplication(ctx context.Context, orgID id.OrgID, applicationID string) (*Application, error)
	// SetApplicationModeration copies the decision onto the
	// application and, when status is non-empty, moves the
	// application to it.
	SetApplicationModeration(ctx context.Context, orgID id.OrgID, applicationID string, decision string, status ApplicationStatus) error
}
