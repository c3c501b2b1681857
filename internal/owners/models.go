// Package owners holds the entities that moderation decisions attach
// to: messages, documents, and applications. Each carries a
// denormalized copy of its latest moderation decision so the portal can
// filter without joining the moderation tables.
package owners

import (
	"time"

	id "github.com/navigategovuk/telldoug2-sub001/pkg/domain"
)

// Visibility controls whether a message is shown to its audience.
type Visibility string

const (
	VisibilityVisible Visibility = "visible"
	VisibilityHidden  Visibility = "hidden"
)

// ApplicationStatus is the caseworker-facing state of an application.
type ApplicationStatus string

const (
	StatusSubmitted ApplicationStatus = "submitted"
	StatusInReview  ApplicationStatus = "in_review"
	StatusNeedsInfo ApplicationStatus = "needs_info"
	StatusDecided   ApplicationStatus = "decided"
)

// Message is a thread message between an applicant and caseworkers.
// Visibility and ModerationDecision track the latest moderation outcome
// for the message.
type Message struct {
	ID                 string
	OrgID              id.OrgID
	SenderUserID       id.UserID
	Body               string
	Visibility         Visibility
	ModerationDecision string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Document is an uploaded supporting document.
type Document struct {
	ID                 string
	OrgID              id.OrgID
	UploadedByUserID   id.UserID
	FileName           string
	ModerationDecision string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Application is a housing application. Status moves asymmetrically on
// moderation overrides of its free-text fields: approval returns it to
// review, a block requests more information, and pending review leaves
// it untouched.
type Application struct {
	ID                 string
	OrgID              id.OrgID
	ApplicantUserID    id.UserID
	Status             ApplicationStatus
	ModerationDecision string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}
