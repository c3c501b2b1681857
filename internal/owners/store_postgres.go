package owners

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	id "github.com/navigategovuk/telldoug2-sub001/pkg/domain"
	"github.com/navigategovuk/telldoug2-sub001/pkg/platform/sentinel"
	txcontext "github.com/navigategovuk/telldoug2-sub001/pkg/platform/tx"
)

// PostgresStore persists owning entities in PostgreSQL. Moderation
// mutations join a caller-owned transaction from context so the
// denormalized decision commits atomically with the moderation event
// that caused it.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) querier(ctx context.Context) dbQuerier {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) CreateMessage(ctx context.Context, message *Message) error {
	_, err := s.querier(ctx).ExecContext(ctx,
		`INSERT INTO messages (id, organization_id, sender_user_id, body, visibility, moderation_decision, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $7)`,
		message.ID, uuid.UUID(message.OrgID), uuid.UUID(message.SenderUserID),
		message.Body, string(message.Visibility), nullIfEmpty(message.ModerationDecision),
		message.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create message: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetMessage(ctx context.Context, orgID id.OrgID, messageID string) (*Message, error) {
	var (
		message  Message
		orgUUID  uuid.UUID
		userUUID uuid.UUID
		decision sql.NullString
	)
	err := s.querier(ctx).QueryRowContext(ctx,
		`SELECT id, organization_id, sender_user_id, body, visibility, moderation_decision, created_at, updated_at
		 FROM messages WHERE organization_id = $1 AND id = $2`,
		uuid.UUID(orgID), messageID,
	).Scan(&message.ID, &orgUUID, &userUUID, &message.Body, &message.Visibility,
		&decision, &message.CreatedAt, &message.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get message: %w", err)
	}
	message.OrgID = id.OrgID(orgUUID)
	message.SenderUserID = id.UserID(userUUID)
	message.ModerationDecision = decision.String
	return &message, nil
}

func (s *PostgresStore) SetMessageModeration(ctx context.Context, orgID id.OrgID, messageID string, decision string, visibility Visibility) error {
	result, err := s.querier(ctx).ExecContext(ctx,
		`UPDATE messages SET moderation_decision = $3, visibility = $4, updated_at = NOW()
		 WHERE organization_id = $1 AND id = $2`,
		uuid.UUID(orgID), messageID, decision, string(visibility),
	)
	if err != nil {
		return fmt.Errorf("set message moderation: %w", err)
	}
	return requireRow(result, "set message moderation")
}

func (s *PostgresStore) CreateDocument(ctx context.Context, document *Document) error {
	_, err := s.querier(ctx).ExecContext(ctx,
		`INSERT INTO documents (id, organization_id, uploaded_by_user_id, file_name, moderation_decision, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $6)`,
		document.ID, uuid.UUID(document.OrgID), uuid.UUID(document.UploadedByUserID),
		document.FileName, nullIfEmpty(document.ModerationDecision), document.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create document: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetDocument(ctx context.Context, orgID id.OrgID, documentID string) (*Document, error) {
	var (
		document Document
		orgUUID  uuid.UUID
		userUUID uuid.UUID
		decision sql.NullString
	)
	err := s.querier(ctx).QueryRowContext(ctx,
		`SELECT id, organization_id, uploaded_by_user_id, file_name, moderation_decision, created_at, updated_at
		 FROM documents WHERE organization_id = $1 AND id = $2`,
		uuid.UUID(orgID), documentID,
	).Scan(&document.ID, &orgUUID, &userUUID, &document.FileName,
		&decision, &document.CreatedAt, &document.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	document.OrgID = id.OrgID(orgUUID)
	document.UploadedByUserID = id.UserID(userUUID)
	document.ModerationDecision = decision.String
	return &document, nil
}

func (s *PostgresStore) SetDocumentModeration(ctx context.Context, orgID id.OrgID, documentID string, decision string) error {
	result, err := s.querier(ctx).ExecContext(ctx,
		`UPDATE documents SET moderation_decision = $3, updated_at = NOW()
		 WHERE organization_id = $1 AND id = $2`,
		uuid.UUID(orgID), documentID, decision,
	)
	if err != nil {
		return fmt.Errorf("set document moderation: %w", err)
	}
	return requireRow(result, "set document moderation")
}

func (s *PostgresStore) CreateApplication(ctx context.Context, application *Application) error {
	_, err := s.querier(ctx).ExecContext(ctx,
		`INSERT INTO applications (id, organization_id, applicant_user_id, status, moderation_decision, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $6)`,
		application.ID, uuid.UUID(application.OrgID), uuid.UUID(application.ApplicantUserID),
		string(application.Status), nullIfEmpty(application.ModerationDecision), application.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create application: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetApplication(ctx context.Context, orgID id.OrgID, applicationID string) (*Application, error) {
	var (
		application Application
		orgUUID     uuid.UUID
		userUUID    uuid.UUID
		decision    sql.NullString
	)
	err := s.querier(ctx).QueryRowContext(ctx,
		`SELECT id, organization_id, applicant_user_id, status, moderation_decision, created_at, updated_at
		 FROM applications WHERE organization_id = $1 AND id = $2`,
		uuid.UUID(orgID), applicationID,
	).Scan(&application.ID, &orgUUID, &userUUID, &application.Status,
		&decision, &application.CreatedAt, &application.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get application: %w", err)
	}
	application.OrgID = id.OrgID(orgUUID)
	application.ApplicantUserID = id.UserID(userUUID)
	application.ModerationDecision = decision.String
	return &application, nil
}

func (s *PostgresStore) SetApplicationModeration(ctx context.Context, orgID id.OrgID, applicationID string, decision string, status ApplicationStatus) error {
	var (
		result sql.Result
		err    error
	)
	if status != "" {
		result, err = s.querier(ctx).ExecContext(ctx,
			`UPDATE applications SET moderation_decision = $3, status = $4, updated_at = NOW()
			 WHERE organization_id = $1 AND id = $2`,
			uuid.UUID(orgID), applicationID, decision, string(status),
		)
	} else {
		result, err = s.querier(ctx).ExecContext(ctx,
			`UPDATE applications SET moderation_decision = $3, updated_at = NOW()
			 WHERE organization_id = $1 AND id = $2`,
			uuid.UUID(orgID), applicationID, decision,
		)
	}
	if err != nil {
		return fmt.Errorf("set application moderation: %w", err)
	}
	return requireRow(result, "set application moderation")
}

func requireRow(result sql.Result, op string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
