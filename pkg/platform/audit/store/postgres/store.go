// Package postgres persists audit events in the audit_events table.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	id "github.com/navigategovuk/telldoug2-sub001/pkg/domain"
	audit "github.com/navigategovuk/telldoug2-sub001/pkg/platform/audit"
	txcontext "github.com/navigategovuk/telldoug2-sub001/pkg/platform/tx"
)

// Store implements audit.Store on PostgreSQL. When a transaction is present
// in the context the append joins it, so domain writes and their audit
// records commit atomically.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *Store) Append(ctx context.Context, event audit.Event) error {
	metadata, err := json.Marshal(event.Metadata)
	if err != nil {
		return fmt.Errorf("marshal audit metadata: %w", err)
	}

	var actorID *uuid.UUID
	if event.ActorUserID != nil {
		uid := uuid.UUID(*event.ActorUserID)
		actorID = &uid
	}

	query := `
		INSERT INTO audit_events (id, organization_id, event_type, entity_type, entity_id, actor_user_id, metadata, correlation_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = s.execer(ctx).ExecContext(ctx, query,
		uuid.New(),
		uuid.UUID(event.OrgID),
		event.EventType,
		event.EntityType,
		event.EntityID,
		actorID,
		metadata,
		event.CorrelationID,
		event.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

func (s *Store) ListByEntity(ctx context.Context, entityType, entityID string) ([]audit.Event, error) {
	query := `
		SELECT organization_id, event_type, entity_type, entity_id, actor_user_id, metadata, correlation_id, created_at
		FROM audit_events
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY created_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query, entityType, entityID)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func (s *Store) ListRecent(ctx context.Context, limit int) ([]audit.Event, error) {
	query := `
		SELECT organization_id, event_type, entity_type, entity_id, actor_user_id, metadata, correlation_id, created_at
		FROM audit_events
		ORDER BY created_at DESC
		LIMIT $1
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent audit events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]audit.Event, error) {
	var events []audit.Event
	for rows.Next() {
		var (
			event    audit.Event
			orgID    uuid.UUID
			actorID  *uuid.UUID
			metadata []byte
		)
		if err := rows.Scan(&orgID, &event.EventType, &event.EntityType, &event.EntityID, &actorID, &metadata, &event.CorrelationID, &event.Timestamp); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		event.OrgID = id.OrgID(orgID)
		if actorID != nil {
			uid := id.UserID(*actorID)
			event.ActorUserID = &uid
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &event.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal audit metadata: %w", err)
			}
		}
		events = append(events, event)
	}
	return events, rows.Err()
}
