package moderation

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/navigategovuk/telldoug2-sub001/internal/pii"
	id "github.com/navigategovuk/telldoug2-sub001/pkg/domain"
	"github.com/navigategovuk/telldoug2-sub001/pkg/platform/sentinel"
	txcontext "github.com/navigategovuk/telldoug2-sub001/pkg/platform/tx"
)

// PostgresStore persists moderation items and events in PostgreSQL.
// Writes join a caller-owned transaction from context.
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

func (s *PostgresStore) CreateItem(ctx context.Context, item *ModerationItem) error {
	findings, err := json.Marshal(item.PIIFindings)
	if err != nil {
		return fmt.Errorf("create moderation item: encode pii findings: %w", err)
	}
	modelFlags, err := json.Marshal(item.ModelFlags)
	if err != nil {
		return fmt.Errorf("create moderation item: encode model flags: %w", err)
	}
	ruleFlags, err := json.Marshal(item.RuleFlags)
	if err != nil {
		return fmt.Errorf("create moderation item: encode rule flags: %w", err)
	}

	var createdBy any
	if item.CreatedByUserID != nil {
		createdBy = uuid.UUID(*item.CreatedByUserID)
	}
	var policyVersion any
	if item.PolicyVersionID != nil {
		policyVersion = uuid.UUID(*item.PolicyVersionID)
	}

	_, err = s.querier(ctx).ExecContext(ctx,
		`INSERT INTO moderation_items
		   (id, organization_id, created_by_user_id, target_type, target_id, raw_text,
		    pii_findings, model_flags, rule_flags, risk_score, decision, policy_version_id,
		    created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $13)`,
		uuid.UUID(item.ID), uuid.UUID(item.OrgID), createdBy,
		string(item.TargetType), item.TargetID, item.RawText,
		findings, modelFlags, ruleFlags, item.RiskScore, string(item.Decision), policyVersion,
		item.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create moderation item: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetItem(ctx context.Context, orgID id.OrgID, itemID id.ModerationItemID) (*ModerationItem, error) {
	var (
		item          ModerationItem
		itemUUID      uuid.UUID
		orgUUID       uuid.UUID
		createdBy     uuid.NullUUID
		policyVersion uuid.NullUUID
		findings      []byte
		modelFlags    []byte
		ruleFlags     []byte
	)
	err := s.querier(ctx).QueryRowContext(ctx,
		`SELECT id, organization_id, created_by_user_id, target_type, target_id, raw_text,
		        pii_findings, model_flags, rule_flags, risk_score, decision, policy_version_id,
		        created_at, updated_at
		 FROM moderation_items WHERE organization_id = $1 AND id = $2`,
		uuid.UUID(orgID), uuid.UUID(itemID),
	).Scan(&itemUUID, &orgUUID, &createdBy, &item.TargetType, &item.TargetID, &item.RawText,
		&findings, &modelFlags, &ruleFlags, &item.RiskScore, &item.Decision, &policyVersion,
		&item.CreatedAt, &item.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get moderation item: %w", err)
	}

	item.ID = id.ModerationItemID(itemUUID)
	item.OrgID = id.OrgID(orgUUID)
	if createdBy.Valid {
		userID := id.UserID(createdBy.UUID)
		item.CreatedByUserID = &userID
	}
	if policyVersion.Valid {
		versionID := id.PolicyVersionID(policyVersion.UUID)
		item.PolicyVersionID = &versionID
	}
	item.PIIFindings = []pii.Finding{}
	if err := json.Unmarshal(findings, &item.PIIFindings); err != nil {
		return nil, fmt.Errorf("get moderation item: decode pii findings: %w", err)
	}
	if err := json.Unmarshal(modelFlags, &item.ModelFlags); err != nil {
		return nil, fmt.Errorf("get moderation item: decode model flags: %w", err)
	}
	if err := json.Unmarshal(ruleFlags, &item.RuleFlags); err != nil {
		return nil, fmt.Errorf("get moderation item: decode rule flags: %w", err)
	}
	return &item, nil
}

func (s *PostgresStore) UpdateDecision(ctx context.Context, orgID id.OrgID, itemID id.ModerationItemID, decision Decision, updatedAt time.Time) error {
	result, err := s.querier(ctx).ExecContext(ctx,
		`UPDATE moderation_items SET decision = $3, updated_at = $4
		 WHERE organization_id = $1 AND id = $2`,
		uuid.UUID(orgID), uuid.UUID(itemID), string(decision), updatedAt,
	)
	if err != nil {
		return fmt.Errorf("update moderation decision: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update moderation decision: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) AppendEvent(ctx context.Context, event *ModerationEvent) error {
	metadata, err := json.Marshal(event.Metadata)
	if err != nil {
		return fmt.Errorf("append moderation event: encode metadata: %w", err)
	}
	var actor any
	if event.ActorUserID != nil {
		actor = uuid.UUID(*event.ActorUserID)
	}
	_, err = s.querier(ctx).ExecContext(ctx,
		`INSERT INTO moderation_events (id, moderation_item_id, actor_user_id, event_type, reason, metadata, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		uuid.UUID(event.ID), uuid.UUID(event.ModerationItemID), actor,
		event.EventType, event.Reason, metadata, event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("append moderation event: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListEvents(ctx context.Context, itemID id.ModerationItemID) ([]*ModerationEvent, error) {
	rows, err := s.querier(ctx).QueryContext(ctx,
		`SELECT id, moderation_item_id, actor_user_id, event_type, reason, metadata, created_at
		 FROM moderation_events WHERE moderation_item_id = $1 ORDER BY created_at ASC, id ASC`,
		uuid.UUID(itemID),
	)
	if err != nil {
		return nil, fmt.Errorf("list moderation events: %w", err)
	}
	defer rows.Close()

	var events []*ModerationEvent
	for rows.Next() {
		var (
			event     ModerationEvent
			eventUUID uuid.UUID
			itemUUID  uuid.UUID
			actor     uuid.NullUUID
			metadata  []byte
		)
		if err := rows.Scan(&eventUUID, &itemUUID, &actor, &event.EventType, &event.Reason, &metadata, &event.CreatedAt); err != nil {
			return nil, fmt.Errorf("list moderation events: %w", err)
		}
		event.ID = id.ModerationEventID(eventUUID)
		event.ModerationItemID = id.ModerationItemID(itemUUID)
		if actor.Valid {
			userID := id.UserID(actor.UUID)
			event.ActorUserID = &userID
		}
		if err := json.Unmarshal(metadata, &event.Metadata); err != nil {
			return nil, fmt.Errorf("list moderation events: decode metadata: %w", err)
		}
		events = append(events, &event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list moderation events: %w", err)
	}
	return events, nil
}
