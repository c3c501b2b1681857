package policy

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	id "github.com/navigategovuk/telldoug2-sub001/pkg/domain"
	"github.com/navigategovuk/telldoug2-sub001/pkg/platform/sentinel"
	txcontext "github.com/navigategovuk/telldoug2-sub001/pkg/platform/tx"
)

// PostgresStore persists policy versions in PostgreSQL. Mutations join a
// caller-owned transaction from context; publish serialization uses a
// transaction-scoped advisory lock keyed by a hash of the organization ID,
// the same pattern the portal uses for login-attempt lockouts.
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

func (s *PostgresStore) AcquirePublishLock(ctx context.Context, orgID id.OrgID) error {
	if _, ok := txcontext.From(ctx); !ok {
		return fmt.Errorf("acquire publish lock: no transaction in context")
	}
	// hashtext maps the org UUID onto the advisory lock keyspace; the lock
	// is released automatically at transaction end.
	_, err := s.querier(ctx).ExecContext(ctx,
		`SELECT pg_advisory_xact_lock(hashtext($1))`, orgID.String())
	if err != nil {
		return fmt.Errorf("acquire publish lock: %w", err)
	}
	return nil
}

func (s *PostgresStore) MaxVersionNumber(ctx context.Context, orgID id.OrgID) (int, error) {
	var max int
	err := s.querier(ctx).QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version_number), 0) FROM policy_versions WHERE organization_id = $1`,
		uuid.UUID(orgID),
	).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("max version number: %w", err)
	}
	return max, nil
}

func (s *PostgresStore) DeactivateActive(ctx context.Context, orgID id.OrgID) error {
	_, err := s.querier(ctx).ExecContext(ctx,
		`UPDATE policy_versions SET is_active = FALSE WHERE organization_id = $1 AND is_active`,
		uuid.UUID(orgID),
	)
	if err != nil {
		return fmt.Errorf("deactivate active policy version: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateVersion(ctx context.Context, version *Version) error {
	rules, err := json.Marshal(version.Rules)
	if err != nil {
		return fmt.Errorf("marshal policy rules: %w", err)
	}

	query := `
		INSERT INTO policy_versions (id, organization_id, version_number, title, rules, is_active, published_by_user_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = s.querier(ctx).ExecContext(ctx, query,
		uuid.UUID(version.ID),
		uuid.UUID(version.OrgID),
		version.VersionNumber,
		version.Title,
		rules,
		version.IsActive,
		uuid.UUID(version.PublishedBy),
		version.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create policy version: %w", sentinel.ErrConflict)
		}
		return fmt.Errorf("create policy version: %w", err)
	}
	return nil
}

func (s *PostgresStore) ActiveVersion(ctx context.Context, orgID id.OrgID) (*Version, error) {
	query := `
		SELECT id, organization_id, version_number, title, rules, is_active, published_by_user_id, created_at
		FROM policy_versions
		WHERE organization_id = $1 AND is_active
		ORDER BY version_number DESC
		LIMIT 1
	`
	version, err := scanVersion(s.querier(ctx).QueryRowContext(ctx, query, uuid.UUID(orgID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("active policy version: %w", err)
	}
	return version, nil
}

func (s *PostgresStore) ListVersions(ctx context.Context, orgID id.OrgID) ([]*Version, error) {
	query := `
		SELECT id, organization_id, version_number, title, rules, is_active, published_by_user_id, created_at
		FROM policy_versions
		WHERE organization_id = $1
		ORDER BY version_number DESC
	`
	rows, err := s.querier(ctx).QueryContext(ctx, query, uuid.UUID(orgID))
	if err != nil {
		return nil, fmt.Errorf("list policy versions: %w", err)
	}
	defer rows.Close()

	var versions []*Version
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("list policy versions: %w", err)
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

type row interface {
	Scan(dest ...any) error
}

func scanVersion(r row) (*Version, error) {
	var (
		v           Version
		versionID   uuid.UUID
		orgID       uuid.UUID
		publishedBy uuid.UUID
		rules       []byte
	)
	if err := r.Scan(&versionID, &orgID, &v.VersionNumber, &v.Title, &rules, &v.IsActive, &publishedBy, &v.CreatedAt); err != nil {
		return nil, err
	}
	v.ID = id.PolicyVersionID(versionID)
	v.OrgID = id.OrgID(orgID)
	v.PublishedBy = id.UserID(publishedBy)
	if err := json.Unmarshal(rules, &v.Rules); err != nil {
		return nil, fmt.Errorf("unmarshal policy rules: %w", err)
	}
	return &v, nil
}

// isUniqueViolation detects Postgres unique constraint errors (SQLSTATE
// 23505) without importing driver internals at every call site.
func isUniqueViolation(err error) bool {
	type sqlStater interface{ SQLState() string }
	var state sqlStater
	if errors.As(err, &state) {
		return state.SQLState() == "23505"
	}
	return false
}
