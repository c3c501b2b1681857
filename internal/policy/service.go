package policy

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	policymetrics "github.com/navigategovuk/telldoug2-sub001/internal/policy/metrics"
	id "github.com/navigategovuk/telldoug2-sub001/pkg/domain"
	dErrors "github.com/navigategovuk/telldoug2-sub001/pkg/domain-errors"
	audit "github.com/navigategovuk/telldoug2-sub001/pkg/platform/audit"
	"github.com/navigategovuk/telldoug2-sub001/pkg/platform/sentinel"
	pstrings "github.com/navigategovuk/telldoug2-sub001/pkg/platform/strings"
	"github.com/navigategovuk/telldoug2-sub001/pkg/platform/tx"
	"github.com/navigategovuk/telldoug2-sub001/pkg/requestcontext"
)

// AuditPublisher emits audit events for policy lifecycle operations.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service orchestrates policy version lifecycle: publishing new rule sets
// and resolving the active version for evaluations.
type Service struct {
	store          Store
	cache          *ActiveVersionCache
	tx             tx.Runner
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *policymetrics.Metrics
}

// Option configures the Service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) { s.auditPublisher = publisher }
}

func WithCache(cache *ActiveVersionCache) Option {
	return func(s *Service) { s.cache = cache }
}

func WithMetrics(m *policymetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithTxRunner(runner tx.Runner) Option {
	return func(s *Service) { s.tx = runner }
}

// New constructs a policy Service.
func New(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("policy store is required")
	}
	s := &Service{store: store, tx: tx.NewPassthroughRunner()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Publish creates the next policy version for the organization and makes
// it the single active one. The whole swap runs in one transaction,
// serialized per organization by the store's publish lock, so concurrent
// publishes cannot mint duplicate version numbers.
func (s *Service) Publish(ctx context.Context, orgID id.OrgID, userID id.UserID, title string, rules Rules) (int, error) {
	if orgID.IsNil() {
		return 0, dErrors.New(dErrors.CodeBadRequest, "organization id is required")
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return 0, dErrors.New(dErrors.CodeValidation, "policy title is required")
	}

	rules = normalizeRules(rules)

	var versionNumber int
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.store.AcquirePublishLock(txCtx, orgID); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to serialize policy publish")
		}

		max, err := s.store.MaxVersionNumber(txCtx, orgID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to read policy versions")
		}
		versionNumber = max + 1

		if err := s.store.DeactivateActive(txCtx, orgID); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to deactivate current policy version")
		}

		version := &Version{
			ID:            id.NewPolicyVersionID(),
			OrgID:         orgID,
			VersionNumber: versionNumber,
			Title:         title,
			Rules:         rules,
			IsActive:      true,
			PublishedBy:   userID,
			CreatedAt:     requestcontext.Now(txCtx),
		}
		if err := s.store.CreateVersion(txCtx, version); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeConflict, "concurrent policy publish detected")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create policy version")
		}

		if s.auditPublisher != nil {
			event := audit.Event{
				EventType:   audit.EventPolicyPublished,
				EntityType:  audit.EntityPolicyVersion,
				EntityID:    version.ID.String(),
				OrgID:       orgID,
				ActorUserID: &userID,
				Metadata:    map[string]any{"version_number": versionNumber},
			}
			if err := s.auditPublisher.Emit(txCtx, event); err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record policy publish")
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, orgID); err != nil && s.logger != nil {
			s.logger.WarnContext(ctx, "policy cache invalidation failed",
				"org_id", orgID,
				"error", err,
			)
		}
	}

	s.metrics.IncrementPublished()
	if s.logger != nil {
		s.logger.InfoContext(ctx, "policy version published",
			"org_id", orgID,
			"version_number", versionNumber,
		)
	}
	return versionNumber, nil
}

// GetActiveVersion returns the organization's active policy version, or
// nil when the organization has never published one.
func (s *Service) GetActiveVersion(ctx context.Context, orgID id.OrgID) (*Version, error) {
	if s.cache != nil {
		if version, ok := s.cache.Get(ctx, orgID); ok {
			s.metrics.IncrementLookup("cache_hit")
			return version, nil
		}
	}

	version, err := s.store.ActiveVersion(ctx, orgID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.metrics.IncrementLookup("none")
			return nil, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load active policy version")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, orgID, version); err != nil && s.logger != nil {
			s.logger.WarnContext(ctx, "policy cache write failed",
				"org_id", orgID,
				"error", err,
			)
		}
	}
	s.metrics.IncrementLookup("store_hit")
	return version, nil
}

// ListVersions returns the organization's version history, newest first.
func (s *Service) ListVersions(ctx context.Context, orgID id.OrgID) ([]*Version, error) {
	versions, err := s.store.ListVersions(ctx, orgID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list policy versions")
	}
	return versions, nil
}

// normalizeRules trims and dedupes rule entries so the stored set is
// stable regardless of how the dashboard submitted it.
func normalizeRules(rules Rules) Rules {
	return Rules{
		BlockedPhrases: pstrings.DedupeAndTrim(rules.BlockedPhrases),
		WatchPhrases:   pstrings.DedupeAndTrim(rules.WatchPhrases),
		BlockedRegex:   pstrings.DedupeAndTrim(rules.BlockedRegex),
	}
}
