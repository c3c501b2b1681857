package moderation

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	moderationmetrics "github.com/navigategovuk/telldoug2-sub001/internal/moderation/metrics"
	"github.com/navigategovuk/telldoug2-sub001/internal/owners"
	"github.com/navigategovuk/telldoug2-sub001/internal/pii"
	"github.com/navigategovuk/telldoug2-sub001/internal/policy"
	"github.com/navigategovuk/telldoug2-sub001/internal/provider"
	id "github.com/navigategovuk/telldoug2-sub001/pkg/domain"
	dErrors "github.com/navigategovuk/telldoug2-sub001/pkg/domain-errors"
	audit "github.com/navigategovuk/telldoug2-sub001/pkg/platform/audit"
	"github.com/navigategovuk/telldoug2-sub001/pkg/platform/sentinel"
	"github.com/navigategovuk/telldoug2-sub001/pkg/platform/tx"
	"github.com/navigategovuk/telldoug2-sub001/pkg/requestcontext"
)

// PolicyReader resolves the active policy version for an organization.
type PolicyReader interface {
	GetActiveVersion(ctx context.Context, orgID id.OrgID) (*policy.Version, error)
}

// TextModerator is the slice of the provider contract the decision
// engine consumes.
type TextModerator interface {
	ModerateText(ctx context.Context, text string) (*provider.ModerationResult, error)
}

// AuditPublisher emits audit events for moderation outcomes.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service is the decision engine. Each evaluation runs its reads,
// provider call and writes sequentially; concurrent evaluations of
// different artifacts are independent.
type Service struct {
	store          Store
	policies       PolicyReader
	ai             TextModerator
	owners         owners.Store
	tx             tx.Runner
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *moderationmetrics.Metrics
	tracer         trace.Tracer
}

// Option configures the Service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) { s.auditPublisher = publisher }
}

func WithMetrics(m *moderationmetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithTxRunner(runner tx.Runner) Option {
	return func(s *Service) { s.tx = runner }
}

// WithOwnerStore wires the owning-entity store so manual overrides can
// propagate decisions to messages, documents and applications.
func WithOwnerStore(store owners.Store) Option {
	return func(s *Service) { s.owners = store }
}

// New constructs the decision engine. The provider is injected; there
// is no package-level default.
func New(store Store, policies PolicyReader, ai TextModerator, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("moderation store is required")
	}
	if policies == nil {
		return nil, errors.New("policy reader is required")
	}
	if ai == nil {
		return nil, errors.New("moderation provider is required")
	}
	s := &Service{
		store:    store,
		policies: policies,
		ai:       ai,
		tx:       tx.NewPassthroughRunner(),
		tracer:   otel.Tracer("moderation"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// ModerateArtifact evaluates one artifact and persists the outcome.
// A provider failure propagates to the caller unhandled; use
// ModerateArtifactSafe for the standard pending_review fallback.
func (s *Service) ModerateArtifact(ctx context.Context, req ModerateRequest) (*ModerateResult, error) {
	ctx, span := s.tracer.Start(ctx, "moderation.evaluate",
		trace.WithAttributes(attribute.String("target_type", string(req.TargetType))))
	defer span.End()

	if err := validateRequest(req); err != nil {
		return nil, err
	}

	start := time.Now()

	activePolicy, err := s.policies.GetActiveVersion(ctx, req.OrgID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load active policy")
	}

	findings := pii.Scan(req.Text)
	var rules policy.Rules
	if activePolicy != nil {
		rules = activePolicy.Rules
	}
	ruleFlags := policy.EvaluateRules(req.Text, rules)

	aiResult, err := s.ai.ModerateText(ctx, req.Text)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "provider call failed")
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "ai moderation call failed")
	}

	result, err := s.persistOutcome(ctx, req, activePolicy, findings, ruleFlags, aiResult, false)
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.String("decision", string(result.Decision)))
	s.metrics.ObserveEvaluation(time.Since(start).Seconds())
	return result, nil
}

// ModerateArtifactSafe evaluates an artifact with the portal's standard
// provider-failure fallback: the artifact is queued for review with the
// provider signals zeroed, and an ai.fallback audit event records the
// substitution. Errors from other stages still propagate.
func (s *Service) ModerateArtifactSafe(ctx context.Context, req ModerateRequest) (*ModerateResult, error) {
	result, err := s.ModerateArtifact(ctx, req)
	if err == nil {
		return result, nil
	}
	if !provider.IsProviderError(err) {
		return nil, err
	}

	if s.logger != nil {
		s.logger.WarnContext(ctx, "ai provider unavailable, queueing artifact for review",
			"org_id", req.OrgID,
			"target_type", req.TargetType,
			"target_id", req.TargetID,
			"error", err,
		)
	}

	activePolicy, perr := s.policies.GetActiveVersion(ctx, req.OrgID)
	if perr != nil {
		return nil, dErrors.Wrap(perr, dErrors.CodeInternal, "failed to load active policy")
	}
	findings := pii.Scan(req.Text)
	var rules policy.Rules
	if activePolicy != nil {
		rules = activePolicy.Rules
	}
	ruleFlags := policy.EvaluateRules(req.Text, rules)

	empty := &provider.ModerationResult{
		Categories:     map[string]bool{},
		CategoryScores: map[string]float64{},
	}
	result, err = s.persistOutcome(ctx, req, activePolicy, findings, ruleFlags, empty, true)
	if err != nil {
		return nil, err
	}

	if s.auditPublisher != nil {
		event := audit.Event{
			EventType:   audit.EventAIFallback,
			EntityType:  string(req.TargetType),
			EntityID:    req.TargetID,
			OrgID:       req.OrgID,
			ActorUserID: req.CreatedByUserID,
			Metadata:    map[string]any{"decision": string(result.Decision)},
		}
		if err := s.auditPublisher.Emit(ctx, event); err != nil && s.logger != nil {
			s.logger.ErrorContext(ctx, "failed to record ai fallback", "error", err)
		}
	}
	s.metrics.IncrementFallback()
	return result, nil
}

// persistOutcome scores the combined signals, writes the item, the
// decision_created event and the audit record in one transaction, and
// returns the result. When fallback is set the decision is forced to
// pending_review regardless of the computed score.
func (s *Service) persistOutcome(
	ctx context.Context,
	req ModerateRequest,
	activePolicy *policy.Version,
	findings []pii.Finding,
	ruleFlags policy.RuleFlags,
	aiResult *provider.ModerationResult,
	fallback bool,
) (*ModerateResult, error) {
	score := riskScore(aiResult, findings, ruleFlags)
	decision, reason := decide(aiResult, ruleFlags, score)
	if fallback && decision == DecisionApproved {
		decision, reason = DecisionPendingReview, ReasonQueuedForReview
	}

	now := requestcontext.Now(ctx)
	item := &ModerationItem{
		ID:              id.NewModerationItemID(),
		OrgID:           req.OrgID,
		CreatedByUserID: req.CreatedByUserID,
		TargetType:      req.TargetType,
		TargetID:        req.TargetID,
		RawText:         req.Text,
		PIIFindings:     findings,
		ModelFlags: ModelFlags{
			Flagged:        aiResult.Flagged,
			Categories:     aiResult.Categories,
			CategoryScores: aiResult.CategoryScores,
		},
		RuleFlags: RuleFlags(ruleFlags),
		RiskScore: score,
		Decision:  decision,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if activePolicy != nil {
		versionID := activePolicy.ID
		item.PolicyVersionID = &versionID
	}

	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.store.CreateItem(txCtx, item); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist moderation item")
		}

		metadata := map[string]any{"riskScore": score}
		if fallback {
			metadata["aiFallback"] = true
		}
		event := &ModerationEvent{
			ID:               id.NewModerationEventID(),
			ModerationItemID: item.ID,
			ActorUserID:      nil, // decision_created is always system-authored
			EventType:        EventDecisionCreated,
			Reason:           reason,
			Metadata:         metadata,
			CreatedAt:        now,
		}
		if err := s.store.AppendEvent(txCtx, event); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to append moderation event")
		}

		if s.auditPublisher != nil {
			record := audit.Event{
				EventType:   audit.EventModerationEvaluated,
				EntityType:  string(req.TargetType),
				EntityID:    req.TargetID,
				OrgID:       req.OrgID,
				ActorUserID: req.CreatedByUserID,
				Metadata: map[string]any{
					"decision":  string(decision),
					"riskScore": score,
				},
			}
			if err := s.auditPublisher.Emit(txCtx, record); err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record evaluation")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncrementEvaluated(string(decision), string(req.TargetType))
	if s.logger != nil {
		s.logger.InfoContext(ctx, "artifact evaluated",
			"org_id", req.OrgID,
			"target_type", req.TargetType,
			"target_id", req.TargetID,
			"decision", decision,
			"risk_score", score,
			"pii_findings", len(findings),
			"hard_blocks", len(ruleFlags.HardBlocks),
		)
	}
	return &ModerateResult{Decision: decision, RiskScore: score, Item: item, Fallback: fallback}, nil
}

// ApplyManualDecision records a human override: the item's decision is
// replaced, a manual_decision event is appended, and the owning entity
// is updated, all in one transaction.
func (s *Service) ApplyManualDecision(ctx context.Context, orgID id.OrgID, itemID id.ModerationItemID, decision Decision, reason string, actorUserID id.UserID) error {
	ctx, span := s.tracer.Start(ctx, "moderation.override")
	defer span.End()

	if !decision.Valid() {
		return dErrors.Newf(dErrors.CodeValidation, "unknown decision %q", decision)
	}
	if len(strings.TrimSpace(reason)) < 2 {
		return dErrors.New(dErrors.CodeValidation, "override reason must be at least 2 characters")
	}

	item, err := s.store.GetItem(ctx, orgID, itemID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "moderation item not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load moderation item")
	}

	previous := item.Decision
	now := requestcontext.Now(ctx)

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.store.UpdateDecision(txCtx, orgID, itemID, decision, now); err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "moderation item not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update moderation decision")
		}

		event := &ModerationEvent{
			ID:               id.NewModerationEventID(),
			ModerationItemID: itemID,
			ActorUserID:      &actorUserID,
			EventType:        EventManualDecision,
			Reason:           reason,
			Metadata: map[string]any{
				"previousDecision": string(previous),
				"newDecision":      string(decision),
			},
			CreatedAt: now,
		}
		if err := s.store.AppendEvent(txCtx, event); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to append moderation event")
		}

		if err := s.dispatchToOwner(txCtx, item, decision); err != nil {
			return err
		}

		if s.auditPublisher != nil {
			record := audit.Event{
				EventType:   audit.EventModerationOverride,
				EntityType:  audit.EntityModerationItem,
				EntityID:    itemID.String(),
				OrgID:       orgID,
				ActorUserID: &actorUserID,
				Metadata: map[string]any{
					"decision": string(decision),
					"reason":   reason,
				},
			}
			if err := s.auditPublisher.Emit(txCtx, record); err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record override")
			}
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return err
	}

	s.metrics.IncrementOverride(string(decision))
	if s.logger != nil {
		s.logger.InfoContext(ctx, "manual decision applied",
			"org_id", orgID,
			"item_id", itemID,
			"previous_decision", previous,
			"new_decision", decision,
		)
	}
	return nil
}

// dispatchToOwner propagates an override to the owning entity.
// Applications keep their status on a pending_review override; only
// approval and block move them.
func (s *Service) dispatchToOwner(ctx context.Context, item *ModerationItem, decision Decision) error {
	if s.owners == nil {
		return nil
	}

	var err error
	switch item.TargetType {
	case TargetMessage:
		visibility := owners.VisibilityHidden
		if decision == DecisionApproved {
			visibility = owners.VisibilityVisible
		}
		err = s.owners.SetMessageModeration(ctx, item.OrgID, item.TargetID, string(decision), visibility)
	case TargetDocument:
		err = s.owners.SetDocumentModeration(ctx, item.OrgID, item.TargetID, string(decision))
	case TargetApplicationField:
		var status owners.ApplicationStatus
		switch decision {
		case DecisionApproved:
			status = owners.StatusInReview
		case DecisionBlocked:
			status = owners.StatusNeedsInfo
		}
		err = s.owners.SetApplicationModeration(ctx, item.OrgID, item.TargetID, string(decision), status)
	case TargetAssistantPrompt:
		// Assistant prompts have no owning entity.
		return nil
	}
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "owning entity not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update owning entity")
	}
	return nil
}

// GetItem returns a moderation item scoped to the organization.
func (s *Service) GetItem(ctx context.Context, orgID id.OrgID, itemID id.ModerationItemID) (*ModerationItem, error) {
	item, err := s.store.GetItem(ctx, orgID, itemID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "moderation item not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load moderation item")
	}
	return item, nil
}

// ListEvents returns an item's event log, oldest first, after checking
// the item exists in the organization.
func (s *Service) ListEvents(ctx context.Context, orgID id.OrgID, itemID id.ModerationItemID) ([]*ModerationEvent, error) {
	if _, err := s.GetItem(ctx, orgID, itemID); err != nil {
		return nil, err
	}
	events, err := s.store.ListEvents(ctx, itemID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list moderation events")
	}
	return events, nil
}

func validateRequest(req ModerateRequest) error {
	if req.OrgID.IsNil() {
		return dErrors.New(dErrors.CodeBadRequest, "organization id is required")
	}
	if !req.TargetType.Valid() {
		return dErrors.Newf(dErrors.CodeValidation, "unknown target type %q", req.TargetType)
	}
	if strings.TrimSpace(req.TargetID) == "" {
		return dErrors.New(dErrors.CodeValidation, "target id is required")
	}
	return nil
}
