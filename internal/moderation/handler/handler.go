// Package handler exposes the moderation endpoints: artifact
// evaluation, manual overrides, and item/event reads.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/navigategovuk/telldoug2-sub001/internal/moderation"
	"github.com/navigategovuk/telldoug2-sub001/internal/pii"
	id "github.com/navigategovuk/telldoug2-sub001/pkg/domain"
	dErrors "github.com/navigategovuk/telldoug2-sub001/pkg/domain-errors"
	"github.com/navigategovuk/telldoug2-sub001/pkg/platform/httputil"
	"github.com/navigategovuk/telldoug2-sub001/pkg/requestcontext"
)

// Service defines the moderation operations this handler exposes.
type Service interface {
	ModerateArtifactSafe(ctx context.Context, req moderation.ModerateRequest) (*moderation.ModerateResult, error)
	ApplyManualDecision(ctx context.Context, orgID id.OrgID, itemID id.ModerationItemID, decision moderation.Decision, reason string, actorUserID id.UserID) error
	GetItem(ctx context.Context, orgID id.OrgID, itemID id.ModerationItemID) (*moderation.ModerationItem, error)
	ListEvents(ctx context.Context, orgID id.OrgID, itemID id.ModerationItemID) ([]*moderation.ModerationEvent, error)
}

// Handler handles moderation endpoints.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New creates a moderation Handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the moderation routes. Auth middleware is applied by
// the router; every route here assumes an authenticated org scope.
func (h *Handler) Register(r chi.Router) {
	r.Post("/moderation/evaluate", h.handleEvaluate)
	r.Post("/moderation/items/{id}/decision", h.handleManualDecision)
	r.Get("/moderation/items/{id}", h.handleGetItem)
	r.Get("/moderation/items/{id}/events", h.handleListEvents)
}

type evaluateRequest struct {
	TargetType string `json:"targetType"`
	TargetID   string `json:"targetId"`
	Text       string `json:"text"`
	// System evaluations (assistant prompts on behalf of the portal)
	// may omit attribution.
	System bool `json:"system,omitempty"`
}

type evaluateResponse struct {
	Decision  string       `json:"decision"`
	RiskScore float64      `json:"riskScore"`
	Fallback  bool         `json:"aiFallback,omitempty"`
	Item      itemResponse `json:"item"`
}

type itemResponse struct {
	ID              string                `json:"id"`
	TargetType      string                `json:"targetType"`
	TargetID        string                `json:"targetId"`
	PIIFindings     []pii.Finding         `json:"piiFindings"`
	ModelFlags      moderation.ModelFlags `json:"modelFlags"`
	RuleFlags       moderation.RuleFlags  `json:"ruleFlags"`
	RiskScore       float64               `json:"riskScore"`
	Decision        string                `json:"decision"`
	PolicyVersionID *string               `json:"policyVersionId"`
	CreatedAt       time.Time             `json:"createdAt"`
	UpdatedAt       time.Time             `json:"updatedAt"`
}

func toItemResponse(item *moderation.ModerationItem) itemResponse {
	resp := itemResponse{
		ID:          item.ID.String(),
		TargetType:  string(item.TargetType),
		TargetID:    item.TargetID,
		PIIFindings: item.PIIFindings,
		ModelFlags:  item.ModelFlags,
		RuleFlags:   item.RuleFlags,
		RiskScore:   item.RiskScore,
		Decision:    string(item.Decision),
		CreatedAt:   item.CreatedAt,
		UpdatedAt:   item.UpdatedAt,
	}
	if item.PolicyVersionID != nil {
		versionID := item.PolicyVersionID.String()
		resp.PolicyVersionID = &versionID
	}
	return resp
}

func (h *Handler) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := httputil.DecodeAndPrepare[evaluateRequest](w, r, h.logger, ctx, requestcontext.CorrelationID(ctx))
	if !ok {
		return
	}

	modReq := moderation.ModerateRequest{
		OrgID:      requestcontext.OrgID(ctx),
		TargetType: moderation.TargetType(req.TargetType),
		TargetID:   req.TargetID,
		Text:       req.Text,
	}
	if !req.System {
		userID := requestcontext.UserID(ctx)
		modReq.CreatedByUserID = &userID
	}

	result, err := h.service.ModerateArtifactSafe(ctx, modReq)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, evaluateResponse{
		Decision:  string(result.Decision),
		RiskScore: result.RiskScore,
		Fallback:  result.Fallback,
		Item:      toItemResponse(result.Item),
	})
}

type manualDecisionRequest struct {
	Decision string `json:"decision"`
	Reason   string `json:"reason"`
}

func (h *Handler) handleManualDecision(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	itemID, err := id.ParseModerationItemID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "malformed moderation item id"))
		return
	}

	req, ok := httputil.DecodeAndPrepare[manualDecisionRequest](w, r, h.logger, ctx, requestcontext.CorrelationID(ctx))
	if !ok {
		return
	}

	err = h.service.ApplyManualDecision(ctx,
		requestcontext.OrgID(ctx), itemID,
		moderation.Decision(req.Decision), req.Reason,
		requestcontext.UserID(ctx))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleGetItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	itemID, err := id.ParseModerationItemID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "malformed moderation item id"))
		return
	}

	item, err := h.service.GetItem(ctx, requestcontext.OrgID(ctx), itemID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toItemResponse(item))
}

type eventResponse struct {
	ID          string         `json:"id"`
	ActorUserID *string        `json:"actorUserId"`
	EventType   string         `json:"eventType"`
	Reason      string         `json:"reason"`
	Metadata    map[string]any `json:"metadata"`
	CreatedAt   time.Time      `json:"createdAt"`
}

func (h *Handler) handleListEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	itemID, err := id.ParseModerationItemID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "malformed moderation item id"))
		return
	}

	events, err := h.service.ListEvents(ctx, requestcontext.OrgID(ctx), itemID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	out := make([]eventResponse, 0, len(events))
	for _, event := range events {
		resp := eventResponse{
			ID:        event.ID.String(),
			EventType: event.EventType,
			Reason:    event.Reason,
			Metadata:  event.Metadata,
			CreatedAt: event.CreatedAt,
		}
		if event.ActorUserID != nil {
			actor := event.ActorUserID.String()
			resp.ActorUserID = &actor
		}
		out = append(out, resp)
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}
