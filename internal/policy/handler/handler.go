// Package handler exposes the policy dashboard endpoints: publishing
// rule-set versions and reading version state.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/navigategovuk/telldoug2-sub001/internal/policy"
	id "github.com/navigategovuk/telldoug2-sub001/pkg/domain"
	dErrors "github.com/navigategovuk/telldoug2-sub001/pkg/domain-errors"
	"github.com/navigategovuk/telldoug2-sub001/pkg/platform/httputil"
	"github.com/navigategovuk/telldoug2-sub001/pkg/requestcontext"
)

// Service defines the policy operations this handler exposes.
type Service interface {
	Publish(ctx context.Context, orgID id.OrgID, userID id.UserID, title string, rules policy.Rules) (int, error)
	GetActiveVersion(ctx context.Context, orgID id.OrgID) (*policy.Version, error)
	ListVersions(ctx context.Context, orgID id.OrgID) ([]*policy.Version, error)
}

// Handler handles policy endpoints.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New creates a policy Handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the policy routes.
func (h *Handler) Register(r chi.Router) {
	r.Post("/policies", h.handlePublish)
	r.Get("/policies", h.handleList)
	r.Get("/policies/active", h.handleGetActive)
}

type publishRequest struct {
	Title string       `json:"title"`
	Rules policy.Rules `json:"rules"`
}

func (h *Handler) handlePublish(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := httputil.DecodeAndPrepare[publishRequest](w, r, h.logger, ctx, requestcontext.CorrelationID(ctx))
	if !ok {
		return
	}

	versionNumber, err := h.service.Publish(ctx,
		requestcontext.OrgID(ctx), requestcontext.UserID(ctx),
		req.Title, req.Rules)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, map[string]int{"versionNumber": versionNumber})
}

type versionResponse struct {
	ID            string       `json:"id"`
	VersionNumber int          `json:"versionNumber"`
	Title         string       `json:"title"`
	Rules         policy.Rules `json:"rules"`
	IsActive      bool         `json:"isActive"`
	PublishedBy   string       `json:"publishedBy"`
	CreatedAt     time.Time    `json:"createdAt"`
}

func toVersionResponse(version *policy.Version) versionResponse {
	return versionResponse{
		ID:            version.ID.String(),
		VersionNumber: version.VersionNumber,
		Title:         version.Title,
		Rules:         version.Rules,
		IsActive:      version.IsActive,
		PublishedBy:   version.PublishedBy.String(),
		CreatedAt:     version.CreatedAt,
	}
}

func (h *Handler) handleGetActive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	version, err := h.service.GetActiveVersion(ctx, requestcontext.OrgID(ctx))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if version == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "no active policy version"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toVersionResponse(version))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	versions, err := h.service.ListVersions(ctx, requestcontext.OrgID(ctx))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	out := make([]versionResponse, 0, len(versions))
	for _, version := range versions {
		out = append(out, toVersionResponse(version))
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}
