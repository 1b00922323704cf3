// Package handler exposes the competency catalog over HTTP. It is a thin
// translation layer: decode, delegate to the service, encode.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"medcat/internal/catalog/models"
	"medcat/internal/platform/metrics"
	"medcat/internal/platform/middleware"
	id "medcat/pkg/domain"
	dErrors "medcat/pkg/domain-errors"
	"medcat/pkg/requestcontext"
)

// Service defines the catalog operations the handler delegates to.
type Service interface {
	Create(ctx context.Context, req models.CreateCompetencyRequest, actorID string) (*models.Competency, error)
	AssignReviewer(ctx context.Context, cid id.CompetencyID, reviewedBy, actorID string) (*models.Competency, error)
	Activate(ctx context.Context, cid id.CompetencyID, actorID string) (*models.Competency, error)
	Deprecate(ctx context.Context, cid id.CompetencyID, replacedBy *id.CompetencyID, actorID string) (*models.Competency, error)
	Get(ctx context.Context, cid id.CompetencyID) (*models.Competency, error)
	GetByCode(ctx context.Context, code string) (*models.Competency, error)
	List(ctx context.Context, q models.ListQuery) (*models.Page, error)
	Subjects(ctx context.Context) ([]models.SubjectCount, error)
	Stats(ctx context.Context) (*models.CatalogStats, error)
}

// Handler handles the /competencies endpoints.
type Handler struct {
	logger       *slog.Logger
	catalog      Service
	metrics      *metrics.Metrics
	jwtValidator middleware.JWTValidator
	timeout      time.Duration
}

type Option func(*Handler)

// WithTimeout overrides the default 30s per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(h *Handler) {
		if d > 0 {
			h.timeout = d
		}
	}
}

func New(catalog Service, logger *slog.Logger, m *metrics.Metrics, jwtValidator middleware.JWTValidator, opts ...Option) *Handler {
	h := &Handler{
		logger:       logger,
		catalog:      catalog,
		metrics:      m,
		jwtValidator: jwtValidator,
		timeout:      30 * time.Second,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the catalog routes. Reads are open; mutations require a
// bearer token identifying the acting user.
func (h *Handler) Register(r chi.Router) {
	cr := chi.NewRouter()
	cr.Use(middleware.Recovery(h.logger))
	cr.Use(middleware.RequestID)
	cr.Use(middleware.RequestTime)
	cr.Use(middleware.Logger(h.logger))
	cr.Use(middleware.Timeout(h.timeout))
	cr.Use(middleware.ContentTypeJSON)
	cr.Use(middleware.Latency(h.metrics))

	cr.Get("/", h.handleList)
	cr.Get("/stats", h.handleStats)
	cr.Get("/subjects", h.handleSubjects)
	cr.Get("/{id}", h.handleGet)
	cr.Get("/code/{code}", h.handleGetByCode)

	cr.Group(func(g chi.Router) {
		g.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
		g.Post("/", h.handleCreate)
		g.Put("/{id}/reviewer", h.handleAssignReviewer)
		g.Post("/{id}/activate", h.handleActivate)
		g.Post("/{id}/deprecate", h.handleDeprecate)
	})

	r.Mount("/competencies", cr)
}

// actor returns the authenticated actor id. RequireAuth guarantees it is
// set on mutation routes.
func (h *Handler) actor(w http.ResponseWriter, r *http.Request) (string, bool) {
	actorID := requestcontext.ActorID(r.Context())
	if actorID == "" {
		h.logger.ErrorContext(r.Context(), "actor missing from context despite auth middleware",
			"request_id", middleware.GetRequestID(r.Context()),
		)
		writeError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return "", false
	}
	return actorID, true
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (id.CompetencyID, bool) {
	cid, err := id.ParseCompetencyID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, dErrors.New(dErrors.CodeValidation, "invalid competency id"))
		return id.CompetencyID{}, false
	}
	return cid, true
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.actor(w, r)
	if !ok {
		return
	}

	var req models.CreateCompetencyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeValidation, "invalid request body"))
		return
	}

	competency, err := h.catalog.Create(r.Context(), req, actorID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, competency)
}

func (h *Handler) handleAssignReviewer(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.actor(w, r)
	if !ok {
		return
	}
	cid, ok := h.pathID(w, r)
	if !ok {
		return
	}

	var req assignReviewerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeValidation, "invalid request body"))
		return
	}

	competency, err := h.catalog.AssignReviewer(r.Context(), cid, req.ReviewedBy, actorID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, competency)
}

func (h *Handler) handleActivate(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.actor(w, r)
	if !ok {
		return
	}
	cid, ok := h.pathID(w, r)
	if !ok {
		return
	}

	competency, err := h.catalog.Activate(r.Context(), cid, actorID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, competency)
}

func (h *Handler) handleDeprecate(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.actor(w, r)
	if !ok {
		return
	}
	cid, ok := h.pathID(w, r)
	if !ok {
		return
	}

	var req deprecateRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, dErrors.New(dErrors.CodeValidation, "invalid request body"))
			return
		}
	}

	var replacedBy *id.CompetencyID
	if req.ReplacedBy != "" {
		rid, err := id.ParseCompetencyID(req.ReplacedBy)
		if err != nil {
			writeError(w, dErrors.New(dErrors.CodeValidation, "invalid replacedBy id"))
			return
		}
		replacedBy = &rid
	}

	competency, err := h.catalog.Deprecate(r.Context(), cid, replacedBy, actorID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, competency)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	cid, ok := h.pathID(w, r)
	if !ok {
		return
	}

	competency, err := h.catalog.Get(r.Context(), cid)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, competency)
}

func (h *Handler) handleGetByCode(w http.ResponseWriter, r *http.Request) {
	competency, err := h.catalog.GetByCode(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, competency)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	q, err := parseListQuery(r)
	if err != nil {
		writeError(w, err)
		return
	}

	page, err := h.catalog.List(r.Context(), q)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *Handler) handleSubjects(w http.ResponseWriter, r *http.Request) {
	subjects, err := h.catalog.Subjects(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"subjects": subjects})
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.catalog.Stats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
