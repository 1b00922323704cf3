// Package service implements the competency lifecycle engine and the
// catalog query service.
//
// The service is stateless between calls: all record state lives in the
// catalog store, and every state transition runs through the store's
// Execute primitive so the status check and the write are atomic under
// concurrent callers.
package service

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"medcat/internal/catalog/cache"
	catalogmetrics "medcat/internal/catalog/metrics"
	"medcat/internal/catalog/models"
	id "medcat/pkg/domain"
	dErrors "medcat/pkg/domain-errors"
	audit "medcat/pkg/platform/audit"
	"medcat/pkg/platform/sentinel"
	"medcat/pkg/requestcontext"
)

// CatalogStore is the persistence contract the service depends on. The
// memory and postgres stores implement it.
type CatalogStore interface {
	Create(ctx context.Context, c *models.Competency) error
	FindByID(ctx context.Context, cid id.CompetencyID) (*models.Competency, error)
	FindByCode(ctx context.Context, code string) (*models.Competency, error)
	// Execute atomically applies validate-then-mutate to one record. The
	// implementation holds its lock (mutex or FOR UPDATE) across both
	// callbacks.
	Execute(ctx context.Context, cid id.CompetencyID,
		validate func(*models.Competency) error,
		mutate func(*models.Competency),
	) (*models.Competency, error)
	List(ctx context.Context, q models.ListQuery) (*models.Page, error)
	SubjectCounts(ctx context.Context) ([]models.SubjectCount, error)
	Stats(ctx context.Context) (*models.CatalogStats, error)
}

// AuditPublisher records state-changing actions. Emission is best-effort
// from the engine's perspective: failures are logged, never promoted into
// the caller-visible result of a successful mutation.
type AuditPublisher interface {
	Emit(ctx context.Context, entry audit.Entry) error
}

// Service orchestrates the competency catalog.
type Service struct {
	store   CatalogStore
	logger  *slog.Logger
	audit   AuditPublisher
	metrics *catalogmetrics.Metrics
	cache   *cache.Cache
	tracer  trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.audit = publisher
	}
}

func WithMetrics(m *catalogmetrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithCache enables the Redis read-through cache for Stats and Subjects.
func WithCache(c *cache.Cache) Option {
	return func(s *Service) {
		s.cache = c
	}
}

// New constructs a Service around the given store.
func New(store CatalogStore, opts ...Option) *Service {
	s := &Service{
		store:  store,
		logger: slog.Default(),
		tracer: otel.Tracer("medcat/catalog"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// translateStoreErr maps sentinel store errors into coded domain errors.
// Coded errors produced by model guards pass through verbatim.
func translateStoreErr(err error, notFoundMsg string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, notFoundMsg)
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeConflict, "competency code already exists")
	case errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "catalog store unavailable")
	}
	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "catalog store failure")
}

// emitAudit records the action, logging (not returning) failures. The
// primary mutation has already committed when this runs.
func (s *Service) emitAudit(ctx context.Context, action audit.ActionKind, actorID string, c *models.Competency, description string, metadata map[string]string) {
	if s.audit == nil {
		return
	}
	entry := audit.Entry{
		ActorID:     actorID,
		Action:      action,
		EntityType:  "Competency",
		EntityID:    c.ID.String(),
		Description: description,
		Metadata:    metadata,
		RequestID:   requestcontext.RequestID(ctx),
		Timestamp:   requestcontext.Now(ctx),
	}
	if err := s.audit.Emit(ctx, entry); err != nil {
		s.logger.ErrorContext(ctx, "audit write failed",
			"action", string(action),
			"competency_id", c.ID.String(),
			"error", err,
		)
	}
}

func (s *Service) invalidateAggregates(ctx context.Context) {
	if s.cache != nil {
		s.cache.Invalidate(ctx)
	}
}
