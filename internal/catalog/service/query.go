package service

import (
	"context"
	"time"

	"medcat/internal/catalog/models"
)

// List returns a filtered, sorted page of competencies. Filters compose
// conjunctively; search matches code, title, description and subject
// case-insensitively.
func (s *Service) List(ctx context.Context, q models.ListQuery) (*models.Page, error) {
	ctx, span := s.tracer.Start(ctx, "catalog.List")
	defer span.End()

	start := time.Now()
	q.Normalize()
	if err := q.Validate(); err != nil {
		return nil, err
	}

	page, err := s.store.List(ctx, q)
	if err != nil {
		return nil, translateStoreErr(err, "competency not found")
	}
	if s.metrics != nil {
		s.metrics.ObserveList(start)
	}
	return page, nil
}

// Subjects returns the per-subject counts of ACTIVE competencies, sorted
// by subject name. Served from the cache when warm.
func (s *Service) Subjects(ctx context.Context) ([]models.SubjectCount, error) {
	ctx, span := s.tracer.Start(ctx, "catalog.Subjects")
	defer span.End()

	if s.cache != nil {
		if subjects, ok := s.cache.GetSubjects(ctx); ok {
			return subjects, nil
		}
	}

	subjects, err := s.store.SubjectCounts(ctx)
	if err != nil {
		return nil, translateStoreErr(err, "competency not found")
	}
	if s.cache != nil {
		s.cache.SetSubjects(ctx, subjects)
	}
	return subjects, nil
}

// Stats returns the catalog-wide figures. All counts come from one store
// snapshot so they are mutually consistent.
func (s *Service) Stats(ctx context.Context) (*models.CatalogStats, error) {
	ctx, span := s.tracer.Start(ctx, "catalog.Stats")
	defer span.End()

	if s.cache != nil {
		if stats, ok := s.cache.GetStats(ctx); ok {
			return stats, nil
		}
	}

	start := time.Now()
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, translateStoreErr(err, "competency not found")
	}
	if s.metrics != nil {
		s.metrics.ObserveStats(start)
	}
	if s.cache != nil {
		s.cache.SetStats(ctx, stats)
	}
	return stats, nil
}
