// Package memory provides the in-memory catalog store used by unit suites
// and by deployments without a configured database.
//
// It mirrors the conditional-transition semantics of the Postgres store:
// Execute holds the write lock across validate and mutate, so concurrent
// transitions on one record serialize exactly as FOR UPDATE does.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"medcat/internal/catalog/models"
	id "medcat/pkg/domain"
	"medcat/pkg/platform/sentinel"
)

type Store struct {
	mu     sync.RWMutex
	byID   map[id.CompetencyID]*models.Competency
	byCode map[string]id.CompetencyID
}

func New() *Store {
	return &Store{
		byID:   make(map[id.CompetencyID]*models.Competency),
		byCode: make(map[string]id.CompetencyID),
	}
}

// Create inserts the record if its code is not taken. The code index is the
// uniqueness arbiter: under concurrent creates with one code, exactly one
// insert wins and the rest observe sentinel.ErrConflict.
func (s *Store) Create(_ context.Context, c *models.Competency) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.byCode[c.Code]; taken {
		return sentinel.ErrConflict
	}
	s.byID[c.ID] = c.Clone()
	s.byCode[c.Code] = c.ID
	return nil
}

func (s *Store) FindByID(_ context.Context, cid id.CompetencyID) (*models.Competency, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.byID[cid]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return c.Clone(), nil
}

func (s *Store) FindByCode(_ context.Context, code string) (*models.Competency, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cid, ok := s.byCode[code]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return s.byID[cid].Clone(), nil
}

// Execute atomically applies validate-then-mutate to one record. The lock
// is held for the whole sequence, so two concurrent transitions on the same
// record cannot both pass validation.
func (s *Store) Execute(_ context.Context, cid id.CompetencyID,
	validate func(*models.Competency) error,
	mutate func(*models.Competency),
) (*models.Competency, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.byID[cid]
	if !ok {
		return nil, sentinel.ErrNotFound
	}

	next := current.Clone()
	if err := validate(next); err != nil {
		return nil, err
	}
	mutate(next)
	s.byID[cid] = next
	return next.Clone(), nil
}

// List applies the query's filters, search, sort and paging in memory.
func (s *Store) List(_ context.Context, q models.ListQuery) (*models.Page, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]*models.Competency, 0, len(s.byID))
	for _, c := range s.byID {
		if matches(c, q) {
			matched = append(matched, c)
		}
	}
	sortCompetencies(matched, q.SortBy, q.SortDir)

	total := len(matched)
	start := q.Offset()
	if start > total {
		start = total
	}
	end := start + q.Limit
	if end > total {
		end = total
	}

	items := make([]*models.Competency, 0, end-start)
	for _, c := range matched[start:end] {
		items = append(items, c.Clone())
	}
	return models.NewPage(items, total, q), nil
}

// SubjectCounts groups ACTIVE competencies by subject, sorted ascending.
func (s *Store) SubjectCounts(_ context.Context) ([]models.SubjectCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int)
	for _, c := range s.byID {
		if c.Status == models.StatusActive {
			counts[c.Subject]++
		}
	}
	result := make([]models.SubjectCount, 0, len(counts))
	for subject, count := range counts {
		result = append(result, models.SubjectCount{Subject: subject, Count: count})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Subject < result[j].Subject })
	return result, nil
}

// Stats computes all aggregate counts under one lock hold so the figures
// are mutually consistent.
func (s *Store) Stats(_ context.Context) (*models.CatalogStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &models.CatalogStats{}
	subjects := make(map[string]struct{})
	for _, c := range s.byID {
		stats.Total++
		subjects[c.Subject] = struct{}{}
		switch c.Status {
		case models.StatusDraft:
			stats.Draft++
		case models.StatusActive:
			stats.Active++
		case models.StatusDeprecated:
			stats.Deprecated++
		}
	}
	stats.UniqueSubjects = len(subjects)
	return stats, nil
}

func matches(c *models.Competency, q models.ListQuery) bool {
	if q.Subject != "" && c.Subject != q.Subject {
		return false
	}
	if q.Domain != "" && c.Domain != q.Domain {
		return false
	}
	if q.AcademicLevel != "" && c.AcademicLevel != q.AcademicLevel {
		return false
	}
	if q.Status != "" && c.Status != q.Status {
		return false
	}
	if q.Search != "" {
		needle := strings.ToLower(q.Search)
		if !strings.Contains(strings.ToLower(c.Code), needle) &&
			!strings.Contains(strings.ToLower(c.Title), needle) &&
			!strings.Contains(strings.ToLower(c.Description), needle) &&
			!strings.Contains(strings.ToLower(c.Subject), needle) {
			return false
		}
	}
	return true
}

func sortCompetencies(items []*models.Competency, key models.SortKey, dir models.SortDirection) {
	less := func(a, b *models.Competency) bool {
		switch key {
		case models.SortByTitle:
			return a.Title < b.Title
		case models.SortBySubject:
			return a.Subject < b.Subject
		case models.SortByDomain:
			return a.Domain < b.Domain
		case models.SortByAcademicLevel:
			return a.AcademicLevel < b.AcademicLevel
		case models.SortByCreatedAt:
			return a.CreatedAt.Before(b.CreatedAt)
		case models.SortByStatus:
			return a.Status < b.Status
		default:
			return a.Code < b.Code
		}
	}
	sort.SliceStable(items, func(i, j int) bool {
		if dir == models.SortDesc {
			return less(items[j], items[i])
		}
		return less(items[i], items[j])
	})
}
