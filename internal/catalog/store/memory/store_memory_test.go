package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"medcat/internal/catalog/models"
	id "medcat/pkg/domain"
	"medcat/pkg/platform/sentinel"
)

type MemoryStoreSuite struct {
	suite.Suite
	store *Store
	ctx   context.Context
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}

func (s *MemoryStoreSuite) SetupTest() {
	s.store = New()
	s.ctx = context.Background()
}

func (s *MemoryStoreSuite) newCompetency(code, subject string, status models.Status) *models.Competency {
	now := time.Now()
	c := &models.Competency{
		ID:            id.NewCompetencyID(),
		Code:          code,
		Title:         "Competency " + code,
		Description:   "A description long enough to satisfy the boundary rules.",
		Subject:       subject,
		Domain:        models.DomainClinical,
		AcademicLevel: models.LevelUndergraduate,
		Status:        status,
		CreatedBy:     "prof-garcia",
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if status != models.StatusDraft {
		c.ReviewedBy = "dr-okafor"
	}
	return c
}

func (s *MemoryStoreSuite) mustCreate(c *models.Competency) *models.Competency {
	s.Require().NoError(s.store.Create(s.ctx, c))
	return c
}

func (s *MemoryStoreSuite) TestCreateAndLookups() {
	s.Run("creates and finds by id and code", func() {
		c := s.mustCreate(s.newCompetency("CARD-001", "Cardiology", models.StatusDraft))

		found, err := s.store.FindByID(s.ctx, c.ID)
		s.Require().NoError(err)
		s.Equal(c.Code, found.Code)

		found, err = s.store.FindByCode(s.ctx, "CARD-001")
		s.Require().NoError(err)
		s.Equal(c.ID, found.ID)
	})

	s.Run("returns ErrNotFound for unknown id", func() {
		_, err := s.store.FindByID(s.ctx, id.NewCompetencyID())
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("returns ErrNotFound for unknown code", func() {
		_, err := s.store.FindByCode(s.ctx, "NOPE-999")
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("hands out copies, not aliases", func() {
		c := s.mustCreate(s.newCompetency("NEUR-001", "Neurology", models.StatusDraft))

		found, err := s.store.FindByID(s.ctx, c.ID)
		s.Require().NoError(err)
		found.Title = "mutated"

		again, err := s.store.FindByID(s.ctx, c.ID)
		s.Require().NoError(err)
		s.Equal("Competency NEUR-001", again.Title)
	})
}

func (s *MemoryStoreSuite) TestCodeUniqueness() {
	s.Run("rejects duplicate code", func() {
		s.mustCreate(s.newCompetency("CARD-001", "Cardiology", models.StatusDraft))

		dup := s.newCompetency("CARD-001", "Cardiology", models.StatusDraft)
		err := s.store.Create(s.ctx, dup)
		s.Require().ErrorIs(err, sentinel.ErrConflict)
	})

	s.Run("exactly one concurrent create wins", func() {
		const racers = 16
		var wg sync.WaitGroup
		errs := make([]error, racers)
		for i := 0; i < racers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				errs[i] = s.store.Create(s.ctx, s.newCompetency("RACE-001", "Cardiology", models.StatusDraft))
			}(i)
		}
		wg.Wait()

		winners := 0
		for _, err := range errs {
			if err == nil {
				winners++
			} else {
				s.ErrorIs(err, sentinel.ErrConflict)
			}
		}
		s.Equal(1, winners)
	})
}

func (s *MemoryStoreSuite) TestExecute() {
	s.Run("applies validate-then-mutate atomically", func() {
		c := s.mustCreate(s.newCompetency("CARD-002", "Cardiology", models.StatusDraft))

		updated, err := s.store.Execute(s.ctx, c.ID,
			func(rec *models.Competency) error { return rec.CanAssignReviewer() },
			func(rec *models.Competency) { rec.ApplyReviewer("dr-okafor", time.Now()) },
		)
		s.Require().NoError(err)
		s.Equal("dr-okafor", updated.ReviewedBy)

		found, err := s.store.FindByID(s.ctx, c.ID)
		s.Require().NoError(err)
		s.Equal("dr-okafor", found.ReviewedBy)
	})

	s.Run("validation failure leaves the record untouched", func() {
		c := s.mustCreate(s.newCompetency("CARD-003", "Cardiology", models.StatusActive))

		_, err := s.store.Execute(s.ctx, c.ID,
			func(rec *models.Competency) error { return rec.CanActivate() },
			func(rec *models.Competency) { rec.ApplyActivation(time.Now()) },
		)
		s.Require().Error(err)

		found, err := s.store.FindByID(s.ctx, c.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusActive, found.Status)
		s.Nil(found.ActivatedAt)
	})

	s.Run("returns ErrNotFound for unknown id", func() {
		_, err := s.store.Execute(s.ctx, id.NewCompetencyID(),
			func(*models.Competency) error { return nil },
			func(*models.Competency) {},
		)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("exactly one concurrent activation succeeds", func() {
		c := s.newCompetency("RACE-002", "Cardiology", models.StatusDraft)
		c.ReviewedBy = "dr-okafor"
		s.mustCreate(c)

		const racers = 8
		var wg sync.WaitGroup
		errs := make([]error, racers)
		for i := 0; i < racers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, errs[i] = s.store.Execute(s.ctx, c.ID,
					func(rec *models.Competency) error { return rec.CanActivate() },
					func(rec *models.Competency) { rec.ApplyActivation(time.Now()) },
				)
			}(i)
		}
		wg.Wait()

		winners := 0
		for _, err := range errs {
			if err == nil {
				winners++
			}
		}
		s.Equal(1, winners)
	})
}

func (s *MemoryStoreSuite) seedCatalog() {
	subjects := []string{"Cardiology", "Neurology", "Pharmacology"}
	for i := 0; i < 9; i++ {
		c := s.newCompetency(fmt.Sprintf("GEN-%03d", i+1), subjects[i%3], models.StatusDraft)
		if i%3 == 1 {
			c.Status = models.StatusActive
			c.ReviewedBy = "dr-okafor"
		}
		s.mustCreate(c)
	}
}

func (s *MemoryStoreSuite) TestList() {
	s.Run("filters are conjunctive", func() {
		s.seedCatalog()
		q := models.ListQuery{Subject: "Neurology", Status: models.StatusActive}
		q.Normalize()

		page, err := s.store.List(s.ctx, q)
		s.Require().NoError(err)
		s.Equal(3, page.Total)
		for _, c := range page.Items {
			s.Equal("Neurology", c.Subject)
			s.Equal(models.StatusActive, c.Status)
		}
	})

	s.Run("search matches code, title, description and subject case-insensitively", func() {
		s.store = New()
		byCode := s.newCompetency("CARDIO-01", "Internal Medicine", models.StatusDraft)
		byTitle := s.newCompetency("GEN-001", "Internal Medicine", models.StatusDraft)
		byTitle.Title = "Manage acute CARDIOvascular failure"
		byDesc := s.newCompetency("GEN-002", "Internal Medicine", models.StatusDraft)
		byDesc.Description = "Covers cardiogenic shock recognition and initial management steps."
		bySubject := s.newCompetency("GEN-003", "Cardiology", models.StatusDraft)
		noMatch := s.newCompetency("GEN-004", "Dermatology", models.StatusDraft)
		for _, c := range []*models.Competency{byCode, byTitle, byDesc, bySubject, noMatch} {
			s.mustCreate(c)
		}

		q := models.ListQuery{Search: "cardio"}
		q.Normalize()
		page, err := s.store.List(s.ctx, q)
		s.Require().NoError(err)
		s.Equal(4, page.Total)
		for _, c := range page.Items {
			s.NotEqual("GEN-004", c.Code)
		}
	})

	s.Run("search intersects with exact filters", func() {
		s.store = New()
		s.mustCreate(s.newCompetency("CARDIO-01", "Cardiology", models.StatusDraft))
		active := s.newCompetency("CARDIO-02", "Cardiology", models.StatusActive)
		s.mustCreate(active)

		q := models.ListQuery{Search: "cardio", Status: models.StatusActive}
		q.Normalize()
		page, err := s.store.List(s.ctx, q)
		s.Require().NoError(err)
		s.Equal(1, page.Total)
		s.Equal("CARDIO-02", page.Items[0].Code)
	})

	s.Run("sorts by the requested key and direction", func() {
		s.store = New()
		s.mustCreate(s.newCompetency("B-CODE", "Zoology", models.StatusDraft))
		s.mustCreate(s.newCompetency("A-CODE", "Anatomy", models.StatusDraft))
		s.mustCreate(s.newCompetency("C-CODE", "Medicine", models.StatusDraft))

		q := models.ListQuery{SortBy: models.SortBySubject, SortDir: models.SortDesc}
		q.Normalize()
		page, err := s.store.List(s.ctx, q)
		s.Require().NoError(err)
		s.Equal("Zoology", page.Items[0].Subject)
		s.Equal("Anatomy", page.Items[2].Subject)
	})

	s.Run("paginates with 1-indexed pages", func() {
		s.store = New()
		for i := 0; i < 25; i++ {
			s.mustCreate(s.newCompetency(fmt.Sprintf("PAGE-%03d", i+1), "Cardiology", models.StatusDraft))
		}

		q := models.ListQuery{Page: 2, Limit: 10}
		q.Normalize()
		page, err := s.store.List(s.ctx, q)
		s.Require().NoError(err)
		s.Equal(25, page.Total)
		s.Equal(3, page.TotalPages)
		s.Require().Len(page.Items, 10)
		s.Equal("PAGE-011", page.Items[0].Code)
		s.Equal("PAGE-020", page.Items[9].Code)
	})

	s.Run("page past the end is empty, not an error", func() {
		s.store = New()
		s.mustCreate(s.newCompetency("ONLY-001", "Cardiology", models.StatusDraft))

		q := models.ListQuery{Page: 5, Limit: 10}
		q.Normalize()
		page, err := s.store.List(s.ctx, q)
		s.Require().NoError(err)
		s.Empty(page.Items)
		s.Equal(1, page.Total)
	})
}

func (s *MemoryStoreSuite) TestSubjectCounts() {
	s.Run("groups only ACTIVE records, sorted by subject", func() {
		s.mustCreate(s.newCompetency("CARD-001", "Cardiology", models.StatusActive))
		s.mustCreate(s.newCompetency("CARD-002", "Cardiology", models.StatusActive))
		s.mustCreate(s.newCompetency("NEUR-001", "Neurology", models.StatusActive))
		s.mustCreate(s.newCompetency("NEUR-002", "Neurology", models.StatusDraft))
		s.mustCreate(s.newCompetency("DERM-001", "Dermatology", models.StatusDeprecated))

		counts, err := s.store.SubjectCounts(s.ctx)
		s.Require().NoError(err)
		s.Equal([]models.SubjectCount{
			{Subject: "Cardiology", Count: 2},
			{Subject: "Neurology", Count: 1},
		}, counts)
	})

	s.Run("empty catalog yields empty slice", func() {
		counts, err := New().SubjectCounts(s.ctx)
		s.Require().NoError(err)
		s.Empty(counts)
	})
}

func (s *MemoryStoreSuite) TestStats() {
	s.Run("empty catalog is all zeros", func() {
		stats, err := s.store.Stats(s.ctx)
		s.Require().NoError(err)
		s.Equal(&models.CatalogStats{}, stats)
	})

	s.Run("counts per status and distinct subjects across all statuses", func() {
		s.mustCreate(s.newCompetency("CARD-001", "Cardiology", models.StatusDraft))
		s.mustCreate(s.newCompetency("CARD-002", "Cardiology", models.StatusActive))
		s.mustCreate(s.newCompetency("NEUR-001", "Neurology", models.StatusDeprecated))

		stats, err := s.store.Stats(s.ctx)
		s.Require().NoError(err)
		s.Equal(3, stats.Total)
		s.Equal(1, stats.Draft)
		s.Equal(1, stats.Active)
		s.Equal(1, stats.Deprecated)
		s.Equal(2, stats.UniqueSubjects)
	})
}
