//go:build integration

package postgres_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"medcat/internal/catalog/models"
	"medcat/internal/catalog/store/postgres"
	id "medcat/pkg/domain"
	"medcat/pkg/platform/sentinel"
	"medcat/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	pg    *containers.PostgresContainer
	store *postgres.Store
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.pg = containers.NewPostgresContainer(s.T(), postgres.Schema)
	s.store = postgres.New(s.pg.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.pg.TruncateTables(context.Background(), "audit_outbox", "competencies"))
}

func newCompetency(code, subject string) *models.Competency {
	now := time.Now().UTC().Truncate(time.Microsecond)
	c, err := models.NewCompetency(id.NewCompetencyID(), models.CreateCompetencyRequest{
		Code:          code,
		Title:         "Interpret a 12-lead ECG",
		Description:   "Systematically read rhythm, axis and intervals on a standard ECG.",
		Subject:       subject,
		Domain:        models.DomainClinical,
		AcademicLevel: models.LevelUndergraduate,
	}, "prof-garcia", now)
	if err != nil {
		panic(err)
	}
	return c
}

func (s *PostgresStoreSuite) TestCreateAndFind() {
	ctx := context.Background()
	c := newCompetency("CARD-001", "Cardiology")
	s.Require().NoError(s.store.Create(ctx, c))

	byID, err := s.store.FindByID(ctx, c.ID)
	s.Require().NoError(err)
	s.Equal(c.Code, byID.Code)
	s.Equal(models.StatusDraft, byID.Status)
	s.Equal(1, byID.Version)

	byCode, err := s.store.FindByCode(ctx, "CARD-001")
	s.Require().NoError(err)
	s.Equal(c.ID, byCode.ID)
}

func (s *PostgresStoreSuite) TestFindMissingReturnsNotFound() {
	_, err := s.store.FindByID(context.Background(), id.NewCompetencyID())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestConcurrentCreateSameCode() {
	ctx := context.Background()
	const goroutines = 50

	var wg sync.WaitGroup
	var successes, conflicts atomic.Int32
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.store.Create(ctx, newCompetency("CARD-001", "Cardiology"))
			switch {
			case err == nil:
				successes.Add(1)
			case errors.Is(err, sentinel.ErrConflict):
				conflicts.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), successes.Load())
	s.Equal(int32(goroutines-1), conflicts.Load())
}

func (s *PostgresStoreSuite) TestExecuteConcurrentActivation() {
	ctx := context.Background()
	c := newCompetency("CARD-001", "Cardiology")
	c.ReviewedBy = "dr-chen"
	s.Require().NoError(s.store.Create(ctx, c))

	const goroutines = 10
	var wg sync.WaitGroup
	var successes atomic.Int32
	now := time.Now().UTC()
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.store.Execute(ctx, c.ID,
				func(rec *models.Competency) error { return rec.CanActivate() },
				func(rec *models.Competency) { rec.ApplyActivation(now) },
			)
			if err == nil {
				successes.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), successes.Load())
	got, err := s.store.FindByID(ctx, c.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusActive, got.Status)
	s.NotNil(got.ActivatedAt)
}

func (s *PostgresStoreSuite) TestExecuteMissingRecord() {
	_, err := s.store.Execute(context.Background(), id.NewCompetencyID(),
		func(*models.Competency) error { return nil },
		func(*models.Competency) {},
	)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestDeprecationRoundTrip() {
	ctx := context.Background()
	old := newCompetency("CARD-001", "Cardiology")
	replacement := newCompetency("CARD-002", "Cardiology")
	s.Require().NoError(s.store.Create(ctx, old))
	s.Require().NoError(s.store.Create(ctx, replacement))

	now := time.Now().UTC()
	_, err := s.store.Execute(ctx, old.ID,
		func(rec *models.Competency) error { return rec.CanDeprecate() },
		func(rec *models.Competency) { rec.ApplyDeprecation(&replacement.ID, now) },
	)
	s.Require().NoError(err)

	got, err := s.store.FindByID(ctx, old.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusDeprecated, got.Status)
	s.NotNil(got.DeprecatedAt)
	s.Require().NotNil(got.ReplacedBy)
	s.Equal(replacement.ID, *got.ReplacedBy)
}

func (s *PostgresStoreSuite) seedCatalog() {
	ctx := context.Background()
	seeds := []struct {
		code, subject string
		domain        models.Domain
	}{
		{"CARD-001", "Cardiology", models.DomainClinical},
		{"CARD-002", "Cardiology", models.DomainCognitive},
		{"NEUR-001", "Neurology", models.DomainClinical},
		{"PHAR-001", "Pharmacology", models.DomainPractical},
	}
	for _, seed := range seeds {
		c := newCompetency(seed.code, seed.subject)
		c.Domain = seed.domain
		s.Require().NoError(s.store.Create(ctx, c))
	}
}

func (s *PostgresStoreSuite) TestListFiltersAndSearch() {
	ctx := context.Background()
	s.seedCatalog()

	q := models.ListQuery{Subject: "Cardiology", Domain: models.DomainClinical}
	q.Normalize()
	page, err := s.store.List(ctx, q)
	s.Require().NoError(err)
	s.Equal(1, page.Total)
	s.Require().Len(page.Items, 1)
	s.Equal("CARD-001", page.Items[0].Code)

	q = models.ListQuery{Search: "neur"}
	q.Normalize()
	page, err = s.store.List(ctx, q)
	s.Require().NoError(err)
	s.Equal(1, page.Total)
	s.Equal("NEUR-001", page.Items[0].Code)
}

func (s *PostgresStoreSuite) TestListSortAndPaging() {
	ctx := context.Background()
	s.seedCatalog()

	q := models.ListQuery{SortBy: models.SortByCode, SortDir: models.SortDesc, Page: 2, Limit: 2}
	q.Normalize()
	page, err := s.store.List(ctx, q)
	s.Require().NoError(err)
	s.Equal(4, page.Total)
	s.Equal(2, page.TotalPages)
	s.Require().Len(page.Items, 2)
	s.Equal("CARD-002", page.Items[0].Code)
	s.Equal("CARD-001", page.Items[1].Code)
}

func (s *PostgresStoreSuite) TestListPastEndIsEmpty() {
	s.seedCatalog()

	q := models.ListQuery{Page: 9}
	q.Normalize()
	page, err := s.store.List(context.Background(), q)
	s.Require().NoError(err)
	s.Empty(page.Items)
	s.Equal(4, page.Total)
}

func (s *PostgresStoreSuite) TestSubjectCountsActiveOnly() {
	ctx := context.Background()
	s.seedCatalog()

	// Activate both Cardiology records, leave the rest in DRAFT.
	for _, code := range []string{"CARD-001", "CARD-002"} {
		c, err := s.store.FindByCode(ctx, code)
		s.Require().NoError(err)
		now := time.Now().UTC()
		_, err = s.store.Execute(ctx, c.ID,
			func(rec *models.Competency) error { return nil },
			func(rec *models.Competency) {
				rec.ApplyReviewer("dr-chen", now)
				rec.ApplyActivation(now)
			},
		)
		s.Require().NoError(err)
	}

	counts, err := s.store.SubjectCounts(ctx)
	s.Require().NoError(err)
	s.Require().Len(counts, 1)
	s.Equal("Cardiology", counts[0].Subject)
	s.Equal(2, counts[0].Count)
}

func (s *PostgresStoreSuite) TestStatsSnapshot() {
	ctx := context.Background()
	s.seedCatalog()

	stats, err := s.store.Stats(ctx)
	s.Require().NoError(err)
	s.Equal(4, stats.Total)
	s.Equal(4, stats.Draft)
	s.Equal(0, stats.Active)
	s.Equal(0, stats.Deprecated)
	s.Equal(3, stats.UniqueSubjects)
}
