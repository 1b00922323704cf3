// Package postgres persists the competency catalog in PostgreSQL.
//
// The store is pure I/O. Lifecycle rules live in the models and service
// layers; this package only guarantees the storage-level facts: code
// uniqueness, row-locked transitions and snapshot-consistent aggregates.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"medcat/internal/catalog/models"
	id "medcat/pkg/domain"
	"medcat/pkg/platform/sentinel"
	txcontext "medcat/pkg/platform/tx"
)

// uniqueViolation is the Postgres error code for unique constraint hits.
const uniqueViolation = "23505"

// sortColumns maps the closed sort-key set to fixed column expressions.
// Caller-supplied sort text never reaches the query; unknown keys are
// rejected by models.ListQuery.Validate before the store is called.
var sortColumns = map[models.SortKey]string{
	models.SortByCode:          "code",
	models.SortByTitle:         "title",
	models.SortBySubject:       "subject",
	models.SortByDomain:        "domain",
	models.SortByAcademicLevel: "academic_level",
	models.SortByCreatedAt:     "created_at",
	models.SortByStatus:        "status",
}

const competencyColumns = `id, code, title, description, subject, domain, academic_level,
	status, reviewed_by, created_by, activated_at, deprecated_at, replaced_by,
	version, created_at, updated_at`

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// queryer resolves the executor from context so reads issued inside a
// transaction (Execute, Stats) see that transaction's snapshot.
func (s *Store) queryer(ctx context.Context) queryRower {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// Create inserts a new competency. The unique index on code is the sole
// arbiter under concurrent creates: the loser observes sentinel.ErrConflict.
func (s *Store) Create(ctx context.Context, c *models.Competency) error {
	query := `
		INSERT INTO competencies (` + competencyColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(c.ID), c.Code, c.Title, c.Description, c.Subject,
		string(c.Domain), string(c.AcademicLevel), string(c.Status),
		nullString(c.ReviewedBy), c.CreatedBy,
		c.ActivatedAt, c.DeprecatedAt, nullCompetencyID(c.ReplacedBy),
		c.Version, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return fmt.Errorf("insert competency: %w", sentinel.ErrConflict)
		}
		return fmt.Errorf("insert competency: %w", err)
	}
	return nil
}

func (s *Store) FindByID(ctx context.Context, cid id.CompetencyID) (*models.Competency, error) {
	query := `SELECT ` + competencyColumns + ` FROM competencies WHERE id = $1`
	c, err := scanCompetency(s.queryer(ctx).QueryRowContext(ctx, query, uuid.UUID(cid)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find competency by id: %w", err)
	}
	return c, nil
}

func (s *Store) FindByCode(ctx context.Context, code string) (*models.Competency, error) {
	query := `SELECT ` + competencyColumns + ` FROM competencies WHERE code = $1`
	c, err := scanCompetency(s.queryer(ctx).QueryRowContext(ctx, query, code))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find competency by code: %w", err)
	}
	return c, nil
}

// Execute applies validate-then-mutate to one record inside a transaction,
// holding a FOR UPDATE row lock across the whole sequence. Two concurrent
// transitions on one record therefore serialize; the second re-reads the
// committed state and fails its validation.
func (s *Store) Execute(ctx context.Context, cid id.CompetencyID,
	validate func(*models.Competency) error,
	mutate func(*models.Competency),
) (*models.Competency, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transition: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `SELECT ` + competencyColumns + ` FROM competencies WHERE id = $1 FOR UPDATE`
	c, err := scanCompetency(tx.QueryRowContext(ctx, query, uuid.UUID(cid)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("lock competency: %w", err)
	}

	if err := validate(c); err != nil {
		return nil, err
	}
	mutate(c)

	update := `
		UPDATE competencies
		SET status = $2, reviewed_by = $3, activated_at = $4, deprecated_at = $5,
			replaced_by = $6, updated_at = $7
		WHERE id = $1
	`
	_, err = tx.ExecContext(ctx, update,
		uuid.UUID(c.ID), string(c.Status), nullString(c.ReviewedBy),
		c.ActivatedAt, c.DeprecatedAt, nullCompetencyID(c.ReplacedBy), c.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("update competency: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transition: %w", err)
	}
	return c, nil
}

// List runs the filtered count and page queries. Filters are conjunctive;
// the search term is an ILIKE OR-group over code/title/description/subject
// AND-ed with the rest.
func (s *Store) List(ctx context.Context, q models.ListQuery) (*models.Page, error) {
	where, args := buildFilter(q)

	var total int
	countQuery := `SELECT COUNT(*) FROM competencies` + where
	if err := s.queryer(ctx).QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count competencies: %w", err)
	}

	column, ok := sortColumns[q.SortBy]
	if !ok {
		column = "code"
	}
	direction := "ASC"
	if q.SortDir == models.SortDesc {
		direction = "DESC"
	}

	pageQuery := fmt.Sprintf(
		`SELECT `+competencyColumns+` FROM competencies%s ORDER BY %s %s, code ASC LIMIT $%d OFFSET $%d`,
		where, column, direction, len(args)+1, len(args)+2,
	)
	rows, err := s.queryer(ctx).QueryContext(ctx, pageQuery, append(args, q.Limit, q.Offset())...)
	if err != nil {
		return nil, fmt.Errorf("list competencies: %w", err)
	}
	defer rows.Close()

	var items []*models.Competency
	for rows.Next() {
		c, err := scanCompetency(rows)
		if err != nil {
			return nil, fmt.Errorf("scan competency row: %w", err)
		}
		items = append(items, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate competencies: %w", err)
	}
	return models.NewPage(items, total, q), nil
}

// SubjectCounts returns the ACTIVE-only grouped subject aggregate.
func (s *Store) SubjectCounts(ctx context.Context) ([]models.SubjectCount, error) {
	query := `
		SELECT subject, COUNT(*)
		FROM competencies
		WHERE status = $1
		GROUP BY subject
		ORDER BY subject ASC
	`
	rows, err := s.queryer(ctx).QueryContext(ctx, query, string(models.StatusActive))
	if err != nil {
		return nil, fmt.Errorf("count subjects: %w", err)
	}
	defer rows.Close()

	result := []models.SubjectCount{}
	for rows.Next() {
		var sc models.SubjectCount
		if err := rows.Scan(&sc.Subject, &sc.Count); err != nil {
			return nil, fmt.Errorf("scan subject count: %w", err)
		}
		result = append(result, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subject counts: %w", err)
	}
	return result, nil
}

// Stats runs all aggregate queries inside one repeatable-read transaction
// so the returned figures come from a single snapshot. The total can never
// disagree with the sum of the per-status counts.
func (s *Store) Stats(ctx context.Context) (*models.CatalogStats, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("begin stats snapshot: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	txCtx := txcontext.WithTx(ctx, tx)

	stats := &models.CatalogStats{}
	if err := s.queryer(txCtx).QueryRowContext(txCtx, `SELECT COUNT(*) FROM competencies`).Scan(&stats.Total); err != nil {
		return nil, fmt.Errorf("count competencies: %w", err)
	}

	rows, err := s.queryer(txCtx).QueryContext(txCtx, `SELECT status, COUNT(*) FROM competencies GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count by status: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		switch models.Status(status) {
		case models.StatusDraft:
			stats.Draft = count
		case models.StatusActive:
			stats.Active = count
		case models.StatusDeprecated:
			stats.Deprecated = count
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate status counts: %w", err)
	}

	if err := s.queryer(txCtx).QueryRowContext(txCtx, `SELECT COUNT(DISTINCT subject) FROM competencies`).Scan(&stats.UniqueSubjects); err != nil {
		return nil, fmt.Errorf("count distinct subjects: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit stats snapshot: %w", err)
	}
	return stats, nil
}

// buildFilter assembles the conjunctive WHERE clause shared by the count
// and page queries.
func buildFilter(q models.ListQuery) (string, []any) {
	var clauses []string
	var args []any

	add := func(clause string, value any) {
		args = append(args, value)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}

	if q.Subject != "" {
		add("subject = $%d", q.Subject)
	}
	if q.Domain != "" {
		add("domain = $%d", string(q.Domain))
	}
	if q.AcademicLevel != "" {
		add("academic_level = $%d", string(q.AcademicLevel))
	}
	if q.Status != "" {
		add("status = $%d", string(q.Status))
	}
	if q.Search != "" {
		args = append(args, "%"+q.Search+"%")
		n := len(args)
		clauses = append(clauses, fmt.Sprintf(
			"(code ILIKE $%d OR title ILIKE $%d OR description ILIKE $%d OR subject ILIKE $%d)",
			n, n, n, n,
		))
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCompetency(row rowScanner) (*models.Competency, error) {
	var (
		c          models.Competency
		cid        uuid.UUID
		domain     string
		level      string
		status     string
		reviewedBy sql.NullString
		replacedBy uuid.NullUUID
		activated  sql.NullTime
		deprecated sql.NullTime
	)
	err := row.Scan(
		&cid, &c.Code, &c.Title, &c.Description, &c.Subject, &domain, &level,
		&status, &reviewedBy, &c.CreatedBy, &activated, &deprecated, &replacedBy,
		&c.Version, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.ID = id.CompetencyID(cid)
	c.Domain = models.Domain(domain)
	c.AcademicLevel = models.AcademicLevel(level)
	c.Status = models.Status(status)
	if reviewedBy.Valid {
		c.ReviewedBy = reviewedBy.String
	}
	if activated.Valid {
		t := activated.Time
		c.ActivatedAt = &t
	}
	if deprecated.Valid {
		t := deprecated.Time
		c.DeprecatedAt = &t
	}
	if replacedBy.Valid {
		rb := id.CompetencyID(replacedBy.UUID)
		c.ReplacedBy = &rb
	}
	return &c, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullCompetencyID(cid *id.CompetencyID) uuid.NullUUID {
	if cid == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: uuid.UUID(*cid), Valid: true}
}
