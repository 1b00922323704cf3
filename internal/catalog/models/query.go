package models

import (
	"strings"

	dErrors "medcat/pkg/domain-errors"
)

// SortKey enumerates the columns a caller may sort listings by. Caller
// input is matched against this closed set; stores map each key to a fixed
// ordering expression so caller text never reaches a query.
type SortKey string

const (
	SortByCode          SortKey = "code"
	SortByTitle         SortKey = "title"
	SortBySubject       SortKey = "subject"
	SortByDomain        SortKey = "domain"
	SortByAcademicLevel SortKey = "academicLevel"
	SortByCreatedAt     SortKey = "createdAt"
	SortByStatus        SortKey = "status"
)

func (k SortKey) Valid() bool {
	switch k {
	case SortByCode, SortByTitle, SortBySubject, SortByDomain,
		SortByAcademicLevel, SortByCreatedAt, SortByStatus:
		return true
	}
	return false
}

// SortDirection is asc or desc.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

func (d SortDirection) Valid() bool {
	return d == SortAsc || d == SortDesc
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// ListQuery describes a filtered, sorted, paginated catalog listing.
// Exact-match filters are conjunctive; Search is OR-combined across
// code/title/description/subject (case-insensitive substring) and AND-ed
// with the rest.
type ListQuery struct {
	Subject       string
	Domain        Domain
	AcademicLevel AcademicLevel
	Status        Status
	Search        string

	SortBy  SortKey
	SortDir SortDirection

	Page  int
	Limit int
}

// Normalize trims inputs and applies defaults: sort code asc, page 1,
// limit 20 (capped at 100).
func (q *ListQuery) Normalize() {
	q.Subject = strings.TrimSpace(q.Subject)
	q.Search = strings.TrimSpace(q.Search)
	if q.SortBy == "" {
		q.SortBy = SortByCode
	}
	if q.SortDir == "" {
		q.SortDir = SortAsc
	}
	if q.Page == 0 {
		q.Page = 1
	}
	if q.Limit == 0 {
		q.Limit = defaultPageSize
	}
	if q.Limit > maxPageSize {
		q.Limit = maxPageSize
	}
}

// Validate rejects unknown sort keys, directions, filter values and
// non-positive paging. Call Normalize first.
func (q ListQuery) Validate() error {
	if !q.SortBy.Valid() {
		return dErrors.Newf(dErrors.CodeValidation, "unknown sort field %q", string(q.SortBy))
	}
	if !q.SortDir.Valid() {
		return dErrors.Newf(dErrors.CodeValidation, "sort direction must be asc or desc, got %q", string(q.SortDir))
	}
	if q.Domain != "" && !q.Domain.Valid() {
		return dErrors.Newf(dErrors.CodeValidation, "unknown domain filter %q", string(q.Domain))
	}
	if q.AcademicLevel != "" && !q.AcademicLevel.Valid() {
		return dErrors.Newf(dErrors.CodeValidation, "unknown academicLevel filter %q", string(q.AcademicLevel))
	}
	if q.Status != "" && !q.Status.Valid() {
		return dErrors.Newf(dErrors.CodeValidation, "unknown status filter %q", string(q.Status))
	}
	if q.Page < 1 {
		return dErrors.New(dErrors.CodeValidation, "page must be 1 or greater")
	}
	if q.Limit < 1 {
		return dErrors.New(dErrors.CodeValidation, "limit must be positive")
	}
	return nil
}

// Offset converts 1-indexed paging to a row offset.
func (q ListQuery) Offset() int {
	return (q.Page - 1) * q.Limit
}

// Page is one page of catalog results plus pre-pagination totals.
type Page struct {
	Items      []*Competency `json:"items"`
	Total      int           `json:"total"`
	Page       int           `json:"page"`
	Limit      int           `json:"limit"`
	TotalPages int           `json:"totalPages"`
}

// NewPage assembles a result page, deriving TotalPages = ceil(total/limit).
func NewPage(items []*Competency, total int, q ListQuery) *Page {
	if items == nil {
		items = []*Competency{}
	}
	return &Page{
		Items:      items,
		Total:      total,
		Page:       q.Page,
		Limit:      q.Limit,
		TotalPages: (total + q.Limit - 1) / q.Limit,
	}
}

// SubjectCount is one row of the ACTIVE-only subject aggregate.
type SubjectCount struct {
	Subject string `json:"subject"`
	Count   int    `json:"count"`
}

// CatalogStats is the aggregate dashboard figure set. All counts are
// computed from one consistent snapshot of the catalog.
type CatalogStats struct {
	Total          int `json:"total"`
	Draft          int `json:"draft"`
	Active         int `json:"active"`
	Deprecated     int `json:"deprecated"`
	UniqueSubjects int `json:"uniqueSubjects"`
}
