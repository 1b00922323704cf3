package handler

import (
	"net/http"
	"strconv"

	"medcat/internal/catalog/models"
	dErrors "medcat/pkg/domain-errors"
)

type assignReviewerRequest struct {
	ReviewedBy string `json:"reviewedBy"`
}

type deprecateRequest struct {
	ReplacedBy string `json:"replacedBy,omitempty"`
}

// parseListQuery maps URL query parameters onto a ListQuery. Unknown values
// are carried through so the model's Validate can name them in the error.
func parseListQuery(r *http.Request) (models.ListQuery, error) {
	params := r.URL.Query()
	q := models.ListQuery{
		Subject:       params.Get("subject"),
		Domain:        models.Domain(params.Get("domain")),
		AcademicLevel: models.AcademicLevel(params.Get("academicLevel")),
		Status:        models.Status(params.Get("status")),
		Search:        params.Get("search"),
		SortBy:        models.SortKey(params.Get("sortBy")),
		SortDir:       models.SortDirection(params.Get("sortDir")),
	}

	var err error
	if q.Page, err = parseIntParam(params.Get("page"), "page"); err != nil {
		return q, err
	}
	if q.Limit, err = parseIntParam(params.Get("limit"), "limit"); err != nil {
		return q, err
	}
	return q, nil
}

func parseIntParam(raw, name string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, dErrors.Newf(dErrors.CodeValidation, "%s must be an integer", name)
	}
	return n, nil
}
