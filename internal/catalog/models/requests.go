package models

import (
	"strings"

	dErrors "medcat/pkg/domain-errors"
)

// CreateCompetencyRequest carries the caller-supplied fields for a new
// competency. Status, identity and bookkeeping fields are system-assigned.
type CreateCompetencyRequest struct {
	Code          string        `json:"code"`
	Title         string        `json:"title"`
	Description   string        `json:"description"`
	Subject       string        `json:"subject"`
	Domain        Domain        `json:"domain"`
	AcademicLevel AcademicLevel `json:"academicLevel"`
}

// Normalize trims whitespace on the free-text fields.
func (r *CreateCompetencyRequest) Normalize() {
	r.Code = strings.TrimSpace(r.Code)
	r.Title = strings.TrimSpace(r.Title)
	r.Description = strings.TrimSpace(r.Description)
	r.Subject = strings.TrimSpace(r.Subject)
}

// Validate enforces the boundary rules for creation. Call Normalize first.
func (r CreateCompetencyRequest) Validate() error {
	if n := len(r.Code); n < 3 || n > 50 {
		return dErrors.New(dErrors.CodeValidation, "code must be between 3 and 50 characters")
	}
	if n := len(r.Title); n < 5 || n > 200 {
		return dErrors.New(dErrors.CodeValidation, "title must be between 5 and 200 characters")
	}
	if len(r.Description) < 20 {
		return dErrors.New(dErrors.CodeValidation, "description must be at least 20 characters")
	}
	if r.Subject == "" {
		return dErrors.New(dErrors.CodeValidation, "subject is required")
	}
	if !r.Domain.Valid() {
		return dErrors.Newf(dErrors.CodeValidation, "domain must be one of %s, %s, %s", DomainCognitive, DomainClinical, DomainPractical)
	}
	if !r.AcademicLevel.Valid() {
		return dErrors.Newf(dErrors.CodeValidation, "academicLevel must be one of %s, %s, %s", LevelUndergraduate, LevelPostgraduate, LevelSpecialization)
	}
	return nil
}
