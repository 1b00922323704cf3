package models

import (
	"time"

	id "medcat/pkg/domain"
	dErrors "medcat/pkg/domain-errors"
)

// Status is the lifecycle state of a competency.
type Status string

const (
	StatusDraft      Status = "DRAFT"
	StatusActive     Status = "ACTIVE"
	StatusDeprecated Status = "DEPRECATED"
)

// Valid reports whether s is a member of the closed status set.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusActive, StatusDeprecated:
		return true
	}
	return false
}

// CanTransitionTo reports whether the lifecycle permits moving to next.
// Transitions are monotonic: DRAFT → ACTIVE → DEPRECATED, with DRAFT
// allowed to deprecate directly. Nothing leaves DEPRECATED.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusDraft:
		return next == StatusActive || next == StatusDeprecated
	case StatusActive:
		return next == StatusDeprecated
	}
	return false
}

// Domain classifies a competency's nature.
type Domain string

const (
	DomainCognitive Domain = "cognitive"
	DomainClinical  Domain = "clinical"
	DomainPractical Domain = "practical"
)

func (d Domain) Valid() bool {
	switch d {
	case DomainCognitive, DomainClinical, DomainPractical:
		return true
	}
	return false
}

// AcademicLevel is the training stage a competency targets.
type AcademicLevel string

const (
	LevelUndergraduate  AcademicLevel = "undergraduate"
	LevelPostgraduate   AcademicLevel = "postgraduate"
	LevelSpecialization AcademicLevel = "specialization"
)

func (l AcademicLevel) Valid() bool {
	switch l {
	case LevelUndergraduate, LevelPostgraduate, LevelSpecialization:
		return true
	}
	return false
}

// Competency is the aggregate root for one curriculum objective.
//
// Invariants:
//   - Code is unique across the catalog and immutable after creation
//   - Status transitions are monotonic: DRAFT → ACTIVE → DEPRECATED;
//     a DEPRECATED record never transitions again
//   - Only a DRAFT competency may be updated (reviewer assignment only)
//     or activated; activation requires a non-empty ReviewedBy
//   - ActivatedAt/DeprecatedAt are set exactly once, on the transition
//   - ReplacedBy is set only on deprecation and must reference a
//     competency that is ACTIVE at that moment; the link is not
//     re-validated if the replacement is later deprecated
//   - CreatedBy and Version are set at creation and never mutated
type Competency struct {
	ID            id.CompetencyID  `json:"id"`
	Code          string           `json:"code"`
	Title         string           `json:"title"`
	Description   string           `json:"description"`
	Subject       string           `json:"subject"`
	Domain        Domain           `json:"domain"`
	AcademicLevel AcademicLevel    `json:"academicLevel"`
	Status        Status           `json:"status"`
	ReviewedBy    string           `json:"reviewedBy,omitempty"`
	CreatedBy     string           `json:"createdBy"`
	ActivatedAt   *time.Time       `json:"activatedAt,omitempty"`
	DeprecatedAt  *time.Time       `json:"deprecatedAt,omitempty"`
	ReplacedBy    *id.CompetencyID `json:"replacedBy,omitempty"`
	Version       int              `json:"version"`
	CreatedAt     time.Time        `json:"createdAt"`
	UpdatedAt     time.Time        `json:"updatedAt"`
}

// NewCompetency constructs a DRAFT competency from a validated request.
func NewCompetency(cid id.CompetencyID, req CreateCompetencyRequest, createdBy string, now time.Time) (*Competency, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if createdBy == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "competency requires a creating actor")
	}
	return &Competency{
		ID:            cid,
		Code:          req.Code,
		Title:         req.Title,
		Description:   req.Description,
		Subject:       req.Subject,
		Domain:        req.Domain,
		AcademicLevel: req.AcademicLevel,
		Status:        StatusDraft,
		CreatedBy:     createdBy,
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// CanAssignReviewer checks that the record is still mutable.
// Use with ApplyReviewer in Execute callbacks.
func (c *Competency) CanAssignReviewer() error {
	if c.Status != StatusDraft {
		return dErrors.Newf(dErrors.CodeInvalidState, "only a DRAFT competency can be updated, current status is %s", c.Status)
	}
	return nil
}

// ApplyReviewer records the reviewer assignment. Call CanAssignReviewer
// first to validate the transition.
func (c *Competency) ApplyReviewer(reviewedBy string, now time.Time) {
	c.ReviewedBy = reviewedBy
	c.UpdatedAt = now
}

// CanActivate checks the DRAFT → ACTIVE transition guard.
func (c *Competency) CanActivate() error {
	if c.Status != StatusDraft {
		return dErrors.Newf(dErrors.CodeInvalidState, "only a DRAFT competency can be activated, current status is %s", c.Status)
	}
	if c.ReviewedBy == "" {
		return dErrors.New(dErrors.CodeInvalidState, "competency must be reviewed before activation")
	}
	return nil
}

// ApplyActivation transitions the competency to ACTIVE and stamps
// ActivatedAt. Call CanActivate first.
func (c *Competency) ApplyActivation(now time.Time) {
	c.Status = StatusActive
	activatedAt := now
	c.ActivatedAt = &activatedAt
	c.UpdatedAt = now
}

// CanDeprecate checks that the record has not already been retired.
func (c *Competency) CanDeprecate() error {
	if c.Status == StatusDeprecated {
		return dErrors.New(dErrors.CodeInvalidState, "competency is already deprecated")
	}
	return nil
}

// ApplyDeprecation transitions the competency to DEPRECATED, stamps
// DeprecatedAt and records the optional replacement link. The caller is
// responsible for verifying the replacement is ACTIVE. Call CanDeprecate
// first.
func (c *Competency) ApplyDeprecation(replacedBy *id.CompetencyID, now time.Time) {
	c.Status = StatusDeprecated
	deprecatedAt := now
	c.DeprecatedAt = &deprecatedAt
	if replacedBy != nil {
		rb := *replacedBy
		c.ReplacedBy = &rb
	}
	c.UpdatedAt = now
}

// Clone returns a deep copy so in-memory stores never hand out aliased
// records.
func (c *Competency) Clone() *Competency {
	cp := *c
	if c.ActivatedAt != nil {
		t := *c.ActivatedAt
		cp.ActivatedAt = &t
	}
	if c.DeprecatedAt != nil {
		t := *c.DeprecatedAt
		cp.DeprecatedAt = &t
	}
	if c.ReplacedBy != nil {
		rb := *c.ReplacedBy
		cp.ReplacedBy = &rb
	}
	return &cp
}
