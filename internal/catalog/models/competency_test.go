package models

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	id "medcat/pkg/domain"
	dErrors "medcat/pkg/domain-errors"
)

type CompetencySuite struct {
	suite.Suite
	now time.Time
}

func TestCompetencySuite(t *testing.T) {
	suite.Run(t, new(CompetencySuite))
}

func (s *CompetencySuite) SetupTest() {
	s.now = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
}

func (s *CompetencySuite) validRequest() CreateCompetencyRequest {
	return CreateCompetencyRequest{
		Code:          "CARD-001",
		Title:         "Interpret a 12-lead ECG",
		Description:   "Recognise common arrhythmias and ischaemic changes on a standard 12-lead ECG.",
		Subject:       "Cardiology",
		Domain:        DomainClinical,
		AcademicLevel: LevelUndergraduate,
	}
}

func (s *CompetencySuite) TestNewCompetency() {
	s.Run("creates a DRAFT record with system fields set", func() {
		c, err := NewCompetency(id.NewCompetencyID(), s.validRequest(), "prof-garcia", s.now)
		s.Require().NoError(err)

		s.Equal(StatusDraft, c.Status)
		s.Equal("prof-garcia", c.CreatedBy)
		s.Equal(1, c.Version)
		s.Equal(s.now, c.CreatedAt)
		s.Equal(s.now, c.UpdatedAt)
		s.Empty(c.ReviewedBy)
		s.Nil(c.ActivatedAt)
		s.Nil(c.DeprecatedAt)
		s.Nil(c.ReplacedBy)
	})

	s.Run("trims free-text fields", func() {
		req := s.validRequest()
		req.Code = "  CARD-001  "
		req.Subject = " Cardiology "

		c, err := NewCompetency(id.NewCompetencyID(), req, "prof-garcia", s.now)
		s.Require().NoError(err)
		s.Equal("CARD-001", c.Code)
		s.Equal("Cardiology", c.Subject)
	})

	s.Run("requires a creating actor", func() {
		_, err := NewCompetency(id.NewCompetencyID(), s.validRequest(), "", s.now)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})
}

func (s *CompetencySuite) TestRequestValidation() {
	cases := []struct {
		name   string
		mutate func(*CreateCompetencyRequest)
	}{
		{"code too short", func(r *CreateCompetencyRequest) { r.Code = "AB" }},
		{"code too long", func(r *CreateCompetencyRequest) { r.Code = strings.Repeat("C", 51) }},
		{"title too short", func(r *CreateCompetencyRequest) { r.Title = "ECG" }},
		{"title too long", func(r *CreateCompetencyRequest) { r.Title = strings.Repeat("t", 201) }},
		{"description too short", func(r *CreateCompetencyRequest) { r.Description = "too short" }},
		{"empty description", func(r *CreateCompetencyRequest) { r.Description = "" }},
		{"empty subject", func(r *CreateCompetencyRequest) { r.Subject = "   " }},
		{"unknown domain", func(r *CreateCompetencyRequest) { r.Domain = "theoretical" }},
		{"unknown level", func(r *CreateCompetencyRequest) { r.AcademicLevel = "kindergarten" }},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			req := s.validRequest()
			tc.mutate(&req)
			req.Normalize()
			err := req.Validate()
			s.Require().Error(err)
			s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		})
	}
}

func (s *CompetencySuite) TestStatusTransitions() {
	s.Run("permits only the monotonic sequence", func() {
		s.True(StatusDraft.CanTransitionTo(StatusActive))
		s.True(StatusDraft.CanTransitionTo(StatusDeprecated))
		s.True(StatusActive.CanTransitionTo(StatusDeprecated))

		s.False(StatusActive.CanTransitionTo(StatusDraft))
		s.False(StatusDeprecated.CanTransitionTo(StatusDraft))
		s.False(StatusDeprecated.CanTransitionTo(StatusActive))
		s.False(StatusDeprecated.CanTransitionTo(StatusDeprecated))
	})
}

func (s *CompetencySuite) TestReviewerAssignment() {
	c, err := NewCompetency(id.NewCompetencyID(), s.validRequest(), "prof-garcia", s.now)
	s.Require().NoError(err)

	s.Run("allowed while DRAFT", func() {
		s.Require().NoError(c.CanAssignReviewer())
		later := s.now.Add(time.Hour)
		c.ApplyReviewer("dr-okafor", later)
		s.Equal("dr-okafor", c.ReviewedBy)
		s.Equal(later, c.UpdatedAt)
	})

	s.Run("rejected once ACTIVE", func() {
		c.ApplyActivation(s.now.Add(2 * time.Hour))
		err := c.CanAssignReviewer()
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})
}

func (s *CompetencySuite) TestActivation() {
	s.Run("rejected without a reviewer", func() {
		c, err := NewCompetency(id.NewCompetencyID(), s.validRequest(), "prof-garcia", s.now)
		s.Require().NoError(err)

		err = c.CanActivate()
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})

	s.Run("stamps ActivatedAt exactly once", func() {
		c, err := NewCompetency(id.NewCompetencyID(), s.validRequest(), "prof-garcia", s.now)
		s.Require().NoError(err)
		c.ApplyReviewer("dr-okafor", s.now)

		s.Require().NoError(c.CanActivate())
		activatedAt := s.now.Add(time.Hour)
		c.ApplyActivation(activatedAt)

		s.Equal(StatusActive, c.Status)
		s.Require().NotNil(c.ActivatedAt)
		s.Equal(activatedAt, *c.ActivatedAt)
	})

	s.Run("rejected for non-DRAFT records", func() {
		c, err := NewCompetency(id.NewCompetencyID(), s.validRequest(), "prof-garcia", s.now)
		s.Require().NoError(err)
		c.ApplyReviewer("dr-okafor", s.now)
		c.ApplyActivation(s.now)

		err = c.CanActivate()
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})
}

func (s *CompetencySuite) TestDeprecation() {
	s.Run("allowed from DRAFT and ACTIVE, stamps DeprecatedAt", func() {
		c, err := NewCompetency(id.NewCompetencyID(), s.validRequest(), "prof-garcia", s.now)
		s.Require().NoError(err)

		s.Require().NoError(c.CanDeprecate())
		replacement := id.NewCompetencyID()
		deprecatedAt := s.now.Add(time.Hour)
		c.ApplyDeprecation(&replacement, deprecatedAt)

		s.Equal(StatusDeprecated, c.Status)
		s.Require().NotNil(c.DeprecatedAt)
		s.Equal(deprecatedAt, *c.DeprecatedAt)
		s.Require().NotNil(c.ReplacedBy)
		s.Equal(replacement, *c.ReplacedBy)
	})

	s.Run("DEPRECATED is terminal", func() {
		c, err := NewCompetency(id.NewCompetencyID(), s.validRequest(), "prof-garcia", s.now)
		s.Require().NoError(err)
		c.ApplyDeprecation(nil, s.now)

		err = c.CanDeprecate()
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})
}

func (s *CompetencySuite) TestCloneIsDeep() {
	c, err := NewCompetency(id.NewCompetencyID(), s.validRequest(), "prof-garcia", s.now)
	s.Require().NoError(err)
	c.ApplyReviewer("dr-okafor", s.now)
	c.ApplyActivation(s.now)

	cp := c.Clone()
	cp.ApplyDeprecation(nil, s.now.Add(time.Hour))

	s.Equal(StatusActive, c.Status)
	s.Nil(c.DeprecatedAt)
	s.Equal(StatusDeprecated, cp.Status)
}
