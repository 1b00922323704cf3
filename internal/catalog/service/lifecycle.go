package service

import (
	"context"

	"medcat/internal/catalog/models"
	id "medcat/pkg/domain"
	dErrors "medcat/pkg/domain-errors"
	audit "medcat/pkg/platform/audit"
	"medcat/pkg/requestcontext"
)

// Create registers a new DRAFT competency. The code must be unique across
// the catalog; under concurrent submissions of the same code the store's
// unique index arbitrates and exactly one caller wins.
func (s *Service) Create(ctx context.Context, req models.CreateCompetencyRequest, actorID string) (*models.Competency, error) {
	ctx, span := s.tracer.Start(ctx, "catalog.Create")
	defer span.End()

	competency, err := models.NewCompetency(id.NewCompetencyID(), req, actorID, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}

	// Cheap pre-check for a friendly error. The unique index in Create is
	// the real arbiter under races.
	if _, err := s.store.FindByCode(ctx, competency.Code); err == nil {
		return nil, dErrors.Newf(dErrors.CodeConflict, "competency code %q already exists", competency.Code)
	}

	if err := s.store.Create(ctx, competency); err != nil {
		return nil, translateStoreErr(err, "competency not found")
	}

	s.logger.InfoContext(ctx, "competency created",
		"competency_id", competency.ID.String(),
		"code", competency.Code,
		"subject", competency.Subject,
	)
	if s.metrics != nil {
		s.metrics.CompetenciesCreated.Inc()
	}
	s.invalidateAggregates(ctx)
	s.emitAudit(ctx, audit.ActionCompetencyCreated, actorID, competency,
		"competency "+competency.Code+" created as DRAFT",
		map[string]string{"code": competency.Code, "subject": competency.Subject},
	)
	return competency, nil
}

// AssignReviewer records who reviewed a DRAFT competency. This is the only
// mutable field outside the lifecycle transitions.
func (s *Service) AssignReviewer(ctx context.Context, cid id.CompetencyID, reviewedBy, actorID string) (*models.Competency, error) {
	ctx, span := s.tracer.Start(ctx, "catalog.AssignReviewer")
	defer span.End()

	if reviewedBy == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "reviewedBy is required")
	}

	now := requestcontext.Now(ctx)
	competency, err := s.store.Execute(ctx, cid,
		func(c *models.Competency) error { return c.CanAssignReviewer() },
		func(c *models.Competency) { c.ApplyReviewer(reviewedBy, now) },
	)
	if err != nil {
		return nil, translateStoreErr(err, "competency not found")
	}

	s.logger.InfoContext(ctx, "reviewer assigned",
		"competency_id", competency.ID.String(),
		"reviewed_by", reviewedBy,
	)
	if s.metrics != nil {
		s.metrics.ReviewersAssigned.Inc()
	}
	s.emitAudit(ctx, audit.ActionCompetencyReviewed, actorID, competency,
		"reviewer assigned to competency "+competency.Code,
		map[string]string{"reviewedBy": reviewedBy},
	)
	return competency, nil
}

// Activate transitions a reviewed DRAFT competency to ACTIVE. The status
// check and the write happen under the store's record lock, so two
// concurrent activations of the same record yield exactly one success.
func (s *Service) Activate(ctx context.Context, cid id.CompetencyID, actorID string) (*models.Competency, error) {
	ctx, span := s.tracer.Start(ctx, "catalog.Activate")
	defer span.End()

	now := requestcontext.Now(ctx)
	competency, err := s.store.Execute(ctx, cid,
		func(c *models.Competency) error { return c.CanActivate() },
		func(c *models.Competency) { c.ApplyActivation(now) },
	)
	if err != nil {
		return nil, translateStoreErr(err, "competency not found")
	}

	s.logger.InfoContext(ctx, "competency activated",
		"competency_id", competency.ID.String(),
		"code", competency.Code,
	)
	if s.metrics != nil {
		s.metrics.CompetenciesActivated.Inc()
	}
	s.invalidateAggregates(ctx)
	s.emitAudit(ctx, audit.ActionCompetencyActivated, actorID, competency,
		"competency "+competency.Code+" activated",
		nil,
	)
	return competency, nil
}

// Deprecate retires a competency, optionally linking its replacement. The
// replacement must exist and be ACTIVE at deprecation time; the link is a
// historical record and is not re-validated afterwards.
func (s *Service) Deprecate(ctx context.Context, cid id.CompetencyID, replacedBy *id.CompetencyID, actorID string) (*models.Competency, error) {
	ctx, span := s.tracer.Start(ctx, "catalog.Deprecate")
	defer span.End()

	if replacedBy != nil {
		if *replacedBy == cid {
			return nil, dErrors.New(dErrors.CodeValidation, "a competency cannot replace itself")
		}
		replacement, err := s.store.FindByID(ctx, *replacedBy)
		if err != nil {
			return nil, translateStoreErr(err, "replacement competency not found")
		}
		if replacement.Status != models.StatusActive {
			return nil, dErrors.Newf(dErrors.CodeInvalidState, "replacement competency must be ACTIVE, current status is %s", replacement.Status)
		}
	}

	now := requestcontext.Now(ctx)
	competency, err := s.store.Execute(ctx, cid,
		func(c *models.Competency) error { return c.CanDeprecate() },
		func(c *models.Competency) { c.ApplyDeprecation(replacedBy, now) },
	)
	if err != nil {
		return nil, translateStoreErr(err, "competency not found")
	}

	metadata := map[string]string{}
	if competency.ReplacedBy != nil {
		metadata["replacedBy"] = competency.ReplacedBy.String()
	}
	s.logger.InfoContext(ctx, "competency deprecated",
		"competency_id", competency.ID.String(),
		"code", competency.Code,
		"replaced", competency.ReplacedBy != nil,
	)
	if s.metrics != nil {
		s.metrics.CompetenciesDeprecated.Inc()
	}
	s.invalidateAggregates(ctx)
	s.emitAudit(ctx, audit.ActionCompetencyDeprecated, actorID, competency,
		"competency "+competency.Code+" deprecated",
		metadata,
	)
	return competency, nil
}

// Get returns one competency by id.
func (s *Service) Get(ctx context.Context, cid id.CompetencyID) (*models.Competency, error) {
	ctx, span := s.tracer.Start(ctx, "catalog.Get")
	defer span.End()

	competency, err := s.store.FindByID(ctx, cid)
	if err != nil {
		return nil, translateStoreErr(err, "competency not found")
	}
	return competency, nil
}

// GetByCode returns one competency by its unique code.
func (s *Service) GetByCode(ctx context.Context, code string) (*models.Competency, error) {
	ctx, span := s.tracer.Start(ctx, "catalog.GetByCode")
	defer span.End()

	competency, err := s.store.FindByCode(ctx, code)
	if err != nil {
		return nil, translateStoreErr(err, "competency not found")
	}
	return competency, nil
}
