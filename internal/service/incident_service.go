package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/scolaris/vie-scolaire-api/internal/models"
	appErrors "github.com/scolaris/vie-scolaire-api/pkg/errors"
)

type incidentRepository interface {
	Create(ctx context.Context, incident *models.ConductIncident) error
	FindByID(ctx context.Context, id string) (*models.ConductIncident, error)
	Deactivate(ctx context.Context, id string) error
	List(ctx context.Context, filter models.ConductIncidentFilter) ([]models.ConductIncident, int, error)
}

type periodResolver interface {
	CurrentSchoolYear(ctx context.Context) (*models.SchoolYear, error)
	CurrentSemester(ctx context.Context) (*models.Semester, error)
}

type scoreRecomputer interface {
	Recompute(ctx context.Context, studentID, schoolYearID, semesterID string) (*models.ConductScore, error)
}

type statsInvalidator interface {
	InvalidatePeriod(ctx context.Context, schoolYearID, semesterID string)
}

// IncidentService drives the incident lifecycle: create as active,
// deactivate as the terminal correction, and trigger a full score
// recomputation after every mutation.
type IncidentService struct {
	repo      incidentRepository
	periods   periodResolver
	scorer    scoreRecomputer
	stats     statsInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewIncidentService constructs the service.
func NewIncidentService(repo incidentRepository, periods periodResolver, scorer scoreRecomputer, stats statsInvalidator, validate *validator.Validate, logger *zap.Logger) *IncidentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &IncidentService{repo: repo, periods: periods, scorer: scorer, stats: stats, validator: validate, logger: logger}
	svc.validator.RegisterValidation("conduct_category", func(fl validator.FieldLevel) bool {
		return models.ConductCategory(fl.Field().String()).Valid()
	})
	return svc
}

// CreateIncidentRequest describes the create payload.
type CreateIncidentRequest struct {
	StudentID      string     `json:"student_id" validate:"required"`
	Category       string     `json:"category" validate:"required,conduct_category"`
	Description    string     `json:"description" validate:"required"`
	PointsDeducted float64    `json:"points_deducted" validate:"gte=0"`
	ReportedAt     *time.Time `json:"reported_at"`
}

// IncidentListRequest describes filters for listing incidents.
type IncidentListRequest struct {
	StudentID    string `json:"student_id"`
	Category     string `json:"category" validate:"omitempty,conduct_category"`
	SchoolYearID string `json:"school_year_id"`
	SemesterID   string `json:"semester_id"`
	IsActive     *bool  `json:"is_active"`
	Page         int    `json:"page"`
	PageSize     int    `json:"page_size"`
}

// Create validates and persists an incident for the current period, then
// recomputes the student's score. A recompute failure does not undo the
// incident write: recomputation is idempotent and the next mutation
// heals the score.
func (s *IncidentService) Create(ctx context.Context, actor *models.JWTClaims, req CreateIncidentRequest) (*models.ConductIncident, error) {
	if err := s.authorize(actor); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	category := models.ConductCategory(req.Category)
	if req.PointsDeducted > category.MaxPoints() {
		return nil, appErrors.Clone(appErrors.ErrPointsExceedMax, "")
	}

	year, err := s.periods.CurrentSchoolYear(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, appErrors.Clone(appErrors.ErrNoCurrentPeriod, "no active school year configured")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve school year")
	}
	semester, err := s.periods.CurrentSemester(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, appErrors.Clone(appErrors.ErrNoCurrentPeriod, "no active semester configured")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve semester")
	}

	reportedAt := time.Now().UTC()
	if req.ReportedAt != nil {
		reportedAt = req.ReportedAt.UTC()
	}
	incident := &models.ConductIncident{
		StudentID:      req.StudentID,
		Category:       category,
		Description:    req.Description,
		PointsDeducted: req.PointsDeducted,
		ReportedBy:     actor.UserID,
		ReportedAt:     reportedAt,
		SchoolYearID:   year.ID,
		SemesterID:     semester.ID,
	}
	if err := s.repo.Create(ctx, incident); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create conduct incident")
	}

	s.recomputeAfterMutation(ctx, incident, "create")
	return incident, nil
}

// Deactivate transitions an incident to its terminal inactive state and
// recomputes the score using the incident's own stored period, so a
// correction can target a past semester.
func (s *IncidentService) Deactivate(ctx context.Context, actor *models.JWTClaims, incidentID string) error {
	if err := s.authorize(actor); err != nil {
		return err
	}
	incident, err := s.repo.FindByID(ctx, incidentID)
	if err != nil {
		if isNoRows(err) {
			return appErrors.Clone(appErrors.ErrNotFound, "incident not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load incident")
	}
	if !incident.IsActive {
		return appErrors.Clone(appErrors.ErrConflict, "incident is already inactive")
	}
	if err := s.repo.Deactivate(ctx, incidentID); err != nil {
		if isNoRows(err) {
			return appErrors.Clone(appErrors.ErrConflict, "incident is already inactive")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate incident")
	}

	s.recomputeAfterMutation(ctx, incident, "deactivate")
	return nil
}

// List returns incidents with pagination.
func (s *IncidentService) List(ctx context.Context, req IncidentListRequest) ([]models.ConductIncident, *models.Pagination, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid filter")
	}
	filter := models.ConductIncidentFilter{
		StudentID:    req.StudentID,
		Category:     models.ConductCategory(req.Category),
		SchoolYearID: req.SchoolYearID,
		SemesterID:   req.SemesterID,
		IsActive:     req.IsActive,
		Page:         req.Page,
		PageSize:     req.PageSize,
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 50
	}
	incidents, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list incidents")
	}
	pagination := &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}
	return incidents, pagination, nil
}

func (s *IncidentService) authorize(actor *models.JWTClaims) error {
	if actor == nil {
		return appErrors.Clone(appErrors.ErrUnauthorized, "")
	}
	if !actor.Role.CanManageConduct() {
		return appErrors.Clone(appErrors.ErrForbidden, "conduct management requires an educator or director role")
	}
	return nil
}

func (s *IncidentService) recomputeAfterMutation(ctx context.Context, incident *models.ConductIncident, trigger string) {
	if _, err := s.scorer.Recompute(ctx, incident.StudentID, incident.SchoolYearID, incident.SemesterID); err != nil {
		s.logger.Error("score recomputation failed, score is stale until the next mutation",
			zap.String("trigger", trigger),
			zap.String("incident_id", incident.ID),
			zap.String("student_id", incident.StudentID),
			zap.Error(err))
		return
	}
	if s.stats != nil {
		s.stats.InvalidatePeriod(ctx, incident.SchoolYearID, incident.SemesterID)
	}
}
