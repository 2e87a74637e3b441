package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/scolaris/vie-scolaire-api/internal/models"
	appErrors "github.com/scolaris/vie-scolaire-api/pkg/errors"
)

// PeriodService resolves the active grading period.
type PeriodService struct {
	repo   periodResolver
	logger *zap.Logger
}

// NewPeriodService constructs the period service.
func NewPeriodService(repo periodResolver, logger *zap.Logger) *PeriodService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PeriodService{repo: repo, logger: logger}
}

// Current returns the active school year and semester pair.
func (s *PeriodService) Current(ctx context.Context) (*models.Period, error) {
	year, err := s.repo.CurrentSchoolYear(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, appErrors.Clone(appErrors.ErrNoCurrentPeriod, "no active school year")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve school year")
	}
	semester, err := s.repo.CurrentSemester(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, appErrors.Clone(appErrors.ErrNoCurrentPeriod, "no active semester")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve semester")
	}
	return &models.Period{SchoolYearID: year.ID, SemesterID: semester.ID}, nil
}
