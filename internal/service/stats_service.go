package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/scolaris/vie-scolaire-api/internal/models"
	appErrors "github.com/scolaris/vie-scolaire-api/pkg/errors"
)

type scoreLister interface {
	ListBySchool(ctx context.Context, schoolID, schoolYearID, semesterID string) ([]models.ConductScoreRow, error)
	AverageTotal(ctx context.Context, schoolID, schoolYearID, semesterID string) (float64, bool, error)
}

type recentIncidentCounter interface {
	CountRecentActive(ctx context.Context, schoolID string, since time.Time) (int, error)
}

type previousSemesterResolver interface {
	PreviousSemester(ctx context.Context, semesterID string) (*models.Semester, error)
}

// StatsService computes school-wide conduct distributions. The stats are
// a derived view over the current score rows; nothing here mutates
// state besides the cache.
type StatsService struct {
	scores       scoreLister
	incidents    recentIncidentCounter
	periods      previousSemesterResolver
	cache        *CacheService
	metrics      *MetricsService
	logger       *zap.Logger
	recentWindow time.Duration
	cacheTTL     time.Duration
	now          func() time.Time
}

// StatsServiceParams groups constructor dependencies.
type StatsServiceParams struct {
	Scores       scoreLister
	Incidents    recentIncidentCounter
	Periods      previousSemesterResolver
	Cache        *CacheService
	Metrics      *MetricsService
	Logger       *zap.Logger
	RecentWindow time.Duration
	CacheTTL     time.Duration
}

// NewStatsService constructs a StatsService with sane defaults.
func NewStatsService(params StatsServiceParams) *StatsService {
	recentWindow := params.RecentWindow
	if recentWindow <= 0 {
		recentWindow = 7 * 24 * time.Hour
	}
	cacheTTL := params.CacheTTL
	if cacheTTL <= 0 {
		cacheTTL = 10 * time.Minute
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatsService{
		scores:       params.Scores,
		incidents:    params.Incidents,
		periods:      params.Periods,
		cache:        params.Cache,
		metrics:      params.Metrics,
		logger:       logger,
		recentWindow: recentWindow,
		cacheTTL:     cacheTTL,
		now:          time.Now,
	}
}

// Aggregate returns the conduct distribution for a school period. The
// boolean indicates whether data originated from cache.
func (s *StatsService) Aggregate(ctx context.Context, schoolID, schoolYearID, semesterID string) (*models.AggregateStats, bool, error) {
	if schoolID == "" {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "schoolId is required")
	}
	cacheKey := statsCacheKey(schoolID, schoolYearID, semesterID)
	if s.cache != nil {
		var cached models.AggregateStats
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err != nil {
			s.logger.Warn("stats cache read failed", zap.String("key", cacheKey), zap.Error(err))
		} else if hit {
			return &cached, true, nil
		}
	}

	start := s.now()
	stats, err := s.compose(ctx, schoolID, schoolYearID, semesterID)
	if err != nil {
		return nil, false, err
	}
	if s.metrics != nil {
		s.metrics.ObserveDBQuery("conduct_stats", time.Since(start))
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, stats, s.cacheTTL); err != nil {
			s.logger.Warn("stats cache write failed", zap.String("key", cacheKey), zap.Error(err))
		}
	}
	return stats, false, nil
}

// InvalidatePeriod drops cached stats for every school in the given
// period. Called after each incident mutation.
func (s *StatsService) InvalidatePeriod(ctx context.Context, schoolYearID, semesterID string) {
	if s.cache == nil {
		return
	}
	pattern := fmt.Sprintf("conduct:stats:*:%s:%s", schoolYearID, semesterID)
	if err := s.cache.Invalidate(ctx, pattern); err != nil {
		s.logger.Warn("stats cache invalidation failed", zap.String("pattern", pattern), zap.Error(err))
	}
}

func (s *StatsService) compose(ctx context.Context, schoolID, schoolYearID, semesterID string) (*models.AggregateStats, error) {
	rows, err := s.scores.ListBySchool(ctx, schoolID, schoolYearID, semesterID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load conduct scores")
	}

	stats := &models.AggregateStats{
		SchoolID:          schoolID,
		SchoolYearID:      schoolYearID,
		SemesterID:        semesterID,
		TotalStudents:     len(rows),
		GradeDistribution: emptyDistribution(),
		GeneratedAt:       s.now().UTC(),
	}

	var totalSum float64
	var excellent int
	for _, row := range rows {
		totalSum += row.TotalScore
		stats.GradeDistribution[row.Grade]++
		if row.Grade.IsExcellent() {
			excellent++
		}
	}
	if len(rows) > 0 {
		stats.AverageScore = totalSum / float64(len(rows))
		stats.ExcellenceRate = roundOneDecimal(float64(excellent) / float64(len(rows)) * 100)
	}

	since := s.now().UTC().Add(-s.recentWindow)
	recent, err := s.incidents.CountRecentActive(ctx, schoolID, since)
	if err != nil {
		s.logger.Warn("recent incident count failed", zap.String("school_id", schoolID), zap.Error(err))
	} else {
		stats.RecentIncidents = recent
	}

	stats.ImprovementTrend = s.trend(ctx, schoolID, semesterID, stats.AverageScore)
	return stats, nil
}

// trend compares the current average against the immediately preceding
// semester. No previous semester, no previous scores or a zero previous
// average all yield a flat trend.
func (s *StatsService) trend(ctx context.Context, schoolID, semesterID string, currentAverage float64) float64 {
	previous, err := s.periods.PreviousSemester(ctx, semesterID)
	if err != nil {
		if !isNoRows(err) {
			s.logger.Warn("previous semester lookup failed", zap.String("semester_id", semesterID), zap.Error(err))
		}
		return 0
	}
	previousAverage, found, err := s.scores.AverageTotal(ctx, schoolID, previous.SchoolYearID, previous.ID)
	if err != nil {
		s.logger.Warn("previous period average failed", zap.String("semester_id", previous.ID), zap.Error(err))
		return 0
	}
	if !found || previousAverage <= 0 {
		return 0
	}
	return roundOneDecimal((currentAverage - previousAverage) / previousAverage * 100)
}

func emptyDistribution() map[models.ConductGrade]int {
	return map[models.ConductGrade]int{
		models.GradeTresBonne: 0,
		models.GradeBonne:     0,
		models.GradePassable:  0,
		models.GradeMauvaise:  0,
		models.GradeBlame:     0,
	}
}

func roundOneDecimal(value float64) float64 {
	return math.Round(value*10) / 10
}

func statsCacheKey(schoolID, schoolYearID, semesterID string) string {
	return fmt.Sprintf("conduct:stats:%s:%s:%s", schoolID, schoolYearID, semesterID)
}
