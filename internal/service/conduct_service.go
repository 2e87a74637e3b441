package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/scolaris/vie-scolaire-api/internal/models"
	appErrors "github.com/scolaris/vie-scolaire-api/pkg/errors"
)

// Attendance policy constants. One absence record equals one missed
// session-hour. Late arrivals are tracked but carry no deduction; the
// rule is paused, not removed (see lateDeduction).
const (
	absenceDeduction      = 0.5
	absenceThresholdHours = 10
	thresholdPenalty      = 1.0
	lateDeduction         = 0.0
)

type activeIncidentLister interface {
	ListActive(ctx context.Context, studentID, schoolYearID, semesterID string) ([]models.ConductIncident, error)
}

type attendanceReader interface {
	ListByStudentPeriod(ctx context.Context, studentID, schoolYearID, semesterID string) ([]models.AttendanceRecord, error)
}

type scoreWriter interface {
	Upsert(ctx context.Context, score *models.ConductScore) error
	Find(ctx context.Context, studentID, schoolYearID, semesterID string) (*models.ConductScore, error)
}

// ConductService composes the conduct score: it derives the attendance
// base from raw attendance data, aggregates incident deductions per
// category, bounds every category to its budget and maps the total to a
// grade band. Recomputation is a pure function of the current active
// incident set plus attendance data, so it is idempotent and safe to
// retry after any failure.
type ConductService struct {
	incidents  activeIncidentLister
	attendance attendanceReader
	scores     scoreWriter
	metrics    *MetricsService
	logger     *zap.Logger
	now        func() time.Time
}

// NewConductService constructs the score composer.
func NewConductService(incidents activeIncidentLister, attendance attendanceReader, scores scoreWriter, metrics *MetricsService, logger *zap.Logger) *ConductService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConductService{
		incidents:  incidents,
		attendance: attendance,
		scores:     scores,
		metrics:    metrics,
		logger:     logger,
		now:        time.Now,
	}
}

// AttendanceResult couples the attendance category score with the stats
// behind it.
type AttendanceResult struct {
	Score float64                `json:"score"`
	Stats models.AttendanceStats `json:"stats"`
}

// AttendanceScore derives the attendance category score from raw
// attendance records. A failing attendance read yields the category
// maximum with zeroed stats; attendance unavailability must never block
// recomputation of the other categories.
func (s *ConductService) AttendanceScore(ctx context.Context, studentID, schoolYearID, semesterID string) AttendanceResult {
	records, err := s.attendance.ListByStudentPeriod(ctx, studentID, schoolYearID, semesterID)
	if err != nil {
		s.logger.Warn("attendance read failed, defaulting to category maximum",
			zap.String("student_id", studentID),
			zap.String("semester_id", semesterID),
			zap.Error(err))
		return AttendanceResult{Score: models.AttendanceMaxPoints, Stats: models.AttendanceStats{AttendanceRate: 100}}
	}
	return scoreAttendance(records)
}

func scoreAttendance(records []models.AttendanceRecord) AttendanceResult {
	stats := models.AttendanceStats{TotalSessions: len(records), AttendanceRate: 100}
	for _, record := range records {
		switch record.Status {
		case models.AttendanceStatusAbsent:
			stats.Absences++
		case models.AttendanceStatusLate:
			stats.Lates++
		}
	}
	if stats.TotalSessions > 0 {
		stats.AttendanceRate = float64(stats.TotalSessions-stats.Absences) / float64(stats.TotalSessions) * 100
	}

	deductions := float64(stats.Absences) * absenceDeduction
	if stats.Absences >= absenceThresholdHours {
		deductions += thresholdPenalty
	}
	deductions += float64(stats.Lates) * lateDeduction

	score := models.AttendanceMaxPoints - deductions
	if score < 0 {
		score = 0
	}
	return AttendanceResult{Score: score, Stats: stats}
}

// Recompute rebuilds the student's score for the given period from
// scratch and upserts the row. The active incident list is essential and
// its read errors propagate; the attendance read degrades to the
// category maximum.
func (s *ConductService) Recompute(ctx context.Context, studentID, schoolYearID, semesterID string) (*models.ConductScore, error) {
	start := s.now()
	incidents, err := s.incidents.ListActive(ctx, studentID, schoolYearID, semesterID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load active incidents")
	}

	deductions := make(map[models.ConductCategory]float64, 4)
	for _, incident := range incidents {
		deductions[incident.Category] += incident.PointsDeducted
	}

	attendance := s.AttendanceScore(ctx, studentID, schoolYearID, semesterID)

	score := &models.ConductScore{
		StudentID:       studentID,
		SchoolYearID:    schoolYearID,
		SemesterID:      semesterID,
		AttendanceScore: clampScore(attendance.Score-deductions[models.CategoryAttendance], models.AttendanceMaxPoints),
		DresscodeScore:  clampScore(models.DresscodeMaxPoints-deductions[models.CategoryDresscode], models.DresscodeMaxPoints),
		MoralityScore:   clampScore(models.MoralityMaxPoints-deductions[models.CategoryMorality], models.MoralityMaxPoints),
		DisciplineScore: clampScore(models.DisciplineMaxPoints-deductions[models.CategoryDiscipline], models.DisciplineMaxPoints),
		LastUpdated:     s.now().UTC(),
	}
	score.TotalScore = score.AttendanceScore + score.DresscodeScore + score.MoralityScore + score.DisciplineScore
	score.Grade = models.GradeOf(score.TotalScore)

	if err := s.scores.Upsert(ctx, score); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist conduct score")
	}
	if s.metrics != nil {
		s.metrics.ObserveRecompute(time.Since(start))
	}
	return score, nil
}

// Get returns the persisted score for a student period, recomputing it
// on demand when no row exists yet.
func (s *ConductService) Get(ctx context.Context, studentID, schoolYearID, semesterID string) (*models.ConductScore, error) {
	score, err := s.scores.Find(ctx, studentID, schoolYearID, semesterID)
	if err == nil {
		return score, nil
	}
	if !isNoRows(err) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load conduct score")
	}
	return s.Recompute(ctx, studentID, schoolYearID, semesterID)
}

func clampScore(value, max float64) float64 {
	if value < 0 {
		return 0
	}
	if value > max {
		return max
	}
	return value
}
