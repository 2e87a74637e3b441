package models

import "time"

// ConductCategory identifies one of the four fixed scoring dimensions.
type ConductCategory string

const (
	CategoryAttendance ConductCategory = "ATTENDANCE"
	CategoryDresscode  ConductCategory = "DRESSCODE"
	CategoryMorality   ConductCategory = "MORALITY"
	CategoryDiscipline ConductCategory = "DISCIPLINE"
)

// Category point budgets are regulation constants; the four maxima sum
// to MaxTotalScore.
const (
	AttendanceMaxPoints = 6.0
	DresscodeMaxPoints  = 3.0
	MoralityMaxPoints   = 4.0
	DisciplineMaxPoints = 7.0

	MaxTotalScore = 20.0
)

// Categories lists the registry in display order.
func Categories() []ConductCategory {
	return []ConductCategory{CategoryAttendance, CategoryDresscode, CategoryMorality, CategoryDiscipline}
}

// Valid returns true when the category is part of the registry.
func (c ConductCategory) Valid() bool {
	switch c {
	case CategoryAttendance, CategoryDresscode, CategoryMorality, CategoryDiscipline:
		return true
	default:
		return false
	}
}

// MaxPoints returns the category point budget. Unknown categories have
// no budget.
func (c ConductCategory) MaxPoints() float64 {
	switch c {
	case CategoryAttendance:
		return AttendanceMaxPoints
	case CategoryDresscode:
		return DresscodeMaxPoints
	case CategoryMorality:
		return MoralityMaxPoints
	case CategoryDiscipline:
		return DisciplineMaxPoints
	default:
		return 0
	}
}

// ConductGrade is the discrete band derived from the total score.
type ConductGrade string

const (
	GradeTresBonne ConductGrade = "TRES_BONNE"
	GradeBonne     ConductGrade = "BONNE"
	GradePassable  ConductGrade = "PASSABLE"
	GradeMauvaise  ConductGrade = "MAUVAISE"
	GradeBlame     ConductGrade = "BLAME"
)

// Band thresholds (inclusive lower bounds).
const (
	tresBonneThreshold = 16.0
	bonneThreshold     = 13.0
	passableThreshold  = 10.0
	mauvaiseThreshold  = 6.0
)

// GradeOf maps a total score to its band. The bands are contiguous and
// cover the full [0, 20] range.
func GradeOf(total float64) ConductGrade {
	switch {
	case total >= tresBonneThreshold:
		return GradeTresBonne
	case total >= bonneThreshold:
		return GradeBonne
	case total >= passableThreshold:
		return GradePassable
	case total >= mauvaiseThreshold:
		return GradeMauvaise
	default:
		return GradeBlame
	}
}

// Rank orders bands from worst (0) to best (4).
func (g ConductGrade) Rank() int {
	switch g {
	case GradeTresBonne:
		return 4
	case GradeBonne:
		return 3
	case GradePassable:
		return 2
	case GradeMauvaise:
		return 1
	default:
		return 0
	}
}

// IsExcellent reports whether the band counts toward the excellence rate.
func (g ConductGrade) IsExcellent() bool {
	return g == GradeTresBonne || g == GradeBonne
}

// ConductIncident records one disciplinary event deducting points from a
// category. Incidents are never hard-deleted; corrections deactivate the
// original and file a new one.
type ConductIncident struct {
	ID             string          `db:"id" json:"id"`
	StudentID      string          `db:"student_id" json:"student_id"`
	Category       ConductCategory `db:"category" json:"category"`
	Description    string          `db:"description" json:"description"`
	PointsDeducted float64         `db:"points_deducted" json:"points_deducted"`
	ReportedBy     string          `db:"reported_by" json:"reported_by"`
	ReportedAt     time.Time       `db:"reported_at" json:"reported_at"`
	SchoolYearID   string          `db:"school_year_id" json:"school_year_id"`
	SemesterID     string          `db:"semester_id" json:"semester_id"`
	IsActive       bool            `db:"is_active" json:"is_active"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updated_at"`
}

// ConductIncidentFilter scopes incident listing.
type ConductIncidentFilter struct {
	StudentID    string
	Category     ConductCategory
	SchoolYearID string
	SemesterID   string
	IsActive     *bool
	Page         int
	PageSize     int
}

// ConductScore is the single score row per (student, schoolYear,
// semester). It is always rewritten whole, never patched field by field.
type ConductScore struct {
	StudentID       string       `db:"student_id" json:"student_id"`
	SchoolYearID    string       `db:"school_year_id" json:"school_year_id"`
	SemesterID      string       `db:"semester_id" json:"semester_id"`
	AttendanceScore float64      `db:"attendance_score" json:"attendance_score"`
	DresscodeScore  float64      `db:"dresscode_score" json:"dresscode_score"`
	MoralityScore   float64      `db:"morality_score" json:"morality_score"`
	DisciplineScore float64      `db:"discipline_score" json:"discipline_score"`
	TotalScore      float64      `db:"total_score" json:"total_score"`
	Grade           ConductGrade `db:"grade" json:"grade"`
	LastUpdated     time.Time    `db:"last_updated" json:"last_updated"`
}

// ConductScoreRow extends a score with student metadata for listings and
// exports.
type ConductScoreRow struct {
	ConductScore
	StudentName string  `db:"student_name" json:"student_name"`
	ClassName   *string `db:"class_name" json:"class_name,omitempty"`
}
