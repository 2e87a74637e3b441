package models

import "time"

// AggregateStats is the school-wide conduct distribution for one period.
// It is a derived view, recomputed on read.
type AggregateStats struct {
	SchoolID          string               `json:"school_id"`
	SchoolYearID      string               `json:"school_year_id"`
	SemesterID        string               `json:"semester_id"`
	TotalStudents     int                  `json:"total_students"`
	AverageScore      float64              `json:"average_score"`
	ExcellenceRate    float64              `json:"excellence_rate"`
	GradeDistribution map[ConductGrade]int `json:"grade_distribution"`
	RecentIncidents   int                  `json:"recent_incidents"`
	ImprovementTrend  float64              `json:"improvement_trend"`
	GeneratedAt       time.Time            `json:"generated_at"`
}
