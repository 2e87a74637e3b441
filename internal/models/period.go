package models

import "time"

// SchoolYear models an academic year within the institution calendar.
type SchoolYear struct {
	ID        string    `db:"id" json:"id"`
	Label     string    `db:"label" json:"label"`
	StartDate time.Time `db:"start_date" json:"start_date"`
	EndDate   time.Time `db:"end_date" json:"end_date"`
	IsActive  bool      `db:"is_active" json:"is_active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Semester models one semester of a school year. Sequence orders the
// semesters within their year (1, 2, ...).
type Semester struct {
	ID           string    `db:"id" json:"id"`
	SchoolYearID string    `db:"school_year_id" json:"school_year_id"`
	Name         string    `db:"name" json:"name"`
	Sequence     int       `db:"sequence" json:"sequence"`
	StartDate    time.Time `db:"start_date" json:"start_date"`
	EndDate      time.Time `db:"end_date" json:"end_date"`
	IsActive     bool      `db:"is_active" json:"is_active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Period pairs a school year and semester, the scope every conduct
// record lives in.
type Period struct {
	SchoolYearID string `json:"school_year_id"`
	SemesterID   string `json:"semester_id"`
}
