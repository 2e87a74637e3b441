package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/scolaris/vie-scolaire-api/internal/models"
)

// PeriodRepository resolves school years and semesters.
type PeriodRepository struct {
	db *sqlx.DB
}

// NewPeriodRepository constructs a new repository.
func NewPeriodRepository(db *sqlx.DB) *PeriodRepository {
	return &PeriodRepository{db: db}
}

const schoolYearColumns = `id, label, start_date, end_date, is_active, created_at, updated_at`
const semesterColumns = `id, school_year_id, name, sequence, start_date, end_date, is_active, created_at, updated_at`

// CurrentSchoolYear returns the active school year. sql.ErrNoRows means
// none is configured.
func (r *PeriodRepository) CurrentSchoolYear(ctx context.Context) (*models.SchoolYear, error) {
	query := fmt.Sprintf("SELECT %s FROM school_years WHERE is_active = true ORDER BY start_date DESC LIMIT 1", schoolYearColumns)
	var year models.SchoolYear
	if err := r.db.GetContext(ctx, &year, query); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("current school year: %w", err)
	}
	return &year, nil
}

// CurrentSemester returns the active semester. sql.ErrNoRows means none
// is configured.
func (r *PeriodRepository) CurrentSemester(ctx context.Context) (*models.Semester, error) {
	query := fmt.Sprintf("SELECT %s FROM semesters WHERE is_active = true ORDER BY start_date DESC LIMIT 1", semesterColumns)
	var semester models.Semester
	if err := r.db.GetContext(ctx, &semester, query); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("current semester: %w", err)
	}
	return &semester, nil
}

// PreviousSemester returns the semester immediately preceding the given
// one by sequence within the same school year. sql.ErrNoRows means the
// given semester is the first of its year.
func (r *PeriodRepository) PreviousSemester(ctx context.Context, semesterID string) (*models.Semester, error) {
	query := `SELECT p.id, p.school_year_id, p.name, p.sequence, p.start_date, p.end_date, p.is_active, p.created_at, p.updated_at
FROM semesters p
WHERE p.school_year_id = (SELECT school_year_id FROM semesters WHERE id = $1)
  AND p.sequence = (SELECT sequence FROM semesters WHERE id = $1) - 1`
	var semester models.Semester
	if err := r.db.GetContext(ctx, &semester, query, semesterID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("previous semester: %w", err)
	}
	return &semester, nil
}
