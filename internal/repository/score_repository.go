package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/scolaris/vie-scolaire-api/internal/models"
)

// ScoreRepository manages the conduct score rows. The composer is the
// only writer; every write replaces the whole row.
type ScoreRepository struct {
	db *sqlx.DB
}

// NewScoreRepository constructs a new repository.
func NewScoreRepository(db *sqlx.DB) *ScoreRepository {
	return &ScoreRepository{db: db}
}

// Upsert writes the score atomically, keyed by (student, schoolYear,
// semester). All four category fields land in one statement so a reader
// can never observe a partially applied recomputation.
func (r *ScoreRepository) Upsert(ctx context.Context, score *models.ConductScore) error {
	query := `INSERT INTO conduct_scores (student_id, school_year_id, semester_id, attendance_score, dresscode_score, morality_score, discipline_score, total_score, grade, last_updated)
VALUES (:student_id, :school_year_id, :semester_id, :attendance_score, :dresscode_score, :morality_score, :discipline_score, :total_score, :grade, :last_updated)
ON CONFLICT (student_id, school_year_id, semester_id) DO UPDATE SET
	attendance_score = EXCLUDED.attendance_score,
	dresscode_score = EXCLUDED.dresscode_score,
	morality_score = EXCLUDED.morality_score,
	discipline_score = EXCLUDED.discipline_score,
	total_score = EXCLUDED.total_score,
	grade = EXCLUDED.grade,
	last_updated = EXCLUDED.last_updated`
	if _, err := r.db.NamedExecContext(ctx, query, score); err != nil {
		return fmt.Errorf("upsert conduct score: %w", err)
	}
	return nil
}

// Find returns the score for one student period.
func (r *ScoreRepository) Find(ctx context.Context, studentID, schoolYearID, semesterID string) (*models.ConductScore, error) {
	query := `SELECT student_id, school_year_id, semester_id, attendance_score, dresscode_score, morality_score, discipline_score, total_score, grade, last_updated
FROM conduct_scores WHERE student_id = $1 AND school_year_id = $2 AND semester_id = $3`
	var score models.ConductScore
	if err := r.db.GetContext(ctx, &score, query, studentID, schoolYearID, semesterID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find conduct score: %w", err)
	}
	return &score, nil
}

// ListBySchool returns every score of a school period with student
// metadata, ordered for listings and exports.
func (r *ScoreRepository) ListBySchool(ctx context.Context, schoolID, schoolYearID, semesterID string) ([]models.ConductScoreRow, error) {
	query := `SELECT cs.student_id, cs.school_year_id, cs.semester_id, cs.attendance_score, cs.dresscode_score, cs.morality_score, cs.discipline_score, cs.total_score, cs.grade, cs.last_updated,
	s.full_name AS student_name, c.name AS class_name
FROM conduct_scores cs
JOIN students s ON s.id = cs.student_id
LEFT JOIN classes c ON c.id = s.class_id
WHERE s.school_id = $1 AND cs.school_year_id = $2 AND cs.semester_id = $3
ORDER BY s.full_name ASC`
	var rows []models.ConductScoreRow
	if err := r.db.SelectContext(ctx, &rows, query, schoolID, schoolYearID, semesterID); err != nil {
		return nil, fmt.Errorf("list conduct scores: %w", err)
	}
	return rows, nil
}

// AverageTotal returns the mean total score of a school period. The
// boolean reports whether any score exists.
func (r *ScoreRepository) AverageTotal(ctx context.Context, schoolID, schoolYearID, semesterID string) (float64, bool, error) {
	query := `SELECT COALESCE(AVG(cs.total_score), 0), COUNT(*)
FROM conduct_scores cs
JOIN students s ON s.id = cs.student_id
WHERE s.school_id = $1 AND cs.school_year_id = $2 AND cs.semester_id = $3`
	var avg float64
	var count int
	if err := r.db.QueryRowxContext(ctx, query, schoolID, schoolYearID, semesterID).Scan(&avg, &count); err != nil {
		return 0, false, fmt.Errorf("average conduct score: %w", err)
	}
	return avg, count > 0, nil
}
