package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/scolaris/vie-scolaire-api/internal/models"
)

// AttendanceRepository reads raw attendance rows owned by the attendance
// module. The conduct core never mutates them.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs a new repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// ListByStudentPeriod returns all attendance records for a student
// within a school year and semester.
func (r *AttendanceRepository) ListByStudentPeriod(ctx context.Context, studentID, schoolYearID, semesterID string) ([]models.AttendanceRecord, error) {
	query := `SELECT id, student_id, status, date, school_year_id, semester_id
FROM attendance_records
WHERE student_id = $1 AND school_year_id = $2 AND semester_id = $3
ORDER BY date ASC`
	var records []models.AttendanceRecord
	if err := r.db.SelectContext(ctx, &records, query, studentID, schoolYearID, semesterID); err != nil {
		return nil, fmt.Errorf("list attendance records: %w", err)
	}
	return records, nil
}
