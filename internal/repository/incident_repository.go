package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/scolaris/vie-scolaire-api/internal/models"
)

// IncidentRepository manages persistence for conduct incidents.
type IncidentRepository struct {
	db *sqlx.DB
}

// NewIncidentRepository constructs a new repository.
func NewIncidentRepository(db *sqlx.DB) *IncidentRepository {
	return &IncidentRepository{db: db}
}

const incidentColumns = `id, student_id, category, description, points_deducted, reported_by, reported_at, school_year_id, semester_id, is_active, created_at, updated_at`

// Create inserts a new incident as active.
func (r *IncidentRepository) Create(ctx context.Context, incident *models.ConductIncident) error {
	if incident.ID == "" {
		incident.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if incident.CreatedAt.IsZero() {
		incident.CreatedAt = now
	}
	incident.UpdatedAt = now
	incident.IsActive = true
	query := `INSERT INTO conduct_incidents (id, student_id, category, description, points_deducted, reported_by, reported_at, school_year_id, semester_id, is_active, created_at, updated_at)
VALUES (:id, :student_id, :category, :description, :points_deducted, :reported_by, :reported_at, :school_year_id, :semester_id, :is_active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, incident); err != nil {
		return fmt.Errorf("create conduct incident: %w", err)
	}
	return nil
}

// FindByID returns one incident regardless of its active flag.
func (r *IncidentRepository) FindByID(ctx context.Context, id string) (*models.ConductIncident, error) {
	query := fmt.Sprintf("SELECT %s FROM conduct_incidents WHERE id = $1", incidentColumns)
	var incident models.ConductIncident
	if err := r.db.GetContext(ctx, &incident, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find conduct incident: %w", err)
	}
	return &incident, nil
}

// Deactivate flips the soft-delete flag. Incidents that are already
// inactive are left untouched and reported via sql.ErrNoRows.
func (r *IncidentRepository) Deactivate(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE conduct_incidents SET is_active = false, updated_at = $2 WHERE id = $1 AND is_active = true",
		id, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("deactivate conduct incident: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("deactivate conduct incident: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListActive returns every active incident for a student period, oldest
// first. This is the authoritative input of score recomputation.
func (r *IncidentRepository) ListActive(ctx context.Context, studentID, schoolYearID, semesterID string) ([]models.ConductIncident, error) {
	query := fmt.Sprintf(`SELECT %s FROM conduct_incidents
WHERE student_id = $1 AND school_year_id = $2 AND semester_id = $3 AND is_active = true
ORDER BY reported_at ASC, created_at ASC`, incidentColumns)
	var incidents []models.ConductIncident
	if err := r.db.SelectContext(ctx, &incidents, query, studentID, schoolYearID, semesterID); err != nil {
		return nil, fmt.Errorf("list active conduct incidents: %w", err)
	}
	return incidents, nil
}

// List returns incidents per provided filter with a total count.
func (r *IncidentRepository) List(ctx context.Context, filter models.ConductIncidentFilter) ([]models.ConductIncident, int, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	if filter.StudentID != "" {
		where = append(where, fmt.Sprintf("student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.Category != "" {
		where = append(where, fmt.Sprintf("category = $%d", len(args)+1))
		args = append(args, filter.Category)
	}
	if filter.SchoolYearID != "" {
		where = append(where, fmt.Sprintf("school_year_id = $%d", len(args)+1))
		args = append(args, filter.SchoolYearID)
	}
	if filter.SemesterID != "" {
		where = append(where, fmt.Sprintf("semester_id = $%d", len(args)+1))
		args = append(args, filter.SemesterID)
	}
	if filter.IsActive != nil {
		where = append(where, fmt.Sprintf("is_active = $%d", len(args)+1))
		args = append(args, *filter.IsActive)
	}
	whereClause := strings.Join(where, " AND ")
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	offset := (page - 1) * size
	query := fmt.Sprintf(`SELECT %s FROM conduct_incidents WHERE %s ORDER BY reported_at DESC, created_at DESC LIMIT %d OFFSET %d`,
		incidentColumns, whereClause, size, offset)
	var incidents []models.ConductIncident
	if err := r.db.SelectContext(ctx, &incidents, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list conduct incidents: %w", err)
	}
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM conduct_incidents WHERE %s", whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count conduct incidents: %w", err)
	}
	return incidents, total, nil
}

// CountRecentActive counts active incidents reported since the cutoff
// for students of one school.
func (r *IncidentRepository) CountRecentActive(ctx context.Context, schoolID string, since time.Time) (int, error) {
	query := `SELECT COUNT(*) FROM conduct_incidents ci
JOIN students s ON s.id = ci.student_id
WHERE s.school_id = $1 AND ci.is_active = true AND ci.reported_at >= $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, schoolID, since); err != nil {
		return 0, fmt.Errorf("count recent conduct incidents: %w", err)
	}
	return count, nil
}
