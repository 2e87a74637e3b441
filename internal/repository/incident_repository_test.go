package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/scolaris/vie-scolaire-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func incidentRows(incidents ...models.ConductIncident) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"id", "student_id", "category", "description", "points_deducted", "reported_by", "reported_at", "school_year_id", "semester_id", "is_active", "created_at", "updated_at"})
	for _, i := range incidents {
		rows.AddRow(i.ID, i.StudentID, i.Category, i.Description, i.PointsDeducted, i.ReportedBy, i.ReportedAt, i.SchoolYearID, i.SemesterID, i.IsActive, i.CreatedAt, i.UpdatedAt)
	}
	return rows
}

func TestIncidentRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewIncidentRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO conduct_incidents")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	incident := &models.ConductIncident{
		StudentID:      "stu1",
		Category:       models.CategoryDiscipline,
		Description:    "Insolence",
		PointsDeducted: 1.5,
		ReportedBy:     "edu1",
		ReportedAt:     time.Now().UTC(),
		SchoolYearID:   "y1",
		SemesterID:     "s1",
	}
	require.NoError(t, repo.Create(context.Background(), incident))
	require.NotEmpty(t, incident.ID)
	require.True(t, incident.IsActive)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIncidentRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewIncidentRepository(db)
	stored := models.ConductIncident{
		ID: "inc1", StudentID: "stu1", Category: models.CategoryMorality,
		Description: "Tricherie", PointsDeducted: 2, ReportedBy: "edu1",
		ReportedAt: time.Now().UTC(), SchoolYearID: "y1", SemesterID: "s1",
		IsActive: true, CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC(),
	}
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, student_id, category")).
		WithArgs("inc1").
		WillReturnRows(incidentRows(stored))

	found, err := repo.FindByID(context.Background(), "inc1")
	require.NoError(t, err)
	require.Equal(t, models.CategoryMorality, found.Category)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, student_id, category")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)
	_, err = repo.FindByID(context.Background(), "missing")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIncidentRepositoryDeactivate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewIncidentRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE conduct_incidents SET is_active = false")).
		WithArgs("inc1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Deactivate(context.Background(), "inc1"))

	// Second call matches no active row and surfaces as ErrNoRows.
	mock.ExpectExec(regexp.QuoteMeta("UPDATE conduct_incidents SET is_active = false")).
		WithArgs("inc1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	require.ErrorIs(t, repo.Deactivate(context.Background(), "inc1"), sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIncidentRepositoryListActive(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewIncidentRepository(db)
	stored := models.ConductIncident{
		ID: "inc1", StudentID: "stu1", Category: models.CategoryAttendance,
		PointsDeducted: 0.5, SchoolYearID: "y1", SemesterID: "s1", IsActive: true,
		ReportedAt: time.Now().UTC(), CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC(),
	}
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, student_id, category")).
		WithArgs("stu1", "y1", "s1").
		WillReturnRows(incidentRows(stored))

	incidents, err := repo.ListActive(context.Background(), "stu1", "y1", "s1")
	require.NoError(t, err)
	require.Len(t, incidents, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIncidentRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewIncidentRepository(db)
	active := true
	stored := models.ConductIncident{
		ID: "inc1", StudentID: "stu1", Category: models.CategoryDresscode,
		PointsDeducted: 1, SchoolYearID: "y1", SemesterID: "s1", IsActive: true,
		ReportedAt: time.Now().UTC(), CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC(),
	}
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, student_id, category")).
		WithArgs("stu1", models.CategoryDresscode, "y1", "s1", true).
		WillReturnRows(incidentRows(stored))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM conduct_incidents")).
		WithArgs("stu1", models.CategoryDresscode, "y1", "s1", true).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	incidents, total, err := repo.List(context.Background(), models.ConductIncidentFilter{
		StudentID:    "stu1",
		Category:     models.CategoryDresscode,
		SchoolYearID: "y1",
		SemesterID:   "s1",
		IsActive:     &active,
		Page:         1,
		PageSize:     20,
	})
	require.NoError(t, err)
	require.Len(t, incidents, 1)
	require.Equal(t, 1, total)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIncidentRepositoryCountRecentActive(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewIncidentRepository(db)
	since := time.Now().UTC().Add(-7 * 24 * time.Hour)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM conduct_incidents ci")).
		WithArgs("school1", since).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

	count, err := repo.CountRecentActive(context.Background(), "school1", since)
	require.NoError(t, err)
	require.Equal(t, 4, count)
	require.NoError(t, mock.ExpectationsWereMet())
}
