package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/scolaris/vie-scolaire-api/internal/models"
	appErrors "github.com/scolaris/vie-scolaire-api/pkg/errors"
)

type mockIncidentRepo struct {
	incidents map[string]*models.ConductIncident
	createErr error
}

func (m *mockIncidentRepo) Create(ctx context.Context, incident *models.ConductIncident) error {
	if m.createErr != nil {
		return m.createErr
	}
	if m.incidents == nil {
		m.incidents = make(map[string]*models.ConductIncident)
	}
	incident.ID = "inc-" + incident.StudentID
	incident.IsActive = true
	copied := *incident
	m.incidents[incident.ID] = &copied
	return nil
}

func (m *mockIncidentRepo) FindByID(ctx context.Context, id string) (*models.ConductIncident, error) {
	if incident, ok := m.incidents[id]; ok {
		return incident, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockIncidentRepo) Deactivate(ctx context.Context, id string) error {
	incident, ok := m.incidents[id]
	if !ok || !incident.IsActive {
		return sql.ErrNoRows
	}
	incident.IsActive = false
	return nil
}

func (m *mockIncidentRepo) List(ctx context.Context, filter models.ConductIncidentFilter) ([]models.ConductIncident, int, error) {
	var list []models.ConductIncident
	for _, incident := range m.incidents {
		if filter.StudentID != "" && incident.StudentID != filter.StudentID {
			continue
		}
		list = append(list, *incident)
	}
	return list, len(list), nil
}

type mockPeriods struct {
	year     *models.SchoolYear
	semester *models.Semester
	previous *models.Semester
}

func (m *mockPeriods) CurrentSchoolYear(ctx context.Context) (*models.SchoolYear, error) {
	if m.year == nil {
		return nil, sql.ErrNoRows
	}
	return m.year, nil
}

func (m *mockPeriods) CurrentSemester(ctx context.Context) (*models.Semester, error) {
	if m.semester == nil {
		return nil, sql.ErrNoRows
	}
	return m.semester, nil
}

func (m *mockPeriods) PreviousSemester(ctx context.Context, semesterID string) (*models.Semester, error) {
	if m.previous == nil {
		return nil, sql.ErrNoRows
	}
	return m.previous, nil
}

type mockRecomputer struct {
	calls []string
	err   error
}

func (m *mockRecomputer) Recompute(ctx context.Context, studentID, schoolYearID, semesterID string) (*models.ConductScore, error) {
	m.calls = append(m.calls, studentID+"/"+schoolYearID+"/"+semesterID)
	if m.err != nil {
		return nil, m.err
	}
	return &models.ConductScore{StudentID: studentID, SchoolYearID: schoolYearID, SemesterID: semesterID}, nil
}

type mockInvalidator struct {
	calls int
}

func (m *mockInvalidator) InvalidatePeriod(ctx context.Context, schoolYearID, semesterID string) {
	m.calls++
}

func educatorClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "edu1", Role: models.RoleEducator}
}

func activePeriods() *mockPeriods {
	return &mockPeriods{
		year:     &models.SchoolYear{ID: "y1", IsActive: true},
		semester: &models.Semester{ID: "s1", SchoolYearID: "y1", Sequence: 2, IsActive: true},
	}
}

func newIncidentFixture(repo *mockIncidentRepo, periods *mockPeriods, scorer *mockRecomputer) (*IncidentService, *mockInvalidator) {
	stats := &mockInvalidator{}
	return NewIncidentService(repo, periods, scorer, stats, nil, zap.NewNop()), stats
}

func TestIncidentCreate(t *testing.T) {
	repo := &mockIncidentRepo{}
	scorer := &mockRecomputer{}
	svc, stats := newIncidentFixture(repo, activePeriods(), scorer)

	incident, err := svc.Create(context.Background(), educatorClaims(), CreateIncidentRequest{
		StudentID:      "stu1",
		Category:       "DISCIPLINE",
		Description:    "Bagarre dans la cour",
		PointsDeducted: 2,
	})
	require.NoError(t, err)
	assert.True(t, incident.IsActive)
	assert.Equal(t, "y1", incident.SchoolYearID)
	assert.Equal(t, "s1", incident.SemesterID)
	assert.Equal(t, "edu1", incident.ReportedBy)
	assert.Equal(t, []string{"stu1/y1/s1"}, scorer.calls)
	assert.Equal(t, 1, stats.calls)
}

func TestIncidentCreateRejectsUnauthorizedRole(t *testing.T) {
	svc, _ := newIncidentFixture(&mockIncidentRepo{}, activePeriods(), &mockRecomputer{})

	_, err := svc.Create(context.Background(), &models.JWTClaims{UserID: "t1", Role: models.RoleTeacher}, CreateIncidentRequest{
		StudentID: "stu1", Category: "DISCIPLINE", Description: "x", PointsDeducted: 1,
	})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)

	_, err = svc.Create(context.Background(), nil, CreateIncidentRequest{
		StudentID: "stu1", Category: "DISCIPLINE", Description: "x", PointsDeducted: 1,
	})
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErr.Code)
}

func TestIncidentCreateRejectsUnknownCategory(t *testing.T) {
	svc, _ := newIncidentFixture(&mockIncidentRepo{}, activePeriods(), &mockRecomputer{})

	_, err := svc.Create(context.Background(), educatorClaims(), CreateIncidentRequest{
		StudentID: "stu1", Category: "HOMEWORK", Description: "x", PointsDeducted: 1,
	})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestIncidentCreateRejectsPointsAboveBudget(t *testing.T) {
	svc, _ := newIncidentFixture(&mockIncidentRepo{}, activePeriods(), &mockRecomputer{})

	_, err := svc.Create(context.Background(), educatorClaims(), CreateIncidentRequest{
		StudentID: "stu1", Category: "DRESSCODE", Description: "x", PointsDeducted: 3.5,
	})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrPointsExceedMax.Code, appErr.Code)
}

func TestIncidentCreateRequiresCurrentPeriod(t *testing.T) {
	svc, _ := newIncidentFixture(&mockIncidentRepo{}, &mockPeriods{}, &mockRecomputer{})

	_, err := svc.Create(context.Background(), educatorClaims(), CreateIncidentRequest{
		StudentID: "stu1", Category: "DISCIPLINE", Description: "x", PointsDeducted: 1,
	})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrNoCurrentPeriod.Code, appErr.Code)
}

func TestIncidentCreateSurvivesRecomputeFailure(t *testing.T) {
	repo := &mockIncidentRepo{}
	scorer := &mockRecomputer{err: errors.New("score store down")}
	svc, stats := newIncidentFixture(repo, activePeriods(), scorer)

	incident, err := svc.Create(context.Background(), educatorClaims(), CreateIncidentRequest{
		StudentID: "stu1", Category: "MORALITY", Description: "x", PointsDeducted: 1,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, incident.ID)
	assert.Len(t, scorer.calls, 1)
	// Stats stay untouched when the recompute failed.
	assert.Zero(t, stats.calls)
}

func TestIncidentDeactivate(t *testing.T) {
	repo := &mockIncidentRepo{incidents: map[string]*models.ConductIncident{
		"inc1": {ID: "inc1", StudentID: "stu1", SchoolYearID: "y0", SemesterID: "s0", Category: models.CategoryDiscipline, IsActive: true},
	}}
	scorer := &mockRecomputer{}
	svc, _ := newIncidentFixture(repo, activePeriods(), scorer)

	require.NoError(t, svc.Deactivate(context.Background(), educatorClaims(), "inc1"))
	assert.False(t, repo.incidents["inc1"].IsActive)
	// Recompute targets the incident's own stored period, not the
	// currently active one.
	assert.Equal(t, []string{"stu1/y0/s0"}, scorer.calls)
}

func TestIncidentDeactivateNotFound(t *testing.T) {
	svc, _ := newIncidentFixture(&mockIncidentRepo{}, activePeriods(), &mockRecomputer{})

	err := svc.Deactivate(context.Background(), educatorClaims(), "missing")
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestIncidentDeactivateAlreadyInactive(t *testing.T) {
	repo := &mockIncidentRepo{incidents: map[string]*models.ConductIncident{
		"inc1": {ID: "inc1", StudentID: "stu1", SchoolYearID: "y1", SemesterID: "s1", IsActive: false},
	}}
	scorer := &mockRecomputer{}
	svc, _ := newIncidentFixture(repo, activePeriods(), scorer)

	err := svc.Deactivate(context.Background(), educatorClaims(), "inc1")
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.Empty(t, scorer.calls)
}

func TestIncidentCreateHonorsReportedAt(t *testing.T) {
	repo := &mockIncidentRepo{}
	svc, _ := newIncidentFixture(repo, activePeriods(), &mockRecomputer{})

	reported := time.Date(2026, 3, 12, 8, 30, 0, 0, time.UTC)
	incident, err := svc.Create(context.Background(), educatorClaims(), CreateIncidentRequest{
		StudentID: "stu1", Category: "ATTENDANCE", Description: "x", PointsDeducted: 0.5, ReportedAt: &reported,
	})
	require.NoError(t, err)
	assert.Equal(t, reported, incident.ReportedAt)
}

func TestIncidentList(t *testing.T) {
	repo := &mockIncidentRepo{incidents: map[string]*models.ConductIncident{
		"inc1": {ID: "inc1", StudentID: "stu1", IsActive: true},
		"inc2": {ID: "inc2", StudentID: "stu2", IsActive: true},
	}}
	svc, _ := newIncidentFixture(repo, activePeriods(), &mockRecomputer{})

	incidents, pagination, err := svc.List(context.Background(), IncidentListRequest{StudentID: "stu1"})
	require.NoError(t, err)
	assert.Len(t, incidents, 1)
	assert.Equal(t, 1, pagination.TotalCount)
	assert.Equal(t, 1, pagination.Page)
	assert.Equal(t, 50, pagination.PageSize)
}
