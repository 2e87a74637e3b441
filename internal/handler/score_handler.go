package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/scolaris/vie-scolaire-api/internal/models"
	"github.com/scolaris/vie-scolaire-api/internal/service"
	appErrors "github.com/scolaris/vie-scolaire-api/pkg/errors"
	"github.com/scolaris/vie-scolaire-api/pkg/response"
)

// ScoreHandler exposes conduct score endpoints.
type ScoreHandler struct {
	conduct *service.ConductService
	periods *service.PeriodService
	exports *service.ExportService
}

// NewScoreHandler constructs handler.
func NewScoreHandler(conduct *service.ConductService, periods *service.PeriodService, exports *service.ExportService) *ScoreHandler {
	return &ScoreHandler{conduct: conduct, periods: periods, exports: exports}
}

// resolvePeriod reads the period from query params, falling back to the
// active school year and semester when both are omitted.
func (h *ScoreHandler) resolvePeriod(c *gin.Context) (*models.Period, error) {
	yearID := c.Query("schoolYearId")
	semesterID := c.Query("semesterId")
	if yearID != "" && semesterID != "" {
		return &models.Period{SchoolYearID: yearID, SemesterID: semesterID}, nil
	}
	if yearID != "" || semesterID != "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "schoolYearId and semesterId must be provided together")
	}
	return h.periods.Current(c.Request.Context())
}

// Get godoc
// @Summary Get a student's conduct score
// @Description Return the persisted conduct score for the requested period, computing it when absent
// @Tags Conduct
// @Produce json
// @Param studentId path string true "Student ID"
// @Param schoolYearId query string false "School year (defaults to active)"
// @Param semesterId query string false "Semester (defaults to active)"
// @Success 200 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /conduct/scores/{studentId} [get]
func (h *ScoreHandler) Get(c *gin.Context) {
	period, err := h.resolvePeriod(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	score, err := h.conduct.Get(c.Request.Context(), c.Param("studentId"), period.SchoolYearID, period.SemesterID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, score, nil)
}

// Recompute godoc
// @Summary Recompute a student's conduct score
// @Description Force a full recomputation from active incidents and attendance records
// @Tags Conduct
// @Produce json
// @Param studentId path string true "Student ID"
// @Param schoolYearId query string false "School year (defaults to active)"
// @Param semesterId query string false "Semester (defaults to active)"
// @Success 200 {object} response.Envelope
// @Router /conduct/scores/{studentId}/recompute [post]
func (h *ScoreHandler) Recompute(c *gin.Context) {
	period, err := h.resolvePeriod(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	score, err := h.conduct.Recompute(c.Request.Context(), c.Param("studentId"), period.SchoolYearID, period.SemesterID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, score, nil)
}

// Export godoc
// @Summary Export a school's conduct score sheet
// @Description Download the conduct scores of a school period as CSV or PDF
// @Tags Conduct
// @Produce octet-stream
// @Param schoolId query string true "School ID"
// @Param format query string false "csv or pdf" default(csv)
// @Param schoolYearId query string false "School year (defaults to active)"
// @Param semesterId query string false "Semester (defaults to active)"
// @Success 200 {file} file
// @Router /conduct/scores/export [get]
func (h *ScoreHandler) Export(c *gin.Context) {
	schoolID := c.Query("schoolId")
	if schoolID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "schoolId is required"))
		return
	}
	period, err := h.resolvePeriod(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	format := service.ExportFormat(c.DefaultQuery("format", "csv"))

	result, err := h.exports.ScoreSheet(c.Request.Context(), schoolID, period.SchoolYearID, period.SemesterID, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", result.Filename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, result.ContentType, result.Content)
}
