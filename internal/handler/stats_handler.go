package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/scolaris/vie-scolaire-api/internal/models"
	"github.com/scolaris/vie-scolaire-api/internal/service"
	appErrors "github.com/scolaris/vie-scolaire-api/pkg/errors"
	"github.com/scolaris/vie-scolaire-api/pkg/response"
)

// StatsHandler exposes aggregate conduct statistics.
type StatsHandler struct {
	stats   *service.StatsService
	periods *service.PeriodService
}

// NewStatsHandler constructs handler.
func NewStatsHandler(stats *service.StatsService, periods *service.PeriodService) *StatsHandler {
	return &StatsHandler{stats: stats, periods: periods}
}

// Get godoc
// @Summary Aggregate conduct statistics for a school period
// @Tags Conduct
// @Produce json
// @Param schoolId query string true "School ID"
// @Param schoolYearId query string false "School year (defaults to active)"
// @Param semesterId query string false "Semester (defaults to active)"
// @Success 200 {object} response.Envelope
// @Router /conduct/stats [get]
func (h *StatsHandler) Get(c *gin.Context) {
	schoolID := c.Query("schoolId")
	if schoolID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "schoolId is required"))
		return
	}

	var period *models.Period
	yearID := c.Query("schoolYearId")
	semesterID := c.Query("semesterId")
	switch {
	case yearID != "" && semesterID != "":
		period = &models.Period{SchoolYearID: yearID, SemesterID: semesterID}
	case yearID == "" && semesterID == "":
		var err error
		period, err = h.periods.Current(c.Request.Context())
		if err != nil {
			response.Error(c, err)
			return
		}
	default:
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "schoolYearId and semesterId must be provided together"))
		return
	}

	stats, cached, err := h.stats.Aggregate(c.Request.Context(), schoolID, period.SchoolYearID, period.SemesterID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil, map[string]interface{}{"cached": cached})
}
