package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/scolaris/vie-scolaire-api/internal/service"
	appErrors "github.com/scolaris/vie-scolaire-api/pkg/errors"
	"github.com/scolaris/vie-scolaire-api/pkg/response"
)

// IncidentHandler exposes conduct incident endpoints.
type IncidentHandler struct {
	incidents *service.IncidentService
}

// NewIncidentHandler constructs handler.
func NewIncidentHandler(incidents *service.IncidentService) *IncidentHandler {
	return &IncidentHandler{incidents: incidents}
}

// Create godoc
// @Summary Report a conduct incident
// @Description Record a disciplinary incident and recompute the student's conduct score
// @Tags Conduct
// @Accept json
// @Produce json
// @Param payload body service.CreateIncidentRequest true "Incident payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /conduct/incidents [post]
func (h *IncidentHandler) Create(c *gin.Context) {
	var req service.CreateIncidentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	incident, err := h.incidents.Create(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, incident)
}

// Deactivate godoc
// @Summary Cancel a conduct incident
// @Description Deactivate an incident and restore the deducted points
// @Tags Conduct
// @Produce json
// @Param id path string true "Incident ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /conduct/incidents/{id} [delete]
func (h *IncidentHandler) Deactivate(c *gin.Context) {
	if err := h.incidents.Deactivate(c.Request.Context(), claimsFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// List godoc
// @Summary List conduct incidents
// @Tags Conduct
// @Produce json
// @Param studentId query string false "Filter by student"
// @Param category query string false "Filter by category"
// @Param schoolYearId query string false "Filter by school year"
// @Param semesterId query string false "Filter by semester"
// @Param active query bool false "Filter by active flag"
// @Param page query int false "Page number"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /conduct/incidents [get]
func (h *IncidentHandler) List(c *gin.Context) {
	req := service.IncidentListRequest{
		StudentID:    c.Query("studentId"),
		Category:     c.Query("category"),
		SchoolYearID: c.Query("schoolYearId"),
		SemesterID:   c.Query("semesterId"),
	}
	if raw := c.Query("active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "active must be a boolean"))
			return
		}
		req.IsActive = &active
	}
	req.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	req.PageSize, _ = strconv.Atoi(c.DefaultQuery("pageSize", "50"))

	incidents, pagination, err := h.incidents.List(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, incidents, pagination)
}
