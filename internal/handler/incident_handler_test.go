package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestIncidentHandlerCreateRejectsMalformedPayload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewIncidentHandler(nil)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/conduct/incidents", strings.NewReader("{not json"))
	c.Request.Header.Set("Content-Type", "application/json")

	handler.Create(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIncidentHandlerListRejectsBadActiveFlag(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewIncidentHandler(nil)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/conduct/incidents?active=maybe", nil)

	handler.List(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestScoreHandlerRejectsHalfSpecifiedPeriod(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewScoreHandler(nil, nil, nil)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/conduct/scores/stu1?schoolYearId=y1", nil)
	c.Params = gin.Params{{Key: "studentId", Value: "stu1"}}

	handler.Get(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatsHandlerRequiresSchool(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewStatsHandler(nil, nil)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/conduct/stats", nil)

	handler.Get(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExportHandlerRequiresSchool(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewScoreHandler(nil, nil, nil)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/conduct/scores/export", nil)

	handler.Export(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
