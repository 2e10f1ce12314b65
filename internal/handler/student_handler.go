package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/uni-adp-api/internal/service"
	"github.com/noah-isme/uni-adp-api/pkg/response"
)

// StudentHandler exposes student reads and the reporting endpoints built
// on the derived GPA figures.
type StudentHandler struct {
	catalog *service.CatalogService
	history *service.HistoryService
	gpa     *service.GPAService
}

// NewStudentHandler constructs StudentHandler.
func NewStudentHandler(catalog *service.CatalogService, history *service.HistoryService, gpa *service.GPAService) *StudentHandler {
	return &StudentHandler{catalog: catalog, history: history, gpa: gpa}
}

// Get returns one student with department context.
func (h *StudentHandler) Get(c *gin.Context) {
	student, err := h.catalog.GetStudent(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// History returns the student's full academic record, most recent
// semester first.
func (h *StudentHandler) History(c *gin.Context) {
	history, err := h.history.GetAcademicHistory(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, history, nil)
}

// Summary returns the student's cumulative aggregate figures.
func (h *StudentHandler) Summary(c *gin.Context) {
	summary, err := h.history.GetCumulativeSummary(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// Recompute replays the GPA cascade for the student and returns the fresh
// cumulative figure.
func (h *StudentHandler) Recompute(c *gin.Context) {
	cgpa, err := h.gpa.RecomputeStudent(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"student_id": c.Param("id"), "cgpa": cgpa}, nil)
}
