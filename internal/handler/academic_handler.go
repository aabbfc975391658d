package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ujumbe360/school-portal-api/internal/models"
	"github.com/ujumbe360/school-portal-api/internal/service"
	appErrors "github.com/ujumbe360/school-portal-api/pkg/errors"
	"github.com/ujumbe360/school-portal-api/pkg/response"
)

// AcademicHandler exposes exam, grade and report endpoints.
type AcademicHandler struct {
	academic *service.AcademicService
}

// NewAcademicHandler constructs AcademicHandler.
func NewAcademicHandler(academic *service.AcademicService) *AcademicHandler {
	return &AcademicHandler{academic: academic}
}

// ListExams godoc
// @Summary List exams
// @Tags Academics
// @Security BearerAuth
// @Produce json
// @Param class_level query string false "Filter by class level"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /exams [get]
func (h *AcademicHandler) ListExams(c *gin.Context) {
	var filter models.ExamFilter
	filter.ClassLevel = c.Query("class_level")
	filter.Page, filter.PageSize = pageParams(c)

	exams, total, err := h.academic.ListExams(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, exams, paginationMeta(filter.Page, filter.PageSize, total))
}

// GetExam godoc
// @Summary Get exam
// @Tags Academics
// @Security BearerAuth
// @Produce json
// @Param id path string true "Exam ID"
// @Success 200 {object} response.Envelope
// @Router /exams/{id} [get]
func (h *AcademicHandler) GetExam(c *gin.Context) {
	exam, err := h.academic.GetExam(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, exam, nil)
}

// CreateExam godoc
// @Summary Create exam
// @Tags Academics
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param payload body models.ExamRequest true "Exam payload"
// @Success 201 {object} response.Envelope
// @Router /exams [post]
func (h *AcademicHandler) CreateExam(c *gin.Context) {
	var req models.ExamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	exam, err := h.academic.CreateExam(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, exam)
}

// UpdateExam godoc
// @Summary Update exam
// @Tags Academics
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Exam ID"
// @Param payload body models.ExamRequest true "Exam payload"
// @Success 200 {object} response.Envelope
// @Router /exams/{id} [put]
func (h *AcademicHandler) UpdateExam(c *gin.Context) {
	var req models.ExamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	exam, err := h.academic.UpdateExam(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, exam, nil)
}

// DeleteExam godoc
// @Summary Delete exam
// @Tags Academics
// @Security BearerAuth
// @Param id path string true "Exam ID"
// @Success 204
// @Router /exams/{id} [delete]
func (h *AcademicHandler) DeleteExam(c *gin.Context) {
	if err := h.academic.DeleteExam(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// EnterGrade godoc
// @Summary Enter or correct a grade
// @Tags Academics
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param payload body models.GradeRequest true "Grade payload"
// @Success 200 {object} response.Envelope
// @Router /grades [put]
func (h *AcademicHandler) EnterGrade(c *gin.Context) {
	principal, err := currentPrincipal(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req models.GradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	grade, err := h.academic.EnterGrade(c.Request.Context(), principal.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grade, nil)
}

// DeleteGrade godoc
// @Summary Delete a grade
// @Tags Academics
// @Security BearerAuth
// @Param studentId path string true "Student ID"
// @Param examId path string true "Exam ID"
// @Success 204
// @Router /grades/{studentId}/{examId} [delete]
func (h *AcademicHandler) DeleteGrade(c *gin.Context) {
	if err := h.academic.DeleteGrade(c.Request.Context(), c.Param("studentId"), c.Param("examId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Report godoc
// @Summary Academic report for a student
// @Tags Academics
// @Security BearerAuth
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/report [get]
func (h *AcademicHandler) Report(c *gin.Context) {
	principal, err := currentPrincipal(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	report, err := h.academic.Report(c.Request.Context(), principal, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// ExportReport godoc
// @Summary Export academic report as CSV or PDF
// @Tags Academics
// @Security BearerAuth
// @Produce octet-stream
// @Param id path string true "Student ID"
// @Param format query string true "csv or pdf"
// @Success 200 {file} binary
// @Router /students/{id}/report/export [get]
func (h *AcademicHandler) ExportReport(c *gin.Context) {
	principal, err := currentPrincipal(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	format := c.DefaultQuery("format", "csv")
	payload, contentType, err := h.academic.ExportReport(c.Request.Context(), principal, c.Param("id"), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	filename := fmt.Sprintf("report-%s.%s", c.Param("id"), format)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, payload)
}
