package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ujumbe360/school-portal-api/internal/models"
	"github.com/ujumbe360/school-portal-api/internal/service"
	appErrors "github.com/ujumbe360/school-portal-api/pkg/errors"
	"github.com/ujumbe360/school-portal-api/pkg/response"
)

// ComplaintHandler exposes complaint thread endpoints.
type ComplaintHandler struct {
	complaints *service.ComplaintService
	dashboard  adminCacheInvalidator
}

// NewComplaintHandler constructs ComplaintHandler.
func NewComplaintHandler(complaints *service.ComplaintService, dashboard adminCacheInvalidator) *ComplaintHandler {
	return &ComplaintHandler{complaints: complaints, dashboard: dashboard}
}

// List godoc
// @Summary List complaints visible to the caller
// @Tags Complaints
// @Security BearerAuth
// @Produce json
// @Param status query string false "Filter by status"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /complaints [get]
func (h *ComplaintHandler) List(c *gin.Context) {
	principal, err := currentPrincipal(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var filter models.ComplaintFilter
	if status := c.Query("status"); status != "" {
		s := models.ComplaintStatus(status)
		if !s.Valid() {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unsupported complaint status"))
			return
		}
		filter.Status = &s
	}
	filter.Page, filter.PageSize = pageParams(c)

	complaints, total, err := h.complaints.List(c.Request.Context(), principal, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, complaints, paginationMeta(filter.Page, filter.PageSize, total))
}

// Get godoc
// @Summary Get complaint with thread
// @Tags Complaints
// @Security BearerAuth
// @Produce json
// @Param id path string true "Complaint ID"
// @Success 200 {object} response.Envelope
// @Router /complaints/{id} [get]
func (h *ComplaintHandler) Get(c *gin.Context) {
	principal, err := currentPrincipal(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	detail, err := h.complaints.Get(c.Request.Context(), principal, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Create godoc
// @Summary Open a complaint
// @Tags Complaints
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param payload body models.ComplaintCreateRequest true "Complaint payload"
// @Success 201 {object} response.Envelope
// @Router /complaints [post]
func (h *ComplaintHandler) Create(c *gin.Context) {
	principal, err := currentPrincipal(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req models.ComplaintCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	complaint, err := h.complaints.Create(c.Request.Context(), principal, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.dashboard.InvalidateAdmin(c.Request.Context())
	response.Created(c, complaint)
}

// Reply godoc
// @Summary Append a reply to a complaint thread
// @Tags Complaints
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Complaint ID"
// @Param payload body models.ComplaintReplyRequest true "Reply payload"
// @Success 201 {object} response.Envelope
// @Router /complaints/{id}/replies [post]
func (h *ComplaintHandler) Reply(c *gin.Context) {
	principal, err := currentPrincipal(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req models.ComplaintReplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	reply, err := h.complaints.Reply(c.Request.Context(), principal, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, reply)
}

// ChangeStatus godoc
// @Summary Change complaint lifecycle status
// @Tags Complaints
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Complaint ID"
// @Param payload body models.ComplaintStatusRequest true "Status payload"
// @Success 200 {object} response.Envelope
// @Router /complaints/{id}/status [put]
func (h *ComplaintHandler) ChangeStatus(c *gin.Context) {
	principal, err := currentPrincipal(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req models.ComplaintStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	complaint, err := h.complaints.ChangeStatus(c.Request.Context(), principal, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.dashboard.InvalidateAdmin(c.Request.Context())
	response.JSON(c, http.StatusOK, complaint, nil)
}
