package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ujumbe360/school-portal-api/internal/models"
	"github.com/ujumbe360/school-portal-api/internal/service"
	appErrors "github.com/ujumbe360/school-portal-api/pkg/errors"
	"github.com/ujumbe360/school-portal-api/pkg/response"
)

// AnnouncementHandler exposes announcement endpoints.
type AnnouncementHandler struct {
	announcements *service.AnnouncementService
	dashboard     adminCacheInvalidator
}

// NewAnnouncementHandler constructs AnnouncementHandler.
func NewAnnouncementHandler(announcements *service.AnnouncementService, dashboard adminCacheInvalidator) *AnnouncementHandler {
	return &AnnouncementHandler{announcements: announcements, dashboard: dashboard}
}

// List godoc
// @Summary List announcements visible to the caller
// @Tags Announcements
// @Security BearerAuth
// @Produce json
// @Param class_level query string false "Filter by class level (staff only)"
// @Param pinned query bool false "Pinned only"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /announcements [get]
func (h *AnnouncementHandler) List(c *gin.Context) {
	principal, err := currentPrincipal(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var filter models.AnnouncementFilter
	if level := c.Query("class_level"); level != "" {
		filter.ClassLevels = []string{level}
	}
	filter.PinnedOnly = c.Query("pinned") == "true"
	filter.Page, filter.PageSize = pageParams(c)

	announcements, total, err := h.announcements.List(c.Request.Context(), principal, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, announcements, paginationMeta(filter.Page, filter.PageSize, total))
}

// Get godoc
// @Summary Get one announcement
// @Tags Announcements
// @Security BearerAuth
// @Produce json
// @Param id path string true "Announcement ID"
// @Success 200 {object} response.Envelope
// @Router /announcements/{id} [get]
func (h *AnnouncementHandler) Get(c *gin.Context) {
	principal, err := currentPrincipal(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	announcement, err := h.announcements.Get(c.Request.Context(), principal, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, announcement, nil)
}

// Publish godoc
// @Summary Publish announcement
// @Tags Announcements
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param payload body models.AnnouncementRequest true "Announcement payload"
// @Success 201 {object} response.Envelope
// @Router /announcements [post]
func (h *AnnouncementHandler) Publish(c *gin.Context) {
	principal, err := currentPrincipal(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req models.AnnouncementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	announcement, err := h.announcements.Publish(c.Request.Context(), principal.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.dashboard.InvalidateAdmin(c.Request.Context())
	response.Created(c, announcement)
}

// Edit godoc
// @Summary Edit announcement
// @Tags Announcements
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Announcement ID"
// @Param payload body models.AnnouncementRequest true "Announcement payload"
// @Success 200 {object} response.Envelope
// @Router /announcements/{id} [put]
func (h *AnnouncementHandler) Edit(c *gin.Context) {
	var req models.AnnouncementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	announcement, err := h.announcements.Edit(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, announcement, nil)
}

// Delete godoc
// @Summary Delete announcement
// @Tags Announcements
// @Security BearerAuth
// @Param id path string true "Announcement ID"
// @Success 204
// @Router /announcements/{id} [delete]
func (h *AnnouncementHandler) Delete(c *gin.Context) {
	if err := h.announcements.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	h.dashboard.InvalidateAdmin(c.Request.Context())
	response.NoContent(c)
}
