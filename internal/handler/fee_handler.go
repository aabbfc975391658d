package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ujumbe360/school-portal-api/internal/models"
	"github.com/ujumbe360/school-portal-api/internal/service"
	appErrors "github.com/ujumbe360/school-portal-api/pkg/errors"
	"github.com/ujumbe360/school-portal-api/pkg/response"
)

// FeeHandler exposes fee structure and ledger endpoints.
type FeeHandler struct {
	fees      *service.FeeService
	dashboard adminCacheInvalidator
	metrics   *service.MetricsService
}

// NewFeeHandler constructs FeeHandler.
func NewFeeHandler(fees *service.FeeService, dashboard adminCacheInvalidator, metrics *service.MetricsService) *FeeHandler {
	return &FeeHandler{fees: fees, dashboard: dashboard, metrics: metrics}
}

// SetStructure godoc
// @Summary Create or replace a fee structure
// @Tags Fees
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param payload body models.FeeStructureRequest true "Fee structure payload"
// @Success 200 {object} response.Envelope
// @Router /fees/structures [put]
func (h *FeeHandler) SetStructure(c *gin.Context) {
	var req models.FeeStructureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	structure, err := h.fees.SetStructure(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.dashboard.InvalidateAdmin(c.Request.Context())
	response.JSON(c, http.StatusOK, structure, nil)
}

// ListStructures godoc
// @Summary List fee structures
// @Tags Fees
// @Security BearerAuth
// @Produce json
// @Param class_level query string false "Filter by class level"
// @Success 200 {object} response.Envelope
// @Router /fees/structures [get]
func (h *FeeHandler) ListStructures(c *gin.Context) {
	structures, err := h.fees.ListStructures(c.Request.Context(), c.Query("class_level"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, structures, nil)
}

// DeleteStructure godoc
// @Summary Delete a fee structure
// @Tags Fees
// @Security BearerAuth
// @Param id path string true "Fee structure ID"
// @Success 204
// @Router /fees/structures/{id} [delete]
func (h *FeeHandler) DeleteStructure(c *gin.Context) {
	if err := h.fees.DeleteStructure(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	h.dashboard.InvalidateAdmin(c.Request.Context())
	response.NoContent(c)
}

// RecordPayment godoc
// @Summary Record a payment
// @Tags Fees
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param payload body models.PaymentRequest true "Payment payload"
// @Success 201 {object} response.Envelope
// @Router /fees/payments [post]
func (h *FeeHandler) RecordPayment(c *gin.Context) {
	principal, err := currentPrincipal(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req models.PaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	payment, balance, err := h.fees.RecordPayment(c.Request.Context(), principal.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.metrics.RecordPayment(payment.Amount)
	h.dashboard.InvalidateAdmin(c.Request.Context())
	response.JSON(c, http.StatusCreated, gin.H{"payment": payment, "balance": balance}, nil)
}

// Payments godoc
// @Summary Payment history for a student
// @Tags Fees
// @Security BearerAuth
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/payments [get]
func (h *FeeHandler) Payments(c *gin.Context) {
	principal, err := currentPrincipal(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	payments, err := h.fees.Payments(c.Request.Context(), principal, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, payments, nil)
}

// Balance godoc
// @Summary Fee balance for a student
// @Tags Fees
// @Security BearerAuth
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/balance [get]
func (h *FeeHandler) Balance(c *gin.Context) {
	principal, err := currentPrincipal(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	balance, err := h.fees.Balance(c.Request.Context(), principal, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, balance, nil)
}
