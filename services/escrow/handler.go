package escrow

import (
	"net/http"

	"internpay/pkg/errutil"
	"internpay/pkg/payment"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func RegisterRoutes(r *gin.Engine, h *Handler) {
	v1 := r.Group("/api/v1")
	v1.POST("/milestones", h.createMilestone)
	v1.GET("/milestones/:id", h.getMilestone)
	v1.PATCH("/milestones/:id/status", h.updateStatus)
	v1.POST("/milestones/:id/fund", h.fundMilestone)
	v1.POST("/milestones/:id/approve", h.approveMilestone)
	v1.GET("/applications/:id/milestones", h.listMilestones)
}

func (h *Handler) createMilestone(c *gin.Context) {
	var in CreateMilestoneInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.Error(errutil.ValidationFailed("invalid request body", errutil.WithErr(err)))
		return
	}

	milestone, err := h.service.CreateMilestone(c.Request.Context(), in)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, milestone)
}

func (h *Handler) getMilestone(c *gin.Context) {
	milestone, err := h.service.GetMilestone(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	escrow, err := h.service.GetEscrowTransaction(c.Request.Context(), milestone.ID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"milestone": milestone, "escrow": escrow})
}

type updateStatusRequest struct {
	Status MilestoneStatus `json:"status" binding:"required"`
}

func (h *Handler) updateStatus(c *gin.Context) {
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errutil.ValidationFailed("invalid request body", errutil.WithErr(err)))
		return
	}

	milestone, err := h.service.UpdateMilestoneStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, milestone)
}

type fundRequest struct {
	Amount      int64               `json:"amount" binding:"required"`
	PaymentData payment.PaymentData `json:"payment_data"`
}

func (h *Handler) fundMilestone(c *gin.Context) {
	var req fundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errutil.ValidationFailed("invalid request body", errutil.WithErr(err)))
		return
	}

	escrow, err := h.service.FundMilestone(c.Request.Context(), c.Param("id"), req.Amount, req.PaymentData)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, escrow)
}

func (h *Handler) approveMilestone(c *gin.Context) {
	milestone, err := h.service.ApproveMilestone(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	// Payout completion is asynchronous; callers observe it via notification
	// or by polling the milestone.
	c.JSON(http.StatusAccepted, milestone)
}

func (h *Handler) listMilestones(c *gin.Context) {
	milestones, err := h.service.GetMilestones(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": milestones})
}
