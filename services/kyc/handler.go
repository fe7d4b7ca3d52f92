package kyc

import (
	"net/http"

	"internpay/pkg/errutil"

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
	v1.POST("/kyc/documents", h.submitDocument)
	v1.GET("/kyc/documents/:id", h.getDocument)
	v1.GET("/employers/:id/trust", h.getTrustScore)
}

func (h *Handler) submitDocument(c *gin.Context) {
	var in SubmitDocumentInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.Error(errutil.ValidationFailed("invalid request body", errutil.WithErr(err)))
		return
	}

	doc, err := h.service.SubmitDocument(c.Request.Context(), in)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusAccepted, doc)
}

func (h *Handler) getDocument(c *gin.Context) {
	doc, err := h.service.GetDocument(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, doc)
}

func (h *Handler) getTrustScore(c *gin.Context) {
	score, err := h.service.GetTrustScore(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, score)
}
