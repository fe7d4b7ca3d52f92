package notification

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func RegisterRoutes(r *gin.Engine, h *Handler) {
	r.GET("/api/v1/users/:id/notifications", h.listNotifications)
}

func (h *Handler) listNotifications(c *gin.Context) {
	notifications, err := h.service.ListByUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": notifications})
}
