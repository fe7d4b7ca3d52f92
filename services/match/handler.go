package match

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
	r.POST("/api/v1/match/skills", h.matchSkills)
}

type matchRequest struct {
	StudentSkills    []string `json:"student_skills" binding:"required"`
	InternshipSkills []string `json:"internship_skills" binding:"required"`
}

func (h *Handler) matchSkills(c *gin.Context) {
	var req matchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errutil.ValidationFailed("invalid request body", errutil.WithErr(err)))
		return
	}

	c.JSON(http.StatusOK, h.service.MatchSkills(req.StudentSkills, req.InternshipSkills))
}
