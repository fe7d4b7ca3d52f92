package server

import (
	"internpay/pkg/config"
	"internpay/pkg/health"
	"internpay/pkg/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
)

var RouterModule = fx.Module("http.router",
	fx.Provide(NewRouter),
)

func NewRouter(cfg *config.Config, h health.HealthService) *gin.Engine {
	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Error())

	r.GET("/healthz", h.Liveness)
	r.GET("/readyz", h.Readiness)

	return r
}
