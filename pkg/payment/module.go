package payment

import (
	"internpay/pkg/config"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("payment.gateway",
	fx.Provide(ProvideGateway),
)

func ProvideGateway(cfg *config.Config) Gateway {
	if cfg.Gateway.Mode == "http" {
		return NewRESTGateway(cfg.Gateway)
	}

	zap.L().Warn("[Payment] using fake payment gateway", zap.String("mode", cfg.Gateway.Mode))
	return NewFakeGateway()
}
