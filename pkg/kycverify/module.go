package kycverify

import (
	"internpay/pkg/config"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("kyc.provider",
	fx.Provide(ProvideProvider),
)

func ProvideProvider(cfg *config.Config) Provider {
	if cfg.KYCProvider.Mode == "http" {
		return NewRESTProvider(cfg.KYCProvider)
	}

	zap.L().Warn("[KYC] using fake verification provider", zap.String("mode", cfg.KYCProvider.Mode))
	return NewFakeProvider()
}
