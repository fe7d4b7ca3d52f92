package notify

import (
	"internpay/pkg/config"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("notify.channel",
	fx.Provide(ProvideChannel),
)

func ProvideChannel(cfg *config.Config) Channel {
	if cfg.Notify.Mode == "http" {
		return NewRESTChannel(cfg.Notify)
	}

	zap.L().Warn("[Notify] using fake notification channel", zap.String("mode", cfg.Notify.Mode))
	return NewFakeChannel()
}
