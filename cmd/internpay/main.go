package main

import (
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"internpay/pkg/config"
	"internpay/pkg/db"
	"internpay/pkg/gen"
	"internpay/pkg/health"
	"internpay/pkg/logger"
	"internpay/pkg/payment"
	"internpay/pkg/redis"
	"internpay/pkg/server"
	"internpay/pkg/task"
	"internpay/services/escrow"
	"internpay/services/kyc"
	"internpay/services/match"
	"internpay/services/notification"
)

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		gen.Module,
		db.Module,
		redis.Module,
		health.Module,
		task.Client,
		payment.Module,

		server.RouterModule,
		server.Module,

		escrow.Module,
		escrow.Routes,
		kyc.Module,
		kyc.Routes,
		notification.Module,
		notification.Routes,
		match.Module,
		match.Routes,

		fx.Invoke(migrate),
		fxLogger,
	)

	app.Run()
}

var fxLogger = fx.WithLogger(func(cfg *config.Config, logger *zap.Logger) fxevent.Logger {
	return fxevent.NopLogger
})

func migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&escrow.Milestone{},
		&escrow.EscrowTransaction{},
		&kyc.Document{},
		&kyc.EmployerTrust{},
		&notification.Notification{},
	)
}
