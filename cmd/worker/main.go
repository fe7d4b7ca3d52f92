package main

import (
	"github.com/hibiken/asynq"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"internpay/pkg/config"
	"internpay/pkg/db"
	"internpay/pkg/gen"
	"internpay/pkg/kycverify"
	"internpay/pkg/logger"
	"internpay/pkg/notify"
	"internpay/pkg/payment"
	"internpay/pkg/task"
	"internpay/services/escrow"
	"internpay/services/kyc"
	"internpay/services/notification"
)

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		gen.Module,
		db.Module,

		task.Client,
		task.Server,

		payment.Module,
		kycverify.Module,
		notify.Module,

		notification.Module,
		notification.TaskModule,
		escrow.TaskModule,
		kyc.TaskModule,

		fx.Invoke(migrate),
		fx.Invoke(registerHandlers),
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

func registerHandlers(
	mux *asynq.ServeMux,
	escrowTask *escrow.Task,
	kycTask *kyc.Task,
	notificationTask *notification.Task,
) {
	mux.HandleFunc(escrow.TaskEscrowPayout, escrowTask.HandlePayoutTask)
	mux.HandleFunc(kyc.TaskKYCVerify, kycTask.HandleVerifyDocumentTask)
	mux.HandleFunc(notification.TaskNotificationDeliver, notificationTask.HandleDeliverTask)
}
