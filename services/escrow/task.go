package escrow

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"internpay/pkg/capability"
	"internpay/pkg/payment"
	"internpay/pkg/repository"
	"internpay/services/notification"

	"github.com/hibiken/asynq"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Task struct {
	db       *gorm.DB
	gateway  payment.Gateway
	notifier *notification.Service

	milestones repository.Repository[Milestone]
	escrows    repository.Repository[EscrowTransaction]
}

type TaskParams struct {
	fx.In
	DB       *gorm.DB
	Gateway  payment.Gateway
	Notifier *notification.Service `optional:"true"`
}

func NewTask(p TaskParams) *Task {
	return &Task{
		db:         p.DB,
		gateway:    p.Gateway,
		notifier:   p.Notifier,
		milestones: repository.ProvideStore[Milestone](p.DB),
		escrows:    repository.ProvideStore[EscrowTransaction](p.DB),
	}
}

// HandlePayoutTask executes one payout attempt. Delivery is at-least-once,
// so the handler checks the post-condition before touching the gateway: an
// escrow already RELEASED means a previous attempt succeeded and the job is
// acked without a second external call.
func (t *Task) HandlePayoutTask(ctx context.Context, a *asynq.Task) error {
	var payload PayoutPayload
	if err := json.Unmarshal(a.Payload(), &payload); err != nil {
		return fmt.Errorf("invalid payload: %v: %w", err, asynq.SkipRetry)
	}

	zapLog := zap.L().With(
		zap.String("task_type", a.Type()),
		zap.String("milestone_id", payload.MilestoneID),
		zap.String("transaction_id", payload.TransactionID),
	)

	escrow, err := t.escrows.FindOne(ctx, &EscrowTransaction{MilestoneID: payload.MilestoneID})
	if err != nil {
		return err
	}
	if escrow == nil {
		return fmt.Errorf("escrow for milestone %s not found: %w", payload.MilestoneID, asynq.SkipRetry)
	}

	switch escrow.Status {
	case EscrowReleased:
		zapLog.Info("payout already released, acking redelivery")
		return nil
	case EscrowDisputed:
		zapLog.Warn("escrow is disputed, awaiting operator intervention")
		return nil
	case EscrowFundsHeld:
		// eligible
	default:
		return fmt.Errorf("escrow in state %s is not payable: %w", escrow.Status, asynq.SkipRetry)
	}

	charge, err := t.gateway.Payout(ctx, payload.StudentID, payload.Amount, payload.TransactionID)
	if err != nil {
		if capability.IsRejected(err) {
			zapLog.Error("payout rejected by gateway", zap.Error(err))
			t.dispute(ctx, escrow, payload, "payout rejected by gateway")
			return fmt.Errorf("payout rejected: %v: %w", err, asynq.SkipRetry)
		}

		retried, _ := asynq.GetRetryCount(ctx)
		maxRetry, _ := asynq.GetMaxRetry(ctx)
		if retried >= maxRetry {
			// Money that cannot be confirmed released must never look
			// released; park it where an operator will see it.
			zapLog.Error("payout exhausted retries, marking disputed", zap.Error(err))
			t.dispute(ctx, escrow, payload, "payout retries exhausted")
		} else {
			zapLog.Warn("transient payout failure, queue will retry", zap.Error(err), zap.Int("retried", retried))
		}
		return err
	}

	raw, _ := json.Marshal(charge)
	now := time.Now()

	// RELEASED and PAID move together or not at all.
	if err := t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&EscrowTransaction{}).
			Where("id = ? AND status = ?", escrow.ID, EscrowFundsHeld).
			Updates(map[string]any{
				"status":           EscrowReleased,
				"completed_at":     now,
				"gateway_response": datatypes.JSON(raw),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("escrow %s left FUNDS_HELD concurrently", escrow.ID)
		}

		return tx.Model(&Milestone{}).
			Where("id = ? AND status = ?", payload.MilestoneID, MilestoneApproved).
			Updates(map[string]any{"status": MilestonePaid, "paid_at": now, "updated_at": now}).Error
	}); err != nil {
		// The gateway payout is idempotent on TransactionID, so a retry after
		// this persistence failure will not pay twice.
		zapLog.Error("payout succeeded at gateway but failed to persist", zap.Error(err))
		return err
	}

	zapLog.Info("payout released", zap.Int64("amount", payload.Amount))

	if t.notifier != nil {
		t.notifier.Push(ctx, notification.PushInput{
			UserID:  payload.StudentID,
			Type:    "milestone_paid",
			Title:   "Milestone paid",
			Message: fmt.Sprintf("Your milestone payout of %d has been released.", payload.Amount),
			Link:    "/milestones/" + payload.MilestoneID,
		})
	}

	return nil
}

func (t *Task) dispute(ctx context.Context, escrow *EscrowTransaction, payload PayoutPayload, reason string) {
	res := t.db.WithContext(ctx).
		Model(&EscrowTransaction{}).
		Where("id = ? AND status = ?", escrow.ID, EscrowFundsHeld).
		Updates(map[string]any{"status": EscrowDisputed})
	if res.Error != nil {
		zap.L().Error("failed to mark escrow disputed",
			zap.String("escrow_id", escrow.ID),
			zap.Error(res.Error),
		)
		return
	}

	if t.notifier != nil {
		t.notifier.Push(ctx, notification.PushInput{
			UserID:  payload.StudentID,
			Type:    "payout_disputed",
			Title:   "Payout needs attention",
			Message: reason,
			Link:    "/milestones/" + payload.MilestoneID,
		})
	}
}
