package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"internpay/pkg/notify"
	"internpay/pkg/repository"

	"github.com/hibiken/asynq"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Task struct {
	db      *gorm.DB
	channel notify.Channel

	repo repository.Repository[Notification]
}

type TaskParams struct {
	fx.In
	DB      *gorm.DB
	Channel notify.Channel
}

func NewTask(p TaskParams) *Task {
	return &Task{
		db:      p.DB,
		channel: p.Channel,
		repo:    repository.ProvideStore[Notification](p.DB),
	}
}

// HandleDeliverTask pushes one notification to the external channel. Every
// failure is treated as transient; once retries are exhausted the record is
// marked FAILED and the job dead-letters (best-effort delivery).
func (t *Task) HandleDeliverTask(ctx context.Context, a *asynq.Task) error {
	var payload DeliverPayload
	if err := json.Unmarshal(a.Payload(), &payload); err != nil {
		return fmt.Errorf("invalid payload: %v: %w", err, asynq.SkipRetry)
	}

	zapLog := zap.L().With(
		zap.String("task_type", a.Type()),
		zap.String("notification_id", payload.NotificationID),
	)

	n, err := t.repo.FindOne(ctx, &Notification{ID: payload.NotificationID})
	if err != nil {
		return err
	}
	if n == nil {
		return fmt.Errorf("notification %s not found: %w", payload.NotificationID, asynq.SkipRetry)
	}

	// Redelivery after a crash between push and ack: already sent, ack again.
	if n.Status == StatusSent {
		return nil
	}

	if err := t.channel.Push(ctx, notify.Event{
		UserID:  n.UserID,
		Type:    n.Type,
		Title:   n.Title,
		Message: n.Message,
		Link:    n.Link,
	}); err != nil {
		retried, _ := asynq.GetRetryCount(ctx)
		maxRetry, _ := asynq.GetMaxRetry(ctx)
		if retried >= maxRetry {
			zapLog.Error("notification delivery exhausted retries, dropping", zap.Error(err))
			if uerr := t.repo.Update(ctx, n.ID, map[string]any{"status": StatusFailed}); uerr != nil {
				zapLog.Error("failed to mark notification failed", zap.Error(uerr))
			}
		}
		return err
	}

	now := time.Now()
	if err := t.repo.Update(ctx, n.ID, map[string]any{"status": StatusSent, "sent_at": now}); err != nil {
		return err
	}

	zapLog.Info("notification delivered", zap.String("user_id", n.UserID))
	return nil
}
