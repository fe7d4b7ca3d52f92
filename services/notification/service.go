package notification

import (
	"context"

	"internpay/pkg/db/option"
	"internpay/pkg/repository"
	"internpay/pkg/task"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db    *gorm.DB
	node  *snowflake.Node
	asynq task.Enqueuer

	repo repository.Repository[Notification]
}

type ServiceParams struct {
	fx.In
	DB    *gorm.DB
	Node  *snowflake.Node
	Asynq task.Enqueuer
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:    p.DB,
		node:  p.Node,
		asynq: p.Asynq,
		repo:  repository.ProvideStore[Notification](p.DB),
	}
}

type PushInput struct {
	UserID  string
	Type    string
	Title   string
	Message string
	Link    string
}

// Push records the notification and enqueues its delivery. Delivery is fire
// and forget from the caller's perspective: an enqueue failure is logged and
// the record stays PENDING for a later sweep, the caller never sees it.
func (s *Service) Push(ctx context.Context, in PushInput) *Notification {
	n := &Notification{
		ID:      s.node.Generate().String(),
		UserID:  in.UserID,
		Type:    in.Type,
		Title:   in.Title,
		Message: in.Message,
		Link:    in.Link,
		Status:  StatusPending,
	}

	if err := s.repo.Create(ctx, n); err != nil {
		zap.L().Error("failed to persist notification", zap.Error(err), zap.String("user_id", in.UserID))
		return nil
	}

	t, err := NewDeliverTask(DeliverPayload{NotificationID: n.ID})
	if err != nil {
		zap.L().Error("failed to build deliver task", zap.Error(err))
		return n
	}

	if _, err := s.asynq.Enqueue(t); err != nil {
		zap.L().Warn("failed to enqueue notification delivery",
			zap.Error(err),
			zap.String("notification_id", n.ID),
		)
	}

	return n
}

// ListByUser returns the user's notifications, newest first.
func (s *Service) ListByUser(ctx context.Context, userID string) ([]*Notification, error) {
	return s.repo.Find(ctx, &Notification{UserID: userID},
		option.WithSortBy(option.QuerySortBy{SortBy: "created_at", OrderBy: "desc"}),
	)
}
