package notification

import (
	"context"
	"errors"
	"testing"

	"internpay/pkg/notify"
	"internpay/services/testutil"

	"github.com/bwmarrin/snowflake"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type fakeEnqueuer struct {
	tasks []*asynq.Task
	err   error
}

func (f *fakeEnqueuer) Enqueue(t *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.tasks = append(f.tasks, t)
	return &asynq.TaskInfo{ID: "task-1", Type: t.Type()}, nil
}

func newTestService(t *testing.T) (*Service, *fakeEnqueuer, *gorm.DB) {
	t.Helper()

	db := testutil.NewTestDB(t, &Notification{})
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	enqueuer := &fakeEnqueuer{}
	svc := NewService(ServiceParams{DB: db, Node: node, Asynq: enqueuer})
	return svc, enqueuer, db
}

func TestPush(t *testing.T) {
	svc, enqueuer, _ := newTestService(t)

	n := svc.Push(context.Background(), PushInput{
		UserID:  "student-1",
		Type:    "milestone_paid",
		Title:   "Milestone paid",
		Message: "Your payout has been released.",
		Link:    "/milestones/m-1",
	})
	require.NotNil(t, n)
	require.Equal(t, StatusPending, n.Status)

	require.Len(t, enqueuer.tasks, 1)
	require.Equal(t, TaskNotificationDeliver, enqueuer.tasks[0].Type())
}

func TestPush_QueueUnavailable(t *testing.T) {
	svc, enqueuer, db := newTestService(t)
	enqueuer.err = errors.New("redis: connection refused")

	// Best-effort: the caller still gets the record, it just stays PENDING.
	n := svc.Push(context.Background(), PushInput{
		UserID: "student-1",
		Type:   "milestone_paid",
		Title:  "Milestone paid",
	})
	require.NotNil(t, n)

	var got Notification
	require.NoError(t, db.First(&got, "id = ?", n.ID).Error)
	require.Equal(t, StatusPending, got.Status)
}

func TestListByUser(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	svc.Push(ctx, PushInput{UserID: "student-1", Type: "milestone_paid", Title: "a"})
	svc.Push(ctx, PushInput{UserID: "student-1", Type: "kyc_approved", Title: "b"})
	svc.Push(ctx, PushInput{UserID: "student-2", Type: "milestone_paid", Title: "c"})

	list, err := svc.ListByUser(ctx, "student-1")
	require.NoError(t, err)
	require.Len(t, list, 2)
}

func TestHandleDeliverTask(t *testing.T) {
	svc, _, db := newTestService(t)
	channel := notify.NewFakeChannel()
	handler := NewTask(TaskParams{DB: db, Channel: channel})

	n := svc.Push(context.Background(), PushInput{
		UserID:  "student-1",
		Type:    "milestone_paid",
		Title:   "Milestone paid",
		Message: "Your payout has been released.",
	})
	require.NotNil(t, n)

	task, err := NewDeliverTask(DeliverPayload{NotificationID: n.ID})
	require.NoError(t, err)
	require.NoError(t, handler.HandleDeliverTask(context.Background(), task))

	var got Notification
	require.NoError(t, db.First(&got, "id = ?", n.ID).Error)
	require.Equal(t, StatusSent, got.Status)
	require.NotNil(t, got.SentAt)

	events := channel.Events()
	require.Len(t, events, 1)
	require.Equal(t, "student-1", events[0].UserID)
	require.Equal(t, "milestone_paid", events[0].Type)
}

func TestHandleDeliverTask_RedeliveryIsIdempotent(t *testing.T) {
	svc, _, db := newTestService(t)
	channel := notify.NewFakeChannel()
	handler := NewTask(TaskParams{DB: db, Channel: channel})

	n := svc.Push(context.Background(), PushInput{UserID: "student-1", Type: "milestone_paid", Title: "t"})
	require.NotNil(t, n)

	task, err := NewDeliverTask(DeliverPayload{NotificationID: n.ID})
	require.NoError(t, err)
	require.NoError(t, handler.HandleDeliverTask(context.Background(), task))
	require.NoError(t, handler.HandleDeliverTask(context.Background(), task))

	// The second delivery acked without pushing again.
	require.Len(t, channel.Events(), 1)
}

func TestHandleDeliverTask_ExhaustedMarksFailed(t *testing.T) {
	svc, _, db := newTestService(t)
	channel := notify.NewFakeChannel()
	channel.Err = errors.New("webhook endpoint unreachable")
	handler := NewTask(TaskParams{DB: db, Channel: channel})

	n := svc.Push(context.Background(), PushInput{UserID: "student-1", Type: "milestone_paid", Title: "t"})
	require.NotNil(t, n)

	task, err := NewDeliverTask(DeliverPayload{NotificationID: n.ID})
	require.NoError(t, err)

	// Without queue metadata the handler sees the final attempt.
	err = handler.HandleDeliverTask(context.Background(), task)
	require.Error(t, err)

	var got Notification
	require.NoError(t, db.First(&got, "id = ?", n.ID).Error)
	require.Equal(t, StatusFailed, got.Status)
}

func TestHandleDeliverTask_UnknownNotificationSkipsRetry(t *testing.T) {
	_, _, db := newTestService(t)
	handler := NewTask(TaskParams{DB: db, Channel: notify.NewFakeChannel()})

	task, err := NewDeliverTask(DeliverPayload{NotificationID: "missing"})
	require.NoError(t, err)

	err = handler.HandleDeliverTask(context.Background(), task)
	require.ErrorIs(t, err, asynq.SkipRetry)
}
