package notification

import (
	"encoding/json"
	"time"

	"internpay/pkg/task"

	"github.com/hibiken/asynq"
)

const TaskNotificationDeliver = "notification:deliver"

type DeliverPayload struct {
	NotificationID string `json:"notification_id"`
}

func NewDeliverTask(p DeliverPayload) (*asynq.Task, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskNotificationDeliver, payload,
		asynq.MaxRetry(5),
		asynq.Timeout(10*time.Second),
		asynq.Queue(task.QueueLow),
	), nil
}
