package escrow

import (
	"encoding/json"
	"time"

	"internpay/pkg/task"

	"github.com/hibiken/asynq"
)

const TaskEscrowPayout = "escrow:payout"

// PayoutPayload carries everything the worker needs so redelivery never
// depends on producer-side state. TransactionID doubles as the gateway
// idempotency key across attempts.
type PayoutPayload struct {
	MilestoneID   string `json:"milestone_id"`
	TransactionID string `json:"transaction_id"`
	StudentID     string `json:"student_id"`
	Amount        int64  `json:"amount"`
}

func NewPayoutTask(p PayoutPayload) (*asynq.Task, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskEscrowPayout, payload,
		asynq.MaxRetry(3),
		asynq.Timeout(30*time.Second),
		asynq.Queue(task.QueueCritical),
	), nil
}
