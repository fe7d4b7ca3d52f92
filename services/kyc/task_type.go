package kyc

import (
	"encoding/json"
	"time"

	"internpay/pkg/task"

	"github.com/hibiken/asynq"
)

const TaskKYCVerify = "kyc:verify"

type VerifyPayload struct {
	DocumentID string `json:"document_id"`
	EmployerID string `json:"employer_id"`
}

func NewVerifyTask(p VerifyPayload) (*asynq.Task, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskKYCVerify, payload,
		asynq.MaxRetry(3),
		asynq.Timeout(60*time.Second),
		asynq.Queue(task.QueueDefault),
	), nil
}
