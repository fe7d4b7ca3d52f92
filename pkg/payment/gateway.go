package payment

import "context"

// PaymentData is the opaque instrument reference collected by the front end
// and passed through to the gateway at capture time.
type PaymentData struct {
	Method string `json:"method"`
	Token  string `json:"token"`
}

type Charge struct {
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
}

// Gateway is the outbound payment capability. Payout must be idempotent at
// the gateway: callers reuse the same idempotencyKey across retry attempts.
type Gateway interface {
	Capture(ctx context.Context, amount int64, data PaymentData) (*Charge, error)
	Payout(ctx context.Context, payeeID string, amount int64, idempotencyKey string) (*Charge, error)
}
