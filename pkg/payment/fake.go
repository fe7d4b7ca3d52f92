package payment

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

// FakeGateway is the deterministic in-process gateway used in development and
// tests. Errors can be injected per call; successful calls are recorded.
type FakeGateway struct {
	mu sync.Mutex

	CaptureErr error
	PayoutErr  error

	seq          atomic.Int64
	captureCalls []int64
	payoutCalls  []string
}

func NewFakeGateway() *FakeGateway {
	return &FakeGateway{}
}

func (g *FakeGateway) Capture(ctx context.Context, amount int64, data PaymentData) (*Charge, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.CaptureErr != nil {
		return nil, g.CaptureErr
	}

	g.captureCalls = append(g.captureCalls, amount)
	return &Charge{
		TransactionID: fmt.Sprintf("ch_%06d", g.seq.Add(1)),
		Status:        "captured",
	}, nil
}

func (g *FakeGateway) Payout(ctx context.Context, payeeID string, amount int64, idempotencyKey string) (*Charge, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.PayoutErr != nil {
		return nil, g.PayoutErr
	}

	g.payoutCalls = append(g.payoutCalls, idempotencyKey)
	return &Charge{
		TransactionID: fmt.Sprintf("po_%06d", g.seq.Add(1)),
		Status:        "paid",
	}, nil
}

func (g *FakeGateway) PayoutCalls() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.payoutCalls...)
}

func (g *FakeGateway) CaptureCalls() []int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]int64(nil), g.captureCalls...)
}
