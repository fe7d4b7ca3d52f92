package kycverify

import (
	"context"
	"strings"
	"sync"
)

// FakeProvider approves every document unless its id carries a marker:
// "-invalid" verifies as a rejection decision, an injected Err simulates a
// provider outage.
type FakeProvider struct {
	mu sync.Mutex

	Err   error
	calls []string
}

func NewFakeProvider() *FakeProvider {
	return &FakeProvider{}
}

func (p *FakeProvider) Verify(ctx context.Context, documentID string, fileURL string) (*Verification, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.Err != nil {
		return nil, p.Err
	}

	p.calls = append(p.calls, documentID)

	if strings.Contains(documentID, "-invalid") {
		return &Verification{
			IsValid:    false,
			Confidence: 0.98,
			Reason:     "document unreadable",
		}, nil
	}

	return &Verification{
		IsValid:    true,
		Confidence: 0.95,
	}, nil
}

func (p *FakeProvider) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}
