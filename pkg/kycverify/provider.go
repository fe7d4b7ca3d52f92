package kycverify

import "context"

type Verification struct {
	IsValid    bool    `json:"is_valid"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason,omitempty"`
}

// Provider is the outbound document-verification capability. A returned
// Verification with IsValid=false is a decision, not an error; errors are
// classified transient/rejected by the implementation.
type Provider interface {
	Verify(ctx context.Context, documentID string, fileURL string) (*Verification, error)
}
