package notify

import "context"

type Event struct {
	UserID  string `json:"user_id"`
	Type    string `json:"type"`
	Title   string `json:"title"`
	Message string `json:"message"`
	Link    string `json:"link,omitempty"`
}

// Channel is the outbound delivery capability. Delivery is best effort: all
// failures are transient from the domain's perspective and the queue retries
// until the budget is exhausted.
type Channel interface {
	Push(ctx context.Context, event Event) error
}
