package notify

import (
	"context"
	"sync"
)

type FakeChannel struct {
	mu sync.Mutex

	Err    error
	events []Event
}

func NewFakeChannel() *FakeChannel {
	return &FakeChannel{}
}

func (c *FakeChannel) Push(ctx context.Context, event Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.Err != nil {
		return c.Err
	}

	c.events = append(c.events, event)
	return nil
}

func (c *FakeChannel) Events() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Event(nil), c.events...)
}
