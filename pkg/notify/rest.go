package notify

import (
	"context"

	"internpay/pkg/capability"
	"internpay/pkg/config"

	"github.com/go-resty/resty/v2"
)

type restChannel struct {
	client *resty.Client
}

func NewRESTChannel(cfg config.CapabilityConfig) Channel {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetAuthToken(cfg.APIKey).
		SetHeader("Content-Type", "application/json")

	return &restChannel{client: client}
}

func (c *restChannel) Push(ctx context.Context, event Event) error {
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(event).
		Post("/v1/events")
	if err != nil {
		return capability.Transient("notification push failed", err)
	}

	if resp.IsError() {
		return capability.Transient("notification channel returned "+resp.Status(), nil)
	}

	return nil
}
