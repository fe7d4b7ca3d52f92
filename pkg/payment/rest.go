package payment

import (
	"context"

	"internpay/pkg/capability"
	"internpay/pkg/config"

	"github.com/go-resty/resty/v2"
)

type restGateway struct {
	client *resty.Client
}

// NewRESTGateway returns the network-backed gateway client. Every call
// carries the configured timeout; a timeout or connection error is
// classified transient so the queue retries it.
func NewRESTGateway(cfg config.CapabilityConfig) Gateway {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetAuthToken(cfg.APIKey).
		SetHeader("Content-Type", "application/json")

	return &restGateway{client: client}
}

func (g *restGateway) Capture(ctx context.Context, amount int64, data PaymentData) (*Charge, error) {
	var charge Charge

	resp, err := g.client.R().
		SetContext(ctx).
		SetBody(map[string]any{
			"amount": amount,
			"method": data.Method,
			"token":  data.Token,
		}).
		SetResult(&charge).
		Post("/v1/charges")
	if err != nil {
		return nil, capability.Transient("gateway capture call failed", err)
	}

	if resp.IsError() {
		if capability.ClassifyStatus(resp.StatusCode()) == capability.KindTransient {
			return nil, capability.Transient("gateway capture returned "+resp.Status(), nil)
		}
		return nil, capability.Rejected("gateway refused capture: "+resp.Status(), nil)
	}

	return &charge, nil
}

func (g *restGateway) Payout(ctx context.Context, payeeID string, amount int64, idempotencyKey string) (*Charge, error) {
	var charge Charge

	resp, err := g.client.R().
		SetContext(ctx).
		SetHeader("Idempotency-Key", idempotencyKey).
		SetBody(map[string]any{
			"payee_id": payeeID,
			"amount":   amount,
		}).
		SetResult(&charge).
		Post("/v1/payouts")
	if err != nil {
		return nil, capability.Transient("gateway payout call failed", err)
	}

	if resp.IsError() {
		if capability.ClassifyStatus(resp.StatusCode()) == capability.KindTransient {
			return nil, capability.Transient("gateway payout returned "+resp.Status(), nil)
		}
		return nil, capability.Rejected("gateway refused payout: "+resp.Status(), nil)
	}

	return &charge, nil
}
