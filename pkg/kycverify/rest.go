package kycverify

import (
	"context"

	"internpay/pkg/capability"
	"internpay/pkg/config"

	"github.com/go-resty/resty/v2"
)

type restProvider struct {
	client *resty.Client
}

func NewRESTProvider(cfg config.CapabilityConfig) Provider {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetAuthToken(cfg.APIKey).
		SetHeader("Content-Type", "application/json")

	return &restProvider{client: client}
}

func (p *restProvider) Verify(ctx context.Context, documentID string, fileURL string) (*Verification, error) {
	var result Verification

	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(map[string]any{
			"document_id": documentID,
			"file_url":    fileURL,
		}).
		SetResult(&result).
		Post("/v1/verifications")
	if err != nil {
		return nil, capability.Transient("kyc verify call failed", err)
	}

	if resp.IsError() {
		if capability.ClassifyStatus(resp.StatusCode()) == capability.KindTransient {
			return nil, capability.Transient("kyc provider returned "+resp.Status(), nil)
		}
		return nil, capability.Rejected("kyc provider refused verification: "+resp.Status(), nil)
	}

	return &result, nil
}
