// Package billing checks subscription state against the billing service.
package billing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"leafwise-server/internal/domain/usage"
)

// Client queries the billing service for subscription entitlements.
type Client struct {
	httpClient *resty.Client
	enabled    bool
	log        zerolog.Logger
}

var _ usage.Billing = (*Client)(nil)

// New creates a billing client. With no baseURL configured the client is
// disabled and every user is treated as free tier.
func New(baseURL, serviceKey string, timeout time.Duration, log zerolog.Logger) *Client {
	enabled := strings.TrimSpace(baseURL) != ""

	httpClient := resty.New().
		SetTimeout(timeout).
		SetHeader("User-Agent", "leafwise-server/1.0")
	if enabled {
		httpClient.SetBaseURL(baseURL)
	}
	if strings.TrimSpace(serviceKey) != "" {
		httpClient.SetHeader("Authorization", "Bearer "+serviceKey)
	}

	return &Client{
		httpClient: httpClient,
		enabled:    enabled,
		log:        log.With().Str("component", "billing-client").Logger(),
	}
}

type subscriptionResponse struct {
	Active bool `json:"active"`
}

// IsActive reports whether the user holds an active subscription.
func (c *Client) IsActive(ctx context.Context, userID string) (bool, error) {
	if !c.enabled {
		return false, nil
	}

	var result subscriptionResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetPathParam("userID", userID).
		SetResult(&result).
		Get("/v1/subscriptions/{userID}")
	if err != nil {
		return false, fmt.Errorf("query billing service: %w", err)
	}
	if resp.StatusCode() == 404 {
		return false, nil
	}
	if resp.IsError() {
		return false, fmt.Errorf("billing service error (status %d)", resp.StatusCode())
	}
	return result.Active, nil
}
