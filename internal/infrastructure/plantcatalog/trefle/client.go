// Package trefle implements the secondary catalog provider against the
// Trefle botanical API, consulted when the primary provider fails.
package trefle

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"leafwise-server/internal/domain/catalog"
	"leafwise-server/internal/infrastructure/throttle"
)

// Client queries the Trefle plants API.
type Client struct {
	httpClient *resty.Client
	apiKey     string
	throttle   *throttle.Client
	log        zerolog.Logger
}

var _ catalog.Provider = (*Client)(nil)

// New creates a Trefle catalog client.
func New(baseURL, apiKey string, timeout time.Duration, throttleClient *throttle.Client, log zerolog.Logger) *Client {
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("User-Agent", "leafwise-server/1.0")

	return &Client{
		httpClient: httpClient,
		apiKey:     apiKey,
		throttle:   throttleClient,
		log:        log.With().Str("component", "trefle-client").Logger(),
	}
}

// Name implements catalog.Provider.
func (c *Client) Name() string { return "trefle" }

type plantSearchResponse struct {
	Data []struct {
		ID             int    `json:"id"`
		CommonName     string `json:"common_name"`
		ScientificName string `json:"scientific_name"`
		Family         string `json:"family"`
		Genus          string `json:"genus"`
		Duration       string `json:"duration"`
	} `json:"data"`
}

// Lookup fetches taxonomic metadata for a scientific name. Trefle carries no
// care descriptors, so those fields degrade to Unknown while the taxonomy
// stays authoritative.
func (c *Client) Lookup(ctx context.Context, scientificName string) (*catalog.Record, error) {
	if strings.TrimSpace(c.apiKey) == "" {
		return nil, fmt.Errorf("trefle API key not configured")
	}

	var result plantSearchResponse
	err := c.throttle.Do(ctx, func(ctx context.Context) error {
		resp, callErr := c.httpClient.R().
			SetContext(ctx).
			SetQueryParam("token", c.apiKey).
			SetQueryParam("q", scientificName).
			SetResult(&result).
			Get("/plants/search")
		if callErr != nil {
			return fmt.Errorf("query trefle plant search: %w", callErr)
		}
		if resp.IsError() {
			return fmt.Errorf("trefle plant search error (status %d)", resp.StatusCode())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(result.Data) == 0 {
		return nil, fmt.Errorf("trefle returned no plants for %q", scientificName)
	}

	plant := result.Data[0]
	family := plant.Family
	if strings.TrimSpace(family) == "" {
		family = "Unknown"
	}
	growthHabit := plant.Duration
	if strings.TrimSpace(growthHabit) == "" {
		growthHabit = "Unknown"
	}

	c.log.Debug().
		Int("plant_id", plant.ID).
		Str("scientific_name", scientificName).
		Msg("trefle lookup succeeded")

	return &catalog.Record{
		Source:         c.Name(),
		ScientificName: scientificName,
		Family:         family,
		CareLevel:      "Unknown",
		Watering:       "Unknown",
		Sunlight:       []string{"Unknown"},
		GrowthHabit:    growthHabit,
	}, nil
}
