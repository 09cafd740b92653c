// Package perenual implements the primary catalog provider against the
// Perenual species API.
package perenual

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

// Client queries the Perenual species list API.
type Client struct {
	httpClient *resty.Client
	apiKey     string
	throttle   *throttle.Client
	log        zerolog.Logger
}

var _ catalog.Provider = (*Client)(nil)

// New creates a Perenual catalog client.
func New(baseURL, apiKey string, timeout time.Duration, throttleClient *throttle.Client, log zerolog.Logger) *Client {
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("User-Agent", "leafwise-server/1.0")

	return &Client{
		httpClient: httpClient,
		apiKey:     apiKey,
		throttle:   throttleClient,
		log:        log.With().Str("component", "perenual-client").Logger(),
	}
}

// Name implements catalog.Provider.
func (c *Client) Name() string { return "perenual" }

type speciesListResponse struct {
	Data []struct {
		ID             int      `json:"id"`
		CommonName     string   `json:"common_name"`
		ScientificName []string `json:"scientific_name"`
		Family         string   `json:"family"`
		Watering       string   `json:"watering"`
		Sunlight       []string `json:"sunlight"`
		Cycle          string   `json:"cycle"`
		CareLevel      string   `json:"care_level"`
	} `json:"data"`
}

// Lookup fetches taxonomic and care metadata for a scientific name. An
// empty result set is an error so the enricher falls through to the next
// provider.
func (c *Client) Lookup(ctx context.Context, scientificName string) (*catalog.Record, error) {
	if strings.TrimSpace(c.apiKey) == "" {
		return nil, fmt.Errorf("perenual API key not configured")
	}

	var result speciesListResponse
	err := c.throttle.Do(ctx, func(ctx context.Context) error {
		resp, callErr := c.httpClient.R().
			SetContext(ctx).
			SetQueryParam("key", c.apiKey).
			SetQueryParam("q", scientificName).
			SetResult(&result).
			Get("/species-list")
		if callErr != nil {
			return fmt.Errorf("query perenual species list: %w", callErr)
		}
		if resp.IsError() {
			return fmt.Errorf("perenual species list error (status %d)", resp.StatusCode())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(result.Data) == 0 {
		return nil, fmt.Errorf("perenual returned no species for %q", scientificName)
	}

	species := result.Data[0]
	record := &catalog.Record{
		Source:         c.Name(),
		ScientificName: scientificName,
		Family:         orUnknown(species.Family),
		CareLevel:      orUnknown(species.CareLevel),
		Watering:       orUnknown(species.Watering),
		Sunlight:       species.Sunlight,
		GrowthHabit:    orUnknown(species.Cycle),
	}
	if len(record.Sunlight) == 0 {
		record.Sunlight = []string{"Unknown"}
	}

	c.log.Debug().
		Int("species_id", species.ID).
		Str("scientific_name", scientificName).
		Msg("perenual lookup succeeded")
	return record, nil
}

func orUnknown(value string) string {
	if strings.TrimSpace(value) == "" {
		return "Unknown"
	}
	return value
}
