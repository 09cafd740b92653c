// Package catalog enriches a species identification with taxonomic and care
// metadata from external reference databases, with ordered provider fallback
// and a TTL response cache. Enrichment is an enhancement, not a hard
// dependency: total provider exhaustion degrades to a basic placeholder
// record instead of failing the pipeline.
package catalog

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"leafwise-server/internal/infrastructure/cache"
	"leafwise-server/internal/infrastructure/metrics"
)

// SourceBasic marks a placeholder record synthesized after provider
// exhaustion. Basic records are never cached.
const SourceBasic = "basic"

// Record holds taxonomic and care metadata for a scientific name.
type Record struct {
	Source         string   `json:"source"`
	ScientificName string   `json:"scientific_name"`
	Family         string   `json:"family"`
	CareLevel      string   `json:"care_level"`
	Watering       string   `json:"watering"`
	Sunlight       []string `json:"sunlight"`
	GrowthHabit    string   `json:"growth_habit"`
}

// BasicRecord synthesizes the minimal placeholder returned when every
// provider fails.
func BasicRecord(scientificName string) *Record {
	return &Record{
		Source:         SourceBasic,
		ScientificName: scientificName,
		Family:         "Unknown",
		CareLevel:      "Unknown",
		Watering:       "Unknown",
		Sunlight:       []string{"Unknown"},
		GrowthHabit:    "Unknown",
	}
}

// Provider is one external catalog database.
type Provider interface {
	Name() string
	Lookup(ctx context.Context, scientificName string) (*Record, error)
}

// Enricher looks up catalog records through the cache and an ordered list of
// fallback providers.
type Enricher struct {
	providers []Provider
	store     cache.Store
	ttl       time.Duration
	log       zerolog.Logger
}

// NewEnricher creates an enricher. Providers are consulted in order; the
// first success wins.
func NewEnricher(store cache.Store, ttl time.Duration, log zerolog.Logger, providers ...Provider) *Enricher {
	return &Enricher{
		providers: providers,
		store:     store,
		ttl:       ttl,
		log:       log.With().Str("component", "catalog-enricher").Logger(),
	}
}

// Lookup returns a catalog record for the scientific name. It never fails:
// provider errors fall through to the next provider and finally to a basic
// placeholder record.
func (e *Enricher) Lookup(ctx context.Context, scientificName string) *Record {
	key := CacheKey(scientificName)

	if raw, ok := e.store.Get(ctx, key); ok {
		var record Record
		if err := json.Unmarshal(raw, &record); err == nil {
			metrics.CacheLookups.WithLabelValues("hit").Inc()
			e.log.Debug().Str("key", key).Str("source", record.Source).Msg("catalog cache hit")
			return &record
		}
		// Corrupt payload; drop it and fall through to the providers.
		e.log.Warn().Str("key", key).Msg("dropping unreadable catalog cache entry")
		e.store.Delete(ctx, key)
	}
	metrics.CacheLookups.WithLabelValues("miss").Inc()

	for _, provider := range e.providers {
		record, err := provider.Lookup(ctx, scientificName)
		metrics.RecordProviderCall(provider.Name(), err)
		if err != nil {
			// Full detail stays server-side; the caller only ever sees the
			// degraded record.
			e.log.Warn().
				Err(err).
				Str("provider", provider.Name()).
				Str("scientific_name", scientificName).
				Msg("catalog provider failed, falling through")
			continue
		}

		if raw, err := json.Marshal(record); err == nil {
			e.store.Set(ctx, key, raw, e.ttl)
		}
		e.log.Info().
			Str("provider", provider.Name()).
			Str("scientific_name", scientificName).
			Msg("catalog record fetched")
		return record
	}

	e.log.Warn().Str("scientific_name", scientificName).Msg("all catalog providers exhausted, returning basic record")
	return BasicRecord(scientificName)
}

// CacheKey normalizes a scientific name into a cache key: lowercase with
// whitespace collapsed.
func CacheKey(scientificName string) string {
	return strings.Join(strings.Fields(strings.ToLower(scientificName)), " ")
}
