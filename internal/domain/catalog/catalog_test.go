package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"leafwise-server/internal/infrastructure/cache"
)

type fakeProvider struct {
	name   string
	record *Record
	err    error
	calls  int
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) Lookup(ctx context.Context, scientificName string) (*Record, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return p.record, nil
}

func newEnricher(providers ...Provider) (*Enricher, *cache.MemoryStore) {
	store := cache.NewMemoryStore()
	return NewEnricher(store, 24*time.Hour, zerolog.Nop(), providers...), store
}

func TestCacheKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Monstera Deliciosa", "monstera deliciosa"},
		{"  Ficus   lyrata ", "ficus lyrata"},
		{"EPIPREMNUM\taureum", "epipremnum aureum"},
	}
	for _, tt := range tests {
		if got := CacheKey(tt.in); got != tt.want {
			t.Errorf("CacheKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLookup_SecondCallServedFromCache(t *testing.T) {
	primary := &fakeProvider{name: "perenual", record: &Record{
		Source:         "perenual",
		ScientificName: "Monstera deliciosa",
		Family:         "Araceae",
	}}
	enricher, _ := newEnricher(primary)
	ctx := context.Background()

	first := enricher.Lookup(ctx, "Monstera deliciosa")
	second := enricher.Lookup(ctx, "monstera  DELICIOSA")

	if primary.calls != 1 {
		t.Errorf("expected exactly one provider call, got %d", primary.calls)
	}
	if first.Family != "Araceae" || second.Family != "Araceae" {
		t.Errorf("unexpected records: %+v %+v", first, second)
	}
}

func TestLookup_FallsBackToSecondary(t *testing.T) {
	primary := &fakeProvider{name: "perenual", err: errors.New("status 429")}
	secondary := &fakeProvider{name: "trefle", record: &Record{
		Source:         "trefle",
		ScientificName: "Ficus lyrata",
		Family:         "Moraceae",
	}}
	enricher, _ := newEnricher(primary, secondary)

	record := enricher.Lookup(context.Background(), "Ficus lyrata")
	if record.Source != "trefle" {
		t.Errorf("expected secondary provider record, got source %q", record.Source)
	}
	if primary.calls != 1 || secondary.calls != 1 {
		t.Errorf("unexpected call counts: primary=%d secondary=%d", primary.calls, secondary.calls)
	}
}

func TestLookup_AllProvidersFailReturnsBasicRecord(t *testing.T) {
	primary := &fakeProvider{name: "perenual", err: errors.New("network down")}
	secondary := &fakeProvider{name: "trefle", err: errors.New("empty result set")}
	enricher, store := newEnricher(primary, secondary)
	ctx := context.Background()

	record := enricher.Lookup(ctx, "Calathea orbifolia")
	if record.Source != SourceBasic {
		t.Fatalf("expected basic placeholder, got source %q", record.Source)
	}
	if record.Family != "Unknown" {
		t.Errorf("placeholder fields must be marked Unknown, got %q", record.Family)
	}

	// Placeholders are not cached, so a later attempt retries the providers.
	if _, ok := store.Get(ctx, CacheKey("Calathea orbifolia")); ok {
		t.Error("placeholder record must not be cached")
	}
	enricher.Lookup(ctx, "Calathea orbifolia")
	if primary.calls != 2 {
		t.Errorf("expected providers retried after placeholder, got %d calls", primary.calls)
	}
}

func TestLookup_SuccessfulRecordIsCachedFor24h(t *testing.T) {
	primary := &fakeProvider{name: "perenual", record: &Record{
		Source:         "perenual",
		ScientificName: "Epipremnum aureum",
	}}
	enricher, store := newEnricher(primary)
	ctx := context.Background()

	enricher.Lookup(ctx, "Epipremnum aureum")
	if _, ok := store.Get(ctx, "epipremnum aureum"); !ok {
		t.Error("expected successful lookup to be cached")
	}
}

func TestLookup_CorruptCacheEntryFallsThrough(t *testing.T) {
	primary := &fakeProvider{name: "perenual", record: &Record{
		Source:         "perenual",
		ScientificName: "Aloe vera",
	}}
	enricher, store := newEnricher(primary)
	ctx := context.Background()

	store.Set(ctx, "aloe vera", []byte("{not json"), time.Hour)
	record := enricher.Lookup(ctx, "Aloe vera")
	if record.Source != "perenual" {
		t.Errorf("expected provider record after corrupt cache entry, got %q", record.Source)
	}
}
