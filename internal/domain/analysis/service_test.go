package analysis

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leafwise-server/internal/domain/careplan"
	"leafwise-server/internal/domain/catalog"
	"leafwise-server/internal/domain/health"
	"leafwise-server/internal/domain/identify"
	"leafwise-server/internal/domain/usage"
	"leafwise-server/internal/infrastructure/cache"
)

type fakeGate struct {
	report *identify.QualityReport
	calls  int
}

func (g *fakeGate) AssessQuality(ctx context.Context, images []identify.Image) (*identify.QualityReport, error) {
	g.calls++
	return g.report, nil
}

type fakeIdentifier struct {
	hypothesis *identify.SpeciesHypothesis
	calls      int
}

func (f *fakeIdentifier) Identify(ctx context.Context, images []identify.Image) (*identify.SpeciesHypothesis, error) {
	f.calls++
	copied := *f.hypothesis
	return &copied, nil
}

type fakeAssessor struct {
	report *health.Report
	calls  int
}

func (f *fakeAssessor) Assess(ctx context.Context, images []identify.Image, species *identify.SpeciesHypothesis) (*health.Report, error) {
	f.calls++
	copied := *f.report
	return &copied, nil
}

type fakeCatalogProvider struct {
	calls int
}

func (f *fakeCatalogProvider) Name() string { return "fake" }

func (f *fakeCatalogProvider) Lookup(ctx context.Context, scientificName string) (*catalog.Record, error) {
	f.calls++
	return &catalog.Record{
		Source:         "fake",
		ScientificName: scientificName,
		Family:         "Araceae",
		Watering:       "Average",
	}, nil
}

type fakePlanGenerator struct {
	calls int
}

func (f *fakePlanGenerator) Generate(ctx context.Context, req careplan.GenerateRequest) (*careplan.Draft, error) {
	f.calls++
	return &careplan.Draft{
		Sections: map[string]string{
			"watering": "Water every 5 days.",
			"light":    "Bright indirect light.",
		},
	}, nil
}

type memLedgerStore struct {
	mu      sync.Mutex
	entries map[string]*usage.Entry
}

func (s *memLedgerStore) Get(ctx context.Context, userID string) (*usage.Entry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[userID]
	if !ok {
		return nil, false, nil
	}
	copied := *e
	return &copied, true, nil
}

func (s *memLedgerStore) Update(ctx context.Context, userID string, fn func(e *usage.Entry) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[userID]
	if !ok {
		e = &usage.Entry{UserID: userID}
		s.entries[userID] = e
	}
	return fn(e)
}

type noBilling struct{}

func (noBilling) IsActive(ctx context.Context, userID string) (bool, error) { return false, nil }

type memResultStore struct {
	mu      sync.Mutex
	results map[string]*Result
}

func (s *memResultStore) Create(ctx context.Context, result *Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[result.ID] = result
	return nil
}

func (s *memResultStore) Get(ctx context.Context, id string) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.results[id]
	if !ok {
		return nil, ErrResultNotFound
	}
	return r, nil
}

type pipelineFixture struct {
	service    *Service
	gate       *fakeGate
	identifier *fakeIdentifier
	assessor   *fakeAssessor
	provider   *fakeCatalogProvider
	generator  *fakePlanGenerator
	ledger     *usage.Ledger
	results    *memResultStore
}

func newFixture(confidence float64, suitable bool) *pipelineFixture {
	log := zerolog.Nop()

	gate := &fakeGate{report: &identify.QualityReport{
		Suitable:    suitable,
		Issues:      []string{"image is blurry"},
		Suggestions: []string{"retake in daylight"},
	}}
	identifier := &fakeIdentifier{hypothesis: &identify.SpeciesHypothesis{
		ScientificName: "Monstera deliciosa",
		CommonName:     "Swiss cheese plant",
		Confidence:     confidence,
	}}
	assessor := &fakeAssessor{report: &health.Report{IsHealthy: true, Findings: []health.Finding{}}}
	provider := &fakeCatalogProvider{}
	generator := &fakePlanGenerator{}
	results := &memResultStore{results: make(map[string]*Result)}
	ledger := usage.NewLedger(&memLedgerStore{entries: make(map[string]*usage.Entry)}, noBilling{}, 3, 30, log)

	identifySvc := identify.NewService(identifier, gate, 0.3, log)
	enricher := catalog.NewEnricher(cache.NewMemoryStore(), 24*time.Hour, log, provider)
	synthesizer := careplan.NewSynthesizer(generator, log)

	return &pipelineFixture{
		service:    NewService(identifySvc, enricher, assessor, synthesizer, ledger, results, log),
		gate:       gate,
		identifier: identifier,
		assessor:   assessor,
		provider:   provider,
		generator:  generator,
		ledger:     ledger,
		results:    results,
	}
}

func testImages(n int) []identify.Image {
	images := make([]identify.Image, n)
	for i := range images {
		images[i] = identify.Image{Data: []byte{0xFF, 0xD8, 0xFF}, MimeType: "image/jpeg"}
	}
	return images
}

func TestAnalyze_CompletedWithFullCarePlan(t *testing.T) {
	f := newFixture(0.92, true)
	ctx := context.Background()

	result, err := f.service.Analyze(ctx, &Request{UserID: "user-1", Images: testImages(2)})
	require.NoError(t, err)
	require.True(t, result.Completed())

	require.NotNil(t, result.CarePlan)
	for _, key := range careplan.SectionKeys {
		assert.NotEmpty(t, result.CarePlan.Sections[key], "section %q must be populated", key)
	}
	assert.Len(t, result.CarePlan.Sections, 7)
	require.NotNil(t, result.Health)
	assert.True(t, result.Health.IsHealthy)
	require.NotNil(t, result.FreeTier)
	assert.Equal(t, 2, result.FreeTier.RemainingUses)
	assert.NotEmpty(t, result.Message)
	assert.NotEmpty(t, result.ID)

	stored, err := f.service.GetResult(ctx, result.ID)
	require.NoError(t, err)
	assert.Equal(t, result.ID, stored.ID)
}

func TestAnalyze_LowConfidenceRejectsWithoutDownstreamCalls(t *testing.T) {
	f := newFixture(0.05, true)

	result, err := f.service.Analyze(context.Background(), &Request{UserID: "user-1", Images: testImages(1)})
	require.NoError(t, err)

	assert.Equal(t, StateRejectedByConfidence, result.State)
	require.NotNil(t, result.Rejection)
	assert.Equal(t, ReasonUnidentifiable, result.Rejection.Reason)
	assert.Zero(t, f.provider.calls, "no catalog calls for unidentified species")
	assert.Zero(t, f.generator.calls, "no care-plan calls for unidentified species")
}

func TestAnalyze_UnsuitableImagesRejectBeforePaidInference(t *testing.T) {
	f := newFixture(0.92, false)

	result, err := f.service.Analyze(context.Background(), &Request{UserID: "user-1", Images: testImages(1)})
	require.NoError(t, err)

	assert.Equal(t, StateRejectedByQuality, result.State)
	require.NotNil(t, result.Rejection)
	assert.Equal(t, ReasonLowImageQuality, result.Rejection.Reason)
	assert.Equal(t, []string{"retake in daylight"}, result.Rejection.Suggestions)
	assert.Zero(t, f.identifier.calls)
	assert.Zero(t, f.assessor.calls)
	assert.Zero(t, f.provider.calls)
}

func TestAnalyze_UsageExhaustedRejectsBeforeAnyProcessing(t *testing.T) {
	f := newFixture(0.92, true)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, f.ledger.Increment(ctx, "user-1"))
	}

	result, err := f.service.Analyze(ctx, &Request{UserID: "user-1", Images: testImages(1)})
	require.NoError(t, err)

	assert.Equal(t, StateRejectedByUsage, result.State)
	require.NotNil(t, result.Rejection)
	assert.Equal(t, ReasonUsageExhausted, result.Rejection.Reason)
	assert.Equal(t, 0, result.Rejection.RemainingUses)
	assert.Zero(t, f.gate.calls, "no image is processed once the ledger denies entry")
	assert.Zero(t, f.identifier.calls)
}

func TestAnalyze_CompletionConsumesOneFreeUse(t *testing.T) {
	f := newFixture(0.92, true)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		result, err := f.service.Analyze(ctx, &Request{UserID: "user-1", Images: testImages(1)})
		require.NoError(t, err)
		require.True(t, result.Completed())
	}

	result, err := f.service.Analyze(ctx, &Request{UserID: "user-1", Images: testImages(1)})
	require.NoError(t, err)
	assert.Equal(t, StateRejectedByUsage, result.State)
}

func TestAnalyze_RejectionsAreNotPersisted(t *testing.T) {
	f := newFixture(0.05, true)

	result, err := f.service.Analyze(context.Background(), &Request{UserID: "user-1", Images: testImages(1)})
	require.NoError(t, err)
	require.True(t, result.Rejected())

	f.results.mu.Lock()
	defer f.results.mu.Unlock()
	assert.Empty(t, f.results.results, "partial results must not be persisted as complete")
}
