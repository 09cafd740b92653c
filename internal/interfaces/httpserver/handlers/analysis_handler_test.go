package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leafwise-server/internal/config"
	"leafwise-server/internal/domain/analysis"
	"leafwise-server/internal/domain/careplan"
	"leafwise-server/internal/domain/catalog"
	"leafwise-server/internal/domain/health"
	"leafwise-server/internal/domain/identify"
	"leafwise-server/internal/domain/usage"
	"leafwise-server/internal/infrastructure/cache"
)

type stubGate struct{}

func (stubGate) AssessQuality(ctx context.Context, images []identify.Image) (*identify.QualityReport, error) {
	return &identify.QualityReport{Suitable: true, Issues: []string{}, Suggestions: []string{}}, nil
}

type stubIdentifier struct{}

func (stubIdentifier) Identify(ctx context.Context, images []identify.Image) (*identify.SpeciesHypothesis, error) {
	return &identify.SpeciesHypothesis{
		ScientificName: "Ficus lyrata",
		CommonName:     "Fiddle-leaf fig",
		Confidence:     0.95,
	}, nil
}

type stubAssessor struct{}

func (stubAssessor) Assess(ctx context.Context, images []identify.Image, species *identify.SpeciesHypothesis) (*health.Report, error) {
	return &health.Report{IsHealthy: true, Findings: []health.Finding{}}, nil
}

type stubProvider struct{}

func (stubProvider) Name() string { return "stub" }

func (stubProvider) Lookup(ctx context.Context, scientificName string) (*catalog.Record, error) {
	return &catalog.Record{Source: "stub", ScientificName: scientificName, Family: "Moraceae"}, nil
}

type stubGenerator struct{}

func (stubGenerator) Generate(ctx context.Context, req careplan.GenerateRequest) (*careplan.Draft, error) {
	return &careplan.Draft{Sections: map[string]string{"watering": "Water every 7 days."}}, nil
}

type stubUsageStore struct {
	mu      sync.Mutex
	entries map[string]*usage.Entry
}

func (s *stubUsageStore) Get(ctx context.Context, userID string) (*usage.Entry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[userID]
	if !ok {
		return nil, false, nil
	}
	copied := *e
	return &copied, true, nil
}

func (s *stubUsageStore) Update(ctx context.Context, userID string, fn func(e *usage.Entry) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[userID]
	if !ok {
		e = &usage.Entry{UserID: userID}
		s.entries[userID] = e
	}
	return fn(e)
}

type stubBilling struct{}

func (stubBilling) IsActive(ctx context.Context, userID string) (bool, error) { return false, nil }

type stubResultStore struct {
	mu      sync.Mutex
	results map[string]*analysis.Result
}

func (s *stubResultStore) Create(ctx context.Context, r *analysis.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[r.ID] = r
	return nil
}

func (s *stubResultStore) Get(ctx context.Context, id string) (*analysis.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.results[id]
	if !ok {
		return nil, analysis.ErrResultNotFound
	}
	return r, nil
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := zerolog.Nop()

	cfg := &config.Config{MaxImageBytes: 102400}

	identifyService := identify.NewService(stubIdentifier{}, stubGate{}, 0.3, log)
	enricher := catalog.NewEnricher(cache.NewMemoryStore(), 24*time.Hour, log, stubProvider{})
	synthesizer := careplan.NewSynthesizer(stubGenerator{}, log)
	ledger := usage.NewLedger(&stubUsageStore{entries: map[string]*usage.Entry{}}, stubBilling{}, 3, 30, log)
	service := analysis.NewService(identifyService, enricher, stubAssessor{}, synthesizer, ledger,
		&stubResultStore{results: map[string]*analysis.Result{}}, log)

	handler := NewAnalysisHandler(cfg, service, log)

	router := gin.New()
	router.POST("/v1/analyses", handler.Create)
	router.GET("/v1/analyses/:id", handler.Get)
	return router
}

// pngBytes is a minimal valid PNG signature, enough for content sniffing.
var pngBytes = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0}

func multipartBody(t *testing.T, files map[string][]byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for name, data := range files {
		part, err := writer.CreateFormFile("images", name)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func TestCreate_MissingUserIDHeader(t *testing.T) {
	router := newTestRouter(t)
	body, contentType := multipartBody(t, map[string][]byte{"leaf.png": pngBytes})

	req := httptest.NewRequest(http.MethodPost, "/v1/analyses", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreate_NoImages(t *testing.T) {
	router := newTestRouter(t)
	body, contentType := multipartBody(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/analyses", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-User-ID", "user-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreate_TooManyImages(t *testing.T) {
	router := newTestRouter(t)
	files := map[string][]byte{
		"a.png": pngBytes, "b.png": pngBytes, "c.png": pngBytes, "d.png": pngBytes,
	}
	body, contentType := multipartBody(t, files)

	req := httptest.NewRequest(http.MethodPost, "/v1/analyses", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-User-ID", "user-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreate_RejectsNonImageUpload(t *testing.T) {
	router := newTestRouter(t)
	body, contentType := multipartBody(t, map[string][]byte{"notes.txt": []byte("not a photo at all")})

	req := httptest.NewRequest(http.MethodPost, "/v1/analyses", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-User-ID", "user-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreate_RejectsOversizedImage(t *testing.T) {
	router := newTestRouter(t)
	oversized := append(append([]byte{}, pngBytes...), make([]byte, 110*1024)...)
	body, contentType := multipartBody(t, map[string][]byte{"big.png": oversized})

	req := httptest.NewRequest(http.MethodPost, "/v1/analyses", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-User-ID", "user-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreate_CompletedAnalysisRoundTrip(t *testing.T) {
	router := newTestRouter(t)
	body, contentType := multipartBody(t, map[string][]byte{"leaf.png": pngBytes})

	req := httptest.NewRequest(http.MethodPost, "/v1/analyses", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-User-ID", "user-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var payload struct {
		ID      string `json:"id"`
		State   string `json:"state"`
		Species *struct {
			ScientificName string `json:"scientific_name"`
		} `json:"species"`
		FreeTier *struct {
			RemainingUses int `json:"remaining_uses"`
		} `json:"free_tier_status"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, "completed", payload.State)
	require.NotNil(t, payload.Species)
	assert.Equal(t, "Ficus lyrata", payload.Species.ScientificName)
	require.NotNil(t, payload.FreeTier)
	assert.Equal(t, 2, payload.FreeTier.RemainingUses)

	// Stored result is retrievable.
	getReq := httptest.NewRequest(http.MethodGet, "/v1/analyses/"+payload.ID, nil)
	getRec := httptest.NewRecorder()
	router.ServeHTTP(getRec, getReq)
	assert.Equal(t, http.StatusOK, getRec.Code)
}

func TestGet_UnknownIDReturns404(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/analyses/anl_missing", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
