// Package analysis contains the pipeline controller that sequences image
// quality gating, species identification, catalog enrichment, care plan
// synthesis and health assessment into one unified result.
package analysis

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"leafwise-server/internal/domain/careplan"
	"leafwise-server/internal/domain/catalog"
	"leafwise-server/internal/domain/health"
	"leafwise-server/internal/domain/identify"
	"leafwise-server/internal/domain/usage"
	"leafwise-server/internal/infrastructure/metrics"
	"leafwise-server/internal/infrastructure/throttle"
	"leafwise-server/internal/utils/idgen"
	"leafwise-server/internal/utils/platformerrors"
)

// Service is the pipeline controller. Stages run strictly sequentially;
// any gate failure short-circuits to its rejection terminal before further
// provider calls are made.
type Service struct {
	identifier  *identify.Service
	enricher    *catalog.Enricher
	assessor    health.Assessor
	synthesizer *careplan.Synthesizer
	ledger      *usage.Ledger
	store       ResultStore
	log         zerolog.Logger
}

// NewService creates the pipeline controller.
func NewService(
	identifier *identify.Service,
	enricher *catalog.Enricher,
	assessor health.Assessor,
	synthesizer *careplan.Synthesizer,
	ledger *usage.Ledger,
	store ResultStore,
	log zerolog.Logger,
) *Service {
	return &Service{
		identifier:  identifier,
		enricher:    enricher,
		assessor:    assessor,
		synthesizer: synthesizer,
		ledger:      ledger,
		store:       store,
		log:         log.With().Str("component", "analysis-pipeline").Logger(),
	}
}

// Analyze runs the full pipeline for one request. Gate rejections are valid
// results, not errors; only unhandled upstream failures return an error, and
// that error is always caller-safe.
func (s *Service) Analyze(ctx context.Context, req *Request) (*Result, error) {
	metrics.AnalysesStarted.Inc()
	started := time.Now()
	defer func() {
		metrics.PipelineDuration.Observe(time.Since(started).Seconds())
	}()

	result := &Result{
		UserID:    req.UserID,
		State:     StateAdmitted,
		CreatedAt: started,
	}

	// Usage gate runs before any image is processed.
	status, err := s.ledger.CheckEligibility(ctx, req.UserID)
	if err != nil {
		return nil, s.fail(ctx, result, err, "usage eligibility check failed")
	}
	if !status.Eligible {
		metrics.UsageDenied.Inc()
		result.State = StateRejectedByUsage
		result.Rejection = &Rejection{
			Reason:        ReasonUsageExhausted,
			RemainingUses: status.RemainingUses,
			DaysLeft:      status.DaysLeftInWindow,
		}
		result.FreeTier = status
		s.finish(result)
		return result, nil
	}

	// Quality gate protects quota: one cheap call before any per-image
	// paid inference.
	quality, err := s.identifier.AssessQuality(ctx, req.Images)
	if err != nil {
		return nil, s.fail(ctx, result, err, "image quality assessment failed")
	}
	result.State = StateQualityChecked
	if !quality.Suitable {
		result.State = StateRejectedByQuality
		result.Rejection = &Rejection{
			Reason:      ReasonLowImageQuality,
			Issues:      quality.Issues,
			Suggestions: quality.Suggestions,
		}
		s.finish(result)
		return result, nil
	}

	hypothesis, err := s.identifier.Identify(ctx, req.Images)
	if err != nil {
		return nil, s.fail(ctx, result, err, "species identification failed")
	}
	result.State = StateIdentified
	if !s.identifier.Accepts(hypothesis) {
		// No catalog or care-plan provider calls for species that were
		// never actually identified.
		result.State = StateRejectedByConfidence
		result.Rejection = &Rejection{Reason: ReasonUnidentifiable}
		s.finish(result)
		return result, nil
	}
	result.Species = hypothesis

	// Health assessment has no data dependency on catalog enrichment, so
	// the two run concurrently; both complete before care plan synthesis.
	var (
		record       *catalog.Record
		healthReport *health.Report
	)
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		record = s.enricher.Lookup(groupCtx, hypothesis.ScientificName)
		return nil
	})
	group.Go(func() error {
		report, assessErr := s.assessor.Assess(groupCtx, req.Images, hypothesis)
		if assessErr != nil {
			return assessErr
		}
		report.Normalize()
		healthReport = report
		return nil
	})
	if err := group.Wait(); err != nil {
		return nil, s.fail(ctx, result, err, "health assessment failed")
	}
	result.State = StateEnriched
	result.Catalog = record
	result.Health = healthReport
	result.State = StateHealthAssessed

	plan, err := s.synthesizer.Synthesize(ctx, careplan.GenerateRequest{
		Species:  *hypothesis,
		Catalog:  *record,
		Health:   *healthReport,
		Language: req.Language,
	})
	if err != nil {
		return nil, s.fail(ctx, result, err, "care plan synthesis failed")
	}
	result.State = StateCarePlanned
	result.CarePlan = plan

	s.complete(ctx, req, result, status)
	return result, nil
}

// GetResult reads one stored result.
func (s *Service) GetResult(ctx context.Context, id string) (*Result, error) {
	return s.store.Get(ctx, id)
}

// FreeTierStatus reports the caller's current allowance.
func (s *Service) FreeTierStatus(ctx context.Context, userID string) (*usage.Status, error) {
	return s.ledger.CheckEligibility(ctx, userID)
}

// complete assembles the success terminal, persists the result and charges
// the ledger.
func (s *Service) complete(ctx context.Context, req *Request, result *Result, status *usage.Status) {
	result.State = StateCompleted

	displayName := result.Species.CommonName
	if displayName == "" {
		displayName = result.Species.ScientificName
	}
	result.Message = careplan.Summary(displayName, result.Health.IsHealthy)

	if !status.Subscribed {
		remaining := status.RemainingUses - 1
		if remaining < 0 {
			remaining = 0
		}
		result.FreeTier = &usage.Status{
			Eligible:         remaining > 0,
			RemainingUses:    remaining,
			DaysLeftInWindow: status.DaysLeftInWindow,
		}
	}

	id, err := idgen.GenerateSecureID("anl", 20)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to generate result ID")
		id = "anl_unknown"
	}
	result.ID = id

	if err := s.store.Create(ctx, result); err != nil {
		// Best-effort consistency: the caller still gets the result.
		s.log.Error().Err(err).Str("result_id", id).Msg("failed to persist analysis result")
	}
	if err := s.ledger.Increment(ctx, req.UserID); err != nil {
		s.log.Error().Err(err).Str("user_id", req.UserID).Msg("failed to record free-tier use")
	}

	s.finish(result)
	s.log.Info().
		Str("result_id", result.ID).
		Str("user_id", req.UserID).
		Str("species", result.Species.ScientificName).
		Float64("confidence", result.Species.Confidence).
		Bool("healthy", result.Health.IsHealthy).
		Msg("analysis completed")
}

// fail translates an upstream error into a caller-safe one. Raw provider
// error text never reaches the caller.
func (s *Service) fail(ctx context.Context, result *Result, err error, message string) error {
	result.State = StateFailed
	s.finish(result)

	s.log.Error().Err(err).Str("user_id", result.UserID).Msg(message)

	if errors.Is(err, throttle.ErrQuotaExceeded) {
		pe := platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeQuotaExceeded, message, err)
		pe.SafeMessage = "service is busy, please try again later"
		return pe
	}
	return platformerrors.AsError(ctx, platformerrors.LayerDomain, err, message)
}

func (s *Service) finish(result *Result) {
	metrics.AnalysesCompleted.WithLabelValues(string(result.State)).Inc()
}
