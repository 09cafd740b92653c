// Package identify defines plant image analysis inputs, the species
// hypothesis model, and the image quality gate run before any paid
// per-image inference call.
package identify

import (
	"context"

	"github.com/rs/zerolog"
)

// Image is one user-submitted photograph. Ephemeral; never persisted past
// the request.
type Image struct {
	Data     []byte
	MimeType string
}

// SpeciesHypothesis is a ranked species guess with a confidence score.
type SpeciesHypothesis struct {
	ScientificName string  `json:"scientific_name"`
	CommonName     string  `json:"common_name"`
	Confidence     float64 `json:"confidence"`
}

// Clamp forces confidence into [0,1].
func (h *SpeciesHypothesis) Clamp() {
	if h.Confidence < 0 {
		h.Confidence = 0
	}
	if h.Confidence > 1 {
		h.Confidence = 1
	}
}

// QualityReport is the outcome of the cheap pre-inference quality check.
type QualityReport struct {
	Suitable    bool     `json:"suitable"`
	Issues      []string `json:"issues"`
	Suggestions []string `json:"suggestions"`
}

// Gate rejects unsuitable photos before any paid inference call is made.
type Gate interface {
	AssessQuality(ctx context.Context, images []Image) (*QualityReport, error)
}

// Identifier maps one-to-three images to a species hypothesis.
type Identifier interface {
	Identify(ctx context.Context, images []Image) (*SpeciesHypothesis, error)
}

// Service wraps an Identifier with the confidence acceptance threshold.
type Service struct {
	identifier Identifier
	gate       Gate
	threshold  float64
	log        zerolog.Logger
}

// NewService creates an identification service. Hypotheses with confidence
// below threshold are treated as unidentified.
func NewService(identifier Identifier, gate Gate, threshold float64, log zerolog.Logger) *Service {
	return &Service{
		identifier: identifier,
		gate:       gate,
		threshold:  threshold,
		log:        log.With().Str("component", "identify-service").Logger(),
	}
}

// AssessQuality runs the image quality gate.
func (s *Service) AssessQuality(ctx context.Context, images []Image) (*QualityReport, error) {
	return s.gate.AssessQuality(ctx, images)
}

// Identify produces a species hypothesis with confidence clamped to [0,1].
func (s *Service) Identify(ctx context.Context, images []Image) (*SpeciesHypothesis, error) {
	hypothesis, err := s.identifier.Identify(ctx, images)
	if err != nil {
		return nil, err
	}
	hypothesis.Clamp()

	s.log.Debug().
		Str("scientific_name", hypothesis.ScientificName).
		Float64("confidence", hypothesis.Confidence).
		Msg("species hypothesis produced")

	return hypothesis, nil
}

// Accepts reports whether a hypothesis clears the acceptance threshold.
func (s *Service) Accepts(h *SpeciesHypothesis) bool {
	return h != nil && h.Confidence >= s.threshold
}
