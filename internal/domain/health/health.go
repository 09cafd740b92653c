// Package health defines the plant health assessment model. Assessment is
// independent of species identification succeeding: visible symptoms do not
// require species certainty.
package health

import (
	"context"
	"strings"

	"leafwise-server/internal/domain/identify"
)

// FindingKind categorizes a health finding.
type FindingKind string

const (
	KindDisease    FindingKind = "disease"
	KindPest       FindingKind = "pest"
	KindDeficiency FindingKind = "deficiency"
	KindStress     FindingKind = "stress"
)

// Severity lets downstream consumers prioritize findings.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityModerate Severity = "moderate"
	SeverityHigh     Severity = "high"
)

// Finding is one observed disease, pest, deficiency or stress symptom.
type Finding struct {
	Kind        FindingKind `json:"kind"`
	Name        string      `json:"name"`
	Severity    Severity    `json:"severity"`
	Description string      `json:"description"`
	Remedy      string      `json:"remedy,omitempty"`
}

// Report is the structured outcome of a health assessment. An empty findings
// list with IsHealthy=true is a valid terminal state.
type Report struct {
	IsHealthy bool      `json:"is_healthy"`
	Findings  []Finding `json:"findings"`
}

// Normalize coerces provider output into the fixed kind/severity vocabulary.
// Unknown kinds degrade to stress, unknown severities to moderate.
func (r *Report) Normalize() {
	for i := range r.Findings {
		switch FindingKind(strings.ToLower(string(r.Findings[i].Kind))) {
		case KindDisease, KindPest, KindDeficiency, KindStress:
			r.Findings[i].Kind = FindingKind(strings.ToLower(string(r.Findings[i].Kind)))
		default:
			r.Findings[i].Kind = KindStress
		}
		switch Severity(strings.ToLower(string(r.Findings[i].Severity))) {
		case SeverityLow, SeverityModerate, SeverityHigh:
			r.Findings[i].Severity = Severity(strings.ToLower(string(r.Findings[i].Severity)))
		default:
			r.Findings[i].Severity = SeverityModerate
		}
	}
	if len(r.Findings) == 0 {
		r.IsHealthy = true
	}
}

// Assessor maps images, and optionally the identified species, to a report.
type Assessor interface {
	Assess(ctx context.Context, images []identify.Image, species *identify.SpeciesHypothesis) (*Report, error)
}
