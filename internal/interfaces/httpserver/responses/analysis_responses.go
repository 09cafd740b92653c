package responses

import (
	"net/http"
	"time"

	"leafwise-server/internal/domain/analysis"
	"leafwise-server/internal/domain/careplan"
	"leafwise-server/internal/domain/catalog"
	"leafwise-server/internal/domain/health"
	"leafwise-server/internal/domain/identify"
	"leafwise-server/internal/domain/usage"
)

// AnalysisResponse is the unified analysis payload. Rejected analyses carry
// only state, rejection and free-tier fields; completed analyses carry the
// full payload.
type AnalysisResponse struct {
	ID        string                      `json:"id,omitempty"`
	State     string                      `json:"state"`
	Message   string                      `json:"message,omitempty"`
	Species   *identify.SpeciesHypothesis `json:"species,omitempty"`
	Catalog   *catalog.Record             `json:"catalog,omitempty"`
	CarePlan  *careplan.Plan              `json:"care_plan,omitempty"`
	Health    *health.Report              `json:"health,omitempty"`
	FreeTier  *usage.Status               `json:"free_tier_status,omitempty"`
	Rejection *analysis.Rejection         `json:"rejection,omitempty"`
	CreatedAt time.Time                   `json:"created_at"`
}

// FromResult maps a pipeline result onto the wire shape.
func FromResult(result *analysis.Result) AnalysisResponse {
	return AnalysisResponse{
		ID:        result.ID,
		State:     string(result.State),
		Message:   result.Message,
		Species:   result.Species,
		Catalog:   result.Catalog,
		CarePlan:  result.CarePlan,
		Health:    result.Health,
		FreeTier:  result.FreeTier,
		Rejection: result.Rejection,
		CreatedAt: result.CreatedAt,
	}
}

// StatusForResult picks the HTTP status for a pipeline outcome. Rejections
// are valid outcomes with guidance, distinguished from transport errors by
// status class.
func StatusForResult(result *analysis.Result) int {
	switch result.State {
	case analysis.StateRejectedByUsage:
		return http.StatusForbidden
	case analysis.StateRejectedByQuality, analysis.StateRejectedByConfidence:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusOK
	}
}

// UsageResponse reports the caller's free-tier standing.
type UsageResponse struct {
	Subscribed       bool `json:"subscribed"`
	Eligible         bool `json:"eligible"`
	RemainingUses    int  `json:"remaining_uses"`
	DaysLeftInWindow int  `json:"days_left_in_window"`
}
