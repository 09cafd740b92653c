package analysis

import (
	"context"
	"errors"
	"time"

	"leafwise-server/internal/domain/careplan"
	"leafwise-server/internal/domain/catalog"
	"leafwise-server/internal/domain/health"
	"leafwise-server/internal/domain/identify"
	"leafwise-server/internal/domain/usage"
)

// State is a pipeline stage or terminal outcome.
type State string

const (
	StateAdmitted       State = "admitted"
	StateQualityChecked State = "quality_checked"
	StateIdentified     State = "identified"
	StateEnriched       State = "enriched"
	StateCarePlanned    State = "care_planned"
	StateHealthAssessed State = "health_assessed"
	StateCompleted      State = "completed"

	// Early-exit terminals. Gate rejections are valid outcomes with
	// actionable guidance, not errors.
	StateRejectedByUsage      State = "rejected_by_usage"
	StateRejectedByQuality    State = "rejected_by_quality"
	StateRejectedByConfidence State = "rejected_by_confidence"
	StateFailed               State = "failed"
)

// Rejection reasons surfaced to callers.
const (
	ReasonUsageExhausted  = "usage_exhausted"
	ReasonLowImageQuality = "low_image_quality"
	ReasonUnidentifiable  = "unidentifiable"
)

// Request is one analysis submission. Image payloads are ephemeral and never
// persisted past the request.
type Request struct {
	UserID   string
	Images   []identify.Image
	Language string
}

// Rejection describes why a request exited early, with guidance for the
// caller.
type Rejection struct {
	Reason        string   `json:"reason"`
	RemainingUses int      `json:"remaining_uses,omitempty"`
	DaysLeft      int      `json:"days_left,omitempty"`
	Issues        []string `json:"issues,omitempty"`
	Suggestions   []string `json:"suggestions,omitempty"`
}

// Result is the unified pipeline output. Rejected requests carry a Rejection
// and no analysis payload; completed requests carry the full payload.
type Result struct {
	ID        string                      `json:"id"`
	UserID    string                      `json:"user_id"`
	State     State                       `json:"state"`
	Species   *identify.SpeciesHypothesis `json:"species,omitempty"`
	Catalog   *catalog.Record             `json:"catalog,omitempty"`
	CarePlan  *careplan.Plan              `json:"care_plan,omitempty"`
	Health    *health.Report              `json:"health,omitempty"`
	FreeTier  *usage.Status               `json:"free_tier_status,omitempty"`
	Rejection *Rejection                  `json:"rejection,omitempty"`
	Message   string                      `json:"message,omitempty"`
	CreatedAt time.Time                   `json:"created_at"`
}

// Completed reports whether the pipeline reached its success terminal.
func (r *Result) Completed() bool {
	return r.State == StateCompleted
}

// Rejected reports whether the pipeline exited at a gate.
func (r *Result) Rejected() bool {
	switch r.State {
	case StateRejectedByUsage, StateRejectedByQuality, StateRejectedByConfidence:
		return true
	}
	return false
}

// ErrResultNotFound is returned when a result ID is unknown.
var ErrResultNotFound = errors.New("analysis result not found")

// ResultStore persists completed results. Storage itself is an external
// collaborator; the pipeline only creates and reads.
type ResultStore interface {
	Create(ctx context.Context, result *Result) error
	Get(ctx context.Context, id string) (*Result, error)
}
