// Package careplan synthesizes identification, catalog and health outputs
// into one structured care plan. Section-level fallbacks keep the plan
// complete even when the generating provider omits fields.
package careplan

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"leafwise-server/internal/domain/catalog"
	"leafwise-server/internal/domain/health"
	"leafwise-server/internal/domain/identify"
)

// SectionKeys lists the sections every plan must populate, in render order.
var SectionKeys = []string{
	"watering", "light", "humidity", "temperature", "soil", "fertilizer", "pruning",
}

// Issue is one common problem for the species with its prevention advice.
type Issue struct {
	Name       string `json:"name"`
	Prevention string `json:"prevention"`
}

// Reminder is a derived (interval, message) pair computed from the plan's
// own frequency text.
type Reminder struct {
	Kind         string `json:"kind"`
	IntervalDays int    `json:"interval_days"`
	Message      string `json:"message"`
}

// Plan is the structured, multi-section care plan.
type Plan struct {
	Sections     map[string]string `json:"sections"`
	CommonIssues []Issue           `json:"common_issues"`
	Reminders    []Reminder        `json:"reminders"`
}

// GenerateRequest carries everything the plan generator needs.
type GenerateRequest struct {
	Species  identify.SpeciesHypothesis
	Catalog  catalog.Record
	Health   health.Report
	Language string
}

// Draft is the raw generator output before fallback filling and reminder
// derivation.
type Draft struct {
	Sections     map[string]string `json:"sections"`
	CommonIssues []Issue           `json:"common_issues"`
}

// Generator produces a care plan draft from the merged upstream outputs.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (*Draft, error)
}

// Synthesizer turns generator drafts into complete plans.
type Synthesizer struct {
	generator Generator
	log       zerolog.Logger
}

// NewSynthesizer creates a care plan synthesizer.
func NewSynthesizer(generator Generator, log zerolog.Logger) *Synthesizer {
	return &Synthesizer{
		generator: generator,
		log:       log.With().Str("component", "careplan-synthesizer").Logger(),
	}
}

// Synthesize merges the three upstream outputs into one plan. Partially
// missing generator output is repaired with field-level fallbacks rather
// than aborting.
func (s *Synthesizer) Synthesize(ctx context.Context, req GenerateRequest) (*Plan, error) {
	draft, err := s.generator.Generate(ctx, req)
	if err != nil {
		return nil, err
	}

	plan := &Plan{
		Sections:     make(map[string]string, len(SectionKeys)),
		CommonIssues: draft.CommonIssues,
	}
	if plan.CommonIssues == nil {
		plan.CommonIssues = []Issue{}
	}

	displayName := req.Species.CommonName
	if displayName == "" {
		displayName = req.Species.ScientificName
	}

	filled := 0
	for _, key := range SectionKeys {
		text := strings.TrimSpace(draft.Sections[key])
		if text == "" {
			text = fallbackSection(key, displayName)
			filled++
		}
		plan.Sections[key] = text
	}
	if filled > 0 {
		s.log.Warn().
			Int("filled", filled).
			Str("species", req.Species.ScientificName).
			Msg("generator omitted care plan sections, applied fallbacks")
	}

	plan.Reminders = DeriveReminders(plan)
	return plan, nil
}

// fallbackSection returns generic advice when the generator omits a section.
// Required sections are never left null.
func fallbackSection(key, displayName string) string {
	switch key {
	case "watering":
		return fmt.Sprintf("Water your %s when the top few centimeters of soil feel dry.", displayName)
	case "light":
		return fmt.Sprintf("Place your %s in bright, indirect light and avoid harsh midday sun.", displayName)
	case "humidity":
		return "Average household humidity is usually sufficient; mist occasionally if air is very dry."
	case "temperature":
		return "Keep between 18-27°C and away from cold drafts and heat sources."
	case "soil":
		return "Use a well-draining potting mix appropriate for houseplants."
	case "fertilizer":
		return "Feed with a balanced liquid fertilizer every 4 weeks during the growing season."
	case "pruning":
		return "Remove dead or yellowing leaves as needed to encourage healthy growth."
	default:
		return "Follow general houseplant care guidance."
	}
}
