package vision

import (
	"context"
	"fmt"
	"strings"

	"leafwise-server/internal/domain/careplan"
	"leafwise-server/internal/domain/health"
	"leafwise-server/internal/domain/identify"
)

var (
	_ identify.Gate       = (*Client)(nil)
	_ identify.Identifier = (*Client)(nil)
	_ health.Assessor     = (*Client)(nil)
	_ careplan.Generator  = (*Client)(nil)
)

const qualitySystem = "You are a photography assistant for a plant identification service. Reply with JSON only."

// AssessQuality implements the image quality gate with a single cheap
// structured-output call.
func (c *Client) AssessQuality(ctx context.Context, images []identify.Image) (*identify.QualityReport, error) {
	prompt := `Judge whether these photos are suitable for plant identification.
A photo is unsuitable if it is blurry, too dark, too far away, shows no plant, or shows multiple unrelated plants.
Reply with JSON: {"suitable": bool, "issues": [string], "suggestions": [string]}.`

	var report identify.QualityReport
	if err := c.chatJSON(ctx, "quality-gate", qualitySystem, prompt, images, &report); err != nil {
		return nil, err
	}
	if report.Issues == nil {
		report.Issues = []string{}
	}
	if report.Suggestions == nil {
		report.Suggestions = []string{}
	}
	return &report, nil
}

const botanistSystem = "You are an expert botanist. Reply with JSON only."

// Identify implements species identification over one-to-three images.
func (c *Client) Identify(ctx context.Context, images []identify.Image) (*identify.SpeciesHypothesis, error) {
	prompt := `Identify the plant species shown in these photos.
Reply with JSON: {"scientific_name": string, "common_name": string, "confidence": number between 0 and 1}.
If you cannot identify the plant, use an empty scientific_name and confidence 0.`

	var hypothesis identify.SpeciesHypothesis
	if err := c.chatJSON(ctx, "identify", botanistSystem, prompt, images, &hypothesis); err != nil {
		return nil, err
	}
	return &hypothesis, nil
}

// Assess implements the health assessment. It runs even when identification
// confidence was marginal; visible symptoms do not require species
// certainty.
func (c *Client) Assess(ctx context.Context, images []identify.Image, species *identify.SpeciesHypothesis) (*health.Report, error) {
	speciesHint := "The species is unknown."
	if species != nil && species.ScientificName != "" {
		speciesHint = fmt.Sprintf("The plant is likely %s (%s).", species.ScientificName, species.CommonName)
	}

	prompt := fmt.Sprintf(`Assess the health of the plant in these photos. %s
Look for diseases, pests, nutrient deficiencies and environmental stress.
Reply with JSON: {"is_healthy": bool, "findings": [{"kind": "disease"|"pest"|"deficiency"|"stress", "name": string, "severity": "low"|"moderate"|"high", "description": string, "remedy": string}]}.`, speciesHint)

	var report health.Report
	if err := c.chatJSON(ctx, "health-assessment", botanistSystem, prompt, images, &report); err != nil {
		return nil, err
	}
	if report.Findings == nil {
		report.Findings = []health.Finding{}
	}
	return &report, nil
}

// Generate implements care plan generation. No images are sent; the plan is
// synthesized from the merged upstream outputs.
func (c *Client) Generate(ctx context.Context, req careplan.GenerateRequest) (*careplan.Draft, error) {
	language := req.Language
	if strings.TrimSpace(language) == "" {
		language = "English"
	}

	var findings []string
	for _, f := range req.Health.Findings {
		findings = append(findings, fmt.Sprintf("%s: %s (%s severity)", f.Kind, f.Name, f.Severity))
	}
	findingsText := "none"
	if len(findings) > 0 {
		findingsText = strings.Join(findings, "; ")
	}

	prompt := fmt.Sprintf(`Write a personalized care plan in %s for a %s (%s).
Catalog data: family %s, care level %s, watering %s, sunlight %s, growth habit %s.
Observed health issues: %s.
Reply with JSON: {"sections": {"watering": string, "light": string, "humidity": string, "temperature": string, "soil": string, "fertilizer": string, "pruning": string}, "common_issues": [{"name": string, "prevention": string}]}.
Each section is 1-3 sentences of practical advice. Include explicit frequencies like "every N days" in the watering and fertilizer sections.`,
		language,
		req.Species.ScientificName, req.Species.CommonName,
		req.Catalog.Family, req.Catalog.CareLevel, req.Catalog.Watering,
		strings.Join(req.Catalog.Sunlight, ", "), req.Catalog.GrowthHabit,
		findingsText,
	)

	var draft careplan.Draft
	if err := c.chatJSON(ctx, "care-plan", botanistSystem, prompt, nil, &draft); err != nil {
		return nil, err
	}
	if draft.Sections == nil {
		draft.Sections = map[string]string{}
	}
	return &draft, nil
}
