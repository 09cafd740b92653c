package handlers

import (
	"github.com/rs/zerolog"

	"leafwise-server/internal/config"
	"leafwise-server/internal/domain/analysis"
)

// Provider bundles the HTTP handlers for route registration.
type Provider struct {
	Analysis *AnalysisHandler
	Usage    *UsageHandler
}

// NewProvider constructs all handlers.
func NewProvider(cfg *config.Config, service *analysis.Service, log zerolog.Logger) *Provider {
	return &Provider{
		Analysis: NewAnalysisHandler(cfg, service, log),
		Usage:    NewUsageHandler(service, log),
	}
}
