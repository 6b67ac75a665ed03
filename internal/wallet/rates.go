// Package wallet provides the per-tier price table.
package wallet

import (
	"github.com/dailywell-ai/dailywell/internal/config"
	"github.com/dailywell-ai/dailywell/internal/model"
)

// Rate is the USD price per 1M tokens for one cloud tier.
type Rate struct {
	InputPerMTok  float64
	OutputPerMTok float64
}

// Rates is the published price table plus the internal markup factor.
// It is policy data, injected from config, never hardcoded in routing logic.
type Rates struct {
	Markup float64
	ByTier map[model.Tier]Rate
}

// RatesFromConfig builds the price table from configuration.
func RatesFromConfig(cfg config.RatesConfig) *Rates {
	markup := cfg.Markup
	if markup <= 0 {
		markup = 1.0
	}
	return &Rates{
		Markup: markup,
		ByTier: map[model.Tier]Rate{
			model.TierLite:     {InputPerMTok: cfg.Lite.InputPerMTok, OutputPerMTok: cfg.Lite.OutputPerMTok},
			model.TierStandard: {InputPerMTok: cfg.Standard.InputPerMTok, OutputPerMTok: cfg.Standard.OutputPerMTok},
			model.TierMax:      {InputPerMTok: cfg.Max.InputPerMTok, OutputPerMTok: cfg.Max.OutputPerMTok},
		},
	}
}

// Cost returns the marked-up USD charge for one call. Local calls are free.
func (r *Rates) Cost(tier model.Tier, inputTokens, outputTokens int) float64 {
	if !tier.IsCloud() {
		return 0
	}
	rate, ok := r.ByTier[tier]
	if !ok {
		return 0
	}
	raw := float64(inputTokens)/1_000_000*rate.InputPerMTok +
		float64(outputTokens)/1_000_000*rate.OutputPerMTok
	return raw * r.Markup
}

// Estimate returns a conservative pre-flight cost estimate for a call with
// the given token budgets. Used before launching expensive report calls.
func (r *Rates) Estimate(tier model.Tier, maxInputTokens, maxOutputTokens int) float64 {
	return r.Cost(tier, maxInputTokens, maxOutputTokens)
}
