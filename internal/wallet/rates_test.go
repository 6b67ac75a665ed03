package wallet

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dailywell-ai/dailywell/internal/config"
	"github.com/dailywell-ai/dailywell/internal/model"
)

func TestCostLocalIsFree(t *testing.T) {
	assert.Zero(t, testRates.Cost(model.TierLocal, 1_000_000, 1_000_000))
}

func TestCostMonotonicAcrossTiers(t *testing.T) {
	// The same token volume must never cost less on a higher tier.
	in, out := 10_000, 2_000
	lite := testRates.Cost(model.TierLite, in, out)
	standard := testRates.Cost(model.TierStandard, in, out)
	max := testRates.Cost(model.TierMax, in, out)

	assert.Greater(t, lite, 0.0)
	assert.GreaterOrEqual(t, standard, lite)
	assert.GreaterOrEqual(t, max, standard)
}

func TestCostMonotonicInTokens(t *testing.T) {
	small := testRates.Cost(model.TierStandard, 1_000, 500)
	large := testRates.Cost(model.TierStandard, 2_000, 500)
	assert.Greater(t, large, small)
}

func TestCostAppliesMarkup(t *testing.T) {
	r := &Rates{
		Markup: 2.0,
		ByTier: map[model.Tier]Rate{
			model.TierLite: {InputPerMTok: 1.0, OutputPerMTok: 1.0},
		},
	}
	// 1M in + 1M out at $1/MTok each, doubled.
	assert.InDelta(t, 4.0, r.Cost(model.TierLite, 1_000_000, 1_000_000), 1e-9)
}

func TestRatesFromConfigDefaultsMarkup(t *testing.T) {
	r := RatesFromConfig(config.RatesConfig{
		Lite: config.TierRate{InputPerMTok: 0.1, OutputPerMTok: 0.3},
	})
	assert.Equal(t, 1.0, r.Markup, "missing markup means no markup")
	assert.InDelta(t, 0.4, r.Cost(model.TierLite, 1_000_000, 1_000_000), 1e-9)
}

func TestCostUnknownTier(t *testing.T) {
	r := &Rates{Markup: 1.0, ByTier: map[model.Tier]Rate{}}
	assert.Zero(t, r.Cost(model.TierMax, 1000, 1000))
}
