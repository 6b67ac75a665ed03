package routing

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dailywell-ai/dailywell/internal/classifier"
	"github.com/dailywell-ai/dailywell/internal/errors"
	"github.com/dailywell-ai/dailywell/internal/model"
)

func newTestEngine() *Engine {
	return New(&Config{
		Breaker: &errors.CircuitBreakerConfig{
			MaxFailures:      3,
			ResetTimeout:     time.Minute,
			HalfOpenAttempts: 2,
		},
	}, zerolog.Nop())
}

func TestDecidePlanGatingIsPrimary(t *testing.T) {
	e := newTestEngine()

	// Even the heaviest message stays local without cloud entitlement.
	d := e.Decide(&Request{
		Message:      "analyze my sleep trends for the whole month in detail",
		Session:      classifier.SessionChat,
		CloudAllowed: false,
	})

	assert.Equal(t, model.TierLocal, d.Tier)
	assert.Empty(t, d.Chain)
	assert.Equal(t, classifier.Heavy, d.Complexity)
}

func TestDecideByComplexity(t *testing.T) {
	e := newTestEngine()

	tests := []struct {
		message string
		want    model.Tier
	}{
		{"hey", model.TierLocal},
		{"how did my morning walk compare to last time", model.TierStandard},
		{"what foods are high in protein for dinner", model.TierLite},
		{"build me a personalized workout plan", model.TierStandard},
		{"give me a weekly report on everything", model.TierMax},
	}

	for _, tt := range tests {
		d := e.Decide(&Request{Message: tt.message, Session: classifier.SessionChat, CloudAllowed: true})
		assert.Equal(t, tt.want, d.Tier, "message: %q", tt.message)
	}
}

func TestDecideLowBalanceConstrains(t *testing.T) {
	e := newTestEngine()

	d := e.Decide(&Request{
		Message:      "analyze my sleep trends for the whole month in detail",
		Session:      classifier.SessionChat,
		CloudAllowed: true,
		LowBalance:   true,
	})

	assert.Equal(t, model.TierLite, d.Tier, "low balance caps routing at the cheapest cloud tier")
	assert.Equal(t, BudgetConstrained, d.BudgetMode)
	assert.LessOrEqual(t, d.MaxTokens, constrainedMaxTokens)
}

func TestDecideChainEndsAtLocal(t *testing.T) {
	e := newTestEngine()

	d := e.Decide(&Request{
		Message:      "give me a weekly report on everything",
		Session:      classifier.SessionChat,
		CloudAllowed: true,
	})

	require.Equal(t, model.TierMax, d.Tier)
	assert.Equal(t, []model.Tier{model.TierStandard, model.TierLite, model.TierLocal}, d.Chain)
}

func TestDecideTrippedBreakerDemotes(t *testing.T) {
	e := newTestEngine()

	for i := 0; i < 3; i++ {
		e.RecordFailure(model.TierMax)
	}
	require.Equal(t, errors.StateOpen, e.BreakerStates()[model.TierMax])

	d := e.Decide(&Request{
		Message:      "give me a weekly report on everything",
		Session:      classifier.SessionChat,
		CloudAllowed: true,
	})

	assert.Equal(t, model.TierStandard, d.Tier, "tripped tier is skipped at selection")
	assert.NotContains(t, d.Chain, model.TierMax)
	assert.Equal(t, model.TierLocal, d.Chain[len(d.Chain)-1])
}

func TestDecideAllCloudTrippedFallsToLocal(t *testing.T) {
	e := newTestEngine()

	for _, tier := range model.CloudTiers() {
		for i := 0; i < 3; i++ {
			e.RecordFailure(tier)
		}
	}

	d := e.Decide(&Request{
		Message:      "build me a personalized workout plan",
		Session:      classifier.SessionChat,
		CloudAllowed: true,
	})

	assert.Equal(t, model.TierLocal, d.Tier)
	assert.Equal(t, []model.Tier{model.TierLocal}, d.Chain)
}

func TestDecideChainExcludesTrippedMiddleTier(t *testing.T) {
	e := newTestEngine()

	for i := 0; i < 3; i++ {
		e.RecordFailure(model.TierStandard)
	}

	d := e.Decide(&Request{
		Message:      "give me a weekly report on everything",
		Session:      classifier.SessionChat,
		CloudAllowed: true,
	})

	assert.Equal(t, model.TierMax, d.Tier)
	assert.Equal(t, []model.Tier{model.TierLite, model.TierLocal}, d.Chain)
}

func TestRecordSuccessResetsBreaker(t *testing.T) {
	e := newTestEngine()

	e.RecordFailure(model.TierLite)
	e.RecordFailure(model.TierLite)
	assert.Equal(t, 2, e.Failures(model.TierLite))

	e.RecordSuccess(model.TierLite)
	assert.Zero(t, e.Failures(model.TierLite))
}

func TestOutputBudgetScalesWithComplexity(t *testing.T) {
	e := newTestEngine()

	simple := e.Decide(&Request{Message: "hi", Session: classifier.SessionChat, CloudAllowed: true})
	heavy := e.Decide(&Request{
		Message:      "how was my week",
		Session:      classifier.SessionWeeklyReview,
		CloudAllowed: true,
	})

	assert.Less(t, simple.MaxTokens, heavy.MaxTokens)
}
