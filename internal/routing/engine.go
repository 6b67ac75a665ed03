// Package routing decides which backend serves each coach request.
//
// Selection order:
// 1. Plan gate - callers without cloud entitlement always get the local tier
// 2. Complexity classification picks the preferred cloud tier
// 3. Budget mode caps spend once the soft cap is crossed
// 4. Per-tier circuit breakers drop failing backends from the chain
//
// The local tier is always reachable as the final fallback.
package routing

import (
	"github.com/rs/zerolog"

	"github.com/dailywell-ai/dailywell/internal/classifier"
	"github.com/dailywell-ai/dailywell/internal/errors"
	"github.com/dailywell-ai/dailywell/internal/model"
)

// BudgetMode widens or narrows spend per request.
type BudgetMode int

const (
	BudgetNormal      BudgetMode = iota
	BudgetConstrained            // soft cap crossed: cheapest cloud tier, short replies
)

// String returns the budget mode name.
func (m BudgetMode) String() string {
	if m == BudgetConstrained {
		return "constrained"
	}
	return "normal"
}

// Decision is the outcome of one routing evaluation. Computed fresh per
// request, never persisted.
type Decision struct {
	Tier       model.Tier
	Chain      []model.Tier // ordered fallbacks after Tier, ends at TierLocal
	BudgetMode BudgetMode
	Complexity classifier.Complexity
	MaxTokens  int
}

// Request carries the routing inputs for one message.
type Request struct {
	Message      string
	Session      classifier.SessionType
	CloudAllowed bool // wallet verdict
	LowBalance   bool // soft cap crossed
}

// Config configures the engine.
type Config struct {
	Breaker *errors.CircuitBreakerConfig // applied to every cloud tier
}

// Engine routes requests across the local model and three cloud tiers.
type Engine struct {
	classifier *classifier.Classifier
	breakers   map[model.Tier]*errors.CircuitBreaker
	log        zerolog.Logger
}

// New creates a routing engine with one circuit breaker per cloud tier.
func New(cfg *Config, log zerolog.Logger) *Engine {
	var bc *errors.CircuitBreakerConfig
	if cfg != nil {
		bc = cfg.Breaker
	}

	breakers := make(map[model.Tier]*errors.CircuitBreaker)
	for _, tier := range model.CloudTiers() {
		breakers[tier] = errors.NewCircuitBreaker(tier.String(), bc)
	}

	return &Engine{
		classifier: classifier.New(),
		breakers:   breakers,
		log:        log.With().Str("component", "routing").Logger(),
	}
}

// Decide evaluates one request and returns the chosen tier plus its
// fallback chain.
func (e *Engine) Decide(req *Request) *Decision {
	complexity := e.classifier.Classify(req.Message, req.Session)

	d := &Decision{
		Complexity: complexity,
		BudgetMode: BudgetNormal,
		MaxTokens:  outputBudget(complexity),
	}

	// Plan gating is primary: no entitlement means local, regardless of
	// how heavy the message looks.
	if !req.CloudAllowed {
		d.Tier = model.TierLocal
		return d
	}

	tier := complexity.PreferredTier()

	if req.LowBalance {
		d.BudgetMode = BudgetConstrained
		if tier > model.TierLite {
			tier = model.TierLite
		}
		if d.MaxTokens > constrainedMaxTokens {
			d.MaxTokens = constrainedMaxTokens
		}
	}

	// Demote through tripped breakers until an admissible tier remains.
	for tier.IsCloud() && !e.breakers[tier].Available() {
		tier--
	}

	d.Tier = tier
	d.Chain = e.buildChain(tier)

	e.log.Debug().
		Str("complexity", complexity.String()).
		Str("tier", tier.String()).
		Str("budget_mode", d.BudgetMode.String()).
		Msg("routing decision")

	return d
}

// buildChain walks progressively cheaper cloud tiers, skipping tripped
// breakers, and always terminates at the local tier.
func (e *Engine) buildChain(from model.Tier) []model.Tier {
	var chain []model.Tier
	for _, tier := range from.FallbackChain() {
		if tier.IsCloud() && !e.breakers[tier].Available() {
			continue
		}
		chain = append(chain, tier)
	}
	return chain
}

// RecordSuccess resets the tier's failure count.
func (e *Engine) RecordSuccess(tier model.Tier) {
	if cb, ok := e.breakers[tier]; ok {
		cb.RecordSuccess()
	}
}

// RecordFailure charges a failure against the tier's breaker.
func (e *Engine) RecordFailure(tier model.Tier) {
	if cb, ok := e.breakers[tier]; ok {
		cb.RecordFailure()
		if cb.State() == errors.StateOpen {
			e.log.Warn().Str("tier", tier.String()).Msg("circuit breaker tripped")
		}
	}
}

// Failures returns the tier's consecutive failure count.
func (e *Engine) Failures(tier model.Tier) int {
	if cb, ok := e.breakers[tier]; ok {
		return cb.Failures()
	}
	return 0
}

// BreakerStates snapshots breaker state per cloud tier for status output.
func (e *Engine) BreakerStates() map[model.Tier]errors.BreakerState {
	states := make(map[model.Tier]errors.BreakerState, len(e.breakers))
	for tier, cb := range e.breakers {
		states[tier] = cb.State()
	}
	return states
}

const constrainedMaxTokens = 192

// outputBudget sizes the reply budget by message weight.
func outputBudget(c classifier.Complexity) int {
	switch c {
	case classifier.Simple:
		return 128
	case classifier.Moderate:
		return 256
	case classifier.Complex:
		return 512
	case classifier.Heavy:
		return 1024
	default:
		return 256
	}
}
