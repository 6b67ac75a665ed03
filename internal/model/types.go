// Package model provides types for AI model operations.
package model

// Tier identifies a backend by cost class. Order matters: higher tiers are
// more capable and more expensive, and fallback walks downward.
type Tier int

const (
	TierLocal    Tier = 0 // On-device model (free)
	TierLite     Tier = 1 // Low-cost cloud model
	TierStandard Tier = 2 // Mid-cost cloud model
	TierMax      Tier = 3 // High-cost cloud model
)

// String returns the tier name used in logs, config and persisted counters.
func (t Tier) String() string {
	switch t {
	case TierLocal:
		return "local"
	case TierLite:
		return "lite"
	case TierStandard:
		return "standard"
	case TierMax:
		return "max"
	default:
		return "unknown"
	}
}

// IsCloud reports whether the tier is a paid cloud backend.
func (t Tier) IsCloud() bool {
	return t > TierLocal
}

// CloudTiers lists the paid tiers from cheapest to most expensive.
func CloudTiers() []Tier {
	return []Tier{TierLite, TierStandard, TierMax}
}

// FallbackChain returns the tiers to try after t fails, cheaper cloud tiers
// first, always ending at the local model.
func (t Tier) FallbackChain() []Tier {
	var chain []Tier
	for tier := t - 1; tier > TierLocal; tier-- {
		chain = append(chain, tier)
	}
	return append(chain, TierLocal)
}

// Request represents a model inference request.
type Request struct {
	System      string  `json:"system,omitempty"`
	Prompt      string  `json:"prompt"`
	Persona     string  `json:"persona,omitempty"`      // coach persona descriptor
	UserContext string  `json:"user_context,omitempty"` // profile/history summary
	MaxTokens   int     `json:"max_tokens,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
}

// Response represents a model inference response.
type Response struct {
	Text         string `json:"text"`
	InputTokens  int    `json:"input_tokens"`
	OutputTokens int    `json:"output_tokens"`
	Model        string `json:"model"`
	Tier         Tier   `json:"tier"`
	DurationMs   int64  `json:"duration_ms"`
}

// TotalTokens returns the combined token count for the call.
func (r *Response) TotalTokens() int {
	return r.InputTokens + r.OutputTokens
}

// Status represents the availability of a model backend.
type Status struct {
	Name      string `json:"name"`
	Available bool   `json:"available"`
	Local     bool   `json:"local"`
	Error     string `json:"error,omitempty"`
}
