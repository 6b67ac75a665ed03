// Package classifier buckets user messages by complexity.
//
// The bucket drives tier selection in the routing engine:
// - Simple messages stay on the free on-device model
// - Heavy report/analysis work goes to the most capable cloud tier
// Classification is pure rule matching; it must never call a model, since it
// runs before the wallet has approved any spend.
package classifier

import (
	"strings"
	"unicode"

	"github.com/dailywell-ai/dailywell/internal/model"
)

// Complexity is the classified weight of one user message.
type Complexity int

const (
	Simple Complexity = iota
	Moderate
	Complex
	Heavy
)

// String returns the complexity name.
func (c Complexity) String() string {
	switch c {
	case Simple:
		return "simple"
	case Moderate:
		return "moderate"
	case Complex:
		return "complex"
	case Heavy:
		return "heavy"
	default:
		return "unknown"
	}
}

// PreferredTier maps a complexity bucket to the tier it should run on,
// before plan gating and wallet checks are applied.
func (c Complexity) PreferredTier() model.Tier {
	switch c {
	case Simple:
		return model.TierLocal
	case Moderate:
		return model.TierLite
	case Complex:
		return model.TierStandard
	case Heavy:
		return model.TierMax
	default:
		return model.TierLite
	}
}

// SessionType distinguishes ordinary chat from scheduled review sessions.
type SessionType string

const (
	SessionChat         SessionType = "chat"
	SessionWeeklyReview SessionType = "weekly_review"
)

// Classifier classifies message complexity.
type Classifier struct {
	// ComplexLengthThreshold is the rune count above which a message is
	// at least Complex.
	ComplexLengthThreshold int
}

// New returns a classifier with default thresholds.
func New() *Classifier {
	return &Classifier{
		ComplexLengthThreshold: 200,
	}
}

// Classify buckets a message.
func (c *Classifier) Classify(message string, session SessionType) Complexity {
	msg := strings.ToLower(strings.TrimSpace(message))

	// Weekly reviews always produce long-form reports.
	if session == SessionWeeklyReview {
		return Heavy
	}

	if containsAny(msg, heavyKeywords) {
		return Heavy
	}

	if wordCount(msg) <= 3 || matchesGreeting(msg) {
		return Simple
	}

	if containsAny(msg, complexKeywords) || len([]rune(msg)) > c.ComplexLengthThreshold {
		return Complex
	}

	return Moderate
}

// wordCount counts whitespace-separated words.
func wordCount(s string) int {
	return len(strings.FieldsFunc(s, unicode.IsSpace))
}

// containsAny reports whether msg contains any of the keywords.
func containsAny(msg string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(msg, kw) {
			return true
		}
	}
	return false
}
