// Package classifier provides the rule tables for complexity matching.
package classifier

import "regexp"

// heavyKeywords pull a message up to the Heavy bucket: long-form report and
// analysis work that justifies the most capable cloud tier.
var heavyKeywords = []string{
	"weekly report",
	"monthly report",
	"progress report",
	"summary of my",
	"summarize my",
	"analyze my",
	"analysis of",
	"review my week",
	"review my month",
	"trends in my",
	"deep dive",
}

// complexKeywords mark personalization and explanation requests that need
// the mid-high cloud tier.
var complexKeywords = []string{
	"personalized",
	"tailored",
	"customize",
	"meal plan",
	"workout plan",
	"training plan",
	"explain why",
	"explain how",
	"what should i",
	"help me understand",
	"compare",
	"recommend",
}

// greetingPatterns match short acknowledgments that never need the cloud.
var greetingPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^(hi|hello|hey|yo|sup)\b`),
	regexp.MustCompile(`^good (morning|afternoon|evening|night)\b`),
	regexp.MustCompile(`^(thanks|thank you|thx|ty)\b`),
	regexp.MustCompile(`^(ok|okay|cool|nice|great|awesome|got it|sounds good)[.!]?$`),
	regexp.MustCompile(`^(yes|yeah|yep|no|nope|maybe)[.!]?$`),
	regexp.MustCompile(`^(bye|goodbye|see you|later)\b`),
}

// matchesGreeting checks the greeting/acknowledgment pattern list.
func matchesGreeting(msg string) bool {
	for _, p := range greetingPatterns {
		if p.MatchString(msg) {
			return true
		}
	}
	return false
}
