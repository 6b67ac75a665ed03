// Package coach provides reply shaping.
//
// Every reply leaving the orchestrator honors the same contract regardless
// of which backend produced the raw text: 2-3 sentences, exactly one
// starting with the "Next step:" marker, an optional trailing question.
package coach

import (
	"strings"
	"unicode"
)

// NextStepMarker prefixes the single action sentence in every reply.
const NextStepMarker = "Next step:"

const maxSentences = 3

// Normalize shapes raw backend text into the reply contract. Empty or
// malformed raw text falls back to a templated action derived from the
// user's message.
func Normalize(raw, userMessage string) string {
	sentences := splitSentences(strings.TrimSpace(raw))

	var kept []string
	var action string

	for _, s := range sentences {
		if strings.HasPrefix(s, NextStepMarker) {
			// Keep the first action sentence, drop duplicates.
			if action == "" {
				action = s
			}
			continue
		}
		kept = append(kept, s)
	}

	if action == "" {
		action = templatedNextStep(userMessage)
	}

	// Budget: up to two regular sentences plus the action, with a trailing
	// question allowed to stay last.
	var question string
	if n := len(kept); n > 0 && strings.HasSuffix(kept[n-1], "?") {
		question = kept[n-1]
		kept = kept[:n-1]
	}

	room := maxSentences - 1
	if question != "" {
		room--
	}
	if room < 0 {
		room = 0
	}
	if len(kept) > room {
		kept = kept[:room]
	}

	out := append(kept, action)
	if question != "" {
		out = append(out, question)
	}
	return strings.Join(out, " ")
}

// splitSentences breaks text on terminal punctuation, keeping the
// punctuation attached.
func splitSentences(text string) []string {
	var sentences []string
	var cur strings.Builder

	runes := []rune(text)
	for i, r := range runes {
		cur.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			// Don't split decimals like "2.5".
			if r == '.' && i+1 < len(runes) && unicode.IsDigit(runes[i+1]) {
				continue
			}
			if s := strings.TrimSpace(cur.String()); s != "" {
				sentences = append(sentences, s)
			}
			cur.Reset()
		}
	}
	if s := strings.TrimSpace(cur.String()); s != "" {
		sentences = append(sentences, s+".")
	}
	return sentences
}

// templatedNextStep derives a concrete action from keywords in the user's
// message when the backend's raw reply carried none.
func templatedNextStep(userMessage string) string {
	msg := strings.ToLower(userMessage)

	switch {
	case containsAny(msg, "sleep", "tired", "bedtime", "insomnia"):
		return NextStepMarker + " pick a consistent bedtime tonight and set a wind-down alarm 30 minutes before."
	case containsAny(msg, "water", "hydrat", "drink"):
		return NextStepMarker + " fill a water bottle now and finish it before your next meal."
	case containsAny(msg, "workout", "exercise", "run", "gym", "training"):
		return NextStepMarker + " schedule a 20-minute session for tomorrow and lay out your gear tonight."
	case containsAny(msg, "eat", "food", "meal", "nutrition", "snack"):
		return NextStepMarker + " add one vegetable to your next meal."
	case containsAny(msg, "stress", "anxious", "anxiety", "overwhelm"):
		return NextStepMarker + " take five slow breaths before your next task."
	default:
		return NextStepMarker + " log one small win in the app today."
	}
}

func containsAny(msg string, keywords ...string) bool {
	for _, kw := range keywords {
		if strings.Contains(msg, kw) {
			return true
		}
	}
	return false
}
