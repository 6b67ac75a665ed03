// Package coach provides prompt assembly for coaching requests.
package coach

import "strings"

const defaultPersona = `You are Wells, the DailyWell coach: warm, practical and brief.
You help people build habits around sleep, movement, nutrition and stress.`

const systemPrompt = `Reply in 2-3 short sentences.
Exactly one sentence must begin with "Next step:" and name one concrete action.
You may end with a short question. Never mention being an AI model.`

// historyWindow bounds how many recent turns feed the prompt.
const historyWindow = 6

// buildContext assembles the user-context block: profile summary, long-term
// memories, then the recent transcript.
func (c *Coach) buildContext(sessionID string) string {
	var sb strings.Builder

	if c.profile != nil {
		if summary := c.profile.Summary(c.userID); summary != "" {
			sb.WriteString("About this user: ")
			sb.WriteString(summary)
			sb.WriteString("\n")
		}
	}

	if facts := c.sessions.Memories(c.userID); len(facts) > 0 {
		sb.WriteString("Things to remember:\n")
		for _, fact := range facts {
			sb.WriteString("- ")
			sb.WriteString(fact)
			sb.WriteString("\n")
		}
	}

	history := c.sessions.History(c.userID, sessionID, historyWindow)
	if len(history) > 0 {
		sb.WriteString("Recent conversation:\n")
		for _, msg := range history {
			sb.WriteString(msg.Role)
			sb.WriteString(": ")
			sb.WriteString(msg.Text)
			sb.WriteString("\n")
		}
	}

	return strings.TrimSpace(sb.String())
}
