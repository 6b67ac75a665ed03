package classifier

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dailywell-ai/dailywell/internal/model"
)

func TestClassify(t *testing.T) {
	c := New()

	tests := []struct {
		name    string
		message string
		session SessionType
		want    Complexity
	}{
		{
			name:    "greeting is simple",
			message: "hey there!",
			session: SessionChat,
			want:    Simple,
		},
		{
			name:    "three words is simple",
			message: "thanks so much",
			session: SessionChat,
			want:    Simple,
		},
		{
			name:    "ordinary question is moderate",
			message: "how much water should I drink on a hot day",
			session: SessionChat,
			want:    Moderate,
		},
		{
			name:    "personalization keyword is complex",
			message: "can you build a personalized meal plan for my week",
			session: SessionChat,
			want:    Complex,
		},
		{
			name:    "long message is complex",
			message: strings.Repeat("I slept badly and want to understand what changed in my routine. ", 5),
			session: SessionChat,
			want:    Complex,
		},
		{
			name:    "report keyword is heavy",
			message: "give me a weekly report on my sleep",
			session: SessionChat,
			want:    Heavy,
		},
		{
			name:    "weekly review session is always heavy",
			message: "hi",
			session: SessionWeeklyReview,
			want:    Heavy,
		},
		{
			name:    "heavy keyword beats short length",
			message: "deep dive please",
			session: SessionChat,
			want:    Heavy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify(tt.message, tt.session)
			assert.Equal(t, tt.want, got, "message: %q", tt.message)
		})
	}
}

func TestPreferredTier(t *testing.T) {
	assert.Equal(t, model.TierLocal, Simple.PreferredTier())
	assert.Equal(t, model.TierLite, Moderate.PreferredTier())
	assert.Equal(t, model.TierStandard, Complex.PreferredTier())
	assert.Equal(t, model.TierMax, Heavy.PreferredTier())
}

func TestClassifyCaseInsensitive(t *testing.T) {
	c := New()
	assert.Equal(t, Heavy, c.Classify("ANALYZE MY sleep for the month", SessionChat))
}
