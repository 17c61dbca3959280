package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/feedbackloop/insight/internal/models"
)

func TestMatchPattern(t *testing.T) {
	tests := []struct {
		name string
		text string
		want models.Sentiment
	}{
		{
			name: "positive keywords",
			text: "the walkthrough was helpful and the examples were excellent",
			want: models.SentimentPositive,
		},
		{
			name: "negative keywords",
			text: "the setup instructions are confusing and the tool feels broken",
			want: models.SentimentNegative,
		},
		{
			name: "mixed equal signal is neutral",
			text: "the interface is great but the export is broken",
			want: models.SentimentNeutral,
		},
		{
			name: "question without keywords is unknown",
			text: "What is the capital of France?",
			want: models.SentimentUnknown,
		},
		{
			name: "long message without keywords is unknown",
			text: "we deployed the service yesterday and the migration finished overnight",
			want: models.SentimentUnknown,
		},
		{
			name: "very short message without signal leans neutral",
			text: "seen, will read",
			want: models.SentimentNeutral,
		},
		{
			name: "empty string is unknown",
			text: "",
			want: models.SentimentUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MatchPattern(tt.text))
		})
	}
}
