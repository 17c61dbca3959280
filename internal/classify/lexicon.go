package classify

import (
	"strings"

	"github.com/agext/levenshtein"

	"github.com/feedbackloop/insight/internal/models"
)

// phraseMatchThreshold is the maximum normalized edit distance
// (0 = identical, 1 = unrelated) for accepting a lexicon match.
const phraseMatchThreshold = 0.3

// phraseEntry is one canonical phrase in the lexicon, pre-tagged with its
// sentiment category.
type phraseEntry struct {
	text      string
	sentiment models.Sentiment
}

// defaultLexicon is the curated phrase lexicon. Matching is whole-message:
// the trimmed, lowercased input is compared against each canonical phrase, so
// containing a phrase as a substring does not guarantee a match.
var defaultLexicon = []phraseEntry{
	// positive
	{"thank you so much", models.SentimentPositive},
	{"thank you so much this really helped me understand", models.SentimentPositive},
	{"this really helped", models.SentimentPositive},
	{"this helped me understand", models.SentimentPositive},
	{"thanks that was helpful", models.SentimentPositive},
	{"great explanation", models.SentimentPositive},
	{"that makes it very clear", models.SentimentPositive},
	{"i understand it now", models.SentimentPositive},
	{"works perfectly now", models.SentimentPositive},
	{"this is great", models.SentimentPositive},
	{"love it", models.SentimentPositive},
	{"awesome thanks", models.SentimentPositive},
	{"exactly what i needed", models.SentimentPositive},

	// negative
	{"this is confusing", models.SentimentNegative},
	{"that did not help", models.SentimentNegative},
	{"i still do not understand", models.SentimentNegative},
	{"this is wrong", models.SentimentNegative},
	{"too complicated", models.SentimentNegative},
	{"this makes no sense", models.SentimentNegative},
	{"waste of time", models.SentimentNegative},
	{"not helpful at all", models.SentimentNegative},

	// neutral
	{"okay", models.SentimentNeutral},
	{"ok sure", models.SentimentNeutral},
	{"okay sure", models.SentimentNeutral},
	{"sure", models.SentimentNeutral},
	{"fine", models.SentimentNeutral},
	{"alright", models.SentimentNeutral},
	{"noted", models.SentimentNeutral},
	{"got it", models.SentimentNeutral},
}

// PhraseMatcher classifies messages by fuzzy whole-message matching against a
// phrase lexicon.
type PhraseMatcher struct {
	lexicon []phraseEntry
}

// NewPhraseMatcher returns a matcher backed by the default curated lexicon.
func NewPhraseMatcher() *PhraseMatcher {
	return &PhraseMatcher{lexicon: defaultLexicon}
}

// newPhraseMatcherWithLexicon is used by tests to control the lexicon.
func newPhraseMatcherWithLexicon(lexicon []phraseEntry) *PhraseMatcher {
	return &PhraseMatcher{lexicon: lexicon}
}

// Match returns the sentiment of the best lexicon match when its normalized
// edit distance is at or below the acceptance threshold, and unknown otherwise.
// An empty lexicon always yields unknown.
func (m *PhraseMatcher) Match(text string) models.Sentiment {
	normalized := strings.ToLower(strings.TrimSpace(text))
	if normalized == "" || len(m.lexicon) == 0 {
		return models.SentimentUnknown
	}

	best := models.SentimentUnknown
	bestDist := 1.0

	for _, entry := range m.lexicon {
		d := normalizedDistance(normalized, entry.text)
		if d < bestDist {
			bestDist = d
			best = entry.sentiment
		}
	}

	if bestDist > phraseMatchThreshold {
		return models.SentimentUnknown
	}

	return best
}

// normalizedDistance maps Levenshtein edit distance onto [0,1], where 0 is
// identical and 1 is unrelated.
func normalizedDistance(a, b string) float64 {
	longest := len([]rune(a))
	if l := len([]rune(b)); l > longest {
		longest = l
	}

	if longest == 0 {
		return 0
	}

	dist := levenshtein.Distance(a, b, nil)

	return float64(dist) / float64(longest)
}
