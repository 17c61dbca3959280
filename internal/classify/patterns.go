package classify

import (
	"strings"
	"unicode"

	"github.com/feedbackloop/insight/internal/models"
)

// positiveKeywords and negativeKeywords drive the secondary classifier. They
// are intentionally broad single tokens; the phrase matcher already handled
// whole-message idioms before this stage runs.
var positiveKeywords = map[string]struct{}{
	"good": {}, "great": {}, "excellent": {}, "amazing": {}, "awesome": {},
	"helpful": {}, "helped": {}, "useful": {}, "clear": {}, "easy": {},
	"love": {}, "like": {}, "perfect": {}, "thanks": {}, "thank": {},
	"wonderful": {}, "fantastic": {}, "understood": {}, "works": {},
}

var negativeKeywords = map[string]struct{}{
	"bad": {}, "terrible": {}, "awful": {}, "horrible": {}, "useless": {},
	"confusing": {}, "confused": {}, "unclear": {}, "wrong": {}, "hate": {},
	"difficult": {}, "hard": {}, "complicated": {}, "broken": {}, "slow": {},
	"frustrating": {}, "frustrated": {}, "worse": {}, "disappointing": {},
	"annoying": {},
}

// veryShortTokenCount is the length below which a message with no keyword
// signal defaults to neutral instead of unknown.
const veryShortTokenCount = 3

// MatchPattern is the secondary, lower-confidence classifier. It uses keyword
// sets and structural signals and performs no I/O. Messages with no signal
// return unknown rather than a guess; a question mark with no keyword signal
// reads as confusion and also returns unknown.
func MatchPattern(text string) models.Sentiment {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return models.SentimentUnknown
	}

	tokens := tokenize(trimmed)

	var pos, neg int
	for _, tok := range tokens {
		if _, ok := positiveKeywords[tok]; ok {
			pos++
		}
		if _, ok := negativeKeywords[tok]; ok {
			neg++
		}
	}

	switch {
	case pos > neg:
		return models.SentimentPositive
	case neg > pos:
		return models.SentimentNegative
	case pos > 0: // equal nonzero counts: mixed signal
		return models.SentimentNeutral
	}

	// No keyword signal from here on.
	if strings.Contains(trimmed, "?") {
		return models.SentimentUnknown
	}

	// Very short acknowledgement-like messages lean neutral; anything longer
	// without signal stays unknown.
	if len(tokens) <= veryShortTokenCount && !strings.Contains(trimmed, "!") {
		return models.SentimentNeutral
	}

	return models.SentimentUnknown
}

// tokenize lowercases and splits on non-letter, non-digit runes.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}
