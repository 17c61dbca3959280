// Package quality scores the informational usefulness of a feedback message,
// independent of its sentiment.
package quality

import (
	"strings"
	"unicode"
)

const (
	maxLengthPoints      = 40
	pointsPerToken       = 4
	maxDiversityPoints   = 30
	maxSpecificityPoints = 30
	specificityPoints    = 6
	shortMessageCap      = 10
	shortMessageRunes    = 5
)

// specificityMarkers are tokens that usually accompany concrete, actionable
// feedback (causal language, reproduction detail, references).
var specificityMarkers = map[string]struct{}{
	"because": {}, "when": {}, "after": {}, "before": {}, "example": {},
	"error": {}, "step": {}, "steps": {}, "expected": {}, "instead": {},
	"specifically": {}, "version": {}, "page": {}, "screen": {}, "button": {},
}

// Score rates a message 0-100. It is a pure, deterministic function of the
// text: longer, lexically diverse, specific messages score high; trivially
// short or templated text scores low. The empty string scores 0.
func Score(text string) int {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return 0
	}

	tokens := tokenize(trimmed)
	if len(tokens) == 0 {
		return 0
	}

	score := lengthPoints(tokens) + diversityPoints(tokens) + specificity(trimmed, tokens)

	// Shouting or repeated filler reads as templated noise, not information.
	if isTemplated(trimmed) {
		score /= 2
	}

	if len([]rune(trimmed)) < shortMessageRunes && score > shortMessageCap {
		score = shortMessageCap
	}

	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}

	return score
}

// lengthPoints rewards token count up to a cap.
func lengthPoints(tokens []string) int {
	p := len(tokens) * pointsPerToken
	if p > maxLengthPoints {
		p = maxLengthPoints
	}
	return p
}

// diversityPoints rewards vocabulary diversity (unique/total ratio).
func diversityPoints(tokens []string) int {
	unique := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		unique[tok] = struct{}{}
	}

	ratio := float64(len(unique)) / float64(len(tokens))

	return int(ratio * maxDiversityPoints)
}

// specificity rewards concrete detail: marker words, digits, and multiple
// sentences.
func specificity(text string, tokens []string) int {
	var p int

	for _, tok := range tokens {
		if _, ok := specificityMarkers[tok]; ok {
			p += specificityPoints
		}
	}

	if strings.ContainsFunc(text, unicode.IsDigit) {
		p += specificityPoints
	}

	if sentenceCount(text) > 1 {
		p += specificityPoints
	}

	if p > maxSpecificityPoints {
		p = maxSpecificityPoints
	}

	return p
}

func sentenceCount(text string) int {
	return len(strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?'
	}))
}

// isTemplated detects shouting and single-token repetition.
func isTemplated(text string) bool {
	var letters, upper int
	for _, r := range text {
		if unicode.IsLetter(r) {
			letters++
			if unicode.IsUpper(r) {
				upper++
			}
		}
	}

	if letters >= 10 && float64(upper)/float64(letters) >= 0.8 {
		return true
	}

	tokens := tokenize(text)
	if len(tokens) >= 4 {
		unique := make(map[string]struct{}, len(tokens))
		for _, tok := range tokens {
			unique[tok] = struct{}{}
		}

		if len(unique) == 1 {
			return true
		}
	}

	return false
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}
