// Package embeddings generates fixed-length numeric vectors for feedback text.
//
// The generator is a deterministic hash projection: token identities are
// hashed into a fixed number of positions, with a few trailing positions
// carrying coarse statistical features of the text. The result is
// L2-normalized and similarity-comparable, which is adequate for coarse
// thematic clustering but not for semantic search. The contract (fixed length,
// deterministic for identical input) is what downstream clustering depends on;
// the implementation behind it is swappable.
package embeddings

import (
	"hash/fnv"
	"strings"
	"unicode"

	pkgembeddings "github.com/feedbackloop/insight/pkg/embeddings"
)

// Dimension is the embedding vector length for the lifetime of a deployment.
// Changing it invalidates previously stored embeddings (the vector column and
// every stored vector must be migrated together); it is never mixed silently.
const Dimension = 64

// statFeatures is the number of trailing positions reserved for coarse
// statistical features rather than token hashes.
const statFeatures = 8

// Generator produces deterministic fixed-length embeddings.
type Generator struct {
	dimensions int
}

// NewGenerator returns a generator at the deployment dimension.
func NewGenerator() *Generator {
	return &Generator{dimensions: Dimension}
}

// Dimensions returns the configured vector length.
func (g *Generator) Dimensions() int {
	return g.dimensions
}

// Embed maps text to a unit-length vector. It returns nil for empty or
// whitespace-only input rather than an error: a missing embedding is a normal
// degraded state, not a failure.
func (g *Generator) Embed(text string) []float32 {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}

	tokens := tokenize(trimmed)
	if len(tokens) == 0 {
		return nil
	}

	vec := make([]float32, g.dimensions)
	hashSlots := g.dimensions - statFeatures

	for _, tok := range tokens {
		h := fnv.New64a()
		_, _ = h.Write([]byte(tok))
		sum := h.Sum64()

		idx := int(sum % uint64(hashSlots)) //nolint:gosec // hashSlots > 0
		sign := float32(1)
		if sum&(1<<63) != 0 {
			sign = -1
		}

		vec[idx] += sign
	}

	copy(vec[hashSlots:], statVector(trimmed, tokens))

	pkgembeddings.NormalizeL2(vec)

	return vec
}

// statVector computes the coarse statistical features appended after the hash
// slots: length, token count, vocabulary ratio, punctuation density, mean token
// length, digit ratio, uppercase ratio, and sentence count.
func statVector(text string, tokens []string) []float32 {
	runes := []rune(text)

	unique := make(map[string]struct{}, len(tokens))
	var tokenRunes int
	for _, tok := range tokens {
		unique[tok] = struct{}{}
		tokenRunes += len([]rune(tok))
	}

	var punct, digits, upper, letters int
	for _, r := range runes {
		switch {
		case unicode.IsPunct(r):
			punct++
		case unicode.IsDigit(r):
			digits++
		case unicode.IsLetter(r):
			letters++
			if unicode.IsUpper(r) {
				upper++
			}
		}
	}

	upperRatio := float32(0)
	if letters > 0 {
		upperRatio = float32(upper) / float32(letters)
	}

	sentences := len(strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?'
	}))

	return []float32{
		float32(len(runes)) / 100,
		float32(len(tokens)) / 20,
		float32(len(unique)) / float32(len(tokens)),
		float32(punct) / float32(len(runes)),
		float32(tokenRunes) / float32(len(tokens)) / 10,
		float32(digits) / float32(len(runes)),
		upperRatio,
		float32(sentences) / 5,
	}
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}
