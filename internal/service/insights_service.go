package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/feedbackloop/insight/internal/models"
)

// InsightsStore is the read surface for score and insight computation.
type InsightsStore interface {
	ListByUser(ctx context.Context, userID string, limit int) ([]models.FeedbackRecord, error)
	SentimentCountsByUser(ctx context.Context, userID string, conversationID *string) (map[models.Sentiment]int, error)
}

// InsightsService computes per-user cumulative scores and behavioral insights.
// Everything here is a pure read aggregation recomputed on every call; caching
// belongs to an external decorator, never to this service.
type InsightsService struct {
	store InsightsStore
}

// NewInsightsService creates a new insights service.
func NewInsightsService(store InsightsStore) *InsightsService {
	return &InsightsService{store: store}
}

// CalculateScore returns the user's cumulative score: +1 per positive record,
// -1 per negative, 0 otherwise. Order-independent by construction.
func (s *InsightsService) CalculateScore(ctx context.Context, userID string) (int, error) {
	counts, err := s.store.SentimentCountsByUser(ctx, userID, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to calculate score: %w", err)
	}

	return counts[models.SentimentPositive] - counts[models.SentimentNegative], nil
}

// CalculateConversationScore is the same reducer scoped to one conversation.
func (s *InsightsService) CalculateConversationScore(ctx context.Context, userID, conversationID string) (int, error) {
	counts, err := s.store.SentimentCountsByUser(ctx, userID, &conversationID)
	if err != nil {
		return 0, fmt.Errorf("failed to calculate conversation score: %w", err)
	}

	return counts[models.SentimentPositive] - counts[models.SentimentNegative], nil
}

// Frequency thresholds, in mean days between submissions.
const (
	veryFrequentMaxGapDays = 1.0
	frequentMaxGapDays     = 7.0
	regularMaxGapDays      = 30.0
)

// Trend thresholds: half-over-half mean quality delta and minimum history.
const (
	trendMinSamples     = 5
	trendDeltaThreshold = 10.0
	topIssuesLimit      = 5
	topIssueMinRuneLen  = 4
)

// UserInsights derives the behavioral report from the user's full history.
func (s *InsightsService) UserInsights(ctx context.Context, userID string) (*models.UserInsights, error) {
	records, err := s.store.ListByUser(ctx, userID, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to load user history: %w", err)
	}

	insights := &models.UserInsights{
		UserID:          userID,
		TotalFeedback:   len(records),
		SentimentCounts: make(map[models.Sentiment]int),
		Frequency:       models.FrequencyInsufficientData,
		Trend:           models.TrendInsufficientData,
		TopIssues:       []string{},
	}

	if len(records) == 0 {
		return insights, nil
	}

	var qualitySum int
	for _, r := range records {
		insights.SentimentCounts[r.Sentiment]++
		qualitySum += r.QualityScore
	}

	insights.AvgQuality = float64(qualitySum) / float64(len(records))
	insights.Frequency = submissionFrequency(records)
	insights.Trend = qualityTrend(records)
	insights.TopIssues = topIssues(records)

	return insights, nil
}

// submissionFrequency classifies the mean gap between submissions. Records
// arrive newest first; the mean gap is the full span over n-1 intervals.
func submissionFrequency(records []models.FeedbackRecord) models.FeedbackFrequency {
	if len(records) < 2 {
		return models.FrequencyInsufficientData
	}

	newest := records[0].CreatedAt
	oldest := records[len(records)-1].CreatedAt
	meanGapDays := newest.Sub(oldest).Hours() / 24 / float64(len(records)-1)

	switch {
	case meanGapDays < veryFrequentMaxGapDays:
		return models.FrequencyVeryFrequent
	case meanGapDays < frequentMaxGapDays:
		return models.FrequencyFrequent
	case meanGapDays < regularMaxGapDays:
		return models.FrequencyRegular
	default:
		return models.FrequencyOccasional
	}
}

// qualityTrend compares mean quality of the older half against the newer half.
func qualityTrend(records []models.FeedbackRecord) models.ImprovementTrend {
	if len(records) < trendMinSamples {
		return models.TrendInsufficientData
	}

	// Records are newest first; the second slice half is the older history.
	mid := len(records) / 2
	newerMean := meanQuality(records[:mid])
	olderMean := meanQuality(records[mid:])

	delta := newerMean - olderMean

	switch {
	case delta > trendDeltaThreshold:
		return models.TrendImproving
	case delta < -trendDeltaThreshold:
		return models.TrendDeclining
	default:
		return models.TrendStable
	}
}

func meanQuality(records []models.FeedbackRecord) float64 {
	if len(records) == 0 {
		return 0
	}

	var sum int
	for _, r := range records {
		sum += r.QualityScore
	}

	return float64(sum) / float64(len(records))
}

// issueStopwords are common words excluded from top-issue extraction.
var issueStopwords = map[string]struct{}{
	"this": {}, "that": {}, "with": {}, "from": {}, "have": {}, "when": {},
	"what": {}, "your": {}, "very": {}, "just": {}, "does": {}, "dont": {},
	"doesnt": {}, "cant": {}, "wont": {}, "then": {}, "than": {}, "were": {},
	"been": {}, "being": {}, "would": {}, "could": {}, "should": {}, "there": {},
	"their": {}, "about": {}, "because": {}, "really": {}, "still": {},
}

// topIssues extracts the most frequent content words from negative messages.
func topIssues(records []models.FeedbackRecord) []string {
	freq := make(map[string]int)

	for _, r := range records {
		if r.Sentiment != models.SentimentNegative {
			continue
		}

		for _, tok := range strings.FieldsFunc(strings.ToLower(r.Message), func(r rune) bool {
			return (r < 'a' || r > 'z') && (r < '0' || r > '9')
		}) {
			if len(tok) < topIssueMinRuneLen {
				continue
			}

			if _, ok := issueStopwords[tok]; ok {
				continue
			}

			freq[tok]++
		}
	}

	words := make([]string, 0, len(freq))
	for w := range freq {
		words = append(words, w)
	}

	// Ties break alphabetically so the result is deterministic.
	sort.Slice(words, func(i, j int) bool {
		if freq[words[i]] != freq[words[j]] {
			return freq[words[i]] > freq[words[j]]
		}

		return words[i] < words[j]
	})

	if len(words) > topIssuesLimit {
		words = words[:topIssuesLimit]
	}

	return words
}
