package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/feedbackloop/insight/internal/apperrors"
	"github.com/feedbackloop/insight/internal/models"
)

// AnalyticsStore is the read surface for trend and distribution reporting.
type AnalyticsStore interface {
	List(ctx context.Context, filters *models.ListFeedbackRecordsFilters) ([]models.FeedbackRecord, error)
}

// Quality distribution band boundaries.
const (
	lowBandMax    = 30
	mediumBandMax = 70
)

// AnalyticsService computes time-bucketed trends and quality distributions.
// Aggregations are recomputed on every call; the TTL cache lives in the
// CachingAnalyticsService decorator, never here.
type AnalyticsService struct {
	store AnalyticsStore
	// windowLimit bounds how many recent records one trend computation scans.
	windowLimit int
}

// NewAnalyticsService creates an analytics service.
func NewAnalyticsService(store AnalyticsStore, windowLimit int) *AnalyticsService {
	return &AnalyticsService{store: store, windowLimit: windowLimit}
}

// AnalyzeTrends buckets recent records into calendar periods and returns the
// series in ascending period order, truncated to the most recent limit buckets.
func (s *AnalyticsService) AnalyzeTrends(
	ctx context.Context, bucketSize models.BucketSize, limit int,
) ([]models.TrendPoint, error) {
	if _, ok := models.ValidBucketSizes[bucketSize]; !ok {
		return nil, apperrors.NewValidationError("bucket_size",
			fmt.Sprintf("invalid bucket size %q", bucketSize))
	}

	records, err := s.store.List(ctx, &models.ListFeedbackRecordsFilters{Limit: s.windowLimit})
	if err != nil {
		return nil, fmt.Errorf("failed to load records for trends: %w", err)
	}

	type bucket struct {
		total      int
		sentiments map[models.Sentiment]int
		qualitySum int
	}

	buckets := make(map[string]*bucket)

	for _, record := range records {
		key := bucketKey(record.CreatedAt, bucketSize)

		b, ok := buckets[key]
		if !ok {
			b = &bucket{sentiments: make(map[models.Sentiment]int)}
			buckets[key] = b
		}

		b.total++
		b.sentiments[record.Sentiment]++
		b.qualitySum += record.QualityScore
	}

	keys := make([]string, 0, len(buckets))
	for key := range buckets {
		keys = append(keys, key)
	}

	// Bucket keys are zero-padded ISO-style strings, so lexical order is
	// chronological order.
	sort.Strings(keys)

	if limit > 0 && len(keys) > limit {
		keys = keys[len(keys)-limit:]
	}

	points := make([]models.TrendPoint, 0, len(keys))

	for _, key := range keys {
		b := buckets[key]
		points = append(points, models.TrendPoint{
			Period:          key,
			Total:           b.total,
			SentimentCounts: b.sentiments,
			AvgQuality:      float64(b.qualitySum) / float64(b.total),
		})
	}

	return points, nil
}

// bucketKey maps a timestamp to its calendar bucket identifier.
func bucketKey(t time.Time, size models.BucketSize) string {
	t = t.UTC()

	switch size {
	case models.BucketDay:
		return t.Format("2006-01-02")
	case models.BucketWeek:
		// The week key is the date of its Monday.
		offset := (int(t.Weekday()) + 6) % 7

		return t.AddDate(0, 0, -offset).Format("2006-01-02")
	case models.BucketMonth:
		return t.Format("2006-01")
	case models.BucketYear:
		return t.Format("2006")
	default:
		return t.Format("2006-01-02")
	}
}

// QualityDistribution summarizes quality scores in three bands with
// per-sentiment and overall statistics. userID narrows the population when set.
func (s *AnalyticsService) QualityDistribution(
	ctx context.Context, userID *string,
) (*models.QualityDistribution, error) {
	records, err := s.store.List(ctx, &models.ListFeedbackRecordsFilters{UserID: userID})
	if err != nil {
		return nil, fmt.Errorf("failed to load records for distribution: %w", err)
	}

	dist := &models.QualityDistribution{
		SentimentAvg: make(map[models.Sentiment]float64),
		Total:        len(records),
	}

	if len(records) == 0 {
		return dist, nil
	}

	scores := make([]int, 0, len(records))
	sentimentSums := make(map[models.Sentiment]int)
	sentimentCounts := make(map[models.Sentiment]int)

	var sum int

	for _, record := range records {
		scores = append(scores, record.QualityScore)
		sum += record.QualityScore
		sentimentSums[record.Sentiment] += record.QualityScore
		sentimentCounts[record.Sentiment]++

		switch {
		case record.QualityScore <= lowBandMax:
			dist.Low++
		case record.QualityScore <= mediumBandMax:
			dist.Medium++
		default:
			dist.High++
		}
	}

	for sentiment, count := range sentimentCounts {
		dist.SentimentAvg[sentiment] = float64(sentimentSums[sentiment]) / float64(count)
	}

	dist.OverallMean = float64(sum) / float64(len(scores))
	dist.OverallMedian = median(scores)

	return dist, nil
}

// median returns the middle value; the mean of the two middle values for even counts.
func median(scores []int) float64 {
	sort.Ints(scores)

	mid := len(scores) / 2
	if len(scores)%2 == 1 {
		return float64(scores[mid])
	}

	return float64(scores[mid-1]+scores[mid]) / 2
}
