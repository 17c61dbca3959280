package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feedbackloop/insight/internal/models"
)

type countingAnalytics struct {
	trendCalls int
	distCalls  int
}

func (c *countingAnalytics) AnalyzeTrends(
	_ context.Context, _ models.BucketSize, _ int,
) ([]models.TrendPoint, error) {
	c.trendCalls++

	return []models.TrendPoint{{Period: "2026-03-10", Total: c.trendCalls}}, nil
}

func (c *countingAnalytics) QualityDistribution(
	_ context.Context, _ *string,
) (*models.QualityDistribution, error) {
	c.distCalls++

	return &models.QualityDistribution{Total: c.distCalls}, nil
}

func TestCachingAnalyticsService(t *testing.T) {
	t.Run("repeated reads hit the cache", func(t *testing.T) {
		inner := &countingAnalytics{}
		svc, err := NewCachingAnalyticsService(inner, 16, time.Minute)
		require.NoError(t, err)

		first, err := svc.AnalyzeTrends(context.Background(), models.BucketDay, 10)
		require.NoError(t, err)

		second, err := svc.AnalyzeTrends(context.Background(), models.BucketDay, 10)
		require.NoError(t, err)

		assert.Equal(t, first, second)
		assert.Equal(t, 1, inner.trendCalls)
	})

	t.Run("different parameters use different entries", func(t *testing.T) {
		inner := &countingAnalytics{}
		svc, err := NewCachingAnalyticsService(inner, 16, time.Minute)
		require.NoError(t, err)

		_, err = svc.AnalyzeTrends(context.Background(), models.BucketDay, 10)
		require.NoError(t, err)

		_, err = svc.AnalyzeTrends(context.Background(), models.BucketWeek, 10)
		require.NoError(t, err)

		assert.Equal(t, 2, inner.trendCalls)
	})

	t.Run("expired entries are recomputed", func(t *testing.T) {
		inner := &countingAnalytics{}
		svc, err := NewCachingAnalyticsService(inner, 16, time.Minute)
		require.NoError(t, err)

		now := time.Now()
		svc.timeSource = func() time.Time { return now }

		_, err = svc.AnalyzeTrends(context.Background(), models.BucketDay, 10)
		require.NoError(t, err)

		now = now.Add(2 * time.Minute)

		_, err = svc.AnalyzeTrends(context.Background(), models.BucketDay, 10)
		require.NoError(t, err)

		assert.Equal(t, 2, inner.trendCalls)
	})

	t.Run("invalidate all forces recomputation", func(t *testing.T) {
		inner := &countingAnalytics{}
		svc, err := NewCachingAnalyticsService(inner, 16, time.Minute)
		require.NoError(t, err)

		_, err = svc.QualityDistribution(context.Background(), nil)
		require.NoError(t, err)

		svc.InvalidateAll()

		_, err = svc.QualityDistribution(context.Background(), nil)
		require.NoError(t, err)

		assert.Equal(t, 2, inner.distCalls)
	})

	t.Run("user scoped distributions are cached separately", func(t *testing.T) {
		inner := &countingAnalytics{}
		svc, err := NewCachingAnalyticsService(inner, 16, time.Minute)
		require.NoError(t, err)

		userID := "user_1"
		_, err = svc.QualityDistribution(context.Background(), nil)
		require.NoError(t, err)

		_, err = svc.QualityDistribution(context.Background(), &userID)
		require.NoError(t, err)

		assert.Equal(t, 2, inner.distCalls)
	})
}

func TestInvalidatingStore(t *testing.T) {
	t.Run("successful insert invalidates cached aggregates", func(t *testing.T) {
		inner := &countingAnalytics{}
		cached, err := NewCachingAnalyticsService(inner, 16, time.Minute)
		require.NoError(t, err)

		_, err = cached.QualityDistribution(context.Background(), nil)
		require.NoError(t, err)

		store := NewInvalidatingStore(&mockFeedbackStore{}, cached)
		require.NoError(t, store.Insert(context.Background(), &models.FeedbackRecord{UserID: "user_1"}))

		_, err = cached.QualityDistribution(context.Background(), nil)
		require.NoError(t, err)

		assert.Equal(t, 2, inner.distCalls)
	})

	t.Run("failed insert leaves the cache intact", func(t *testing.T) {
		inner := &countingAnalytics{}
		cached, err := NewCachingAnalyticsService(inner, 16, time.Minute)
		require.NoError(t, err)

		_, err = cached.QualityDistribution(context.Background(), nil)
		require.NoError(t, err)

		store := NewInvalidatingStore(&mockFeedbackStore{insertErr: assert.AnError}, cached)
		assert.Error(t, store.Insert(context.Background(), &models.FeedbackRecord{UserID: "user_1"}))

		_, err = cached.QualityDistribution(context.Background(), nil)
		require.NoError(t, err)

		assert.Equal(t, 1, inner.distCalls)
	})
}
