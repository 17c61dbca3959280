package service

import (
	"context"
	"fmt"
	"time"

	"github.com/feedbackloop/insight/internal/models"
	"github.com/feedbackloop/insight/pkg/cache"
)

// AnalyticsProvider is the read-side reporting surface. AnalyticsService is
// the core implementation; CachingAnalyticsService decorates it.
type AnalyticsProvider interface {
	AnalyzeTrends(ctx context.Context, bucketSize models.BucketSize, limit int) ([]models.TrendPoint, error)
	QualityDistribution(ctx context.Context, userID *string) (*models.QualityDistribution, error)
}

type timedTrends struct {
	points []models.TrendPoint
	at     time.Time
}

type timedDistribution struct {
	dist *models.QualityDistribution
	at   time.Time
}

// CachingAnalyticsService caches aggregate results with a TTL. The core
// aggregator stays cache-free; this decorator is the external caching concern.
// Entries also drop on ingest via InvalidateAll.
type CachingAnalyticsService struct {
	inner      AnalyticsProvider
	ttl        time.Duration
	trends     *cache.LoaderCache[string, timedTrends]
	dists      *cache.LoaderCache[string, timedDistribution]
	timeSource func() time.Time
}

// NewCachingAnalyticsService wraps an AnalyticsProvider with a bounded TTL cache.
func NewCachingAnalyticsService(inner AnalyticsProvider, size int, ttl time.Duration) (*CachingAnalyticsService, error) {
	trends, err := cache.NewLoaderCache[string, timedTrends](size, func(k string) string { return k })
	if err != nil {
		return nil, fmt.Errorf("create trends cache: %w", err)
	}

	dists, err := cache.NewLoaderCache[string, timedDistribution](size, func(k string) string { return k })
	if err != nil {
		return nil, fmt.Errorf("create distribution cache: %w", err)
	}

	return &CachingAnalyticsService{
		inner:      inner,
		ttl:        ttl,
		trends:     trends,
		dists:      dists,
		timeSource: time.Now,
	}, nil
}

// AnalyzeTrends serves from cache within the TTL, recomputing otherwise.
func (s *CachingAnalyticsService) AnalyzeTrends(
	ctx context.Context, bucketSize models.BucketSize, limit int,
) ([]models.TrendPoint, error) {
	key := fmt.Sprintf("%s:%d", bucketSize, limit)

	load := func(ctx context.Context, _ string) (timedTrends, error) {
		points, err := s.inner.AnalyzeTrends(ctx, bucketSize, limit)
		if err != nil {
			return timedTrends{}, err
		}

		return timedTrends{points: points, at: s.timeSource()}, nil
	}

	entry, err := s.trends.Get(ctx, key, load)
	if err != nil {
		return nil, err
	}

	if s.timeSource().Sub(entry.at) > s.ttl {
		s.trends.Invalidate(key)

		if entry, err = s.trends.Get(ctx, key, load); err != nil {
			return nil, err
		}
	}

	return entry.points, nil
}

// QualityDistribution serves from cache within the TTL, recomputing otherwise.
func (s *CachingAnalyticsService) QualityDistribution(
	ctx context.Context, userID *string,
) (*models.QualityDistribution, error) {
	key := "all"
	if userID != nil {
		key = "user:" + *userID
	}

	load := func(ctx context.Context, _ string) (timedDistribution, error) {
		dist, err := s.inner.QualityDistribution(ctx, userID)
		if err != nil {
			return timedDistribution{}, err
		}

		return timedDistribution{dist: dist, at: s.timeSource()}, nil
	}

	entry, err := s.dists.Get(ctx, key, load)
	if err != nil {
		return nil, err
	}

	if s.timeSource().Sub(entry.at) > s.ttl {
		s.dists.Invalidate(key)

		if entry, err = s.dists.Get(ctx, key, load); err != nil {
			return nil, err
		}
	}

	return entry.dist, nil
}

// InvalidateAll drops every cached aggregate. Called when a new record lands.
func (s *CachingAnalyticsService) InvalidateAll() {
	s.trends.InvalidateAll()
	s.dists.InvalidateAll()
}

// invalidatingStore wraps a FeedbackStore so successful inserts drop cached
// analytics aggregates.
type invalidatingStore struct {
	FeedbackStore

	cache *CachingAnalyticsService
}

// NewInvalidatingStore wires invalidation-on-ingest between the pipeline's
// store and the analytics cache.
func NewInvalidatingStore(inner FeedbackStore, cache *CachingAnalyticsService) FeedbackStore {
	return &invalidatingStore{FeedbackStore: inner, cache: cache}
}

func (s *invalidatingStore) Insert(ctx context.Context, record *models.FeedbackRecord) error {
	if err := s.FeedbackStore.Insert(ctx, record); err != nil {
		return err
	}

	s.cache.InvalidateAll()

	return nil
}
