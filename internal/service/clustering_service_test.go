package service

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feedbackloop/insight/internal/apperrors"
	"github.com/feedbackloop/insight/internal/models"
)

type mockClusteringStore struct {
	records     []models.FeedbackRecord
	err         error
	lastFilters *models.ListFeedbackRecordsFilters
}

func (m *mockClusteringStore) List(
	_ context.Context, filters *models.ListFeedbackRecordsFilters,
) ([]models.FeedbackRecord, error) {
	m.lastFilters = filters

	return m.records, m.err
}

type mockClusterWriter struct {
	replaced [][]models.ThemeCluster
	err      error
}

func (m *mockClusterWriter) ReplaceAll(_ context.Context, clusters []models.ThemeCluster) error {
	if m.err != nil {
		return m.err
	}

	m.replaced = append(m.replaced, clusters)

	return nil
}

// embeddedRecord builds a record whose embedding sits near one of two opposed
// directions so two clusters separate cleanly.
func embeddedRecord(message string, sentiment models.Sentiment, quality int, embedding []float32) models.FeedbackRecord {
	return models.FeedbackRecord{
		Message:      message,
		Sentiment:    sentiment,
		QualityScore: quality,
		Embedding:    embedding,
		CreatedAt:    time.Now(),
	}
}

func twoGroupRecords() []models.FeedbackRecord {
	return []models.FeedbackRecord{
		embeddedRecord("export keeps crashing constantly", models.SentimentNegative, 60, []float32{1, 0.1, 0}),
		embeddedRecord("export crashing after upgrade", models.SentimentNegative, 70, []float32{0.9, 0.2, 0}),
		embeddedRecord("crashing export again", models.SentimentNegative, 50, []float32{1, 0, 0.1}),
		embeddedRecord("dashboard looks wonderful", models.SentimentPositive, 80, []float32{0, 0.1, 1}),
		embeddedRecord("wonderful dashboard layout", models.SentimentPositive, 90, []float32{0.1, 0, 0.9}),
		embeddedRecord("dashboard wonderful and fast", models.SentimentPositive, 70, []float32{0, 0.2, 1}),
	}
}

func newTestClustering(store ClusteringStore, writer ClusterWriter) *ClusteringService {
	return NewClusteringService(store, writer, 5000, nil, WithRand(rand.New(rand.NewSource(42))))
}

func TestClusteringService_GenerateThemes(t *testing.T) {
	t.Run("rejects k below two", func(t *testing.T) {
		svc := newTestClustering(&mockClusteringStore{}, &mockClusterWriter{})

		_, err := svc.GenerateThemes(context.Background(), 1, 40)

		assert.ErrorIs(t, err, apperrors.ErrValidation)
	})

	t.Run("fails explicitly when eligible records are fewer than k", func(t *testing.T) {
		store := &mockClusteringStore{records: twoGroupRecords()[:2]}
		svc := newTestClustering(store, &mockClusterWriter{})

		_, err := svc.GenerateThemes(context.Background(), 3, 40)

		require.ErrorIs(t, err, apperrors.ErrClusteringInfeasible)

		var infeasible *apperrors.ClusteringInfeasibleError
		require.ErrorAs(t, err, &infeasible)
		assert.Equal(t, 3, infeasible.Requested)
		assert.Equal(t, 2, infeasible.Eligible)
	})

	t.Run("applies quality and embedding eligibility filters", func(t *testing.T) {
		store := &mockClusteringStore{records: twoGroupRecords()}
		svc := newTestClustering(store, &mockClusterWriter{})

		_, err := svc.GenerateThemes(context.Background(), 2, 40)

		require.NoError(t, err)
		require.NotNil(t, store.lastFilters)
		require.NotNil(t, store.lastFilters.MinQuality)
		assert.Equal(t, 40, *store.lastFilters.MinQuality)
		assert.True(t, store.lastFilters.HasEmbedding)
		assert.Equal(t, 5000, store.lastFilters.Limit)
	})

	t.Run("separates distinct groups with stats and labels", func(t *testing.T) {
		store := &mockClusteringStore{records: twoGroupRecords()}
		svc := newTestClustering(store, &mockClusterWriter{})

		clusters, err := svc.GenerateThemes(context.Background(), 2, 40)

		require.NoError(t, err)
		require.Len(t, clusters, 2)

		var total int

		for _, cluster := range clusters {
			total += cluster.MemberCount

			assert.Equal(t, 3, cluster.MemberCount)
			assert.NotEmpty(t, cluster.Label)
			assert.NotEmpty(t, cluster.TopKeywords)
			assert.NotEmpty(t, cluster.Centroid)
			assert.Positive(t, cluster.AvgQualityScore)
			assert.False(t, cluster.GeneratedAt.IsZero())

			var fractions float64
			for _, f := range cluster.SentimentDistribution {
				fractions += f
			}
			assert.InDelta(t, 1.0, fractions, 1e-9)
		}

		assert.Equal(t, len(twoGroupRecords()), total)

		// One cluster should be pure negative, the other pure positive.
		assert.Condition(t, func() bool {
			return (clusters[0].SentimentDistribution[models.SentimentNegative] == 1 &&
				clusters[1].SentimentDistribution[models.SentimentPositive] == 1) ||
				(clusters[0].SentimentDistribution[models.SentimentPositive] == 1 &&
					clusters[1].SentimentDistribution[models.SentimentNegative] == 1)
		})
	})

	t.Run("is deterministic with a seeded source", func(t *testing.T) {
		first, err := newTestClustering(&mockClusteringStore{records: twoGroupRecords()}, nil).
			GenerateThemes(context.Background(), 2, 40)
		require.NoError(t, err)

		second, err := newTestClustering(&mockClusteringStore{records: twoGroupRecords()}, nil).
			GenerateThemes(context.Background(), 2, 40)
		require.NoError(t, err)

		require.Len(t, second, len(first))

		for i := range first {
			assert.Equal(t, first[i].MemberCount, second[i].MemberCount)
			assert.Equal(t, first[i].TopKeywords, second[i].TopKeywords)
		}
	})

	t.Run("store failure propagates", func(t *testing.T) {
		store := &mockClusteringStore{err: errors.New("down")}
		svc := newTestClustering(store, &mockClusterWriter{})

		_, err := svc.GenerateThemes(context.Background(), 2, 40)

		assert.Error(t, err)
		assert.NotErrorIs(t, err, apperrors.ErrClusteringInfeasible)
	})
}

func TestClusteringService_RebuildThemes(t *testing.T) {
	t.Run("replaces the stored set", func(t *testing.T) {
		writer := &mockClusterWriter{}
		svc := newTestClustering(&mockClusteringStore{records: twoGroupRecords()}, writer)

		clusters, err := svc.RebuildThemes(context.Background(), 2, 40)

		require.NoError(t, err)
		require.Len(t, writer.replaced, 1)
		assert.Equal(t, clusters, writer.replaced[0])
	})

	t.Run("infeasible run does not touch stored clusters", func(t *testing.T) {
		writer := &mockClusterWriter{}
		svc := newTestClustering(&mockClusteringStore{}, writer)

		_, err := svc.RebuildThemes(context.Background(), 2, 40)

		assert.ErrorIs(t, err, apperrors.ErrClusteringInfeasible)
		assert.Empty(t, writer.replaced)
	})

	t.Run("writer failure propagates", func(t *testing.T) {
		writer := &mockClusterWriter{err: errors.New("tx failed")}
		svc := newTestClustering(&mockClusteringStore{records: twoGroupRecords()}, writer)

		_, err := svc.RebuildThemes(context.Background(), 2, 40)

		assert.Error(t, err)
	})
}
