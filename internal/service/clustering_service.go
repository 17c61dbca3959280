package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/feedbackloop/insight/internal/apperrors"
	"github.com/feedbackloop/insight/internal/models"
)

// ClusteringStore is the read surface for theme generation.
type ClusteringStore interface {
	List(ctx context.Context, filters *models.ListFeedbackRecordsFilters) ([]models.FeedbackRecord, error)
}

// ClusterWriter persists a generated cluster set, replacing the previous one.
type ClusterWriter interface {
	ReplaceAll(ctx context.Context, clusters []models.ThemeCluster) error
}

const (
	kMeansMaxIterations = 100
	clusterKeywordLimit = 3
	minClusterK         = 2
)

// ClusteringService partitions embedded feedback records into theme clusters
// with k-means (k-means++ initialization, cosine distance).
type ClusteringService struct {
	store       ClusteringStore
	writer      ClusterWriter
	sampleLimit int
	rng         *rand.Rand
	logger      *slog.Logger
}

// ClusteringOption customizes a ClusteringService.
type ClusteringOption func(*ClusteringService)

// WithRand sets the random source used for centroid initialization. Tests pass
// a seeded source for reproducible runs.
func WithRand(rng *rand.Rand) ClusteringOption {
	return func(s *ClusteringService) { s.rng = rng }
}

// NewClusteringService creates a clustering service. sampleLimit bounds the
// number of eligible records fetched per run.
func NewClusteringService(
	store ClusteringStore, writer ClusterWriter, sampleLimit int, logger *slog.Logger, opts ...ClusteringOption,
) *ClusteringService {
	if logger == nil {
		logger = slog.Default()
	}

	s := &ClusteringService{
		store:       store,
		writer:      writer,
		sampleLimit: sampleLimit,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())), //nolint:gosec // statistical init, not crypto
		logger:      logger,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// GenerateThemes clusters eligible records (quality >= minQuality with a
// non-nil embedding, bounded sample) into k themes. Fewer eligible records
// than k is a structured ClusteringInfeasibleError, never a partial result.
func (s *ClusteringService) GenerateThemes(ctx context.Context, k, minQuality int) ([]models.ThemeCluster, error) {
	if k < minClusterK {
		return nil, apperrors.NewValidationError("k", fmt.Sprintf("k must be at least %d", minClusterK))
	}

	records, err := s.store.List(ctx, &models.ListFeedbackRecordsFilters{
		MinQuality:   &minQuality,
		HasEmbedding: true,
		Limit:        s.sampleLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load eligible records: %w", err)
	}

	if len(records) < k {
		return nil, apperrors.NewClusteringInfeasibleError(k, len(records))
	}

	s.logger.InfoContext(ctx, "starting theme clustering", "k", k, "records", len(records))

	assignments, centroids := s.kMeans(records, k)

	generatedAt := time.Now().UTC()
	clusters := make([]models.ThemeCluster, 0, k)

	for i := 0; i < k; i++ {
		var members []models.FeedbackRecord

		for j, assignment := range assignments {
			if assignment == i {
				members = append(members, records[j])
			}
		}

		// A centroid can end up with no members when points collapse onto
		// fewer distinct positions than k; such clusters are dropped.
		if len(members) == 0 {
			continue
		}

		clusters = append(clusters, buildThemeCluster(centroids[i], members, generatedAt))
	}

	sort.Slice(clusters, func(i, j int) bool {
		return clusters[i].MemberCount > clusters[j].MemberCount
	})

	return clusters, nil
}

// RebuildThemes generates a fresh cluster set and atomically replaces the
// stored one.
func (s *ClusteringService) RebuildThemes(ctx context.Context, k, minQuality int) ([]models.ThemeCluster, error) {
	clusters, err := s.GenerateThemes(ctx, k, minQuality)
	if err != nil {
		return nil, err
	}

	if err := s.writer.ReplaceAll(ctx, clusters); err != nil {
		return nil, fmt.Errorf("failed to persist theme clusters: %w", err)
	}

	s.logger.InfoContext(ctx, "theme clusters replaced", "clusters", len(clusters))

	return clusters, nil
}

// kMeans assigns each record to one of k centroids, iterating to convergence.
func (s *ClusteringService) kMeans(records []models.FeedbackRecord, k int) (assignments []int, centroids [][]float32) {
	dim := len(records[0].Embedding)

	centroids = s.initializeCentroids(records, k)
	assignments = make([]int, len(records))

	for iter := 0; iter < kMeansMaxIterations; iter++ {
		changed := false

		for i, record := range records {
			nearest := findNearestCentroid(record.Embedding, centroids)
			if assignments[i] != nearest {
				assignments[i] = nearest
				changed = true
			}
		}

		if !changed && iter > 0 {
			break
		}

		newCentroids := make([][]float32, k)
		counts := make([]int, k)

		for i := 0; i < k; i++ {
			newCentroids[i] = make([]float32, dim)
		}

		for i, record := range records {
			cluster := assignments[i]
			counts[cluster]++

			for d := 0; d < dim && d < len(record.Embedding); d++ {
				newCentroids[cluster][d] += record.Embedding[d]
			}
		}

		for i := 0; i < k; i++ {
			if counts[i] > 0 {
				for d := 0; d < dim; d++ {
					newCentroids[i][d] /= float32(counts[i])
				}

				centroids[i] = newCentroids[i]
			}
		}
	}

	return assignments, centroids
}

// initializeCentroids uses k-means++ seeding: the first centroid is uniform
// random, each next one is picked with probability proportional to squared
// distance from the nearest existing centroid.
func (s *ClusteringService) initializeCentroids(records []models.FeedbackRecord, k int) [][]float32 {
	n := len(records)
	centroids := make([][]float32, 0, k)
	centroids = append(centroids, records[s.rng.Intn(n)].Embedding)

	for len(centroids) < k {
		distances := make([]float64, n)

		var totalDist float64

		for i, record := range records {
			minDist := math.MaxFloat64

			for _, centroid := range centroids {
				if dist := cosineDistance(record.Embedding, centroid); dist < minDist {
					minDist = dist
				}
			}

			distances[i] = minDist * minDist
			totalDist += distances[i]
		}

		target := s.rng.Float64() * totalDist

		var cumDist float64

		selectedIdx := 0

		for i, d := range distances {
			cumDist += d
			if cumDist >= target {
				selectedIdx = i
				break
			}
		}

		centroids = append(centroids, records[selectedIdx].Embedding)
	}

	return centroids
}

// findNearestCentroid returns the index of the centroid closest to the embedding.
func findNearestCentroid(embedding []float32, centroids [][]float32) int {
	minDist := math.MaxFloat64
	nearest := 0

	for i, centroid := range centroids {
		if dist := cosineDistance(embedding, centroid); dist < minDist {
			minDist = dist
			nearest = i
		}
	}

	return nearest
}

// cosineDistance is 1 - cosine similarity, so smaller is more similar.
func cosineDistance(a, b []float32) float64 {
	if len(a) != len(b) {
		return 1.0
	}

	var dotProduct, normA, normB float64

	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 1.0
	}

	return 1.0 - dotProduct/(math.Sqrt(normA)*math.Sqrt(normB))
}

// buildThemeCluster derives the per-cluster aggregate from its members.
func buildThemeCluster(centroid []float32, members []models.FeedbackRecord, generatedAt time.Time) models.ThemeCluster {
	var qualitySum int

	sentimentCounts := make(map[models.Sentiment]int)

	for _, m := range members {
		qualitySum += m.QualityScore
		sentimentCounts[m.Sentiment]++
	}

	distribution := make(map[models.Sentiment]float64, len(sentimentCounts))
	for sentiment, count := range sentimentCounts {
		distribution[sentiment] = float64(count) / float64(len(members))
	}

	keywords := clusterKeywords(members)

	return models.ThemeCluster{
		ID:                    uuid.New(),
		Label:                 clusterLabel(keywords, sentimentCounts),
		Centroid:              centroid,
		MemberCount:           len(members),
		AvgQualityScore:       float64(qualitySum) / float64(len(members)),
		SentimentDistribution: distribution,
		TopKeywords:           keywords,
		GeneratedAt:           generatedAt,
	}
}

// clusterKeywords extracts the most frequent content words across member messages.
func clusterKeywords(members []models.FeedbackRecord) []string {
	freq := make(map[string]int)

	for _, m := range members {
		for _, tok := range strings.FieldsFunc(strings.ToLower(m.Message), func(r rune) bool {
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

	sort.Slice(words, func(i, j int) bool {
		if freq[words[i]] != freq[words[j]] {
			return freq[words[i]] > freq[words[j]]
		}

		return words[i] < words[j]
	})

	if len(words) > clusterKeywordLimit {
		words = words[:clusterKeywordLimit]
	}

	return words
}

// clusterLabel combines the top keywords with the dominant sentiment into a
// short human-readable label.
func clusterLabel(keywords []string, sentimentCounts map[models.Sentiment]int) string {
	dominant := models.SentimentNeutral
	best := -1

	for _, sentiment := range []models.Sentiment{
		models.SentimentPositive, models.SentimentNegative, models.SentimentNeutral,
	} {
		if count := sentimentCounts[sentiment]; count > best {
			dominant = sentiment
			best = count
		}
	}

	if len(keywords) == 0 {
		return fmt.Sprintf("general (%s)", dominant)
	}

	return fmt.Sprintf("%s (%s)", strings.Join(keywords, ", "), dominant)
}
