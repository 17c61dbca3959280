package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/feedbackloop/insight/internal/models"
)

// ThemeClustersRepository handles data access for theme clusters.
// Clusters are a derived snapshot: each run replaces the whole set in one
// transaction, never patches individual rows.
type ThemeClustersRepository struct {
	db *pgxpool.Pool
}

// NewThemeClustersRepository creates a new theme clusters repository.
func NewThemeClustersRepository(db *pgxpool.Pool) *ThemeClustersRepository {
	return &ThemeClustersRepository{db: db}
}

// ReplaceAll atomically swaps the stored cluster set for the given one.
// Readers never observe a partially replaced set.
func (r *ThemeClustersRepository) ReplaceAll(ctx context.Context, clusters []models.ThemeCluster) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin cluster replacement: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM theme_clusters`); err != nil {
		return fmt.Errorf("failed to clear theme clusters: %w", err)
	}

	query := `
		INSERT INTO theme_clusters (
			id, label, centroid, member_count, avg_quality_score,
			sentiment_distribution, top_keywords, generated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	for _, cluster := range clusters {
		distribution, err := json.Marshal(cluster.SentimentDistribution)
		if err != nil {
			return fmt.Errorf("failed to encode sentiment distribution: %w", err)
		}

		var centroid any
		if cluster.Centroid != nil {
			centroid = pgvector.NewVector(cluster.Centroid)
		}

		_, err = tx.Exec(ctx, query,
			cluster.ID, cluster.Label, centroid, cluster.MemberCount, cluster.AvgQualityScore,
			distribution, cluster.TopKeywords, cluster.GeneratedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert theme cluster: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit cluster replacement: %w", err)
	}

	return nil
}

// List retrieves the current cluster set, largest first.
func (r *ThemeClustersRepository) List(ctx context.Context) ([]models.ThemeCluster, error) {
	query := `
		SELECT id, label, centroid, member_count, avg_quality_score,
			sentiment_distribution, top_keywords, generated_at
		FROM theme_clusters
		ORDER BY member_count DESC
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list theme clusters: %w", err)
	}
	defer rows.Close()

	clusters := []models.ThemeCluster{}

	for rows.Next() {
		var cluster models.ThemeCluster

		var centroid nullableEmbedding

		var distribution []byte

		err := rows.Scan(
			&cluster.ID, &cluster.Label, &centroid, &cluster.MemberCount, &cluster.AvgQualityScore,
			&distribution, &cluster.TopKeywords, &cluster.GeneratedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan theme cluster: %w", err)
		}

		cluster.Centroid = centroid

		if len(distribution) > 0 {
			if err := json.Unmarshal(distribution, &cluster.SentimentDistribution); err != nil {
				return nil, fmt.Errorf("failed to decode sentiment distribution: %w", err)
			}
		}

		clusters = append(clusters, cluster)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating theme clusters: %w", err)
	}

	return clusters, nil
}
