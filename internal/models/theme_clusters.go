package models

import (
	"time"

	"github.com/google/uuid"
)

// ThemeCluster is a derived aggregate over a snapshot of feedback records with
// embeddings. Clusters are recomputed wholesale on each run and replace the
// previous set; they are disposable and always regenerable from the records.
type ThemeCluster struct {
	ID                    uuid.UUID             `json:"id"`
	Label                 string                `json:"label"`
	Centroid              []float32             `json:"-"`
	MemberCount           int                   `json:"member_count"`
	AvgQualityScore       float64               `json:"avg_quality_score"`
	SentimentDistribution map[Sentiment]float64 `json:"sentiment_distribution"`
	TopKeywords           []string              `json:"top_keywords"`
	GeneratedAt           time.Time             `json:"generated_at"`
}

// ThemeClusterList is the read-side envelope for stored clusters.
type ThemeClusterList struct {
	Data        []ThemeCluster `json:"data"`
	GeneratedAt *time.Time     `json:"generated_at,omitempty"`
}
