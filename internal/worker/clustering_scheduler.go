// Package worker provides background loops that run alongside the API server.
package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/feedbackloop/insight/internal/service"
)

// ClusteringScheduler periodically enqueues a theme clustering job. The job's
// unique options keep overlapping triggers from stacking duplicate runs.
type ClusteringScheduler struct {
	inserter   service.ClusteringJobInserter
	interval   time.Duration
	k          int
	minQuality int
}

// NewClusteringScheduler creates a scheduler with the configured cadence.
func NewClusteringScheduler(inserter service.ClusteringJobInserter, interval time.Duration, k, minQuality int) *ClusteringScheduler {
	if interval <= 0 {
		interval = time.Hour
	}

	return &ClusteringScheduler{
		inserter:   inserter,
		interval:   interval,
		k:          k,
		minQuality: minQuality,
	}
}

// Start begins the scheduling loop. It runs until the context is cancelled.
func (s *ClusteringScheduler) Start(ctx context.Context) {
	slog.Info("clustering scheduler started",
		"interval", s.interval, "k", s.k, "min_quality", s.minQuality)

	// Enqueue immediately on startup
	s.enqueue(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("clustering scheduler stopped")
			return
		case <-ticker.C:
			s.enqueue(ctx)
		}
	}
}

func (s *ClusteringScheduler) enqueue(ctx context.Context) {
	_, err := s.inserter.Insert(ctx, service.ThemeClusteringArgs{
		K:          s.k,
		MinQuality: s.minQuality,
	}, nil)
	if err != nil {
		slog.Error("failed to enqueue clustering job", "error", err)
		return
	}

	slog.Debug("clustering job enqueued")
}
