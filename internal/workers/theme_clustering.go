// Package workers provides River job workers.
package workers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/riverqueue/river"

	"github.com/feedbackloop/insight/internal/apperrors"
	"github.com/feedbackloop/insight/internal/models"
	"github.com/feedbackloop/insight/internal/observability"
	"github.com/feedbackloop/insight/internal/service"
)

// themeClusterer is the minimal interface the worker needs.
type themeClusterer interface {
	RebuildThemes(ctx context.Context, k, minQuality int) ([]models.ThemeCluster, error)
}

// ThemeClusteringWorker runs one clustering pass and replaces the stored
// cluster set.
type ThemeClusteringWorker struct {
	river.WorkerDefaults[service.ThemeClusteringArgs]

	clusterer themeClusterer
	metrics   observability.PipelineMetrics
}

// NewThemeClusteringWorker creates the worker. metrics may be nil (disabled).
func NewThemeClusteringWorker(clusterer themeClusterer, metrics observability.PipelineMetrics) *ThemeClusteringWorker {
	return &ThemeClusteringWorker{clusterer: clusterer, metrics: metrics}
}

const themeClusteringTimeout = 2 * time.Minute

// Timeout limits how long a single clustering run may take.
func (w *ThemeClusteringWorker) Timeout(*river.Job[service.ThemeClusteringArgs]) time.Duration {
	return themeClusteringTimeout
}

// Work runs the clustering pass. An infeasible run (too few eligible records)
// is an expected condition and does not retry; real failures surface to River
// for retry.
func (w *ThemeClusteringWorker) Work(ctx context.Context, job *river.Job[service.ThemeClusteringArgs]) error {
	start := time.Now()

	clusters, err := w.clusterer.RebuildThemes(ctx, job.Args.K, job.Args.MinQuality)
	if err != nil {
		if errors.Is(err, apperrors.ErrClusteringInfeasible) {
			slog.InfoContext(ctx, "theme clustering skipped", "reason", err)
			w.record(ctx, "infeasible", start)

			return nil
		}

		slog.ErrorContext(ctx, "theme clustering failed", "error", err)
		w.record(ctx, "error", start)

		return fmt.Errorf("theme clustering: %w", err)
	}

	slog.InfoContext(ctx, "theme clustering completed",
		"clusters", len(clusters), "k", job.Args.K, "min_quality", job.Args.MinQuality)
	w.record(ctx, "success", start)

	return nil
}

func (w *ThemeClusteringWorker) record(ctx context.Context, outcome string, start time.Time) {
	if w.metrics == nil {
		return
	}

	w.metrics.RecordClusteringRun(ctx, outcome, time.Since(start))
}
