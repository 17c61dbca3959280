package workers

import (
	"context"
	"errors"
	"testing"

	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
	"github.com/stretchr/testify/assert"

	"github.com/feedbackloop/insight/internal/apperrors"
	"github.com/feedbackloop/insight/internal/models"
	"github.com/feedbackloop/insight/internal/service"
)

type mockClusterer struct {
	clusters []models.ThemeCluster
	err      error
	calls    []service.ThemeClusteringArgs
}

func (m *mockClusterer) RebuildThemes(_ context.Context, k, minQuality int) ([]models.ThemeCluster, error) {
	m.calls = append(m.calls, service.ThemeClusteringArgs{K: k, MinQuality: minQuality})

	return m.clusters, m.err
}

func clusteringJob(k, minQuality int) *river.Job[service.ThemeClusteringArgs] {
	return &river.Job[service.ThemeClusteringArgs]{
		JobRow: &rivertype.JobRow{},
		Args:   service.ThemeClusteringArgs{K: k, MinQuality: minQuality},
	}
}

func TestThemeClusteringWorker_Work(t *testing.T) {
	ctx := context.Background()

	t.Run("passes job parameters through", func(t *testing.T) {
		clusterer := &mockClusterer{clusters: []models.ThemeCluster{{Label: "a"}}}
		worker := NewThemeClusteringWorker(clusterer, nil)

		err := worker.Work(ctx, clusteringJob(5, 40))

		assert.NoError(t, err)
		assert.Equal(t, []service.ThemeClusteringArgs{{K: 5, MinQuality: 40}}, clusterer.calls)
	})

	t.Run("infeasible clustering does not retry", func(t *testing.T) {
		clusterer := &mockClusterer{err: apperrors.NewClusteringInfeasibleError(5, 2)}
		worker := NewThemeClusteringWorker(clusterer, nil)

		err := worker.Work(ctx, clusteringJob(5, 40))

		assert.NoError(t, err)
	})

	t.Run("real failures surface for retry", func(t *testing.T) {
		clusterer := &mockClusterer{err: errors.New("db down")}
		worker := NewThemeClusteringWorker(clusterer, nil)

		err := worker.Work(ctx, clusteringJob(5, 40))

		assert.Error(t, err)
	})
}
