package service

import (
	"context"
	"time"

	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
)

const (
	themeClusteringKind = "theme_clustering"
	// ClusteringQueueName is the River queue used for theme clustering jobs.
	ClusteringQueueName = "clustering"

	// clusteringUniquePeriod suppresses duplicate enqueues: at most one
	// clustering job per period regardless of how many triggers fire.
	clusteringUniquePeriod = 15 * time.Minute
)

// ClusteringJobInserter inserts clustering jobs (e.g. River client). Used by
// the scheduler and the rebuild endpoint.
type ClusteringJobInserter interface {
	Insert(ctx context.Context, args river.JobArgs, opts *river.InsertOpts) (*rivertype.JobInsertResult, error)
}

// ThemeClusteringArgs is the job payload for one clustering run.
type ThemeClusteringArgs struct {
	K          int `json:"k"`
	MinQuality int `json:"min_quality"`
}

// Kind returns the River job kind.
func (ThemeClusteringArgs) Kind() string { return themeClusteringKind }

// InsertOpts routes clustering jobs to their queue and deduplicates per period.
func (ThemeClusteringArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		Queue: ClusteringQueueName,
		UniqueOpts: river.UniqueOpts{
			ByArgs:   true,
			ByPeriod: clusteringUniquePeriod,
		},
	}
}

var _ river.JobArgs = ThemeClusteringArgs{}
