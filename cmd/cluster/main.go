// Command cluster runs one theme clustering pass and replaces the stored
// cluster set. Intended for operators and cron; the API server schedules the
// same run through its job queue.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/feedbackloop/insight/internal/apperrors"
	"github.com/feedbackloop/insight/internal/config"
	"github.com/feedbackloop/insight/internal/repository"
	"github.com/feedbackloop/insight/internal/service"
	"github.com/feedbackloop/insight/pkg/database"
)

func main() {
	if err := run(); err != nil {
		var infeasible *apperrors.ClusteringInfeasibleError
		if errors.As(err, &infeasible) {
			fmt.Fprintf(os.Stderr, "clustering infeasible: %d eligible records for %d clusters\n",
				infeasible.Eligible, infeasible.Requested)
			os.Exit(2)
		}

		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	k := flag.Int("k", cfg.ClusteringK, "number of clusters")
	minQuality := flag.Int("min-quality", cfg.ClusteringMinQuality, "minimum quality score for eligibility")
	flag.Parse()

	db, err := database.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	feedbackRepo := repository.NewFeedbackRecordsRepository(db)
	themesRepo := repository.NewThemeClustersRepository(db)
	clustering := service.NewClusteringService(feedbackRepo, themesRepo, cfg.ClusteringSampleLimit, slog.Default())

	clusters, err := clustering.RebuildThemes(ctx, *k, *minQuality)
	if err != nil {
		return err
	}

	fmt.Printf("generated %d themes\n", len(clusters))

	for _, c := range clusters {
		fmt.Printf("  %-50s members=%d avg_quality=%.1f\n", c.Label, c.MemberCount, c.AvgQualityScore)
	}

	return nil
}
