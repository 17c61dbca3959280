package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"

	"github.com/feedbackloop/insight/internal/api/handlers"
	"github.com/feedbackloop/insight/internal/api/middleware"
	"github.com/feedbackloop/insight/internal/classify"
	"github.com/feedbackloop/insight/internal/config"
	"github.com/feedbackloop/insight/internal/embeddings"
	"github.com/feedbackloop/insight/internal/models"
	"github.com/feedbackloop/insight/internal/nlp"
	"github.com/feedbackloop/insight/internal/observability"
	"github.com/feedbackloop/insight/internal/repository"
	"github.com/feedbackloop/insight/internal/service"
	"github.com/feedbackloop/insight/internal/worker"
	"github.com/feedbackloop/insight/internal/workers"
)

const serviceName = "feedbackloop-insight"

// App holds all server dependencies and coordinates startup and shutdown.
type App struct {
	cfg           *config.Config
	server        *http.Server
	river         *river.Client[pgx.Tx]
	scheduler     *worker.ClusteringScheduler
	meterProvider observability.MeterProviderShutdown
}

// nlpStage wraps the external classifier as a chain stage. Errors are returned
// to the chain, which degrades them to unknown instead of aborting.
func nlpStage(client *nlp.Client, metrics observability.PipelineMetrics) classify.Stage {
	return classify.Stage{
		Name:       models.StageNLP,
		Confidence: models.ConfidenceNLP,
		Classify: func(ctx context.Context, text string) (models.Sentiment, error) {
			sentiment, err := client.Classify(ctx, text)

			if metrics != nil {
				outcome := "classified"
				switch {
				case err != nil:
					outcome = "error"
				case sentiment == models.SentimentUnknown:
					outcome = "inconclusive"
				}
				metrics.RecordNLPOutcome(ctx, outcome)
			}

			return sentiment, err
		},
	}
}

// NewApp builds and wires all components. It does not start the HTTP server or
// River; call Run to start and block until shutdown or failure.
func NewApp(cfg *config.Config, db *pgxpool.Pool) (*App, error) {
	var (
		meterProvider  observability.MeterProviderShutdown
		metricsHandler http.Handler
		metrics        *observability.Metrics
		err            error
	)

	if cfg.MetricsEnabled {
		meterProvider, metricsHandler, metrics, err = observability.NewMeterProvider(serviceName)
		if err != nil {
			return nil, fmt.Errorf("create meter provider: %w", err)
		}
	} else {
		slog.Warn("metrics not enabled (METRICS_ENABLED=false)")
	}

	// Install TraceContextHandler so request_id appears in every log line.
	slog.SetDefault(slog.New(observability.NewTraceContextHandler(slog.Default().Handler())))

	// A nil interface keeps metrics recording disabled everywhere downstream.
	var pipelineMetrics observability.PipelineMetrics
	if metrics != nil {
		pipelineMetrics = metrics
	}

	chain := classify.NewChain(classify.NewPhraseMatcher())

	if cfg.NLPFallbackEnabled {
		nlpClient := nlp.NewClient(nlp.ClientOptions{
			BaseURL:  cfg.NLPBaseURL,
			APIKey:   cfg.NLPAPIKey,
			Timeout:  cfg.NLPTimeout,
			RetryMax: cfg.NLPRetryMax,
		})
		chain.Append(nlpStage(nlpClient, pipelineMetrics))
		slog.Info("NLP fallback enabled", "base_url", cfg.NLPBaseURL)
	}

	feedbackRepo := repository.NewFeedbackRecordsRepository(db)
	themesRepo := repository.NewThemeClustersRepository(db)

	analyticsService := service.NewAnalyticsService(feedbackRepo, cfg.AnalyticsWindowLimit)

	var (
		analytics     service.AnalyticsProvider = analyticsService
		pipelineStore service.FeedbackStore     = feedbackRepo
	)

	if cfg.AnalyticsCacheEnabled {
		cachingAnalytics, err := service.NewCachingAnalyticsService(
			analyticsService, cfg.AnalyticsCacheSize, cfg.AnalyticsCacheTTL)
		if err != nil {
			return nil, fmt.Errorf("create analytics cache: %w", err)
		}

		analytics = cachingAnalytics
		// Successful ingests invalidate cached reports.
		pipelineStore = service.NewInvalidatingStore(feedbackRepo, cachingAnalytics)
	}

	pipelineService := service.NewPipelineService(
		chain, embeddings.NewGenerator(), pipelineStore, pipelineMetrics, slog.Default())
	insightsService := service.NewInsightsService(feedbackRepo)
	clusteringService := service.NewClusteringService(
		feedbackRepo, themesRepo, cfg.ClusteringSampleLimit, slog.Default())

	riverWorkers := river.NewWorkers()
	river.AddWorker(riverWorkers, workers.NewThemeClusteringWorker(clusteringService, pipelineMetrics))

	riverClient, err := river.NewClient(riverpgxv5.New(db), &river.Config{
		Queues: map[string]river.QueueConfig{
			service.ClusteringQueueName: {MaxWorkers: 1},
		},
		Workers: riverWorkers,
	})
	if err != nil {
		return nil, fmt.Errorf("create River client: %w", err)
	}

	scheduler := worker.NewClusteringScheduler(
		riverClient, cfg.ClusteringInterval, cfg.ClusteringK, cfg.ClusteringMinQuality)

	server := newHTTPServer(cfg,
		handlers.NewHealthHandler(),
		handlers.NewFeedbackHandler(pipelineService, feedbackRepo),
		handlers.NewInsightsHandler(insightsService),
		handlers.NewThemesHandler(themesRepo, riverClient, cfg.ClusteringK, cfg.ClusteringMinQuality),
		handlers.NewAnalyticsHandler(analytics),
		metricsHandler,
	)

	return &App{
		cfg:           cfg,
		server:        server,
		river:         riverClient,
		scheduler:     scheduler,
		meterProvider: meterProvider,
	}, nil
}

// newHTTPServer builds the HTTP server and muxes (no auth on /health or
// /metrics, API key on /v1/). Handler chain: RequestID -> MaxBody -> Logging.
func newHTTPServer(
	cfg *config.Config,
	health *handlers.HealthHandler,
	feedback *handlers.FeedbackHandler,
	insights *handlers.InsightsHandler,
	themes *handlers.ThemesHandler,
	analytics *handlers.AnalyticsHandler,
	metricsHandler http.Handler,
) *http.Server {
	public := http.NewServeMux()
	public.HandleFunc("GET /health", health.Check)

	if metricsHandler != nil {
		public.Handle("GET /metrics", metricsHandler)
	}

	protected := http.NewServeMux()
	protected.HandleFunc("POST /v1/feedback", feedback.Process)
	protected.HandleFunc("GET /v1/feedback", feedback.List)

	protected.HandleFunc("GET /v1/users/{id}/score", insights.Score)
	protected.HandleFunc("GET /v1/users/{id}/insights", insights.Insights)

	protected.HandleFunc("GET /v1/themes", themes.List)
	protected.HandleFunc("POST /v1/themes/rebuild", themes.Rebuild)

	protected.HandleFunc("GET /v1/analytics/trends", analytics.Trends)
	protected.HandleFunc("GET /v1/analytics/quality-distribution", analytics.QualityDistribution)

	protectedWithAuth := middleware.Auth(cfg.APIKey)(protected)
	mux := http.NewServeMux()
	mux.Handle("/v1/", protectedWithAuth)
	mux.Handle("/", public)

	inner := middleware.Logging(mux)
	handler := middleware.MaxBody(cfg.MaxBodyBytes)(inner)
	handler = middleware.RequestID(handler)

	const (
		readTimeout  = 15 * time.Second
		writeTimeout = 15 * time.Second
		idleTimeout  = 60 * time.Second
	)

	return &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}
}

// Run starts the HTTP server, River, and the clustering scheduler, then blocks
// until ctx is cancelled (e.g. signal) or a component fails. Caller should then
// call Shutdown.
func (a *App) Run(ctx context.Context) error {
	runErr := make(chan error, 1)

	workerCtx, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()

	go func() {
		if err := a.river.Start(workerCtx); err != nil && !errors.Is(err, context.Canceled) {
			select {
			case runErr <- fmt.Errorf("river: %w", err):
			default:
			}
		}
	}()

	go a.scheduler.Start(workerCtx)

	go func() {
		slog.Info("Starting server", "port", a.cfg.Port)

		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			select {
			case runErr <- fmt.Errorf("server: %w", err):
			default:
			}
		}
	}()

	select {
	case err := <-runErr:
		cancelWorkers()

		return err
	case <-ctx.Done():
		cancelWorkers()

		return nil
	}
}

// Shutdown stops the server and River in order, then the meter provider. Call
// after Run returns.
func (a *App) Shutdown(ctx context.Context) (err error) {
	defer func() {
		if a.meterProvider == nil {
			return
		}

		if mpErr := a.meterProvider.Shutdown(ctx); mpErr != nil {
			if err == nil {
				err = mpErr
			} else {
				slog.Error("shutdown meter provider", "error", mpErr)
			}
		}
	}()

	if err = a.server.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		if stopErr := a.river.Stop(ctx); stopErr != nil {
			slog.Error("river stop during server shutdown", "error", stopErr)
		}

		return fmt.Errorf("server shutdown: %w", err)
	}

	if err = a.river.Stop(ctx); err != nil {
		return fmt.Errorf("river stop: %w", err)
	}

	return nil
}
