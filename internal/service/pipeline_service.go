// Package service contains the ingestion pipeline and the read-side services
// (insights, clustering, analytics) built on the repositories.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/feedbackloop/insight/internal/classify"
	"github.com/feedbackloop/insight/internal/embeddings"
	"github.com/feedbackloop/insight/internal/models"
	"github.com/feedbackloop/insight/internal/observability"
	"github.com/feedbackloop/insight/internal/quality"
)

// Pipeline outcome labels for metrics.
const (
	outcomeStored     = "stored"
	outcomeSpam       = "spam"
	outcomeUnknown    = "unknown"
	outcomeStoreError = "store_error"
)

// FeedbackStore is the persistence surface the pipeline needs.
type FeedbackStore interface {
	Insert(ctx context.Context, record *models.FeedbackRecord) error
	SentimentCountsByUser(ctx context.Context, userID string, conversationID *string) (map[models.Sentiment]int, error)
}

// PipelineService runs the ingestion pipeline: moderation, the classification
// chain, quality scoring, embedding, and persistence. Every outcome is a
// structured ProcessingResult; nothing propagates as a raised error across
// this boundary.
type PipelineService struct {
	chain    *classify.Chain
	embedder *embeddings.Generator
	store    FeedbackStore
	metrics  observability.PipelineMetrics
	logger   *slog.Logger
}

// NewPipelineService creates a pipeline service. metrics may be nil (disabled).
func NewPipelineService(
	chain *classify.Chain,
	embedder *embeddings.Generator,
	store FeedbackStore,
	metrics observability.PipelineMetrics,
	logger *slog.Logger,
) *PipelineService {
	if logger == nil {
		logger = slog.Default()
	}

	return &PipelineService{
		chain:    chain,
		embedder: embedder,
		store:    store,
		metrics:  metrics,
		logger:   logger,
	}
}

// Process runs one message through the pipeline.
//
// Ordered short-circuits: a blocked message is returned as spam without being
// classified, scored, embedded, or stored. An inconclusive classification is
// returned as unknown with a follow-up suggestion and no store write. Only
// positive/negative/neutral messages are persisted; a failed store write is
// reported as stored=false with detail, and repeating the call is safe since
// the failed write had no side effect.
func (s *PipelineService) Process(ctx context.Context, req *models.ProcessRequest) models.ProcessingResult {
	start := time.Now()

	if !classify.Moderate(req.Message) {
		s.logger.InfoContext(ctx, "feedback blocked by moderation", "user_id", req.UserID)
		s.record(ctx, outcomeSpam, models.StageModeration, start)

		return models.ProcessingResult{
			Sentiment:   models.SentimentSpam,
			Stored:      false,
			ProcessedBy: models.StageModeration,
		}
	}

	outcome := s.chain.Run(ctx, req.Message)
	if outcome.Err != nil {
		s.logger.WarnContext(ctx, "classification stage degraded",
			"stage", outcome.Stage, "error", outcome.Err)
	}

	// Quality is computed for every non-blocked message, unknown included.
	qualityScore := quality.Score(req.Message)

	if outcome.Sentiment == models.SentimentUnknown {
		s.record(ctx, outcomeUnknown, outcome.Stage, start)

		result := models.ProcessingResult{
			Sentiment:    models.SentimentUnknown,
			Stored:       false,
			QualityScore: qualityScore,
			ProcessedBy:  outcome.Stage,
			Suggestion:   suggestFollowUp(req.Message),
		}
		if outcome.Err != nil {
			result.Error = fmt.Sprintf("classification degraded: %v", outcome.Err)
		}

		return result
	}

	record := &models.FeedbackRecord{
		UserID:         req.UserID,
		ConversationID: req.ConversationID,
		Message:        req.Message,
		Sentiment:      outcome.Sentiment,
		QualityScore:   qualityScore,
		Embedding:      s.embedder.Embed(req.Message), // best effort; nil is stored as NULL
		ProcessedBy:    outcome.Stage,
		Confidence:     outcome.Confidence,
		Metadata:       req.Metadata,
	}

	confidence := outcome.Confidence

	if err := s.store.Insert(ctx, record); err != nil {
		s.logger.ErrorContext(ctx, "failed to store feedback record",
			"user_id", req.UserID, "error", err)

		if s.metrics != nil {
			s.metrics.RecordStoreError(ctx)
		}

		s.record(ctx, outcomeStoreError, outcome.Stage, start)

		return models.ProcessingResult{
			Sentiment:    outcome.Sentiment,
			Stored:       false,
			QualityScore: qualityScore,
			ProcessedBy:  outcome.Stage,
			Confidence:   &confidence,
			Error:        fmt.Sprintf("failed to store feedback: %v", err),
		}
	}

	result := models.ProcessingResult{
		Sentiment:    outcome.Sentiment,
		Stored:       true,
		QualityScore: qualityScore,
		ProcessedBy:  outcome.Stage,
		Confidence:   &confidence,
		FeedbackID:   &record.ID,
	}

	if score, err := s.userScore(ctx, req.UserID); err != nil {
		// The record is stored; a failed score read only degrades the response.
		s.logger.WarnContext(ctx, "failed to compute user score",
			"user_id", req.UserID, "error", err)
	} else {
		result.UserScore = &score
	}

	s.record(ctx, outcomeStored, outcome.Stage, start)

	return result
}

func (s *PipelineService) userScore(ctx context.Context, userID string) (int, error) {
	counts, err := s.store.SentimentCountsByUser(ctx, userID, nil)
	if err != nil {
		return 0, err
	}

	return counts[models.SentimentPositive] - counts[models.SentimentNegative], nil
}

func (s *PipelineService) record(ctx context.Context, outcome string, stage models.Stage, start time.Time) {
	if s.metrics == nil {
		return
	}

	s.metrics.RecordProcessed(ctx, outcome, string(stage), time.Since(start))
}

const followUpSuggestionTokens = 4

// suggestFollowUp picks a clarifying question for an inconclusive message.
// Always returns a non-empty string.
func suggestFollowUp(message string) string {
	trimmed := strings.TrimSpace(message)

	switch {
	case trimmed == "":
		return "Could you share a bit more detail about your experience?"
	case strings.Contains(trimmed, "?"):
		return "That reads like a question rather than feedback. Could you describe what worked or did not work for you?"
	case len(strings.Fields(trimmed)) < followUpSuggestionTokens:
		return "Could you expand on that? A sentence or two about what happened helps us understand."
	default:
		return "We could not tell how you felt about this. Could you say whether your experience was positive or negative, and why?"
	}
}
