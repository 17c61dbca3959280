package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Sentiment is the categorical judgment of a feedback message.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
	SentimentUnknown  Sentiment = "unknown"
	SentimentSpam     Sentiment = "spam"
)

// ValidSentiments is the set of sentiments a stored record may carry.
// Spam and unknown records are never persisted, so they are absent here.
var ValidSentiments = map[Sentiment]struct{}{
	SentimentPositive: {},
	SentimentNegative: {},
	SentimentNeutral:  {},
}

// Stage identifies which classification stage produced a final sentiment.
type Stage string

const (
	StageModeration Stage = "moderation"
	StagePhrase     Stage = "phrase_matching"
	StagePattern    Stage = "pattern_classification"
	StageNLP        Stage = "nlp_fallback"
)

// Stage confidences are fixed per stage rather than computed per item;
// there is no calibration data to support anything finer.
const (
	ConfidencePhrase  = 0.8
	ConfidencePattern = 0.6
	ConfidenceNLP     = 0.7
)

// FeedbackRecord represents a single persisted feedback message with its
// classification results. Records are append-only and never updated after creation.
type FeedbackRecord struct {
	ID             uuid.UUID       `json:"id"`
	UserID         string          `json:"user_id"`
	ConversationID *string         `json:"conversation_id,omitempty"`
	Message        string          `json:"message"`
	Sentiment      Sentiment       `json:"sentiment"`
	QualityScore   int             `json:"quality_score"`
	Embedding      []float32       `json:"embedding,omitempty"`
	ProcessedBy    Stage           `json:"processed_by"`
	Confidence     float64         `json:"confidence"`
	Metadata       json.RawMessage `json:"metadata,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// ProcessRequest is the input to the ingestion pipeline.
type ProcessRequest struct {
	UserID         string          `json:"user_id" validate:"required,min=1,max=255"`
	Message        string          `json:"message"`
	ConversationID *string         `json:"conversation_id,omitempty" validate:"omitempty,max=255"`
	Metadata       json.RawMessage `json:"metadata,omitempty" validate:"omitempty,json_object"`
}

// ProcessingResult is the structured outcome of one pipeline invocation.
// Every outcome is a result, never a raised error: blocked and inconclusive
// messages come back with Stored=false and the corresponding sentiment.
type ProcessingResult struct {
	Sentiment    Sentiment  `json:"feedback_type"`
	Stored       bool       `json:"stored"`
	QualityScore int        `json:"quality_score"`
	ProcessedBy  Stage      `json:"processed_by"`
	Confidence   *float64   `json:"confidence_score,omitempty"`
	UserScore    *int       `json:"user_score,omitempty"`
	FeedbackID   *uuid.UUID `json:"feedback_id,omitempty"`
	Suggestion   string     `json:"suggestion,omitempty"`
	Error        string     `json:"error,omitempty"`
}

// ListFeedbackRecordsFilters narrows read queries. MinQuality and HasEmbedding
// are used by clustering; Limit caps row counts for cost control.
type ListFeedbackRecordsFilters struct {
	UserID         *string    `form:"user_id"`
	ConversationID *string    `form:"conversation_id"`
	Sentiment      *Sentiment `form:"sentiment"`
	MinQuality     *int       `form:"min_quality" validate:"omitempty,min=0,max=100"`
	HasEmbedding   bool       `form:"has_embedding"`
	Since          *time.Time `form:"since"`
	Until          *time.Time `form:"until"`
	Limit          int        `form:"limit" validate:"omitempty,min=1,max=10000"`
}
