// Package repository provides data access for feedback records and theme clusters.
package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/feedbackloop/insight/internal/models"
)

// errEmbeddingScanInvalidType is returned when Scan receives a type other than []byte.
var errEmbeddingScanInvalidType = errors.New("embedding: expected []byte")

// nullableEmbedding scans a vector column that may be NULL without panicking (pgvector.Vector.Scan panics on empty/NULL).
type nullableEmbedding []float32

func (n *nullableEmbedding) Scan(src any) error {
	if src == nil {
		*n = nil

		return nil
	}

	buf, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("%w: got %T", errEmbeddingScanInvalidType, src)
	}

	if len(buf) == 0 {
		*n = nil

		return nil
	}

	var vec pgvector.Vector

	if err := vec.DecodeBinary(buf); err != nil {
		return fmt.Errorf("embedding decode: %w", err)
	}

	*n = vec.Slice()

	return nil
}

// FeedbackRecordsRepository handles data access for feedback records.
// Records are append-only; there are no update or delete paths.
type FeedbackRecordsRepository struct {
	db *pgxpool.Pool
}

// NewFeedbackRecordsRepository creates a new feedback records repository.
func NewFeedbackRecordsRepository(db *pgxpool.Pool) *FeedbackRecordsRepository {
	return &FeedbackRecordsRepository{db: db}
}

// Insert persists a classified feedback record and fills in its ID and CreatedAt.
// Embedding may be nil when vector generation failed; the row is stored without it.
func (r *FeedbackRecordsRepository) Insert(ctx context.Context, record *models.FeedbackRecord) error {
	query := `
		INSERT INTO feedback_records (
			user_id, conversation_id, message, sentiment,
			quality_score, embedding, processed_by, confidence, metadata
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at
	`

	var emb any
	if record.Embedding != nil {
		emb = pgvector.NewVector(record.Embedding)
	}

	err := r.db.QueryRow(ctx, query,
		record.UserID, record.ConversationID, record.Message, record.Sentiment,
		record.QualityScore, emb, record.ProcessedBy, record.Confidence, record.Metadata,
	).Scan(&record.ID, &record.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert feedback record: %w", err)
	}

	return nil
}

const feedbackRecordColumns = `id, user_id, conversation_id, message, sentiment,
		quality_score, embedding, processed_by, confidence, metadata, created_at`

func scanFeedbackRecord(row interface{ Scan(dest ...any) error }) (models.FeedbackRecord, error) {
	var record models.FeedbackRecord

	var emb nullableEmbedding

	err := row.Scan(
		&record.ID, &record.UserID, &record.ConversationID, &record.Message, &record.Sentiment,
		&record.QualityScore, &emb, &record.ProcessedBy, &record.Confidence, &record.Metadata, &record.CreatedAt,
	)
	if err != nil {
		return models.FeedbackRecord{}, fmt.Errorf("failed to scan feedback record: %w", err)
	}

	record.Embedding = emb

	return record, nil
}

// buildFilterConditions builds WHERE clause conditions and arguments from filters.
// Returns the WHERE clause (including " WHERE " prefix if conditions exist) and the args slice.
func buildFilterConditions(filters *models.ListFeedbackRecordsFilters) (whereClause string, args []any) {
	var conditions []string

	argCount := 1

	if filters.UserID != nil {
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", argCount))
		args = append(args, *filters.UserID)
		argCount++
	}

	if filters.ConversationID != nil {
		conditions = append(conditions, fmt.Sprintf("conversation_id = $%d", argCount))
		args = append(args, *filters.ConversationID)
		argCount++
	}

	if filters.Sentiment != nil {
		conditions = append(conditions, fmt.Sprintf("sentiment = $%d", argCount))
		args = append(args, *filters.Sentiment)
		argCount++
	}

	if filters.MinQuality != nil {
		conditions = append(conditions, fmt.Sprintf("quality_score >= $%d", argCount))
		args = append(args, *filters.MinQuality)
		argCount++
	}

	if filters.HasEmbedding {
		conditions = append(conditions, "embedding IS NOT NULL")
	}

	if filters.Since != nil {
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", argCount))
		args = append(args, *filters.Since)
		argCount++
	}

	if filters.Until != nil {
		conditions = append(conditions, fmt.Sprintf("created_at <= $%d", argCount))
		args = append(args, *filters.Until)
	}

	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	return whereClause, args
}

// List retrieves feedback records with optional filters, newest first.
func (r *FeedbackRecordsRepository) List(ctx context.Context, filters *models.ListFeedbackRecordsFilters) ([]models.FeedbackRecord, error) {
	query := `SELECT ` + feedbackRecordColumns + ` FROM feedback_records`

	whereClause, args := buildFilterConditions(filters)
	query += whereClause
	query += " ORDER BY created_at DESC"

	if filters.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", len(args)+1)

		args = append(args, filters.Limit)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list feedback records: %w", err)
	}
	defer rows.Close()

	records := []models.FeedbackRecord{} // Initialize as empty slice, not nil

	for rows.Next() {
		record, err := scanFeedbackRecord(rows)
		if err != nil {
			return nil, err
		}

		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating feedback records: %w", err)
	}

	return records, nil
}

// ListByUser retrieves a user's records, newest first. A limit of 0 means no limit.
func (r *FeedbackRecordsRepository) ListByUser(ctx context.Context, userID string, limit int) ([]models.FeedbackRecord, error) {
	return r.List(ctx, &models.ListFeedbackRecordsFilters{UserID: &userID, Limit: limit})
}

// ListByUserAndConversation retrieves a user's records within one conversation, newest first.
func (r *FeedbackRecordsRepository) ListByUserAndConversation(
	ctx context.Context, userID, conversationID string, limit int,
) ([]models.FeedbackRecord, error) {
	return r.List(ctx, &models.ListFeedbackRecordsFilters{
		UserID:         &userID,
		ConversationID: &conversationID,
		Limit:          limit,
	})
}

// SentimentCountsByUser returns per-sentiment record counts for one user.
// Score arithmetic happens in the service; the repository only aggregates rows.
func (r *FeedbackRecordsRepository) SentimentCountsByUser(
	ctx context.Context, userID string, conversationID *string,
) (map[models.Sentiment]int, error) {
	query := `SELECT sentiment, COUNT(*) FROM feedback_records WHERE user_id = $1`
	args := []any{userID}

	if conversationID != nil {
		query += ` AND conversation_id = $2`

		args = append(args, *conversationID)
	}

	query += ` GROUP BY sentiment`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to count sentiments: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.Sentiment]int)

	for rows.Next() {
		var sentiment models.Sentiment

		var count int

		if err := rows.Scan(&sentiment, &count); err != nil {
			return nil, fmt.Errorf("failed to scan sentiment count: %w", err)
		}

		counts[sentiment] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sentiment counts: %w", err)
	}

	return counts, nil
}
