// Package handlers contains the HTTP handlers for the insight API.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/feedbackloop/insight/internal/api/response"
	"github.com/feedbackloop/insight/internal/models"
)

const maxListLimit = 10000

// Pipeline runs the ingestion pipeline for one message.
type Pipeline interface {
	Process(ctx context.Context, req *models.ProcessRequest) models.ProcessingResult
}

// FeedbackLister reads stored feedback records.
type FeedbackLister interface {
	List(ctx context.Context, filters *models.ListFeedbackRecordsFilters) ([]models.FeedbackRecord, error)
}

// FeedbackHandler handles feedback ingestion and listing.
type FeedbackHandler struct {
	pipeline Pipeline
	lister   FeedbackLister
}

// NewFeedbackHandler creates a new feedback handler.
func NewFeedbackHandler(pipeline Pipeline, lister FeedbackLister) *FeedbackHandler {
	return &FeedbackHandler{pipeline: pipeline, lister: lister}
}

// Process handles POST /v1/feedback. Every pipeline outcome (stored, spam,
// unknown, store failure) is a 200 with a structured result body.
func (h *FeedbackHandler) Process(w http.ResponseWriter, r *http.Request) {
	var req models.ProcessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			response.RespondError(w, http.StatusRequestEntityTooLarge,
				"Request Entity Too Large", "request body exceeds maximum allowed size")
			return
		}

		response.RespondBadRequest(w, "Invalid request body")
		return
	}

	if strings.TrimSpace(req.UserID) == "" {
		response.RespondBadRequest(w, "user_id is required")
		return
	}

	if req.Metadata != nil && !json.Valid(req.Metadata) {
		response.RespondBadRequest(w, "metadata must be valid JSON")
		return
	}

	result := h.pipeline.Process(r.Context(), &req)

	response.RespondJSON(w, http.StatusOK, result)
}

// List handles GET /v1/feedback.
func (h *FeedbackHandler) List(w http.ResponseWriter, r *http.Request) {
	filters, err := parseListFilters(r)
	if err != nil {
		response.RespondBadRequest(w, err.Error())
		return
	}

	records, err := h.lister.List(r.Context(), filters)
	if err != nil {
		response.RespondInternalServerError(w, "An unexpected error occurred")
		return
	}

	response.RespondJSON(w, http.StatusOK, map[string]any{"data": records})
}

func parseListFilters(r *http.Request) (*models.ListFeedbackRecordsFilters, error) {
	q := r.URL.Query()
	filters := &models.ListFeedbackRecordsFilters{Limit: 100}

	if v := q.Get("user_id"); v != "" {
		filters.UserID = &v
	}

	if v := q.Get("conversation_id"); v != "" {
		filters.ConversationID = &v
	}

	if v := q.Get("sentiment"); v != "" {
		sentiment := models.Sentiment(v)
		if _, ok := models.ValidSentiments[sentiment]; !ok {
			return nil, errors.New("invalid sentiment filter")
		}

		filters.Sentiment = &sentiment
	}

	if v := q.Get("min_quality"); v != "" {
		minQuality, err := strconv.Atoi(v)
		if err != nil || minQuality < 0 || minQuality > 100 {
			return nil, errors.New("min_quality must be an integer between 0 and 100")
		}

		filters.MinQuality = &minQuality
	}

	if v := q.Get("since"); v != "" {
		since, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return nil, errors.New("since must be an RFC 3339 timestamp")
		}

		filters.Since = &since
	}

	if v := q.Get("until"); v != "" {
		until, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return nil, errors.New("until must be an RFC 3339 timestamp")
		}

		filters.Until = &until
	}

	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 || limit > maxListLimit {
			return nil, errors.New("limit must be an integer between 1 and 10000")
		}

		filters.Limit = limit
	}

	return filters, nil
}
