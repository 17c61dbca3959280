package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/feedbackloop/insight/internal/api/response"
	"github.com/feedbackloop/insight/internal/apperrors"
	"github.com/feedbackloop/insight/internal/models"
	"github.com/feedbackloop/insight/internal/service"
)

const defaultTrendLimit = 30

// AnalyticsHandler serves trend and quality-distribution reports.
type AnalyticsHandler struct {
	analytics service.AnalyticsProvider
}

// NewAnalyticsHandler creates a new analytics handler.
func NewAnalyticsHandler(analytics service.AnalyticsProvider) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics}
}

// Trends handles GET /v1/analytics/trends.
func (h *AnalyticsHandler) Trends(w http.ResponseWriter, r *http.Request) {
	bucketSize := models.BucketSize(r.URL.Query().Get("bucket_size"))
	if bucketSize == "" {
		bucketSize = models.BucketDay
	}

	limit := defaultTrendLimit

	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			response.RespondBadRequest(w, "limit must be a positive integer")
			return
		}

		limit = parsed
	}

	points, err := h.analytics.AnalyzeTrends(r.Context(), bucketSize, limit)
	if err != nil {
		if errors.Is(err, apperrors.ErrValidation) {
			response.RespondBadRequest(w, err.Error())
			return
		}

		response.RespondInternalServerError(w, "An unexpected error occurred")
		return
	}

	response.RespondJSON(w, http.StatusOK, map[string]any{"data": points})
}

// QualityDistribution handles GET /v1/analytics/quality-distribution.
func (h *AnalyticsHandler) QualityDistribution(w http.ResponseWriter, r *http.Request) {
	var userID *string
	if v := r.URL.Query().Get("user_id"); v != "" {
		userID = &v
	}

	dist, err := h.analytics.QualityDistribution(r.Context(), userID)
	if err != nil {
		response.RespondInternalServerError(w, "An unexpected error occurred")
		return
	}

	response.RespondJSON(w, http.StatusOK, dist)
}
