package handlers

import (
	"context"
	"net/http"

	"github.com/feedbackloop/insight/internal/api/response"
	"github.com/feedbackloop/insight/internal/models"
)

// InsightsProvider computes per-user scores and behavioral insights.
type InsightsProvider interface {
	CalculateScore(ctx context.Context, userID string) (int, error)
	CalculateConversationScore(ctx context.Context, userID, conversationID string) (int, error)
	UserInsights(ctx context.Context, userID string) (*models.UserInsights, error)
}

// InsightsHandler handles per-user score and insight requests.
type InsightsHandler struct {
	insights InsightsProvider
}

// NewInsightsHandler creates a new insights handler.
func NewInsightsHandler(insights InsightsProvider) *InsightsHandler {
	return &InsightsHandler{insights: insights}
}

// Score handles GET /v1/users/{id}/score. A conversation_id query parameter
// scopes the score to one conversation.
func (h *InsightsHandler) Score(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")
	if userID == "" {
		response.RespondBadRequest(w, "user id is required")
		return
	}

	var (
		score int
		err   error
	)

	if conversationID := r.URL.Query().Get("conversation_id"); conversationID != "" {
		score, err = h.insights.CalculateConversationScore(r.Context(), userID, conversationID)
	} else {
		score, err = h.insights.CalculateScore(r.Context(), userID)
	}

	if err != nil {
		response.RespondInternalServerError(w, "An unexpected error occurred")
		return
	}

	response.RespondJSON(w, http.StatusOK, map[string]any{
		"user_id": userID,
		"score":   score,
	})
}

// Insights handles GET /v1/users/{id}/insights.
func (h *InsightsHandler) Insights(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")
	if userID == "" {
		response.RespondBadRequest(w, "user id is required")
		return
	}

	insights, err := h.insights.UserInsights(r.Context(), userID)
	if err != nil {
		response.RespondInternalServerError(w, "An unexpected error occurred")
		return
	}

	response.RespondJSON(w, http.StatusOK, insights)
}
