package handlers

import (
	"context"
	"net/http"

	"github.com/feedbackloop/insight/internal/api/response"
	"github.com/feedbackloop/insight/internal/models"
	"github.com/feedbackloop/insight/internal/service"
)

// ThemeReader lists the stored theme cluster set.
type ThemeReader interface {
	List(ctx context.Context) ([]models.ThemeCluster, error)
}

// ThemesHandler serves stored theme clusters and accepts rebuild requests.
type ThemesHandler struct {
	reader     ThemeReader
	inserter   service.ClusteringJobInserter
	k          int
	minQuality int
}

// NewThemesHandler creates a new themes handler. k and minQuality are the
// configured defaults applied to rebuild requests.
func NewThemesHandler(reader ThemeReader, inserter service.ClusteringJobInserter, k, minQuality int) *ThemesHandler {
	return &ThemesHandler{reader: reader, inserter: inserter, k: k, minQuality: minQuality}
}

// List handles GET /v1/themes.
func (h *ThemesHandler) List(w http.ResponseWriter, r *http.Request) {
	clusters, err := h.reader.List(r.Context())
	if err != nil {
		response.RespondInternalServerError(w, "An unexpected error occurred")
		return
	}

	list := models.ThemeClusterList{Data: clusters}
	if len(clusters) > 0 {
		list.GeneratedAt = &clusters[0].GeneratedAt
	}

	response.RespondJSON(w, http.StatusOK, list)
}

// Rebuild handles POST /v1/themes/rebuild. The run happens asynchronously;
// the job's unique options collapse duplicate requests within the period.
func (h *ThemesHandler) Rebuild(w http.ResponseWriter, r *http.Request) {
	result, err := h.inserter.Insert(r.Context(), service.ThemeClusteringArgs{
		K:          h.k,
		MinQuality: h.minQuality,
	}, nil)
	if err != nil {
		response.RespondInternalServerError(w, "Failed to enqueue clustering run")
		return
	}

	response.RespondJSON(w, http.StatusAccepted, map[string]any{
		"enqueued":          !result.UniqueSkippedAsDuplicate,
		"already_scheduled": result.UniqueSkippedAsDuplicate,
	})
}
