package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feedbackloop/insight/internal/models"
	"github.com/feedbackloop/insight/internal/service"
)

type mockThemeReader struct {
	clusters []models.ThemeCluster
	err      error
}

func (m *mockThemeReader) List(_ context.Context) ([]models.ThemeCluster, error) {
	return m.clusters, m.err
}

type mockJobInserter struct {
	result   *rivertype.JobInsertResult
	err      error
	lastArgs river.JobArgs
}

func (m *mockJobInserter) Insert(
	_ context.Context, args river.JobArgs, _ *river.InsertOpts,
) (*rivertype.JobInsertResult, error) {
	m.lastArgs = args

	return m.result, m.err
}

func TestThemesHandler_List(t *testing.T) {
	t.Run("returns stored clusters", func(t *testing.T) {
		reader := &mockThemeReader{clusters: []models.ThemeCluster{
			{Label: "export, crash, error (negative)", MemberCount: 12},
			{Label: "love, great, helpful (positive)", MemberCount: 7},
		}}
		handler := NewThemesHandler(reader, &mockJobInserter{}, 5, 40)

		req := httptest.NewRequest(http.MethodGet, "/v1/themes", nil)
		rec := httptest.NewRecorder()

		handler.List(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "export, crash, error (negative)")
	})

	t.Run("empty set is a 200 with no data", func(t *testing.T) {
		handler := NewThemesHandler(&mockThemeReader{}, &mockJobInserter{}, 5, 40)

		req := httptest.NewRequest(http.MethodGet, "/v1/themes", nil)
		rec := httptest.NewRecorder()

		handler.List(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("maps store errors to 500", func(t *testing.T) {
		handler := NewThemesHandler(&mockThemeReader{err: errors.New("connection refused")},
			&mockJobInserter{}, 5, 40)

		req := httptest.NewRequest(http.MethodGet, "/v1/themes", nil)
		rec := httptest.NewRecorder()

		handler.List(rec, req)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestThemesHandler_Rebuild(t *testing.T) {
	t.Run("enqueues a clustering job with configured defaults", func(t *testing.T) {
		inserter := &mockJobInserter{result: &rivertype.JobInsertResult{}}
		handler := NewThemesHandler(&mockThemeReader{}, inserter, 6, 50)

		req := httptest.NewRequest(http.MethodPost, "/v1/themes/rebuild", nil)
		rec := httptest.NewRecorder()

		handler.Rebuild(rec, req)

		assert.Equal(t, http.StatusAccepted, rec.Code)
		assert.Contains(t, rec.Body.String(), `"enqueued":true`)

		args, ok := inserter.lastArgs.(service.ThemeClusteringArgs)
		require.True(t, ok)
		assert.Equal(t, 6, args.K)
		assert.Equal(t, 50, args.MinQuality)
	})

	t.Run("reports an already scheduled run", func(t *testing.T) {
		inserter := &mockJobInserter{result: &rivertype.JobInsertResult{UniqueSkippedAsDuplicate: true}}
		handler := NewThemesHandler(&mockThemeReader{}, inserter, 5, 40)

		req := httptest.NewRequest(http.MethodPost, "/v1/themes/rebuild", nil)
		rec := httptest.NewRecorder()

		handler.Rebuild(rec, req)

		assert.Equal(t, http.StatusAccepted, rec.Code)
		assert.Contains(t, rec.Body.String(), `"already_scheduled":true`)
	})

	t.Run("maps insert errors to 500", func(t *testing.T) {
		inserter := &mockJobInserter{err: errors.New("queue unavailable")}
		handler := NewThemesHandler(&mockThemeReader{}, inserter, 5, 40)

		req := httptest.NewRequest(http.MethodPost, "/v1/themes/rebuild", nil)
		rec := httptest.NewRecorder()

		handler.Rebuild(rec, req)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}
