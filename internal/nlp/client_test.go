package nlp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feedbackloop/insight/internal/models"
)

func newTestClient(url string) *Client {
	return NewClient(ClientOptions{
		BaseURL:           url,
		Timeout:           2 * time.Second,
		RetryMax:          1,
		RequestsPerSecond: 1000,
	})
}

func TestClient_Classify(t *testing.T) {
	t.Run("returns the service label", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/v1/classify", r.URL.Path)

			var req classifyRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "loved the new editor", req.Text)

			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(classifyResponse{Sentiment: models.SentimentPositive})
		}))
		defer srv.Close()

		sentiment, err := newTestClient(srv.URL).Classify(context.Background(), "loved the new editor")

		require.NoError(t, err)
		assert.Equal(t, models.SentimentPositive, sentiment)
	})

	t.Run("empty input is rejected", func(t *testing.T) {
		_, err := newTestClient("http://localhost:0").Classify(context.Background(), "")
		assert.ErrorIs(t, err, ErrEmptyInput)
	})

	t.Run("server error is a service failure", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
		}))
		defer srv.Close()

		sentiment, err := newTestClient(srv.URL).Classify(context.Background(), "anything")

		assert.Equal(t, models.SentimentUnknown, sentiment)
		assert.ErrorIs(t, err, ErrServiceFailure)
	})

	t.Run("unparseable body is malformed", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("not json"))
		}))
		defer srv.Close()

		_, err := newTestClient(srv.URL).Classify(context.Background(), "anything")
		assert.ErrorIs(t, err, ErrMalformedResponse)
	})

	t.Run("label outside the sentiment set is malformed", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"sentiment":"ecstatic"}`))
		}))
		defer srv.Close()

		_, err := newTestClient(srv.URL).Classify(context.Background(), "anything")
		assert.ErrorIs(t, err, ErrMalformedResponse)
	})

	t.Run("legitimate unknown label is not an error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"sentiment":"unknown"}`))
		}))
		defer srv.Close()

		sentiment, err := newTestClient(srv.URL).Classify(context.Background(), "anything")

		require.NoError(t, err)
		assert.Equal(t, models.SentimentUnknown, sentiment)
	})

	t.Run("timeout degrades to service failure", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			time.Sleep(200 * time.Millisecond)
			_, _ = w.Write([]byte(`{"sentiment":"neutral"}`))
		}))
		defer srv.Close()

		client := NewClient(ClientOptions{
			BaseURL:           srv.URL,
			Timeout:           50 * time.Millisecond,
			RetryMax:          1,
			RequestsPerSecond: 1000,
		})

		_, err := client.Classify(context.Background(), "anything")
		assert.ErrorIs(t, err, ErrServiceFailure)
	})
}
