// Package nlp provides a client for the external text-classification service
// used as the tertiary sentiment fallback.
package nlp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"

	"github.com/feedbackloop/insight/internal/models"
)

var (
	// ErrEmptyInput is returned when Classify is called with empty input.
	ErrEmptyInput = errors.New("nlp: input text is empty")
	// ErrServiceFailure is returned for transport errors and non-2xx responses.
	ErrServiceFailure = errors.New("nlp: classification service failure")
	// ErrMalformedResponse is returned when the service responds with an
	// unparseable body or a label outside the sentiment set.
	ErrMalformedResponse = errors.New("nlp: malformed classification response")
)

// validLabels is the set of labels the service may legitimately return.
var validLabels = map[models.Sentiment]struct{}{
	models.SentimentPositive: {},
	models.SentimentNegative: {},
	models.SentimentNeutral:  {},
	models.SentimentUnknown:  {},
}

// ClientOptions configures the NLP classification client.
type ClientOptions struct {
	// BaseURL is the classification service endpoint (required).
	BaseURL string
	// APIKey is sent as a bearer token when non-empty.
	APIKey string
	// Timeout is the per-request timeout (default: 10 seconds).
	Timeout time.Duration
	// RetryMax is the maximum number of retries (default: 2).
	RetryMax int
	// RequestsPerSecond caps the outbound call rate (default: 5).
	RequestsPerSecond float64
}

// Client calls the external classification service with bounded retries, a
// per-request timeout, and client-side rate limiting.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *retryablehttp.Client
	limiter    *rate.Limiter
	timeout    time.Duration
}

// NewClient creates an NLP classification client.
func NewClient(opts ClientOptions) *Client {
	if opts.Timeout == 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.RetryMax == 0 {
		opts.RetryMax = 2
	}
	if opts.RequestsPerSecond == 0 {
		opts.RequestsPerSecond = 5
	}

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = opts.RetryMax
	retryClient.HTTPClient.Timeout = opts.Timeout
	retryClient.Logger = nil // callers log at the pipeline layer

	return &Client{
		baseURL:    opts.BaseURL,
		apiKey:     opts.APIKey,
		httpClient: retryClient,
		limiter:    rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1),
		timeout:    opts.Timeout,
	}
}

type classifyRequest struct {
	Text string `json:"text"`
}

type classifyResponse struct {
	Sentiment models.Sentiment `json:"sentiment"`
}

// Classify sends the message text to the external service and returns the
// sentiment label. Timeouts, transport errors, non-2xx statuses, and malformed
// bodies are all surfaced as errors distinct from a legitimate unknown result;
// the caller decides whether to degrade to unknown.
func (c *Client) Classify(ctx context.Context, text string) (models.Sentiment, error) {
	if text == "" {
		return models.SentimentUnknown, ErrEmptyInput
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return models.SentimentUnknown, fmt.Errorf("%w: rate limiter: %w", ErrServiceFailure, err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(classifyRequest{Text: text})
	if err != nil {
		return models.SentimentUnknown, fmt.Errorf("marshal classify request: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/classify", bytes.NewReader(body))
	if err != nil {
		return models.SentimentUnknown, fmt.Errorf("create classify request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return models.SentimentUnknown, fmt.Errorf("%w: %w", ErrServiceFailure, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return models.SentimentUnknown, fmt.Errorf("%w: status %d", ErrServiceFailure, resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return models.SentimentUnknown, fmt.Errorf("%w: read body: %w", ErrMalformedResponse, err)
	}

	var parsed classifyResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return models.SentimentUnknown, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}

	if _, ok := validLabels[parsed.Sentiment]; !ok {
		return models.SentimentUnknown, fmt.Errorf("%w: label %q", ErrMalformedResponse, parsed.Sentiment)
	}

	return parsed.Sentiment, nil
}
