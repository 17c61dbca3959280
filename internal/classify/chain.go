package classify

import (
	"context"

	"github.com/feedbackloop/insight/internal/models"
)

// StageFunc classifies a message, returning unknown when inconclusive.
// Stages share one signature so the chain stays a flat ordered list.
type StageFunc func(ctx context.Context, text string) (models.Sentiment, error)

// Stage pairs a classifier function with the identity and confidence recorded
// on records it classifies.
type Stage struct {
	Name       models.Stage
	Confidence float64
	Classify   StageFunc
}

// Chain is an ordered list of classification stages evaluated with
// short-circuiting: the first non-unknown result wins.
type Chain struct {
	stages []Stage
}

// Outcome is the result of running the chain over one message.
type Outcome struct {
	Sentiment  models.Sentiment
	Stage      models.Stage
	Confidence float64
	// Err carries the last stage error (e.g. NLP fallback failure). The
	// sentiment is still valid: errors degrade to unknown, they never abort.
	Err error
}

// NewChain builds the default chain: phrase matching then pattern
// classification. The NLP fallback, when enabled, is appended by the caller.
func NewChain(matcher *PhraseMatcher) *Chain {
	return &Chain{stages: []Stage{
		{
			Name:       models.StagePhrase,
			Confidence: models.ConfidencePhrase,
			Classify: func(_ context.Context, text string) (models.Sentiment, error) {
				return matcher.Match(text), nil
			},
		},
		{
			Name:       models.StagePattern,
			Confidence: models.ConfidencePattern,
			Classify: func(_ context.Context, text string) (models.Sentiment, error) {
				return MatchPattern(text), nil
			},
		},
	}}
}

// Append adds a stage to the end of the chain and returns the chain.
func (c *Chain) Append(stage Stage) *Chain {
	c.stages = append(c.stages, stage)
	return c
}

// Run evaluates stages in order and returns the first conclusive outcome.
// When every stage is inconclusive the outcome is unknown, attributed to the
// last stage that ran. A stage error is recorded and treated as unknown so the
// chain degrades instead of aborting.
func (c *Chain) Run(ctx context.Context, text string) Outcome {
	out := Outcome{Sentiment: models.SentimentUnknown}

	for _, stage := range c.stages {
		sentiment, err := stage.Classify(ctx, text)
		out.Stage = stage.Name
		out.Confidence = stage.Confidence

		if err != nil {
			out.Err = err
			continue
		}

		if sentiment != models.SentimentUnknown {
			out.Sentiment = sentiment
			out.Err = nil
			return out
		}
	}

	out.Confidence = 0

	return out
}
