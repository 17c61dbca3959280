package models

// BucketSize selects the calendar period used for trend bucketing.
type BucketSize string

const (
	BucketDay   BucketSize = "day"
	BucketWeek  BucketSize = "week"
	BucketMonth BucketSize = "month"
	BucketYear  BucketSize = "year"
)

// ValidBucketSizes enumerates the accepted trend timeframes.
var ValidBucketSizes = map[BucketSize]struct{}{
	BucketDay:   {},
	BucketWeek:  {},
	BucketMonth: {},
	BucketYear:  {},
}

// TrendPoint is one time-bucketed row of the trend series. Computed on demand
// from the record store, never persisted.
type TrendPoint struct {
	Period          string            `json:"period"`
	Total           int               `json:"total"`
	SentimentCounts map[Sentiment]int `json:"sentiment_counts"`
	AvgQuality      float64           `json:"avg_quality"`
}

// QualityDistribution summarizes quality scores in three bands plus
// per-sentiment and overall statistics.
type QualityDistribution struct {
	Low           int                   `json:"low"`    // 0-30
	Medium        int                   `json:"medium"` // 31-70
	High          int                   `json:"high"`   // 71-100
	SentimentAvg  map[Sentiment]float64 `json:"sentiment_avg_quality"`
	OverallMean   float64               `json:"overall_mean"`
	OverallMedian float64               `json:"overall_median"`
	Total         int                   `json:"total"`
}

// FeedbackFrequency classifies how often a user submits feedback, by mean
// inter-submission interval.
type FeedbackFrequency string

const (
	FrequencyVeryFrequent     FeedbackFrequency = "very_frequent"
	FrequencyFrequent         FeedbackFrequency = "frequent"
	FrequencyRegular          FeedbackFrequency = "regular"
	FrequencyOccasional       FeedbackFrequency = "occasional"
	FrequencyInsufficientData FeedbackFrequency = "insufficient_data"
)

// ImprovementTrend classifies the direction of a user's feedback quality over time.
type ImprovementTrend string

const (
	TrendImproving        ImprovementTrend = "improving"
	TrendDeclining        ImprovementTrend = "declining"
	TrendStable           ImprovementTrend = "stable"
	TrendInsufficientData ImprovementTrend = "insufficient_data"
)

// UserInsights is the per-user behavioral report derived from the full history.
type UserInsights struct {
	UserID          string            `json:"user_id"`
	TotalFeedback   int               `json:"total_feedback"`
	SentimentCounts map[Sentiment]int `json:"sentiment_counts"`
	AvgQuality      float64           `json:"avg_quality"`
	Frequency       FeedbackFrequency `json:"frequency"`
	Trend           ImprovementTrend  `json:"improvement_trend"`
	TopIssues       []string          `json:"top_issues"`
}
