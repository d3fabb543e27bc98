package models

// Sentiment is the document-level label returned by the analysis service.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
	SentimentMixed    Sentiment = "mixed"
)

// Valid reports whether s is one of the four labels the service produces.
func (s Sentiment) Valid() bool {
	switch s {
	case SentimentPositive, SentimentNeutral, SentimentNegative, SentimentMixed:
		return true
	}
	return false
}

type ConfidenceScores struct {
	Positive float64 `json:"positive"`
	Neutral  float64 `json:"neutral"`
	Negative float64 `json:"negative"`
}

type AnnotationRequest struct {
	ID       string `json:"id"`
	Language string `json:"language"`
	Text     string `json:"text"`
}

type AnnotationResult struct {
	ID               string           `json:"id"`
	Sentiment        Sentiment        `json:"sentiment"`
	ConfidenceScores ConfidenceScores `json:"confidenceScores"`
}

// AnnotationError is a per-document failure reported alongside successful results.
type AnnotationError struct {
	ID    string `json:"id"`
	Error any    `json:"error"`
}

type SentimentRequest struct {
	Documents []AnnotationRequest `json:"documents"`
}

// SentimentResponse is the body of a successful sentiment call.
type SentimentResponse struct {
	Documents []AnnotationResult `json:"documents"`
	Errors    []AnnotationError  `json:"errors"`
}
