package testutils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/getzep/reviewpulse/pkg/models"
)

// SentimentServer imitates the text analytics sentiment endpoint. By default every
// document is annotated; the exported fields inject failures and omissions.
type SentimentServer struct {
	*httptest.Server

	mu      sync.Mutex
	batches [][]models.AnnotationRequest

	// FailOnCall makes the nth call (1-based) answer with FailStatus.
	FailOnCall int
	FailStatus int
	// Omit lists document ids the service silently leaves out of its results.
	Omit map[string]bool
	// Reject lists document ids reported in the errors array instead of the results.
	Reject map[string]bool
	// OnCall, when set, runs with the 1-based call number before the response is written.
	OnCall func(call int)
}

func NewSentimentServer(t *testing.T) *SentimentServer {
	t.Helper()
	s := &SentimentServer{
		FailStatus: http.StatusServiceUnavailable,
		Omit:       make(map[string]bool),
		Reject:     make(map[string]bool),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.Close)
	return s
}

// Batches returns the document batches received so far, in call order.
func (s *SentimentServer) Batches() [][]models.AnnotationRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]models.AnnotationRequest(nil), s.batches...)
}

func (s *SentimentServer) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.batches)
}

func (s *SentimentServer) handle(w http.ResponseWriter, r *http.Request) {
	var req models.SentimentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.batches = append(s.batches, req.Documents)
	call := len(s.batches)
	s.mu.Unlock()

	if s.OnCall != nil {
		s.OnCall(call)
	}

	if s.FailOnCall > 0 && call == s.FailOnCall {
		w.WriteHeader(s.FailStatus)
		_, _ = w.Write([]byte(`{"error":{"code":"ServiceUnavailable","message":"try again later"}}`))
		return
	}

	resp := models.SentimentResponse{
		Documents: []models.AnnotationResult{},
		Errors:    []models.AnnotationError{},
	}
	for _, doc := range req.Documents {
		switch {
		case s.Omit[doc.ID]:
		case s.Reject[doc.ID]:
			resp.Errors = append(resp.Errors, models.AnnotationError{
				ID:    doc.ID,
				Error: map[string]string{"code": "InvalidDocument"},
			})
		default:
			resp.Documents = append(resp.Documents, Annotation(doc))
		}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// Annotation returns the result SentimentServer produces for doc. Texts containing
// "bad" are negative, "good" positive, anything else neutral.
func Annotation(doc models.AnnotationRequest) models.AnnotationResult {
	text := strings.ToLower(doc.Text)
	result := models.AnnotationResult{ID: doc.ID}
	switch {
	case strings.Contains(text, "bad"):
		result.Sentiment = models.SentimentNegative
		result.ConfidenceScores = models.ConfidenceScores{Positive: 0.05, Neutral: 0.15, Negative: 0.8}
	case strings.Contains(text, "good"):
		result.Sentiment = models.SentimentPositive
		result.ConfidenceScores = models.ConfidenceScores{Positive: 0.9, Neutral: 0.08, Negative: 0.02}
	default:
		result.Sentiment = models.SentimentNeutral
		result.ConfidenceScores = models.ConfidenceScores{Positive: 0.2, Neutral: 0.7, Negative: 0.1}
	}
	return result
}

// FakeRecords returns n records with ids "1".."n" and random review text.
func FakeRecords(n int) []models.SourceRecord {
	records := make([]models.SourceRecord, n)
	for i := range records {
		records[i] = models.SourceRecord{
			ID:   strconv.Itoa(i + 1),
			Text: gofakeit.Sentence(12),
		}
	}
	return records
}
