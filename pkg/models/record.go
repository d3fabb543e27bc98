package models

// SourceRecord is a pending row read from the source store.
type SourceRecord struct {
	ID   string
	Text string
}

// PersistedAnnotation is the subset of an AnnotationResult written to the destination store.
type PersistedAnnotation struct {
	RecordID           string
	Sentiment          Sentiment
	ConfidencePositive float64
}

// NewPersistedAnnotation projects a service result onto the destination row shape.
func NewPersistedAnnotation(r AnnotationResult) PersistedAnnotation {
	return PersistedAnnotation{
		RecordID:           r.ID,
		Sentiment:          r.Sentiment,
		ConfidencePositive: r.ConfidenceScores.Positive,
	}
}

// NewAnnotationRequests projects source records onto the wire shape, preserving order.
func NewAnnotationRequests(records []SourceRecord, language string) []AnnotationRequest {
	requests := make([]AnnotationRequest, len(records))
	for i, r := range records {
		requests[i] = AnnotationRequest{
			ID:       r.ID,
			Language: language,
			Text:     r.Text,
		}
	}
	return requests
}
