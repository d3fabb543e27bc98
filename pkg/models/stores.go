package models

import "context"

// SourceStore hands out a session over the table of records awaiting annotation.
type SourceStore interface {
	Begin(ctx context.Context) (SourceSession, error)
}

// SourceSession is bound to one transaction. Rollback after Commit is a no-op.
type SourceSession interface {
	// FetchPending returns every record whose processed flag is false.
	FetchPending(ctx context.Context) ([]SourceRecord, error)
	// MarkProcessed flips the processed flag for exactly the given ids.
	MarkProcessed(ctx context.Context, ids []string) error
	Commit() error
	Rollback() error
}

// DestinationStore hands out a session over the sentiment results table.
type DestinationStore interface {
	Begin(ctx context.Context) (DestinationSession, error)
}

// DestinationSession is bound to one transaction. Rollback after Commit is a no-op.
type DestinationSession interface {
	Insert(ctx context.Context, annotation PersistedAnnotation) error
	Commit() error
	Rollback() error
}

// Annotator sends one batch to the analysis service and returns its results.
type Annotator interface {
	Annotate(ctx context.Context, batch []AnnotationRequest) ([]AnnotationResult, error)
}

// ReviewFetcher retrieves the latest hotel reviews as raw JSON.
type ReviewFetcher interface {
	Fetch(ctx context.Context) ([]byte, error)
}
