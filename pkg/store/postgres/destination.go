package postgres

import (
	"context"
	"errors"

	"github.com/uptrace/bun"

	"github.com/getzep/reviewpulse/pkg/models"
	"github.com/getzep/reviewpulse/pkg/store"
)

var _ models.DestinationStore = &DestinationStore{}

// DestinationStore writes annotations to sentiment_results.
type DestinationStore struct {
	db *bun.DB
}

func NewDestinationStore(db *bun.DB) (*DestinationStore, error) {
	if db == nil {
		return nil, errors.New("db cannot be nil")
	}
	return &DestinationStore{db: db}, nil
}

func (d *DestinationStore) Begin(ctx context.Context) (models.DestinationSession, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, store.NewStoreError("failed to begin destination transaction", err)
	}
	return &destinationSession{tx: tx}, nil
}

type destinationSession struct {
	tx bun.Tx
}

func (d *destinationSession) Insert(ctx context.Context, annotation models.PersistedAnnotation) error {
	row := SentimentResultSchema{
		RecordID:   annotation.RecordID,
		Sentiment:  string(annotation.Sentiment),
		Confidence: annotation.ConfidencePositive,
	}
	_, err := d.tx.NewInsert().
		Model(&row).
		Exec(ctx)
	if err != nil {
		return store.NewStoreError("failed to insert sentiment result", err)
	}
	return nil
}

func (d *destinationSession) Commit() error {
	if err := d.tx.Commit(); err != nil {
		return store.NewStoreError("failed to commit destination transaction", err)
	}
	return nil
}

func (d *destinationSession) Rollback() error {
	return rollback(d.tx)
}
