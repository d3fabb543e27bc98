package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strconv"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"github.com/getzep/reviewpulse/pkg/models"
	"github.com/getzep/reviewpulse/pkg/store"
)

var _ models.SourceStore = &SourceStore{}

// SourceStore reads pending rows from source_table and marks them processed.
type SourceStore struct {
	db *bun.DB
}

func NewSourceStore(db *bun.DB) (*SourceStore, error) {
	if db == nil {
		return nil, errors.New("db cannot be nil")
	}
	return &SourceStore{db: db}, nil
}

// Begin opens the transaction that the whole run reads and updates through.
func (s *SourceStore) Begin(ctx context.Context) (models.SourceSession, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, store.NewStoreError("failed to begin source transaction", err)
	}
	return &sourceSession{tx: tx}, nil
}

type sourceSession struct {
	tx bun.Tx
}

func (s *sourceSession) FetchPending(ctx context.Context) ([]models.SourceRecord, error) {
	var rows []SourceRecordSchema
	err := s.tx.NewSelect().
		Model(&rows).
		Column("id", "text_column").
		Where("processed = ?", false).
		Order("id ASC").
		Scan(ctx)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, store.NewStoreError("failed to fetch pending records", err)
	}

	records := make([]models.SourceRecord, len(rows))
	for i, r := range rows {
		records[i] = models.SourceRecord{
			ID:   strconv.FormatInt(r.ID, 10),
			Text: r.TextColumn,
		}
	}
	return records, nil
}

// MarkProcessed binds ids as a single array parameter rather than interpolating a list.
func (s *sourceSession) MarkProcessed(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	keys := make([]int64, len(ids))
	for i, id := range ids {
		key, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			return store.NewStoreError("invalid source record id "+strconv.Quote(id), err)
		}
		keys[i] = key
	}

	_, err := s.tx.NewUpdate().
		Model((*SourceRecordSchema)(nil)).
		Set("processed = ?", true).
		Where("id = ANY(?)", pgdialect.Array(keys)).
		Exec(ctx)
	if err != nil {
		return store.NewStoreError("failed to mark records processed", err)
	}
	return nil
}

func (s *sourceSession) Commit() error {
	if err := s.tx.Commit(); err != nil {
		return store.NewStoreError("failed to commit source transaction", err)
	}
	return nil
}

func (s *sourceSession) Rollback() error {
	return rollback(s.tx)
}

// rollback ignores sql.ErrTxDone so it can be deferred after a commit.
func rollback(tx bun.Tx) error {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return store.NewStoreError("failed to rollback transaction", err)
	}
	return nil
}
