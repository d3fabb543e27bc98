//go:build integration

package postgres

import (
	"context"
	"os"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	"github.com/getzep/reviewpulse/pkg/models"
)

var testCtx = context.Background()

// newTestDB connects to REVIEWPULSE_TEST_DSN and recreates both tables. The same database
// plays source and destination.
func newTestDB(t *testing.T) *bun.DB {
	t.Helper()
	dsn := os.Getenv("REVIEWPULSE_TEST_DSN")
	if dsn == "" {
		t.Skip("REVIEWPULSE_TEST_DSN not set")
	}

	db, err := NewPostgresConn(dsn)
	require.NoError(t, err)
	require.NoError(t, Ping(testCtx, db, 3))
	t.Cleanup(func() { _ = db.Close() })

	cleanDB(t, db)
	require.NoError(t, CreateSourceSchema(testCtx, db))
	require.NoError(t, CreateDestinationSchema(testCtx, db))
	return db
}

func cleanDB(t *testing.T, db *bun.DB) {
	for _, schema := range []any{(*SourceRecordSchema)(nil), (*SentimentResultSchema)(nil)} {
		_, err := db.NewDropTable().
			Model(schema).
			Cascade().
			IfExists().
			Exec(testCtx)
		require.NoError(t, err)
	}
}

func seedSource(t *testing.T, db *bun.DB, texts ...string) []int64 {
	t.Helper()
	rows := make([]SourceRecordSchema, len(texts))
	for i, text := range texts {
		rows[i] = SourceRecordSchema{TextColumn: text}
	}
	_, err := db.NewInsert().Model(&rows).Exec(testCtx)
	require.NoError(t, err)

	ids := make([]int64, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}
	return ids
}

func TestSourceStoreFetchAndMark(t *testing.T) {
	db := newTestDB(t)
	ids := seedSource(t, db, "great stay", "noisy room", "fine")

	_, err := db.NewUpdate().
		Model((*SourceRecordSchema)(nil)).
		Set("processed = ?", true).
		Where("id = ?", ids[2]).
		Exec(testCtx)
	require.NoError(t, err)

	source, err := NewSourceStore(db)
	require.NoError(t, err)

	session, err := source.Begin(testCtx)
	require.NoError(t, err)
	defer func() { _ = session.Rollback() }()

	records, err := session.FetchPending(testCtx)
	require.NoError(t, err)
	assert.Equal(t, []models.SourceRecord{
		{ID: strconv.FormatInt(ids[0], 10), Text: "great stay"},
		{ID: strconv.FormatInt(ids[1], 10), Text: "noisy room"},
	}, records)

	require.NoError(t, session.MarkProcessed(testCtx, []string{records[0].ID, records[1].ID}))
	require.NoError(t, session.Commit())
	// rollback after commit is a no-op
	assert.NoError(t, session.Rollback())

	count, err := db.NewSelect().
		Model((*SourceRecordSchema)(nil)).
		Where("processed = ?", false).
		Count(testCtx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestSourceStoreRollbackLeavesRowsPending(t *testing.T) {
	db := newTestDB(t)
	ids := seedSource(t, db, "a", "b")

	source, err := NewSourceStore(db)
	require.NoError(t, err)
	session, err := source.Begin(testCtx)
	require.NoError(t, err)

	require.NoError(t, session.MarkProcessed(testCtx, []string{
		strconv.FormatInt(ids[0], 10),
		strconv.FormatInt(ids[1], 10),
	}))
	require.NoError(t, session.Rollback())

	count, err := db.NewSelect().
		Model((*SourceRecordSchema)(nil)).
		Where("processed = ?", false).
		Count(testCtx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestSourceStoreRejectsNonNumericID(t *testing.T) {
	db := newTestDB(t)
	source, err := NewSourceStore(db)
	require.NoError(t, err)
	session, err := source.Begin(testCtx)
	require.NoError(t, err)
	defer func() { _ = session.Rollback() }()

	err = session.MarkProcessed(testCtx, []string{"1); DROP TABLE source_table; --"})
	assert.Error(t, err)
}

func TestDestinationStoreCommitOnce(t *testing.T) {
	db := newTestDB(t)
	destination, err := NewDestinationStore(db)
	require.NoError(t, err)

	session, err := destination.Begin(testCtx)
	require.NoError(t, err)
	require.NoError(t, session.Insert(testCtx, models.PersistedAnnotation{
		RecordID:           "1",
		Sentiment:          models.SentimentPositive,
		ConfidencePositive: 0.91,
	}))
	require.NoError(t, session.Insert(testCtx, models.PersistedAnnotation{
		RecordID:           "2",
		Sentiment:          models.SentimentNegative,
		ConfidencePositive: 0.03,
	}))

	// not visible outside the transaction until commit
	count, err := db.NewSelect().Model((*SentimentResultSchema)(nil)).Count(testCtx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	require.NoError(t, session.Commit())

	var rows []SentimentResultSchema
	require.NoError(t, db.NewSelect().Model(&rows).Order("record_id ASC").Scan(testCtx))
	require.Len(t, rows, 2)
	assert.Equal(t, "positive", rows[0].Sentiment)
	assert.InDelta(t, 0.91, rows[0].Confidence, 1e-9)
	assert.False(t, rows[0].CreatedAt.IsZero())
}

func TestDestinationStoreRollback(t *testing.T) {
	db := newTestDB(t)
	destination, err := NewDestinationStore(db)
	require.NoError(t, err)

	session, err := destination.Begin(testCtx)
	require.NoError(t, err)
	require.NoError(t, session.Insert(testCtx, models.PersistedAnnotation{RecordID: "1", Sentiment: models.SentimentNeutral}))
	require.NoError(t, session.Rollback())

	count, err := db.NewSelect().Model((*SentimentResultSchema)(nil)).Count(testCtx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
