package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
	"github.com/oiime/logrusbun"
	"github.com/sirupsen/logrus"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bunotel"

	"github.com/getzep/reviewpulse/internal"
)

var log = internal.GetLogger()

const (
	DBName       = "reviewpulse"
	ReadTimeout  = 15 * time.Second
	WriteTimeout = 15 * time.Second
)

// SourceRecordSchema is a row awaiting annotation. Rows are created by upstream ingestion.
type SourceRecordSchema struct {
	bun.BaseModel `bun:"table:source_table,alias:st"`

	ID         int64  `bun:"id,pk,autoincrement"`
	TextColumn string `bun:"text_column,notnull"`
	Processed  bool   `bun:"processed,notnull,default:false"`
}

// SentimentResultSchema is one persisted annotation.
type SentimentResultSchema struct {
	bun.BaseModel `bun:"table:sentiment_results,alias:sr"`

	ID         int64     `bun:"id,pk,autoincrement"`
	RecordID   string    `bun:"record_id,notnull"`
	Sentiment  string    `bun:"sentiment,notnull"`
	Confidence float64   `bun:"confidence,notnull"`
	CreatedAt  time.Time `bun:"type:timestamptz,nullzero,notnull,default:current_timestamp"`
}

// NewPostgresConn returns a bun.DB for dsn. No connection is made until the first query.
func NewPostgresConn(dsn string) (*bun.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("dsn may not be empty")
	}
	connector, err := newConnector(dsn)
	if err != nil {
		return nil, err
	}
	// A run holds at most one transaction per store.
	sqldb := sql.OpenDB(connector)
	sqldb.SetMaxOpenConns(2)
	sqldb.SetMaxIdleConns(2)

	db := bun.NewDB(sqldb, pgdialect.New())
	db.AddQueryHook(bunotel.NewQueryHook(bunotel.WithDBName(DBName)))
	return db, nil
}

// newConnector converts pgdriver's panic on an unparsable DSN into an error.
func newConnector(dsn string) (connector *pgdriver.Connector, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("invalid postgres dsn: %v", r)
		}
	}()
	return pgdriver.NewConnector(
		pgdriver.WithDSN(dsn),
		pgdriver.WithReadTimeout(ReadTimeout),
		pgdriver.WithWriteTimeout(WriteTimeout),
	), nil
}

// EnableDebugLogging logs every query through the shared logger.
func EnableDebugLogging(db *bun.DB) {
	db.AddQueryHook(logrusbun.NewQueryHook(logrusbun.QueryHookOptions{
		LogSlow:         time.Second,
		Logger:          log,
		QueryLevel:      logrus.DebugLevel,
		ErrorLevel:      logrus.ErrorLevel,
		SlowLevel:       logrus.WarnLevel,
		MessageTemplate: "{{.Operation}}[{{.Duration}}]: {{.Query}}",
		ErrorTemplate:   "{{.Operation}}[{{.Duration}}]: {{.Query}}: {{.Error}}",
	}))
}

// Ping waits for the database to accept connections, retrying with backoff.
func Ping(ctx context.Context, db *bun.DB, attempts int) error {
	if attempts < 1 {
		attempts = 1
	}
	pingRetryPolicy := retrypolicy.Builder[any]().
		AbortOnErrors(context.Canceled, context.DeadlineExceeded).
		WithBackoff(500*time.Millisecond, 10*time.Second).
		WithMaxRetries(attempts - 1).
		OnRetry(func(e failsafe.ExecutionEvent[any]) {
			log.Warnf("database not ready, retrying (attempt %d): %v", e.Attempts(), e.LastError())
		}).
		Build()

	err := failsafe.Run(func() error {
		return db.PingContext(ctx)
	}, pingRetryPolicy)
	if err != nil {
		return fmt.Errorf("database unavailable: %w", err)
	}
	return nil
}

// CreateSourceSchema creates source_table if it does not exist.
func CreateSourceSchema(ctx context.Context, db *bun.DB) error {
	if err := createTable(ctx, db, (*SourceRecordSchema)(nil)); err != nil {
		return err
	}
	_, err := db.NewCreateIndex().
		Model((*SourceRecordSchema)(nil)).
		Index("source_table_processed_idx").
		Column("processed").
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("error creating index on source_table: %w", err)
	}
	return nil
}

// CreateDestinationSchema creates sentiment_results if it does not exist.
func CreateDestinationSchema(ctx context.Context, db *bun.DB) error {
	return createTable(ctx, db, (*SentimentResultSchema)(nil))
}

func createTable(ctx context.Context, db *bun.DB, schema any) error {
	_, err := db.NewCreateTable().
		Model(schema).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		// bun still trying to create indexes despite IfNotExists flag
		if strings.Contains(err.Error(), "already exists") {
			return nil
		}
		return fmt.Errorf("error creating table for schema %T: %w", schema, err)
	}
	return nil
}
