package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/uptrace/bun"

	"github.com/getzep/reviewpulse/config"
	"github.com/getzep/reviewpulse/pkg/auth"
	"github.com/getzep/reviewpulse/pkg/models"
	"github.com/getzep/reviewpulse/pkg/reviews"
	"github.com/getzep/reviewpulse/pkg/server"
	"github.com/getzep/reviewpulse/pkg/store/postgres"
	"github.com/getzep/reviewpulse/pkg/textanalytics"
)

const ShutdownTimeout = 10 * time.Second

// run is the entrypoint for the reviewpulse server
func run() {
	cfg := loadConfig()

	log.Infof("Starting reviewpulse server version %s", config.VersionString)

	appState, closeStores, err := NewAppState(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer closeStores()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var schedulerDone <-chan struct{}
	if cfg.Reviews.Enabled {
		schedulerDone = reviews.NewScheduler(appState.ReviewFetcher, cfg.Reviews.Interval).Start(ctx)
	} else {
		log.Debug("review fetcher disabled")
	}

	srv, err := server.Create(appState)
	if err != nil {
		log.Fatal(err)
	}
	setupShutdownHandler(ctx, srv)

	log.Infof("Listening on: %s", srv.Addr)
	err = srv.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}

	if schedulerDone != nil {
		<-schedulerDone
	}
}

// NewAppState creates an AppState struct from the config file / ENV. Stores are only
// opened for configured DSNs; a pipeline run reports the missing ones. The returned
// func closes the opened database handles.
func NewAppState(cfg *config.Config) (*models.AppState, func(), error) {
	appState := &models.AppState{
		Config:        cfg,
		Annotator:     textanalytics.NewClientFromConfig(cfg),
		ReviewFetcher: reviews.NewFetcher(cfg.Reviews, nil),
	}

	var dbs []*bun.DB
	closeStores := func() {
		for _, db := range dbs {
			if err := db.Close(); err != nil {
				log.Errorf("Error closing database connection: %v", err)
			}
		}
	}

	if dsn := cfg.SourceStore.Postgres.DSN; dsn != "" {
		db, err := openDB(dsn)
		if err != nil {
			return nil, nil, fmt.Errorf("source store: %w", err)
		}
		dbs = append(dbs, db)
		sourceStore, err := postgres.NewSourceStore(db)
		if err != nil {
			closeStores()
			return nil, nil, err
		}
		appState.SourceStore = sourceStore
	}

	if dsn := cfg.DestinationStore.Postgres.DSN; dsn != "" {
		db, err := openDB(dsn)
		if err != nil {
			closeStores()
			return nil, nil, fmt.Errorf("destination store: %w", err)
		}
		dbs = append(dbs, db)
		destinationStore, err := postgres.NewDestinationStore(db)
		if err != nil {
			closeStores()
			return nil, nil, err
		}
		appState.DestinationStore = destinationStore
	}

	return appState, closeStores, nil
}

func openDB(dsn string) (*bun.DB, error) {
	db, err := postgres.NewPostgresConn(dsn)
	if err != nil {
		return nil, err
	}
	if log.IsLevelEnabled(logrus.DebugLevel) {
		postgres.EnableDebugLogging(db)
	}
	return db, nil
}

// migrate waits for both databases and creates their tables.
func migrate(ctx context.Context, cfg *config.Config) error {
	if err := config.ValidatePipeline(cfg); err != nil {
		return err
	}

	steps := []struct {
		name   string
		dsn    string
		create func(context.Context, *bun.DB) error
	}{
		{"source", cfg.SourceStore.Postgres.DSN, postgres.CreateSourceSchema},
		{"destination", cfg.DestinationStore.Postgres.DSN, postgres.CreateDestinationSchema},
	}
	for _, step := range steps {
		db, err := openDB(step.dsn)
		if err != nil {
			return fmt.Errorf("%s store: %w", step.name, err)
		}
		err = postgres.Ping(ctx, db, cfg.Store.ConnectAttempts)
		if err == nil {
			err = step.create(ctx, db)
		}
		if closeErr := db.Close(); closeErr != nil {
			log.Errorf("Error closing %s database connection: %v", step.name, closeErr)
		}
		if err != nil {
			return fmt.Errorf("%s store: %w", step.name, err)
		}
		log.Infof("%s store schema is up to date", step.name)
	}
	return nil
}

// handleCLIOptions handles CLI options that don't require the server to run
func handleCLIOptions(cfg *config.Config) {
	if showVersion {
		fmt.Println(config.VersionString)
		os.Exit(0)
	}
	if dumpConfig {
		out, err := config.Dump(cfg)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Print(string(out))
		os.Exit(0)
	}
	if generateKey {
		token, err := auth.GenerateJWT(cfg)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(token)
		os.Exit(0)
	}
}

// setupShutdownHandler shuts the server down once ctx is cancelled by SIGINT or SIGTERM.
// In-flight requests get ShutdownTimeout to finish.
func setupShutdownHandler(ctx context.Context, srv *http.Server) {
	go func() {
		<-ctx.Done()
		log.Info("Shutting down reviewpulse server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Errorf("Error shutting down server: %v", err)
		}
	}()
}
