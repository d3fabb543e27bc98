package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/getzep/reviewpulse/config"
	"github.com/getzep/reviewpulse/internal"
	"github.com/getzep/reviewpulse/pkg/batch"
	"github.com/getzep/reviewpulse/pkg/metrics"
	"github.com/getzep/reviewpulse/pkg/models"
)

var log = internal.GetLogger()

// State is a step of a pipeline run.
type State string

const (
	StateIdle        State = "idle"
	StateFetching    State = "fetching"
	StateNoWork      State = "no_work"
	StateAnnotating  State = "annotating"
	StatePersisting  State = "persisting"
	StateMarkingDone State = "marking_done"
	StateDone        State = "done"
	StateFailed      State = "failed"
)

// Report summarizes a run. State is StateDone, StateNoWork or StateFailed once Run returns.
type Report struct {
	RunID     string
	State     State
	Fetched   int
	Batches   int
	Annotated int
	Persisted int
	Marked    int
	Duration  time.Duration
}

// Pipeline moves pending source records through the sentiment service into the
// destination store. A Pipeline serves one run at a time; callers must not run two
// pipelines over the same source store concurrently.
type Pipeline struct {
	cfg         *config.Config
	source      models.SourceStore
	destination models.DestinationStore
	annotator   models.Annotator
}

func NewPipeline(
	cfg *config.Config,
	source models.SourceStore,
	destination models.DestinationStore,
	annotator models.Annotator,
) *Pipeline {
	return &Pipeline{
		cfg:         cfg,
		source:      source,
		destination: destination,
		annotator:   annotator,
	}
}

// NewPipelineFromAppState wires a Pipeline from the application's stores and annotator.
func NewPipelineFromAppState(appState *models.AppState) *Pipeline {
	return NewPipeline(
		appState.Config,
		appState.SourceStore,
		appState.DestinationStore,
		appState.Annotator,
	)
}

// Run performs a single pass. Either every fetched record is marked processed and
// every result committed, or neither store is changed.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	r := &run{
		Pipeline: p,
		report:   &Report{RunID: uuid.NewString(), State: StateIdle},
		started:  time.Now(),
	}
	r.log = log.WithField("run_id", r.report.RunID)

	err := r.execute(ctx)
	r.report.Duration = time.Since(r.started)
	metrics.PipelineRunDuration.Observe(r.report.Duration.Seconds())

	if err != nil {
		r.report.State = StateFailed
		kind := ErrorKind(err)
		metrics.PipelineRunsTotal.WithLabelValues(kind).Inc()
		r.log.WithFields(logrus.Fields{
			"phase": phaseOf(err),
			"kind":  kind,
		}).WithError(err).Error("pipeline run failed")
		return r.report, err
	}

	metrics.PipelineRunsTotal.WithLabelValues(string(r.report.State)).Inc()
	return r.report, nil
}

type run struct {
	*Pipeline
	report  *Report
	started time.Time
	log     *logrus.Entry
}

func (r *run) transition(s State) {
	r.log.Debugf("pipeline %s -> %s", r.report.State, s)
	r.report.State = s
}

func (r *run) execute(ctx context.Context) error {
	if err := config.ValidatePipeline(r.cfg); err != nil {
		return &PhaseError{Phase: StateIdle, Err: err}
	}
	if r.source == nil || r.destination == nil || r.annotator == nil {
		return &PhaseError{Phase: StateIdle, Err: ErrNotWired}
	}

	sourceSession, err := r.source.Begin(ctx)
	if err != nil {
		return &PhaseError{Phase: StateIdle, Err: err}
	}
	defer r.release("source", sourceSession.Rollback)

	destSession, err := r.destination.Begin(ctx)
	if err != nil {
		return &PhaseError{Phase: StateIdle, Err: err}
	}
	defer r.release("destination", destSession.Rollback)

	r.transition(StateFetching)
	records, err := sourceSession.FetchPending(ctx)
	if err != nil {
		return &PhaseError{Phase: StateFetching, Err: err}
	}
	r.report.Fetched = len(records)
	metrics.PipelineRecordsTotal.WithLabelValues("fetched").Add(float64(len(records)))

	if len(records) == 0 {
		r.transition(StateNoWork)
		r.log.Info("no new data to process")
		return nil
	}

	r.transition(StateAnnotating)
	results, err := r.annotate(ctx, records)
	if err != nil {
		return &PhaseError{Phase: StateAnnotating, Err: err}
	}
	r.report.Annotated = len(results)
	metrics.PipelineRecordsTotal.WithLabelValues("annotated").Add(float64(len(results)))

	r.transition(StatePersisting)
	for _, result := range results {
		if err := destSession.Insert(ctx, models.NewPersistedAnnotation(result)); err != nil {
			return &PhaseError{Phase: StatePersisting, Err: err}
		}
	}
	r.report.Persisted = len(results)

	// Every fetched id is marked, including records the service left out of its
	// results. Those records are never retried.
	r.transition(StateMarkingDone)
	ids := make([]string, len(records))
	for i, rec := range records {
		ids[i] = rec.ID
	}
	if err := sourceSession.MarkProcessed(ctx, ids); err != nil {
		return &PhaseError{Phase: StateMarkingDone, Err: err}
	}

	// Both sessions hold all their writes at this point. Only a failure between the
	// two commits leaves results committed for records still pending.
	if err := destSession.Commit(); err != nil {
		return &PhaseError{Phase: StatePersisting, Err: err}
	}
	metrics.PipelineRecordsTotal.WithLabelValues("persisted").Add(float64(len(results)))
	if err := sourceSession.Commit(); err != nil {
		r.log.WithError(err).Error("results committed but source records were not marked processed")
		return &PhaseError{Phase: StateMarkingDone, Err: err}
	}
	r.report.Marked = len(ids)
	metrics.PipelineRecordsTotal.WithLabelValues("marked").Add(float64(len(ids)))

	if dropped := len(ids) - len(results); dropped > 0 {
		r.log.WithField("dropped", dropped).Warn("records marked processed without a result")
	}

	r.transition(StateDone)
	r.log.WithFields(logrus.Fields{
		"fetched":   r.report.Fetched,
		"batches":   r.report.Batches,
		"annotated": r.report.Annotated,
		"duration":  time.Since(r.started).String(),
	}).Infof("sentiment analysis complete for %d records", r.report.Annotated)
	return nil
}

// annotate sends the records in consecutive batches, one call at a time, and stops
// at the first failure.
func (r *run) annotate(
	ctx context.Context,
	records []models.SourceRecord,
) ([]models.AnnotationResult, error) {
	requests := models.NewAnnotationRequests(records, r.cfg.Analysis.Language)
	batcher, err := batch.New(requests, r.cfg.Analysis.BatchSize)
	if err != nil {
		return nil, err
	}
	r.report.Batches = batcher.Count()

	results := make([]models.AnnotationResult, 0, len(requests))
	for n := 1; ; n++ {
		chunk, ok := batcher.Next()
		if !ok {
			break
		}
		batchResults, err := r.annotator.Annotate(ctx, chunk)
		if err != nil {
			metrics.AnnotationCallsTotal.WithLabelValues("failure").Inc()
			return nil, fmt.Errorf("batch %d of %d: %w", n, r.report.Batches, err)
		}
		metrics.AnnotationCallsTotal.WithLabelValues("success").Inc()
		r.log.WithFields(logrus.Fields{
			"batch":   n,
			"size":    len(chunk),
			"results": len(batchResults),
		}).Debug("batch annotated")
		results = append(results, batchResults...)
	}
	return results, nil
}

func (r *run) release(name string, rollback func() error) {
	if err := rollback(); err != nil {
		r.log.WithError(err).Errorf("failed to roll back %s session", name)
	}
}

// phaseOf returns the state a failed run was in, or StateIdle if err carries none.
func phaseOf(err error) State {
	var phaseErr *PhaseError
	if errors.As(err, &phaseErr) {
		return phaseErr.Phase
	}
	return StateIdle
}
