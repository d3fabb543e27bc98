package pipeline

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/getzep/reviewpulse/config"
	"github.com/getzep/reviewpulse/pkg/store"
	"github.com/getzep/reviewpulse/pkg/textanalytics"
)

var ErrNotWired = errors.New("pipeline stores or annotator are not configured")

// Error kinds, also used as metric labels.
const (
	KindConfiguration = "configuration"
	KindRemoteService = "remote_service"
	KindProtocol      = "protocol"
	KindStore         = "store"
	KindUnknown       = "unknown"
)

// PhaseError records the state a run was in when it failed.
type PhaseError struct {
	Phase State
	Err   error
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("pipeline failed in %s: %v", e.Phase, e.Err)
}

func (e *PhaseError) Unwrap() error {
	return e.Err
}

// ErrorKind classifies err by the sentinel it wraps.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, config.ErrConfiguration):
		return KindConfiguration
	case errors.Is(err, textanalytics.ErrRemoteService):
		return KindRemoteService
	case errors.Is(err, textanalytics.ErrProtocol):
		return KindProtocol
	case errors.Is(err, store.ErrStore):
		return KindStore
	default:
		return KindUnknown
	}
}

const (
	MessageNoWork        = "No new data to process."
	MessageMissingConfig = "Missing configuration"
	MessageFailed        = "Processing failed."
)

// Summarize maps the outcome of Run onto the status and text returned to callers.
// Failure details stay in the logs.
func Summarize(report *Report, err error) (int, string) {
	if err != nil {
		if errors.Is(err, config.ErrConfiguration) {
			return http.StatusInternalServerError, MessageMissingConfig
		}
		return http.StatusInternalServerError, MessageFailed
	}
	if report == nil || report.State == StateNoWork {
		return http.StatusOK, MessageNoWork
	}
	return http.StatusOK, fmt.Sprintf(
		"Sentiment analysis complete for %d records.",
		report.Annotated,
	)
}
