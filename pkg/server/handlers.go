package server

import (
	"context"
	"net/http"

	"github.com/getzep/reviewpulse/pkg/models"
	"github.com/getzep/reviewpulse/pkg/pipeline"
)

// ProcessHandler runs one pipeline pass per request and answers with a one-line
// plain text summary. Failure details are only logged. The run is detached from the
// request's cancellation so a client disconnect cannot abort it between commits.
func ProcessHandler(appState *models.AppState) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithoutCancel(r.Context())
		report, err := pipeline.NewPipelineFromAppState(appState).Run(ctx)
		status, message := pipeline.Summarize(report, err)
		renderText(w, message, status)
	}
}

func renderText(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	if _, err := w.Write([]byte(message)); err != nil {
		log.WithError(err).Error("failed to write response")
	}
}
