package models

import (
	"github.com/getzep/reviewpulse/config"
)

// AppState is a struct that holds the state of the application
// Use cmd.NewAppState to create a new instance
type AppState struct {
	Config           *config.Config
	SourceStore      SourceStore
	DestinationStore DestinationStore
	Annotator        Annotator
	ReviewFetcher    ReviewFetcher
}
