package main

import (
	cmd "github.com/getzep/reviewpulse/cmd/reviewpulse"
	"github.com/getzep/reviewpulse/internal"
)

var log = internal.GetLogger()

func main() {
	log.Info("Starting reviewpulse")
	cmd.Execute()
}
