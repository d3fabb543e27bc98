package store

import (
	"errors"
	"fmt"
)

var ErrStore = errors.New("store error")

// StoreError reports a connection or query failure on either database.
type StoreError struct {
	Message       string
	OriginalError error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("storage error: %s (original error: %v)", e.Message, e.OriginalError)
}

func (e *StoreError) Unwrap() []error {
	if e.OriginalError == nil {
		return []error{ErrStore}
	}
	return []error{ErrStore, e.OriginalError}
}

func NewStoreError(message string, originalError error) *StoreError {
	return &StoreError{Message: message, OriginalError: originalError}
}
