package textanalytics

import (
	"errors"
	"fmt"
)

var (
	ErrRemoteService = errors.New("remote service error")
	ErrProtocol      = errors.New("protocol error")
)

// RemoteServiceError is returned for transport failures and non-success statuses.
// StatusCode is 0 when no response was received.
type RemoteServiceError struct {
	StatusCode    int
	Body          []byte
	OriginalError error
}

func (e *RemoteServiceError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("sentiment service request failed: %v", e.OriginalError)
	}
	return fmt.Sprintf("sentiment service returned status %d", e.StatusCode)
}

func (e *RemoteServiceError) Unwrap() []error {
	if e.OriginalError == nil {
		return []error{ErrRemoteService}
	}
	return []error{ErrRemoteService, e.OriginalError}
}

// ProtocolError is returned when a success response lacks a usable documents collection.
type ProtocolError struct {
	Message string
	Body    []byte
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("unexpected sentiment service response: %s", e.Message)
}

func (e *ProtocolError) Unwrap() error {
	return ErrProtocol
}
