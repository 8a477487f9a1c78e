package entities

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidTransition  = errors.New("invalid wizard transition")
	ErrAnalysisInProgress = errors.New("photo analysis already in progress")
	ErrAnalysisRejected   = errors.New("photo was rejected; dismiss the error before retrying")
	ErrGarmentUnavailable = errors.New("garment not available for the selected gender and category")
	ErrUnknownCategory    = errors.New("category not available for the selected gender")
	ErrMissingSelection   = errors.New("photo or garment not selected")
	ErrNoResult           = errors.New("no try-on result available")
	ErrViewerClosed       = errors.New("viewer is not open")

	ErrSessionNotFound = errors.New("session not found")
	ErrInvalidInput    = errors.New("invalid input")

	// ErrTryOnUnreachable wraps transport failures talking to the try-on endpoint.
	ErrTryOnUnreachable = errors.New("try-on endpoint unreachable")
)

// RemoteError is a non-success answer from the try-on endpoint. Message holds
// the endpoint's own "error" field and may be empty.
type RemoteError struct {
	StatusCode int
	Message    string
}

func (e *RemoteError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("try-on endpoint returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("try-on endpoint returned status %d: %s", e.StatusCode, e.Message)
}
