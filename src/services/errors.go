package services

import (
	"errors"
	"fmt"
)

var (
	// ErrTaskNotFound is returned by the reverse lookup when no Pyrus task
	// carries the given purchase id.
	ErrTaskNotFound = errors.New("no pyrus task matches the given purchase id")

	// ErrAmbiguousPurchaseID is returned when more than one task matches.
	// Ambiguity is an operator problem; we never pick a match silently.
	ErrAmbiguousPurchaseID = errors.New("multiple pyrus tasks match the given purchase id")

	// ErrAlreadyExists signals that B2B-Center rejected a create because the
	// purchase is already there (uniqueness backstop for concurrent triggers).
	ErrAlreadyExists = errors.New("purchase already exists in b2b-center")

	// ErrSyncInProgress signals that another invocation for the same purchase
	// id currently holds the in-process latch.
	ErrSyncInProgress = errors.New("synchronization already in progress for this purchase id")
)

// UpstreamError reports a non-2xx response from a read against Pyrus or
// B2B-Center, carrying the status code for diagnostics.
type UpstreamError struct {
	System     string
	Operation  string
	StatusCode int
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s %s returned status %d", e.System, e.Operation, e.StatusCode)
}

// CreationRejectedError reports a failed purchase creation in B2B-Center,
// keeping the response body for diagnosis.
type CreationRejectedError struct {
	StatusCode int
	Body       string
}

func (e *CreationRejectedError) Error() string {
	return fmt.Sprintf("b2b-center rejected purchase creation with status %d: %s", e.StatusCode, e.Body)
}
