package model

import "fmt"

// StorageError wraps any storage-layer I/O failure. It is fatal for the
// current ingestion run: no partial commit, no notification.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// SourceFetchError records a single source collaborator failure. The run
// continues with candidates from the remaining sources.
type SourceFetchError struct {
	Source string
	Err    error
}

func (e *SourceFetchError) Error() string {
	return fmt.Sprintf("source %s: fetch failed: %v", e.Source, e.Err)
}

func (e *SourceFetchError) Unwrap() error { return e.Err }

// DeliveryError records a message that exhausted its retries against one
// destination. Other messages and destinations are unaffected.
type DeliveryError struct {
	Destination string
	Attempts    int
	Err         error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("delivery to %s failed after %d attempt(s): %v", e.Destination, e.Attempts, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }
