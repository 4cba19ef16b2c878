package core

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyGenerating is returned by the generation coordinator
	// when a generation is started while another one is active.
	ErrAlreadyGenerating = errors.New("generation already in progress")

	// ErrInsufficientData is returned by persona analysis when fewer
	// than the minimum number of qualifying messages exist.
	ErrInsufficientData = errors.New("not enough messages for analysis")

	// ErrNotFound is returned by delete/update paths when the target
	// row does not exist. Read paths return empty results instead.
	ErrNotFound = errors.New("not found")
)

// StorageError wraps a failed store operation. The operation is
// aborted as a whole; no partial state is left behind.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// NewStorageError wraps err unless it is already typed (ErrNotFound
// passes through so callers can match on it).
func NewStorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

// DimensionMismatchError indicates the embedding model changed since
// vectors were persisted. The index must be rebuilt before searching.
type DimensionMismatchError struct {
	Want int
	Got  int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("embedding dimension mismatch: index has %d, query has %d (re-index required)", e.Want, e.Got)
}

// EngineError wraps a failure of an external inference or embedding
// engine. Nothing is persisted when generation fails with it.
type EngineError struct {
	Engine string
	Err    error
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("engine %s: %v", e.Engine, e.Err)
}

func (e *EngineError) Unwrap() error { return e.Err }
