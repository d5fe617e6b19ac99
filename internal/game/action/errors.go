package action

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is wrapped by every missing-entity error.
var ErrNotFound = errors.New("not found")

// Missing-entity errors returned by the engine and by Store implementations.
var (
	ErrCharacterNotFound = fmt.Errorf("character %w", ErrNotFound)
	ErrActionNotFound    = fmt.Errorf("action %w", ErrNotFound)
	ErrItemNotFound      = fmt.Errorf("item %w", ErrNotFound)
	ErrLocationNotFound  = fmt.Errorf("location %w", ErrNotFound)
	ErrPlayerNotFound    = fmt.Errorf("player %w", ErrNotFound)
)

var (
	// ErrIneligible is wrapped by every *IneligibleError.
	ErrIneligible = errors.New("action ineligible")
	// ErrConcurrencyConflict reports that a competing write for the same
	// character committed first.
	ErrConcurrencyConflict = errors.New("concurrency conflict")
	// ErrStorage wraps any other failure of the underlying store.
	ErrStorage = errors.New("storage failure")
)

// IneligibleError reports why an execution was refused. No state was changed.
type IneligibleError struct {
	Reason Reason
}

// Error implements error.
func (e *IneligibleError) Error() string {
	return fmt.Sprintf("%s: %s", ErrIneligible, e.Reason)
}

// Unwrap returns ErrIneligible.
func (e *IneligibleError) Unwrap() error {
	return ErrIneligible
}

// storageError wraps err in ErrStorage unless it already carries one of the
// engine's own classifications or is a context error.
func storageError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound),
		errors.Is(err, ErrIneligible),
		errors.Is(err, ErrConcurrencyConflict),
		errors.Is(err, ErrStorage),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return err
	}
	return fmt.Errorf("%w: %w", ErrStorage, err)
}
