package events

import (
	"errors"
	"fmt"
	"reflect"
)

var (
	// ErrClosed is returned when firing or registering on a closed Bus.
	ErrClosed = errors.New("events: bus closed")
	// ErrNilEvent is returned when the payload is nil.
	ErrNilEvent = errors.New("events: nil event payload")
	// ErrTxDone is returned when committing or rolling back a transaction
	// that already completed.
	ErrTxDone = errors.New("events: transaction already completed")
	// ErrRolledBack is returned by Commit when a before_completion observer
	// failed and the transaction was rolled back instead.
	ErrRolledBack = errors.New("events: transaction rolled back")
)

// ObserverError reports an observer that panicked while being notified.
type ObserverError struct {
	// Observer is the observer's description, see observer.Describe.
	Observer string
	Event    reflect.Type
	Panic    any
}

func (e *ObserverError) Error() string {
	return fmt.Sprintf("observer %s failed on %v: %v", e.Observer, e.Event, e.Panic)
}

// Unwrap returns the panic value when it is an error.
func (e *ObserverError) Unwrap() error {
	if err, ok := e.Panic.(error); ok {
		return err
	}
	return nil
}

// DefinitionError reports an extension whose observer definitions are
// invalid.
type DefinitionError struct {
	Extension reflect.Type
	Err       error
}

func (e *DefinitionError) Error() string {
	return fmt.Sprintf("extension %v: %v", e.Extension, e.Err)
}

func (e *DefinitionError) Unwrap() error { return e.Err }
