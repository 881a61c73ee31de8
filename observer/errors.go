package observer

import (
	"errors"
	"fmt"
)

// ErrNoCallback is returned by Build when neither NotifyWith nor
// NotifyWithMetadata installed a callback.
var ErrNoCallback = errors.New("observer: no notification callback")

// ConfigurationError reports an invalid observer-method setting.
//
// Build returns every problem it finds; use errors.As to inspect them one by
// one.
type ConfigurationError struct {
	// Field names the setting, e.g. "observedType" or "transactionPhase".
	Field string
	// Reason describes what is wrong with it.
	Reason string
	// Err is an optional underlying cause.
	Err error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("observer %s: %s", e.Field, e.Reason)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

func fieldError(field, format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
