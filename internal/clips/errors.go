package clips

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfiguration is returned when a clip policy or target cannot be planned
	ErrInvalidConfiguration = errors.New("invalid configuration")
	// ErrSourceUnavailable is returned when the input video cannot be read
	ErrSourceUnavailable = errors.New("source unavailable")
	// ErrEmptySelection is returned when there are no clips to assemble
	ErrEmptySelection = errors.New("empty selection")
	// ErrOutputWrite is returned when the output video cannot be written
	ErrOutputWrite = errors.New("output write failure")
)

// ConfigError describes which setting was rejected
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrInvalidConfiguration, e.Field, e.Reason)
}

func (e *ConfigError) Unwrap() error {
	return ErrInvalidConfiguration
}

func invalid(field, format string, args ...any) error {
	return &ConfigError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
