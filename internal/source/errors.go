package source

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration marks credentials that are missing or malformed.
	ErrConfiguration = errors.New("source configuration invalid")
	// ErrUnsupportedSource is returned for source types without an adapter.
	ErrUnsupportedSource = errors.New("unsupported source type")
)

// ConfigError names the credential field that failed validation.
type ConfigError struct {
	Source Type
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s configuration: %s", e.Source, e.Reason)
	}
	return fmt.Sprintf("%s configuration: %s %s", e.Source, e.Field, e.Reason)
}

// Unwrap lets errors.Is(err, ErrConfiguration) match.
func (e *ConfigError) Unwrap() error {
	return ErrConfiguration
}

// AdapterError wraps an upstream fetch failure (network, auth rejection, rate
// limit). StatusCode is zero when no HTTP response was received.
type AdapterError struct {
	Source     Type
	Op         string
	StatusCode int
	Err        error
}

func (e *AdapterError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s %s: status %d: %v", e.Source, e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Source, e.Op, e.Err)
}

func (e *AdapterError) Unwrap() error {
	return e.Err
}
