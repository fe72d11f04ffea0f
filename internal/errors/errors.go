// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors
var (
	ErrConfigInvalid = errors.New("invalid configuration")
	ErrNoData        = errors.New("no bar data")
	ErrDataNotFound  = errors.New("data not found")
	ErrDatabaseError = errors.New("database error")
	ErrMarketClosed  = errors.New("market is closed")
)

// DataError reports corrupt or unusable bar data. It is fatal for the
// run that tried to consume the data.
type DataError struct {
	Symbol string
	Reason string
	Err    error
}

func (e *DataError) Error() string {
	if e.Symbol != "" {
		return fmt.Sprintf("bad data for %s: %s", e.Symbol, e.Reason)
	}
	return fmt.Sprintf("bad data: %s", e.Reason)
}

func (e *DataError) Unwrap() error {
	return e.Err
}

// NewDataError creates a new DataError.
func NewDataError(symbol, reason string, err error) *DataError {
	return &DataError{Symbol: symbol, Reason: reason, Err: err}
}

// ConfigError reports an invalid or unrecognized configuration key. It is
// raised at load time, before any simulation starts.
type ConfigError struct {
	Key    string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config key %q: %s", e.Key, e.Reason)
}

func (e *ConfigError) Unwrap() error {
	return ErrConfigInvalid
}

// NewConfigError creates a new ConfigError.
func NewConfigError(key, reason string) *ConfigError {
	return &ConfigError{Key: key, Reason: reason}
}
