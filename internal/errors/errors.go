// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors
var (
	ErrDataNotFound    = errors.New("data not found")
	ErrConfigInvalid   = errors.New("invalid configuration")
	ErrCalendarMiss    = errors.New("no market calendar entry")
	ErrVolatilityMiss  = errors.New("no volatility entry")
	ErrStrategyInvalid = errors.New("invalid strategy intent")
	ErrUnknownStrategy = errors.New("unknown strategy")
	ErrDatabaseError   = errors.New("database error")
)

// DataError represents missing or degraded historical data for one
// instrument lookup.
type DataError struct {
	Action  string // ENTRY, EXIT, EOD_EXIT, PENDING_ENTRY, INDEX, ...
	Strike  int
	Type    string
	Date    string
	Message string
	Err     error
}

func (e *DataError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("data error [%s] %s %d on %s: %s: %v", e.Action, e.Type, e.Strike, e.Date, e.Message, e.Err)
	}
	return fmt.Sprintf("data error [%s] %s %d on %s: %s", e.Action, e.Type, e.Strike, e.Date, e.Message)
}

func (e *DataError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrDataNotFound
}

// NewDataError creates a new DataError.
func NewDataError(action, typ string, strike int, date, message string, err error) *DataError {
	return &DataError{
		Action:  action,
		Strike:  strike,
		Type:    typ,
		Date:    date,
		Message: message,
		Err:     err,
	}
}

// ConfigError represents a calendar or volatility lookup miss for a date.
// Fatal for that trading day.
type ConfigError struct {
	Table string
	Date  string
	Err   error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("config error [%s] %s: %v", e.Table, e.Date, e.Err)
	}
	return fmt.Sprintf("config error [%s]: no entry for %s", e.Table, e.Date)
}

func (e *ConfigError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrConfigInvalid
}

// NewConfigError creates a new ConfigError.
func NewConfigError(table, date string, err error) *ConfigError {
	return &ConfigError{Table: table, Date: date, Err: err}
}

// StrategyError represents a malformed intent emitted by a strategy:
// an unresolvable leg id on EXIT or an unknown option type on ENTER.
// Fatal for that leg only; the day continues.
type StrategyError struct {
	Strategy string
	LegID    string
	Reason   string
}

func (e *StrategyError) Error() string {
	return fmt.Sprintf("strategy error [%s] leg %s: %s", e.Strategy, e.LegID, e.Reason)
}

func (e *StrategyError) Unwrap() error {
	return ErrStrategyInvalid
}

// NewStrategyError creates a new StrategyError.
func NewStrategyError(strategy, legID, reason string) *StrategyError {
	return &StrategyError{Strategy: strategy, LegID: legID, Reason: reason}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
