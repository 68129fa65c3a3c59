package validation

import (
	"errors"
	"fmt"
)

var (
	// ErrTimeout marks a run that exceeded its wall-clock budget.
	ErrTimeout = errors.New("validation timed out")

	// ErrConfig marks a caller configuration error, such as an empty rule
	// table when rules are required.
	ErrConfig = errors.New("invalid validation config")

	// ErrFailed marks a run with one or more failing checks.
	ErrFailed = errors.New("validation failed")
)

// AggregateValidationError is returned when any check fails. It carries the
// full report.
type AggregateValidationError struct {
	Report *Report
}

func (e *AggregateValidationError) Error() string {
	failed := len(e.Report.Failures())
	return fmt.Sprintf("%s: %d of %d checks failed", ErrFailed, failed, e.Report.Len())
}

// Unwrap returns ErrFailed.
func (e *AggregateValidationError) Unwrap() error { return ErrFailed }

// TimeoutError is returned when the budget expires before every check has
// run. Report holds the checks that completed.
type TimeoutError struct {
	Report    *Report
	Completed int
	Total     int
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s after %d of %d checks", ErrTimeout, e.Completed, e.Total)
}

// Unwrap returns ErrTimeout.
func (e *TimeoutError) Unwrap() error { return ErrTimeout }

// ConfigError reports an invalid rule table or validator setting.
type ConfigError struct {
	Msg string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s", ErrConfig, e.Msg)
}

// Unwrap returns ErrConfig.
func (e *ConfigError) Unwrap() error { return ErrConfig }
