// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package errors

import (
	"fmt"
	"reflect"
	"time"
)

// ValidationError represents user input validation failures.
// Use this for invalid user input, malformed data, or constraint violations.
type ValidationError struct {
	// Field identifies which input field failed validation
	Field string

	// Message is the human-readable error description
	Message string

	// Suggestion provides actionable guidance for fixing the error
	Suggestion string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// NotFoundError represents a resource not found error.
// Use this when a requested resource does not exist.
type NotFoundError struct {
	// Resource is the type of resource (e.g., "module", "step")
	Resource string

	// ID is the identifier that was not found
	ID string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ConfigError represents configuration problems.
// Use this for missing config, invalid values, or configuration conflicts.
// Config errors are fatal and raised before any input is processed.
type ConfigError struct {
	// Key is the configuration key that has the problem (e.g., "engine.max_concurrency")
	Key string

	// Reason explains what's wrong with the configuration
	Reason string

	// Cause is the underlying error (e.g., file read error, parse error)
	Cause error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("config error at %s: %s", e.Key, e.Reason)
	}
	return fmt.Sprintf("config error: %s", e.Reason)
}

// Unwrap returns the underlying cause.
func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// ChainError reports a step chain that cannot be executed: either it is
// empty or two adjacent steps disagree on the value type passed between them.
type ChainError struct {
	// Index is the position of the offending step, or -1 for an empty chain
	Index int

	// Step is the name of the offending step
	Step string

	// Expected is the type produced by the predecessor (or the initial type)
	Expected reflect.Type

	// Actual is the input type the step declares
	Actual reflect.Type
}

// Error implements the error interface.
func (e *ChainError) Error() string {
	if e.Index < 0 {
		return "invalid pipeline chain: pipeline must contain at least one step"
	}
	return fmt.Sprintf("invalid pipeline chain at step %q (index %d): expected input type %s, but step requires %s",
		e.Step, e.Index, typeName(e.Expected), typeName(e.Actual))
}

// TypeMismatchError is returned when a step is invoked with a value whose
// dynamic type differs from the step's declared input type. In a validated
// chain this indicates a construction bug.
type TypeMismatchError struct {
	Step     string
	Expected reflect.Type
	Actual   reflect.Type
}

// Error implements the error interface.
func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("step %q expected input of type %s but received %s",
		e.Step, typeName(e.Expected), typeName(e.Actual))
}

// TimeoutError represents an operation timeout.
// Use this when an attempt exceeds its configured deadline.
type TimeoutError struct {
	// Operation describes what timed out (e.g., "step Uppercase attempt 2")
	Operation string

	// Duration is how long the operation ran before timing out
	Duration time.Duration

	// Cause is the underlying error (if any)
	Cause error
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s operation timed out after %v", e.Operation, e.Duration)
}

// Unwrap returns the underlying cause.
func (e *TimeoutError) Unwrap() error {
	return e.Cause
}

// ErrorType implements ErrorClassifier.
func (e *TimeoutError) ErrorType() string { return "timeout" }

// IsRetryable implements ErrorClassifier.
func (e *TimeoutError) IsRetryable() bool { return true }

// CancelledError reports that the run was cancelled from outside (operator
// interrupt or parent deadline) while the operation was in progress.
type CancelledError struct {
	// Operation describes what was interrupted
	Operation string

	// Cause is the context error
	Cause error
}

// Error implements the error interface.
func (e *CancelledError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s cancelled: %v", e.Operation, e.Cause)
	}
	return fmt.Sprintf("%s cancelled", e.Operation)
}

// Unwrap returns the underlying cause.
func (e *CancelledError) Unwrap() error {
	return e.Cause
}

// ErrorType implements ErrorClassifier.
func (e *CancelledError) ErrorType() string { return "cancelled" }

// IsRetryable implements ErrorClassifier.
func (e *CancelledError) IsRetryable() bool { return false }

// StepPanicError reports a step that panicked. The panic is confined to the
// input being processed.
type StepPanicError struct {
	Step  string
	Value any
}

// Error implements the error interface.
func (e *StepPanicError) Error() string {
	return fmt.Sprintf("step %q panicked: %v", e.Step, e.Value)
}

// ErrorType implements ErrorClassifier.
func (e *StepPanicError) ErrorType() string { return "panic" }

// IsRetryable implements ErrorClassifier.
func (e *StepPanicError) IsRetryable() bool { return false }

func typeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}
