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
	"context"
	"errors"
	"fmt"
	"reflect"
	"unicode"
)

// Wrap creates a new error that wraps the given error with additional context.
// If err is nil, returns nil.
//
// Usage:
//
//	if err := doSomething(); err != nil {
//	    return errors.Wrap(err, "doing something")
//	}
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf creates a new error that wraps the given error with formatted context.
// If err is nil, returns nil.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	message := fmt.Sprintf(format, args...)
	return fmt.Errorf("%s: %w", message, err)
}

// Is reports whether any error in err's tree matches target.
// This is a convenience wrapper around errors.Is from the standard library.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's tree that matches target type,
// and if one is found, sets target to that error value and returns true.
//
// Usage:
//
//	var configErr *ConfigError
//	if errors.As(err, &configErr) {
//	    log.Printf("Config error at key: %s", configErr.Key)
//	}
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// New creates a new error with the given message.
func New(message string) error {
	return errors.New(message)
}

// Join wraps errors.Join from the standard library.
func Join(errs ...error) error {
	return errors.Join(errs...)
}

// KindTimeout is the audit label used for both attempt timeouts and outer
// cancellation.
const KindTimeout = "Timeout"

// Reasons distinguishing the two causes behind KindTimeout.
const (
	ReasonDeadlineExceeded = "deadline_exceeded"
	ReasonCanceled         = "canceled"
)

// Kind returns the label recorded as error.type in audit records.
// Cancellation and deadline errors are reported as "Timeout"; typed errors
// report their type name; anything else is "Error".
func Kind(err error) string {
	if err == nil {
		return ""
	}
	if Reason(err) != "" {
		return KindTimeout
	}

	var chainErr *ChainError
	var mismatch *TypeMismatchError
	var cfgErr *ConfigError
	var valErr *ValidationError
	var notFound *NotFoundError
	switch {
	case errors.As(err, &mismatch):
		return "TypeMismatchError"
	case errors.As(err, &chainErr):
		return "ChainError"
	case errors.As(err, &cfgErr):
		return "ConfigError"
	case errors.As(err, &valErr):
		return "ValidationError"
	case errors.As(err, &notFound):
		return "NotFoundError"
	}

	// Unwrap plain fmt wrappers to report the innermost named type.
	inner := err
	for {
		next := errors.Unwrap(inner)
		if next == nil {
			break
		}
		inner = next
	}
	t := reflect.TypeOf(inner)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	name := t.Name()
	if name == "" || !unicode.IsUpper([]rune(name)[0]) {
		return "Error"
	}
	return name
}

// Reason distinguishes the cause behind a "Timeout" kind: an expired
// deadline (attempt timeout) or an explicit cancellation. It returns ""
// for errors that are neither.
func Reason(err error) string {
	var timeoutErr *TimeoutError
	var cancelledErr *CancelledError
	switch {
	case errors.As(err, &timeoutErr), errors.Is(err, context.DeadlineExceeded):
		return ReasonDeadlineExceeded
	case errors.As(err, &cancelledErr), errors.Is(err, context.Canceled):
		return ReasonCanceled
	}
	return ""
}

// IsRetryable reports whether err declares itself retryable through
// ErrorClassifier. Errors without a classification are treated as transient.
func IsRetryable(err error) bool {
	var classifier ErrorClassifier
	if errors.As(err, &classifier) {
		return classifier.IsRetryable()
	}
	return true
}
