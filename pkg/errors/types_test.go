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

package errors_test

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"

	relayerrors "github.com/tombee/relay/pkg/errors"
)

func TestValidationError_Error(t *testing.T) {
	tests := []struct {
		name    string
		err     *relayerrors.ValidationError
		wantMsg string
	}{
		{
			name:    "with field",
			err:     &relayerrors.ValidationError{Field: "input", Message: "cannot be empty"},
			wantMsg: "validation failed on input: cannot be empty",
		},
		{
			name:    "without field",
			err:     &relayerrors.ValidationError{Message: "invalid format"},
			wantMsg: "validation failed: invalid format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMsg {
				t.Errorf("ValidationError.Error() = %q, want %q", got, tt.wantMsg)
			}
		})
	}
}

func TestChainError_Error(t *testing.T) {
	empty := &relayerrors.ChainError{Index: -1}
	if !strings.Contains(empty.Error(), "at least one step") {
		t.Errorf("empty chain message = %q", empty.Error())
	}

	mismatch := &relayerrors.ChainError{
		Index:    1,
		Step:     "Length",
		Expected: reflect.TypeOf(0),
		Actual:   reflect.TypeOf(""),
	}
	msg := mismatch.Error()
	for _, want := range []string{`"Length"`, "int", "string", "index 1"} {
		if !strings.Contains(msg, want) {
			t.Errorf("ChainError.Error() = %q, missing %q", msg, want)
		}
	}
}

func TestTypeMismatchError_Error(t *testing.T) {
	err := &relayerrors.TypeMismatchError{
		Step:     "Uppercase",
		Expected: reflect.TypeOf(""),
		Actual:   reflect.TypeOf(42),
	}
	want := `step "Uppercase" expected input of type string but received int`
	if err.Error() != want {
		t.Errorf("got %q, want %q", err.Error(), want)
	}
}

func TestConfigError_Unwrap(t *testing.T) {
	cause := errors.New("boom")
	err := &relayerrors.ConfigError{Key: "engine.max_concurrency", Reason: "must be positive", Cause: cause}
	if !errors.Is(err, cause) {
		t.Error("ConfigError should unwrap to its cause")
	}
	if err.Error() != "config error at engine.max_concurrency: must be positive" {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestKind(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"plain", errors.New("x"), "Error"},
		{"wrapped plain", fmt.Errorf("ctx: %w", errors.New("x")), "Error"},
		{"deadline", context.DeadlineExceeded, relayerrors.KindTimeout},
		{"canceled", fmt.Errorf("step: %w", context.Canceled), relayerrors.KindTimeout},
		{"timeout error", &relayerrors.TimeoutError{Operation: "step", Duration: time.Second}, relayerrors.KindTimeout},
		{"cancelled error", &relayerrors.CancelledError{Operation: "run"}, relayerrors.KindTimeout},
		{"type mismatch", &relayerrors.TypeMismatchError{Step: "s"}, "TypeMismatchError"},
		{"config", &relayerrors.ConfigError{Reason: "bad"}, "ConfigError"},
		{"unexported custom", &customError{}, "Error"},
		{"exported custom", &ExportedError{}, "ExportedError"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := relayerrors.Kind(tt.err); got != tt.want {
				t.Errorf("Kind() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestReason(t *testing.T) {
	if got := relayerrors.Reason(&relayerrors.TimeoutError{}); got != relayerrors.ReasonDeadlineExceeded {
		t.Errorf("TimeoutError reason = %q", got)
	}
	if got := relayerrors.Reason(&relayerrors.CancelledError{Cause: context.Canceled}); got != relayerrors.ReasonCanceled {
		t.Errorf("CancelledError reason = %q", got)
	}
	if got := relayerrors.Reason(errors.New("x")); got != "" {
		t.Errorf("plain error reason = %q", got)
	}
}

func TestIsRetryable(t *testing.T) {
	if !relayerrors.IsRetryable(errors.New("transient")) {
		t.Error("unclassified errors should be retryable")
	}
	if relayerrors.IsRetryable(&relayerrors.CancelledError{}) {
		t.Error("cancellation must not be retryable")
	}
	if !relayerrors.IsRetryable(&relayerrors.TimeoutError{}) {
		t.Error("timeouts should be retryable")
	}
}

type customError struct{}

func (e *customError) Error() string { return "custom" }

type ExportedError struct{}

func (e *ExportedError) Error() string { return "exported" }
