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

// UserVisibleError is implemented by errors that carry a message suitable
// for display to an operator.
type UserVisibleError interface {
	error

	// IsUserVisible returns true if this error should be shown to users.
	IsUserVisible() bool

	// UserMessage returns a user-friendly error message.
	UserMessage() string

	// Suggestion returns actionable guidance for resolving the error.
	// Returns empty string if no suggestion is available.
	Suggestion() string
}

// ErrorClassifier is implemented by errors that can describe their category
// and whether the failed operation may be attempted again.
type ErrorClassifier interface {
	error

	// ErrorType returns a string identifying the error category.
	// Examples: "validation", "timeout", "cancelled"
	ErrorType() string

	// IsRetryable returns true if the operation should be retried.
	IsRetryable() bool
}

// IsUserVisible implements UserVisibleError.
func (e *ConfigError) IsUserVisible() bool { return true }

// UserMessage implements UserVisibleError.
func (e *ConfigError) UserMessage() string { return e.Error() }

// Suggestion implements UserVisibleError.
func (e *ConfigError) Suggestion() string {
	if e.Key != "" {
		return "check the value of " + e.Key + " in the configuration file or environment"
	}
	return ""
}

// IsUserVisible implements UserVisibleError.
func (e *ChainError) IsUserVisible() bool { return true }

// UserMessage implements UserVisibleError.
func (e *ChainError) UserMessage() string { return e.Error() }

// Suggestion implements UserVisibleError.
func (e *ChainError) Suggestion() string {
	if e.Index < 0 {
		return "configure at least one step"
	}
	return "reorder the steps so each step consumes the previous step's output type"
}
