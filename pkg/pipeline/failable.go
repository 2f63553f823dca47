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

package pipeline

// Failable is implemented by step outputs that can report a negative
// business result without returning an error, such as a fetch that reached
// the server but received a 404.
type Failable interface {
	// Succeeded reports whether the step achieved its goal.
	Succeeded() bool

	// FailureReason describes the failure. It may be empty.
	FailureReason() string
}

// DefaultFailureReason is recorded when a Failable reports failure without
// a reason.
const DefaultFailureReason = "step reported failure"

// ReportedFailure reports whether v is a Failable that declares failure,
// and returns its reason.
func ReportedFailure(v any) (string, bool) {
	f, ok := v.(Failable)
	if !ok || f == nil {
		return "", false
	}
	if f.Succeeded() {
		return "", false
	}
	reason := f.FailureReason()
	if reason == "" {
		reason = DefaultFailureReason
	}
	return reason, true
}
