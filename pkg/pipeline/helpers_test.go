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

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

// record is one audit write captured by recordingAuditor.
type record struct {
	Op      string
	InputID string
	Step    string
	Value   any
	Failure Failure
	Summary Summary
}

// recordingAuditor keeps every write in order.
type recordingAuditor struct {
	mu      sync.Mutex
	records []record
	fail    error
}

func (a *recordingAuditor) add(r record) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.records = append(a.records, r)
	return a.fail
}

func (a *recordingAuditor) WriteStepInput(_ context.Context, inputID, step string, input any) error {
	return a.add(record{Op: "input", InputID: inputID, Step: step, Value: input})
}

func (a *recordingAuditor) WriteStepSuccess(_ context.Context, inputID, step string, output any) error {
	return a.add(record{Op: "success", InputID: inputID, Step: step, Value: output})
}

func (a *recordingAuditor) WriteStepFailure(_ context.Context, inputID, step string, failure Failure) error {
	return a.add(record{Op: "failure", InputID: inputID, Step: step, Failure: failure})
}

func (a *recordingAuditor) WriteSummary(_ context.Context, summary Summary) error {
	return a.add(record{Op: "summary", InputID: summary.InputID, Summary: summary})
}

// ops returns "op:step" for every record of inputID.
func (a *recordingAuditor) ops(inputID string) []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []string
	for _, r := range a.records {
		if r.InputID != inputID {
			continue
		}
		if r.Op == "summary" {
			out = append(out, "summary")
			continue
		}
		out = append(out, fmt.Sprintf("%s:%s", r.Op, r.Step))
	}
	return out
}

func (a *recordingAuditor) summaries(inputID string) []Summary {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []Summary
	for _, r := range a.records {
		if r.Op == "summary" && r.InputID == inputID {
			out = append(out, r.Summary)
		}
	}
	return out
}

type domainResult struct {
	ok     bool
	reason string
}

func (d domainResult) Succeeded() bool       { return d.ok }
func (d domainResult) FailureReason() string { return d.reason }

// countingStep wraps fn and counts invocations.
func countingStep[In, Out any](name string, calls *atomic.Int32, fn func(In) (Out, error)) Step {
	return NewStep(NewModule(name, func(ctx context.Context, in In) (Out, error) {
		calls.Add(1)
		return fn(in)
	}))
}

func runContext(inputID string) (context.Context, *RunContext) {
	rc := NewRunContext(inputID)
	return WithRunContext(context.Background(), rc), rc
}
