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

	"github.com/tombee/relay/pkg/liveness"
)

// Input is one value to run through the chain, labelled by ID.
type Input struct {
	ID    string
	Value any
}

// Inputs labels each value with its default string form.
func Inputs[T any](values ...T) []Input {
	out := make([]Input, len(values))
	for i, v := range values {
		out[i] = Input{ID: fmt.Sprint(v), Value: v}
	}
	return out
}

// Result is the outcome of one input.
type Result struct {
	InputID       string
	CorrelationID string
	Output        any
	Summary       Summary
	Err           error
}

// Failed reports whether the input failed, by error or by reported failure.
func (r Result) Failed() bool {
	return r.Err != nil || r.Summary.Status != StatusSuccess
}

// Batch runs many inputs concurrently through a Scheduler and keeps the
// liveness registry and progress counters current.
type Batch struct {
	sched    *Scheduler
	tracker  *liveness.Tracker
	progress *liveness.Progress
}

// NewBatch creates a Batch driving sched.
func NewBatch(sched *Scheduler) *Batch {
	return &Batch{sched: sched}
}

// WithTracker registers every input in tracker while it runs.
func (b *Batch) WithTracker(tracker *liveness.Tracker) *Batch {
	b.tracker = tracker
	return b
}

// WithProgress marks progress once per input on its final outcome.
func (b *Batch) WithProgress(progress *liveness.Progress) *Batch {
	b.progress = progress
	return b
}

// Run starts one run per input and waits for all of them. A failing input
// never affects its siblings. Results are returned in input order.
func (b *Batch) Run(ctx context.Context, inputs []Input) []Result {
	results := make([]Result, len(inputs))

	var wg sync.WaitGroup
	for i, in := range inputs {
		rc := NewRunContext(in.ID)
		if b.tracker != nil {
			b.tracker.Start(rc.CorrelationID(), in.ID)
		}

		wg.Add(1)
		go func(i int, in Input, rc *RunContext) {
			defer func() {
				if b.tracker != nil {
					b.tracker.Complete(rc.CorrelationID())
				}
				if b.progress != nil {
					b.progress.MarkCompleted()
				}
				wg.Done()
			}()

			out, summary, err := b.sched.RunOutcome(WithRunContext(ctx, rc), in.Value)
			results[i] = Result{
				InputID:       in.ID,
				CorrelationID: rc.CorrelationID(),
				Output:        out,
				Summary:       summary,
				Err:           err,
			}
		}(i, in, rc)
	}
	wg.Wait()

	return results
}
