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

// Package pipeline runs a fixed, ordered chain of typed steps over many
// independent inputs.
//
// A chain is built from strongly typed modules (Module[In, Out]) adapted
// into type-erased Steps with NewStep. NewChain validates the whole chain
// once, before any input is processed: every step must consume the type its
// predecessor produces, and the first step must consume the declared initial
// type.
//
// Each input is identified by a RunContext (correlation id, input id and an
// attempt-scoped State) carried on the context.Context passed to every step.
// Cancellation is the context's: a root context cancelled by the operator
// is observed by every step at its next blocking point.
//
// The Orchestrator executes the chain for one input, writing an audit record
// before and after every step, and stops at the first failure. A step can
// fail in two ways: by returning an error, which is propagated to the
// caller, or by returning a value implementing Failable that reports
// Succeeded() == false, which is recorded as a failure but is a normal
// (negative) outcome and is not returned as an error.
//
// The Scheduler bounds how many inputs execute at once with a global gate;
// Batch drives one Scheduler.Run per input concurrently and keeps the
// liveness registry and progress counters up to date.
//
// Usage:
//
//	chain, err := pipeline.NewChain(pipeline.TypeOf[string](),
//	    pipeline.NewStep[string, string](upper),
//	    pipeline.NewStep[string, int](length),
//	)
//	if err != nil {
//	    return err // configuration error, nothing has run
//	}
//	orch := pipeline.NewOrchestrator(chain, auditor)
//	sched := pipeline.NewScheduler(orch, global)
//	results := pipeline.NewBatch(sched).Run(ctx, pipeline.Inputs("a", "b"))
package pipeline
