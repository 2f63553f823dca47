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
	"time"

	"github.com/tombee/relay/internal/metrics"
	"github.com/tombee/relay/pkg/gate"
)

// Scheduler admits runs through a global gate and hands them to the
// Orchestrator. Callers may start any number of runs concurrently; at most
// the gate's capacity execute at once.
type Scheduler struct {
	orch   *Orchestrator
	global *gate.Global
}

// NewScheduler creates a Scheduler.
func NewScheduler(orch *Orchestrator, global *gate.Global) *Scheduler {
	return &Scheduler{orch: orch, global: global}
}

// Run executes the chain for input once a global permit is available. ctx
// must carry the input's RunContext.
func (s *Scheduler) Run(ctx context.Context, input any) (any, error) {
	out, _, err := s.RunOutcome(ctx, input)
	return out, err
}

// RunOutcome is Run that also returns the terminal summary.
func (s *Scheduler) RunOutcome(ctx context.Context, input any) (any, Summary, error) {
	if _, ok := FromContext(ctx); !ok {
		return nil, Summary{}, ErrNoRunContext
	}

	start := time.Now()
	permit, err := s.global.Acquire(ctx)
	if err != nil {
		summary := s.orch.Abort(ctx, err)
		metrics.RecordRun(string(StatusFailed), time.Since(start))
		return nil, summary, err
	}
	defer permit.Release()

	metrics.RunStarted()
	defer metrics.RunFinished()

	out, summary, err := s.orch.ExecuteOutcome(ctx, input)
	metrics.RecordRun(string(summary.Status), time.Since(start))
	return out, summary, err
}
