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

// Package liveness tracks runs that are currently executing and counts
// completed ones, for pull-based consumers such as a terminal dashboard.
package liveness

import (
	"sort"
	"sync"
	"time"
)

// StageStarting is the stage recorded by Start, before the first step runs.
const StageStarting = "Starting"

// Entry is one in-flight run.
type Entry struct {
	CorrelationID string
	Input         string
	Stage         string
	StartedAt     time.Time
	Elapsed       time.Duration
}

type entry struct {
	input     string
	stage     string
	startedAt time.Time
}

// Tracker is a concurrency-safe registry of in-flight runs keyed by
// correlation id.
type Tracker struct {
	mu      sync.RWMutex
	entries map[string]*entry
	now     func() time.Time
}

// NewTracker returns an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{
		entries: make(map[string]*entry),
		now:     time.Now,
	}
}

// Start registers a run. Starting an id twice resets its entry.
func (t *Tracker) Start(correlationID, input string) {
	t.mu.Lock()
	t.entries[correlationID] = &entry{
		input:     input,
		stage:     StageStarting,
		startedAt: t.now(),
	}
	t.mu.Unlock()
}

// UpdateStage records that the run entered stage. Unknown ids are ignored.
func (t *Tracker) UpdateStage(correlationID, stage string) {
	t.mu.Lock()
	if e, ok := t.entries[correlationID]; ok {
		e.stage = stage
	}
	t.mu.Unlock()
}

// Complete removes the run. It is safe to call more than once.
func (t *Tracker) Complete(correlationID string) {
	t.mu.Lock()
	delete(t.entries, correlationID)
	t.mu.Unlock()
}

// Snapshot returns the in-flight runs ordered by input label.
func (t *Tracker) Snapshot() []Entry {
	now := t.now()

	t.mu.RLock()
	out := make([]Entry, 0, len(t.entries))
	for id, e := range t.entries {
		out = append(out, Entry{
			CorrelationID: id,
			Input:         e.input,
			Stage:         e.stage,
			StartedAt:     e.startedAt,
			Elapsed:       now.Sub(e.startedAt),
		})
	}
	t.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Input != out[j].Input {
			return out[i].Input < out[j].Input
		}
		return out[i].CorrelationID < out[j].CorrelationID
	})
	return out
}

// ActiveCount returns the number of in-flight runs.
func (t *Tracker) ActiveCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}
