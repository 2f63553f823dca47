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
	"sort"
	"sync"

	"github.com/google/uuid"
)

// RunContext identifies one logical input across all of its retry attempts.
// Identity fields are fixed at construction; State is reset for every attempt.
type RunContext struct {
	correlationID string
	inputID       string
	state         *State
}

// NewRunContext creates a RunContext for inputID with a fresh correlation id.
func NewRunContext(inputID string) *RunContext {
	return &RunContext{
		correlationID: uuid.NewString(),
		inputID:       inputID,
		state:         NewState(),
	}
}

// CorrelationID returns the id shared by every attempt of this input.
func (rc *RunContext) CorrelationID() string { return rc.correlationID }

// InputID returns the caller-supplied logical name of the input.
func (rc *RunContext) InputID() string { return rc.inputID }

// State returns the attempt-scoped state bag.
func (rc *RunContext) State() *State { return rc.state }

// CloneForAttempt returns ctx carrying a new RunContext with the same
// identity and an empty State. ctx is the attempt's cancellation scope and
// is normally derived from the caller's context.
func (rc *RunContext) CloneForAttempt(ctx context.Context) context.Context {
	return WithRunContext(ctx, &RunContext{
		correlationID: rc.correlationID,
		inputID:       rc.inputID,
		state:         NewState(),
	})
}

type runContextKey struct{}

// WithRunContext returns a copy of ctx carrying rc.
func WithRunContext(ctx context.Context, rc *RunContext) context.Context {
	return context.WithValue(ctx, runContextKey{}, rc)
}

// FromContext returns the RunContext carried by ctx.
func FromContext(ctx context.Context) (*RunContext, bool) {
	rc, ok := ctx.Value(runContextKey{}).(*RunContext)
	return rc, ok && rc != nil
}

// StateFromContext returns the attempt-scoped State carried by ctx, or nil
// when ctx has no RunContext.
func StateFromContext(ctx context.Context) *State {
	if rc, ok := FromContext(ctx); ok {
		return rc.state
	}
	return nil
}

// State is a string-keyed bag steps use to hand ancillary data (for example
// a fetched raw payload) to later steps within the same attempt.
// It is safe for concurrent use.
type State struct {
	mu     sync.RWMutex
	values map[string]any
}

// NewState returns an empty State.
func NewState() *State {
	return &State{values: make(map[string]any)}
}

// Get returns the value stored under key.
func (s *State) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

// Set stores value under key, replacing any previous value.
func (s *State) Set(key string, value any) {
	s.mu.Lock()
	s.values[key] = value
	s.mu.Unlock()
}

// Delete removes key.
func (s *State) Delete(key string) {
	s.mu.Lock()
	delete(s.values, key)
	s.mu.Unlock()
}

// Len returns the number of stored keys.
func (s *State) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.values)
}

// Keys returns the stored keys in sorted order.
func (s *State) Keys() []string {
	s.mu.RLock()
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	s.mu.RUnlock()
	sort.Strings(keys)
	return keys
}
