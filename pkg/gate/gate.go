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

// Package gate provides bounded admission control: a Global gate capping
// how many runs execute at once, and a Keyed gate holding one independent
// pool per key (normally a step name).
//
// Every successful Acquire returns a Permit. Release is idempotent, so a
// permit can be released with defer on every exit path without risk of
// corrupting the pool's count.
package gate

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/tombee/relay/internal/metrics"
	"github.com/tombee/relay/pkg/errors"
)

// Permit is a one-shot handle to an acquired slot.
type Permit struct {
	once    sync.Once
	release func()
}

// Release returns the slot to its pool. Calls after the first are no-ops.
func (p *Permit) Release() {
	if p == nil {
		return
	}
	p.once.Do(p.release)
}

// pool is a counting semaphore with an observable in-use count.
type pool struct {
	gate     string
	key      string
	capacity int64
	sem      *semaphore.Weighted
	inUse    atomic.Int64
}

func newPool(gate, key string, capacity int64) *pool {
	return &pool{
		gate:     gate,
		key:      key,
		capacity: capacity,
		sem:      semaphore.NewWeighted(capacity),
	}
}

func (p *pool) acquire(ctx context.Context, operation string) (*Permit, error) {
	// Weighted.Acquire succeeds on a done context when a slot is free.
	if err := ctx.Err(); err != nil {
		return nil, &errors.CancelledError{Operation: operation, Cause: err}
	}

	start := time.Now()
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, &errors.CancelledError{Operation: operation, Cause: err}
	}
	metrics.ObserveGateWait(p.gate, p.key, time.Since(start))
	metrics.SetGateInUse(p.gate, p.key, p.inUse.Add(1))

	return &Permit{release: func() {
		metrics.SetGateInUse(p.gate, p.key, p.inUse.Add(-1))
		p.sem.Release(1)
	}}, nil
}

// Global is a fixed-capacity gate shared by all runs.
type Global struct {
	pool *pool
}

// NewGlobal creates a Global gate admitting at most capacity holders.
func NewGlobal(capacity int) (*Global, error) {
	if capacity <= 0 {
		return nil, &errors.ConfigError{
			Key:    "engine.max_concurrency",
			Reason: "global gate capacity must be positive",
		}
	}
	return &Global{pool: newPool(metrics.GateGlobal, "", int64(capacity))}, nil
}

// Acquire blocks until a slot is free or ctx is done. On cancellation it
// returns *errors.CancelledError wrapping the context error.
func (g *Global) Acquire(ctx context.Context) (*Permit, error) {
	return g.pool.acquire(ctx, "acquire global gate")
}

// Capacity returns the gate's fixed capacity.
func (g *Global) Capacity() int { return int(g.pool.capacity) }

// InUse returns the number of permits currently held.
func (g *Global) InUse() int { return int(g.pool.inUse.Load()) }
