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

package gate

import (
	"context"
	"fmt"
	"sync"

	"github.com/tombee/relay/internal/metrics"
	"github.com/tombee/relay/pkg/errors"
)

// ErrCapacityMismatch is returned when a key is acquired with a capacity
// different from the one its pool was created with.
var ErrCapacityMismatch = errors.New("gate capacity mismatch")

// Keyed holds one independent pool per key. Pools are created lazily on
// first use with the capacity supplied by that caller; later callers must
// pass the same capacity. The zero value is not usable; use NewKeyed.
type Keyed struct {
	mu    sync.Mutex
	pools map[string]*pool
}

// NewKeyed creates an empty Keyed gate.
func NewKeyed() *Keyed {
	return &Keyed{pools: make(map[string]*pool)}
}

// Acquire blocks until a slot for key is free or ctx is done. Acquisitions
// for different keys never contend with each other.
func (k *Keyed) Acquire(ctx context.Context, key string, capacity int) (*Permit, error) {
	p, err := k.pool(key, capacity)
	if err != nil {
		return nil, err
	}
	return p.acquire(ctx, "acquire module gate "+key)
}

func (k *Keyed) pool(key string, capacity int) (*pool, error) {
	if key == "" {
		return nil, &errors.ConfigError{Key: "steps.key", Reason: "module gate key must not be empty"}
	}
	if capacity <= 0 {
		return nil, &errors.ConfigError{
			Key:    "steps.max_concurrency",
			Reason: fmt.Sprintf("module gate capacity for %q must be positive", key),
		}
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	p, ok := k.pools[key]
	if !ok {
		p = newPool(metrics.GateModule, key, int64(capacity))
		k.pools[key] = p
		return p, nil
	}
	if p.capacity != int64(capacity) {
		return nil, fmt.Errorf("%w: key %q created with %d, requested %d",
			ErrCapacityMismatch, key, p.capacity, capacity)
	}
	return p, nil
}

// InUse returns the number of permits currently held for key.
func (k *Keyed) InUse(key string) int {
	k.mu.Lock()
	p, ok := k.pools[key]
	k.mu.Unlock()
	if !ok {
		return 0
	}
	return int(p.inUse.Load())
}

// Capacity returns the capacity of key's pool, or 0 if it has not been created.
func (k *Keyed) Capacity(key string) int {
	k.mu.Lock()
	defer k.mu.Unlock()
	if p, ok := k.pools[key]; ok {
		return int(p.capacity)
	}
	return 0
}

// Keys returns the keys whose pools have been created.
func (k *Keyed) Keys() []string {
	k.mu.Lock()
	defer k.mu.Unlock()
	keys := make([]string, 0, len(k.pools))
	for key := range k.pools {
		keys = append(keys, key)
	}
	return keys
}
