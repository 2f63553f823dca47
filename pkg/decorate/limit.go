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

package decorate

import (
	"context"
	"fmt"

	"github.com/tombee/relay/pkg/errors"
	"github.com/tombee/relay/pkg/gate"
	"github.com/tombee/relay/pkg/pipeline"
)

// LimitOption configures Limit.
type LimitOption func(*limitConfig)

type limitConfig struct {
	key string
}

// WithKey overrides the admission key. By default the module name is used,
// so modules sharing a key share one pool.
func WithKey(key string) LimitOption {
	return func(c *limitConfig) {
		c.key = key
	}
}

// Limit wraps m so that at most capacity invocations keyed by the module
// name (or WithKey) run at once. The permit is released when the inner call
// returns, whatever the outcome.
func Limit[In, Out any](m pipeline.Module[In, Out], keyed *gate.Keyed, capacity int, opts ...LimitOption) (pipeline.Module[In, Out], error) {
	cfg := limitConfig{key: m.Name()}
	for _, opt := range opts {
		opt(&cfg)
	}

	if keyed == nil {
		return nil, &errors.ConfigError{Key: "steps.max_concurrency", Reason: "module gate is required"}
	}
	if capacity <= 0 {
		return nil, &errors.ConfigError{
			Key:    "steps.max_concurrency",
			Reason: fmt.Sprintf("capacity for %q must be positive, got %d", m.Name(), capacity),
		}
	}
	if cfg.key == "" {
		return nil, &errors.ConfigError{Key: "steps.key", Reason: "admission key must not be empty"}
	}

	return &limited[In, Out]{inner: m, keyed: keyed, key: cfg.key, capacity: capacity}, nil
}

type limited[In, Out any] struct {
	inner    pipeline.Module[In, Out]
	keyed    *gate.Keyed
	key      string
	capacity int
}

func (l *limited[In, Out]) Name() string { return l.inner.Name() }

func (l *limited[In, Out]) Execute(ctx context.Context, input In) (Out, error) {
	permit, err := l.keyed.Acquire(ctx, l.key, l.capacity)
	if err != nil {
		var zero Out
		return zero, err
	}
	defer permit.Release()

	return l.inner.Execute(ctx, input)
}
