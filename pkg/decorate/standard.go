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
	"github.com/tombee/relay/pkg/gate"
	"github.com/tombee/relay/pkg/pipeline"
)

// Options configures Standard.
type Options struct {
	// Gate holds the module pools. Required when Capacity > 0.
	Gate *gate.Keyed

	// Capacity bounds concurrent invocations per key. Zero disables
	// admission limiting.
	Capacity int

	// Key overrides the admission key (default: module name).
	Key string

	// Retry is the retry policy. The zero value means one attempt with no
	// deadline.
	Retry RetryPolicy

	// Observer receives timing, logs, liveness and spans.
	Observer Observer
}

// Standard composes Observe -> Retry -> Limit -> m.
func Standard[In, Out any](m pipeline.Module[In, Out], opts Options) (pipeline.Module[In, Out], error) {
	wrapped := m

	if opts.Capacity > 0 {
		var limitOpts []LimitOption
		if opts.Key != "" {
			limitOpts = append(limitOpts, WithKey(opts.Key))
		}
		limited, err := Limit(wrapped, opts.Gate, opts.Capacity, limitOpts...)
		if err != nil {
			return nil, err
		}
		wrapped = limited
	}

	retried, err := Retry(wrapped, opts.Retry)
	if err != nil {
		return nil, err
	}

	return Observe(retried, opts.Observer), nil
}

// StandardStep is Standard followed by pipeline.NewStep.
func StandardStep[In, Out any](m pipeline.Module[In, Out], opts Options) (pipeline.Step, error) {
	decorated, err := Standard(m, opts)
	if err != nil {
		return nil, err
	}
	return pipeline.NewStep(decorated), nil
}
