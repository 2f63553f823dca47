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

package modules

import (
	"github.com/tombee/relay/internal/config"
	"github.com/tombee/relay/pkg/decorate"
	"github.com/tombee/relay/pkg/gate"
	"github.com/tombee/relay/pkg/pipeline"
)

// ChainOptions carries the shared engine resources a chain is built with.
type ChainOptions struct {
	Deps     Deps
	Gate     *gate.Keyed
	Observer decorate.Observer
}

// BuildChain creates every configured step, decorates it and validates the
// chain against a string input. Any failure is a configuration error and
// must stop the run before inputs are processed.
func BuildChain(reg *Registry, steps []config.StepConfig, opts ChainOptions) (*pipeline.Chain, error) {
	built := make([]pipeline.Step, 0, len(steps))
	for _, sc := range steps {
		step, err := reg.Create(sc.Name, opts.Deps, decorate.Options{
			Gate:     opts.Gate,
			Capacity: sc.MaxConcurrency,
			Key:      sc.Key,
			Retry: decorate.RetryPolicy{
				MaxRetries: sc.MaxRetries,
				Timeout:    sc.Timeout,
				Delay:      sc.RetryDelay,
			},
			Observer: opts.Observer,
		})
		if err != nil {
			return nil, err
		}
		built = append(built, step)
	}
	return pipeline.NewChain(pipeline.TypeOf[string](), built...)
}
