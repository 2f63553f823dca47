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
	"reflect"

	"github.com/tombee/relay/pkg/errors"
)

// Validate checks that steps form an executable chain starting from a value
// of type initial. It walks the list once, threading the expected type
// forward, and returns *errors.ChainError for the first offending step or
// for an empty list.
func Validate(steps []Step, initial reflect.Type) error {
	if len(steps) == 0 {
		return &errors.ChainError{Index: -1}
	}

	current := initial
	for i, step := range steps {
		if step.InputType() != current {
			return &errors.ChainError{
				Index:    i,
				Step:     step.Name(),
				Expected: current,
				Actual:   step.InputType(),
			}
		}
		current = step.OutputType()
	}
	return nil
}

// Chain is a validated, immutable list of steps.
type Chain struct {
	initial reflect.Type
	steps   []Step
}

// NewChain validates steps against initial and returns the chain.
func NewChain(initial reflect.Type, steps ...Step) (*Chain, error) {
	if err := Validate(steps, initial); err != nil {
		return nil, err
	}
	copied := make([]Step, len(steps))
	copy(copied, steps)
	return &Chain{initial: initial, steps: copied}, nil
}

// Steps returns a copy of the chain's steps in execution order.
func (c *Chain) Steps() []Step {
	out := make([]Step, len(c.steps))
	copy(out, c.steps)
	return out
}

// Len returns the number of steps.
func (c *Chain) Len() int { return len(c.steps) }

// InputType returns the declared initial type.
func (c *Chain) InputType() reflect.Type { return c.initial }

// OutputType returns the output type of the last step.
func (c *Chain) OutputType() reflect.Type { return c.steps[len(c.steps)-1].OutputType() }

// Names returns the step names in execution order.
func (c *Chain) Names() []string {
	names := make([]string, len(c.steps))
	for i, s := range c.steps {
		names[i] = s.Name()
	}
	return names
}
