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
	"reflect"

	"github.com/tombee/relay/pkg/errors"
)

// Module is a named, strongly typed unit of work. Implementations must not
// retain ctx beyond the call; the RunContext for the current attempt is
// available through FromContext(ctx).
type Module[In, Out any] interface {
	// Name identifies the module for admission keys, audit paths and logs.
	Name() string

	// Execute transforms input. It should return promptly once ctx is done.
	Execute(ctx context.Context, input In) (Out, error)
}

// NewModule adapts a function into a Module.
func NewModule[In, Out any](name string, fn func(ctx context.Context, input In) (Out, error)) Module[In, Out] {
	return &funcModule[In, Out]{name: name, fn: fn}
}

type funcModule[In, Out any] struct {
	name string
	fn   func(ctx context.Context, input In) (Out, error)
}

func (m *funcModule[In, Out]) Name() string { return m.name }

func (m *funcModule[In, Out]) Execute(ctx context.Context, input In) (Out, error) {
	return m.fn(ctx, input)
}

// Step is the type-erased form of a Module. InputType and OutputType are
// the declared type tags used by Validate.
type Step interface {
	Name() string
	InputType() reflect.Type
	OutputType() reflect.Type
	Execute(ctx context.Context, input any) (any, error)
}

// TypeOf returns the type tag for T. Interface types are preserved.
func TypeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// NewStep wraps m as a Step. The returned Step checks the dynamic type of
// its input on every invocation and fails with *errors.TypeMismatchError on
// a mismatch.
func NewStep[In, Out any](m Module[In, Out]) Step {
	return &typedStep[In, Out]{
		module: m,
		in:     TypeOf[In](),
		out:    TypeOf[Out](),
	}
}

type typedStep[In, Out any] struct {
	module Module[In, Out]
	in     reflect.Type
	out    reflect.Type
}

func (s *typedStep[In, Out]) Name() string             { return s.module.Name() }
func (s *typedStep[In, Out]) InputType() reflect.Type  { return s.in }
func (s *typedStep[In, Out]) OutputType() reflect.Type { return s.out }

func (s *typedStep[In, Out]) Execute(ctx context.Context, input any) (any, error) {
	typed, ok := input.(In)
	if !ok {
		return nil, &errors.TypeMismatchError{
			Step:     s.module.Name(),
			Expected: s.in,
			Actual:   reflect.TypeOf(input),
		}
	}
	out, err := s.module.Execute(ctx, typed)
	if err != nil {
		return nil, err
	}
	return out, nil
}
