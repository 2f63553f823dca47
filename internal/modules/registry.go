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
	"fmt"
	"net/http"
	"sort"
	"sync"

	"github.com/tombee/relay/pkg/decorate"
	"github.com/tombee/relay/pkg/errors"
	"github.com/tombee/relay/pkg/pipeline"
)

// Deps are the shared resources steps may need.
type Deps struct {
	HTTPClient *http.Client
}

// StepFactory builds a decorated step from its dependencies and options.
type StepFactory func(deps Deps, opts decorate.Options) (pipeline.Step, error)

// Registry maps step names to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]StepFactory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]StepFactory)}
}

// Builtin returns a registry holding every built-in step.
func Builtin() *Registry {
	r := NewRegistry()
	mustRegister(r, "Uppercase", func(Deps) (pipeline.Module[string, string], error) {
		return NewUppercase(), nil
	})
	mustRegister(r, "Length", func(Deps) (pipeline.Module[string, int], error) {
		return NewLength(), nil
	})
	mustRegister(r, "FetchHomepage", func(d Deps) (pipeline.Module[string, FetchResult], error) {
		return NewFetchHomepage(d.HTTPClient)
	})
	mustRegister(r, "ParsePage", func(Deps) (pipeline.Module[FetchResult, PageInfo], error) {
		return ParsePage{}, nil
	})
	return r
}

// Register adds a factory. Returns an error if the name is empty or taken.
func (r *Registry) Register(name string, factory StepFactory) error {
	if name == "" {
		return fmt.Errorf("step name cannot be empty")
	}
	if factory == nil {
		return fmt.Errorf("step factory cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("step %q is already registered", name)
	}
	r.factories[name] = factory
	return nil
}

// RegisterModule registers a typed module constructor. The module is wrapped
// with decorate.Standard on creation.
func RegisterModule[In, Out any](r *Registry, name string, build func(Deps) (pipeline.Module[In, Out], error)) error {
	return r.Register(name, func(deps Deps, opts decorate.Options) (pipeline.Step, error) {
		m, err := build(deps)
		if err != nil {
			return nil, err
		}
		return decorate.StandardStep(m, opts)
	})
}

func mustRegister[In, Out any](r *Registry, name string, build func(Deps) (pipeline.Module[In, Out], error)) {
	if err := RegisterModule(r, name, build); err != nil {
		panic(err)
	}
}

// Create builds the named step.
func (r *Registry) Create(name string, deps Deps, opts decorate.Options) (pipeline.Step, error) {
	r.mu.RLock()
	factory, exists := r.factories[name]
	r.mu.RUnlock()

	if !exists {
		return nil, &errors.NotFoundError{Resource: "step", ID: name}
	}
	step, err := factory(deps, opts)
	if err != nil {
		return nil, errors.Wrapf(err, "creating step %q", name)
	}
	return step, nil
}

// Has returns true if a step with the given name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.factories[name]
	return exists
}

// List returns the registered step names in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
