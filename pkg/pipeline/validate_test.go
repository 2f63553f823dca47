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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/relay/pkg/errors"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		steps     []Step
		initial   reflect.Type
		wantIndex int
		wantStep  string
		wantOK    bool
	}{
		{
			name:    "aligned chain",
			steps:   []Step{NewStep(upper()), NewStep(length())},
			initial: TypeOf[string](),
			wantOK:  true,
		},
		{
			name:      "empty chain",
			steps:     nil,
			initial:   TypeOf[string](),
			wantIndex: -1,
		},
		{
			name:      "first step rejects initial type",
			steps:     []Step{NewStep(upper())},
			initial:   TypeOf[int](),
			wantIndex: 0,
			wantStep:  "Uppercase",
		},
		{
			name:      "adjacent mismatch",
			steps:     []Step{NewStep(length()), NewStep(upper())},
			initial:   TypeOf[string](),
			wantIndex: 1,
			wantStep:  "Uppercase",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.steps, tt.initial)
			if tt.wantOK {
				assert.NoError(t, err)
				return
			}
			var chainErr *errors.ChainError
			require.ErrorAs(t, err, &chainErr)
			assert.Equal(t, tt.wantIndex, chainErr.Index)
			assert.Equal(t, tt.wantStep, chainErr.Step)
		})
	}
}

func TestValidate_ErrorNamesTypes(t *testing.T) {
	err := Validate([]Step{NewStep(length()), NewStep(upper())}, TypeOf[string]())
	require.Error(t, err)
	assert.Equal(t,
		`invalid pipeline chain at step "Uppercase" (index 1): expected input type int, but step requires string`,
		err.Error())
}

func TestNewChain(t *testing.T) {
	steps := []Step{NewStep(upper()), NewStep(length())}
	chain, err := NewChain(TypeOf[string](), steps...)
	require.NoError(t, err)

	assert.Equal(t, 2, chain.Len())
	assert.Equal(t, []string{"Uppercase", "Length"}, chain.Names())
	assert.Equal(t, TypeOf[string](), chain.InputType())
	assert.Equal(t, TypeOf[int](), chain.OutputType())

	// Mutating the caller's slice or the returned copy must not affect the chain.
	steps[0] = NewStep(length())
	got := chain.Steps()
	got[1] = nil
	assert.Equal(t, []string{"Uppercase", "Length"}, chain.Names())

	_, err = NewChain(TypeOf[int](), NewStep(upper()))
	assert.Error(t, err)
}
