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

package validate

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/relay/internal/commands/shared"
	"github.com/tombee/relay/internal/config"
	"github.com/tombee/relay/internal/modules"
)

func TestValidate_Default(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, Validate(&buf, config.Default(), modules.Builtin()))

	out := buf.String()
	assert.Contains(t, out, "Pipeline validation: OK")
	assert.Contains(t, out, "1. Uppercase")
	assert.Contains(t, out, "(string -> int)")
}

func TestValidate_Homepage(t *testing.T) {
	cfg := config.Default()
	cfg.Steps = []config.StepConfig{{Name: "FetchHomepage"}, {Name: "ParsePage"}}

	var buf bytes.Buffer
	require.NoError(t, Validate(&buf, cfg, modules.Builtin()))
	assert.Contains(t, buf.String(), "ParsePage")
}

func TestValidate_Mismatch(t *testing.T) {
	cfg := config.Default()
	cfg.Steps = []config.StepConfig{{Name: "Length"}, {Name: "Uppercase"}}

	err := Validate(&bytes.Buffer{}, cfg, modules.Builtin())
	assert.Equal(t, shared.ExitInvalidPipeline, shared.ExitCode(err))
}

func TestValidate_JSON(t *testing.T) {
	shared.SetJSONForTest(true)
	defer shared.SetJSONForTest(false)

	cfg := config.Default()
	cfg.Steps = []config.StepConfig{{Name: "Length"}, {Name: "Uppercase"}}

	var buf bytes.Buffer
	err := Validate(&buf, cfg, modules.Builtin())
	require.Error(t, err)

	var resp validateJSON
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.False(t, resp.Success)
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, "ChainError", resp.Errors[0].Code)
	assert.Equal(t, "Uppercase", resp.Errors[0].Step)
	assert.NotEmpty(t, resp.Errors[0].Suggestion)
}

func TestNewCommand(t *testing.T) {
	cmd := NewCommand()
	assert.Equal(t, "validate", cmd.Use)
	assert.NotEmpty(t, cmd.Short)
}
