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

package audit

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/relay/pkg/pipeline"
)

func TestSQLiteWriter(t *testing.T) {
	w, err := NewSQLiteWriter(":memory:", "run-1")
	require.NoError(t, err)
	defer w.Close()
	ctx := context.Background()

	require.NoError(t, w.WriteStepInput(ctx, "b", "step1", "b"))
	require.NoError(t, w.WriteStepSuccess(ctx, "b", "step1", map[string]int{"n": 1}))
	require.NoError(t, w.WriteStepInput(ctx, "b", "step2", map[string]int{"n": 1}))
	require.NoError(t, w.WriteStepFailure(ctx, "b", "step2", pipeline.Failure{Kind: "Error", Message: "boom"}))
	require.NoError(t, w.WriteSummary(ctx, pipeline.Summary{
		InputID:    "b",
		Status:     pipeline.StatusFailed,
		Succeeded:  []string{"step1"},
		FailedStep: "step2",
		Failure:    &pipeline.Failure{Kind: "Error", Message: "boom"},
	}))

	records, err := w.StepRecords(ctx, "b")
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, RecordInput, records[0].Kind)
	assert.Equal(t, "b", records[0].Payload)
	assert.Equal(t, `{"n":1}`, records[1].Payload)
	assert.Equal(t, RecordFailure, records[3].Kind)
	assert.Equal(t, "Error", records[3].ErrorType)

	summary, err := w.Summary(ctx, "b")
	require.NoError(t, err)
	require.NotNil(t, summary)
	assert.Equal(t, "Failed", summary.Status)
	assert.Equal(t, []string{"step1"}, summary.ModulesExecuted)
	require.NotNil(t, summary.FailedModule)
	assert.Equal(t, "step2", *summary.FailedModule)
	assert.Equal(t, "boom", summary.Error.Message)

	missing, err := w.Summary(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSQLiteWriter_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "audit.db")
	w, err := NewSQLiteWriter(path, "run-2")
	require.NoError(t, err)

	require.NoError(t, w.WriteSummary(context.Background(), pipeline.Summary{InputID: "a", Status: pipeline.StatusSuccess}))
	require.NoError(t, w.Close())

	reopened, err := NewSQLiteWriter(path, "run-2")
	require.NoError(t, err)
	defer reopened.Close()

	summary, err := reopened.Summary(context.Background(), "a")
	require.NoError(t, err)
	require.NotNil(t, summary)
	assert.Nil(t, summary.FailedModule)
	assert.Nil(t, summary.Error)
	assert.Empty(t, summary.ModulesExecuted)
}
