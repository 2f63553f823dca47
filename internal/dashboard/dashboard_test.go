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

package dashboard

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/relay/internal/log"
	"github.com/tombee/relay/pkg/gate"
	"github.com/tombee/relay/pkg/liveness"
)

func TestRender_Empty(t *testing.T) {
	d := New(&bytes.Buffer{}, nil, nil, nil, WithWidth(80))

	frame := d.Render()
	assert.Contains(t, frame, "Logs")
	assert.Contains(t, frame, "No logs yet")
	assert.Contains(t, frame, "No active inputs")
}

func TestRender_Sources(t *testing.T) {
	tracker := liveness.NewTracker()
	tracker.Start("corr-1", "example.com")
	tracker.UpdateStage("corr-1", "FetchHomepage")

	progress := liveness.NewProgress(4)
	progress.MarkCompleted()

	logs := log.NewBuffer(10)
	logs.Add("[INFO] [corr-1] FetchHomepage | example.com | started")

	d := New(&bytes.Buffer{}, tracker, progress, logs, WithWidth(100))
	frame := d.Render()

	assert.Contains(t, frame, "FetchHomepage | example.com | started")
	assert.Contains(t, frame, "1 / 4 (25%)")
	assert.Contains(t, frame, "Active: 1")
	assert.Contains(t, frame, "ETA:")
	assert.Contains(t, frame, "(done ~")
	assert.Contains(t, frame, "example.com")
	assert.Contains(t, frame, "00:00")
}

func TestRender_LimitsLogLines(t *testing.T) {
	logs := log.NewBuffer(50)
	for i := 0; i < 30; i++ {
		logs.Add("line-" + string(rune('a'+i%26)) + strings.Repeat("x", i))
	}

	d := New(&bytes.Buffer{}, nil, nil, logs, WithLogLines(2), WithWidth(120))
	frame := d.Render()

	assert.NotContains(t, frame, "line-a")
	assert.Contains(t, frame, strings.Repeat("x", 29))
}

func TestRun_DrawsUntilCancelled(t *testing.T) {
	var out bytes.Buffer
	d := New(&out, nil, liveness.NewProgress(1), nil, WithInterval(5*time.Millisecond), WithWidth(80))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	d.Run(ctx)

	assert.GreaterOrEqual(t, strings.Count(out.String(), "Pipeline Status"), 2)
	assert.NotContains(t, out.String(), clearScreen, "non-terminal output is not cleared")
}

func TestFormatClock(t *testing.T) {
	assert.Equal(t, "00:00:05", formatClock(5*time.Second))
	assert.Equal(t, "01:02:03", formatClock(time.Hour+2*time.Minute+3*time.Second))
	assert.Equal(t, "02:05", formatMinutes(2*time.Minute+5*time.Second))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab...", truncate("abcdefgh", 5))
	assert.Equal(t, "ab", truncate("abcdefgh", 2))
	assert.Equal(t, "", truncate("abc", 0))
}

func TestRender_PoolUsage(t *testing.T) {
	pools := gate.NewKeyed()
	permit, err := pools.Acquire(context.Background(), "Uppercase", 2)
	require.NoError(t, err)
	defer permit.Release()
	other, err := pools.Acquire(context.Background(), "Length", 3)
	require.NoError(t, err)
	other.Release()

	frame := New(&bytes.Buffer{}, nil, nil, nil, WithWidth(100), WithPools(pools)).Render()
	assert.Contains(t, frame, "Pools: Length 0/3, Uppercase 1/2")
}

func TestRender_NoPoolsLine(t *testing.T) {
	frame := New(&bytes.Buffer{}, nil, nil, nil, WithWidth(100), WithPools(gate.NewKeyed())).Render()
	assert.NotContains(t, frame, "Pools:")
}
