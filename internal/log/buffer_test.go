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

package log

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuffer_DropsOldest(t *testing.T) {
	b := NewBuffer(3)
	for i := 1; i <= 5; i++ {
		b.Add(fmt.Sprintf("line %d", i))
	}

	assert.Equal(t, 3, b.Len())
	assert.Equal(t, []string{"line 3", "line 4", "line 5"}, b.Snapshot(10))
	assert.Equal(t, []string{"line 4", "line 5"}, b.Snapshot(2))
}

func TestBuffer_Defaults(t *testing.T) {
	b := NewBuffer(0)
	for i := 0; i < DefaultBufferSize+10; i++ {
		b.Add("x")
	}
	assert.Equal(t, DefaultBufferSize, b.Len())
	assert.Len(t, b.Snapshot(0), DefaultSnapshotSize)
}

func TestBuffer_Concurrent(t *testing.T) {
	b := NewBuffer(50)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				b.Add("line")
				_ = b.Snapshot(5)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, b.Len())
}

func TestBufferHandler_Format(t *testing.T) {
	buf := NewBuffer(10)
	logger := slog.New(NewBufferHandler(buf, slog.LevelInfo))

	logger.Debug("hidden")
	logger.Info("plain")
	logger.Warn("tagged", CorrelationIDKey, "abc")
	logger.With(CorrelationIDKey, "def").Error("inherited")

	assert.Equal(t, []string{
		"[INFO] [-] plain",
		"[WARN] [abc] tagged",
		"[ERROR] [def] inherited",
	}, buf.Snapshot(0))
}

func TestTee(t *testing.T) {
	var out bytes.Buffer
	ring := NewBuffer(10)
	logger := slog.New(Tee(
		NewHandler(&Config{Level: "error", Format: FormatText, Output: &out}),
		NewBufferHandler(ring, slog.LevelInfo),
	))

	logger.Info("to ring only", CorrelationIDKey, "c1")
	logger.Error("to both")

	require.Equal(t, 2, ring.Len())
	assert.NotContains(t, out.String(), "to ring only")
	assert.True(t, strings.Contains(out.String(), "to both"))
}

func TestLogStepFinished_Levels(t *testing.T) {
	ring := NewBuffer(10)
	logger := slog.New(NewBufferHandler(ring, slog.LevelInfo))
	ev := StepEvent{Step: "Uppercase", InputID: "a", CorrelationID: "c1"}

	LogStepStarted(context.Background(), logger, ev)
	LogStepFinished(context.Background(), logger, ev, StepOutcome{})
	LogStepFinished(context.Background(), logger, ev, StepOutcome{Reported: "404"})
	LogStepFinished(context.Background(), logger, ev, StepOutcome{Err: fmt.Errorf("boom")})

	lines := ring.Snapshot(0)
	require.Len(t, lines, 4)
	assert.Equal(t, "[INFO] [c1] a | Uppercase | started", lines[0])
	assert.Equal(t, "[INFO] [c1] a | Uppercase | completed in 0ms", lines[1])
	assert.Equal(t, "[WARN] [c1] a | Uppercase | reported failure after 0ms: 404", lines[2])
	assert.Equal(t, "[ERROR] [c1] a | Uppercase | failed after 0ms: boom", lines[3])
}
