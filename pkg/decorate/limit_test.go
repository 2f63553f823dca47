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
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/relay/pkg/errors"
	"github.com/tombee/relay/pkg/gate"
	"github.com/tombee/relay/pkg/pipeline"
)

// concurrencyGauge records the peak number of simultaneous invocations.
type concurrencyGauge struct {
	current atomic.Int32
	peak    atomic.Int32
}

func (p *concurrencyGauge) module(name string, hold time.Duration, err error) pipeline.Module[int, int] {
	return pipeline.NewModule(name, func(ctx context.Context, in int) (int, error) {
		n := p.current.Add(1)
		defer p.current.Add(-1)
		for {
			peak := p.peak.Load()
			if n <= peak || p.peak.CompareAndSwap(peak, n) {
				break
			}
		}
		time.Sleep(hold)
		return in, err
	})
}

func runConcurrently(t *testing.T, n int, m pipeline.Module[int, int]) {
	t.Helper()
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = m.Execute(context.Background(), i)
		}(i)
	}
	wg.Wait()
}

func TestLimit_AdmissionBound(t *testing.T) {
	keyed := gate.NewKeyed()
	gauge := &concurrencyGauge{}

	m, err := Limit(gauge.module("Bounded", 5*time.Millisecond, nil), keyed, 2)
	require.NoError(t, err)
	assert.Equal(t, "Bounded", m.Name())

	runConcurrently(t, 12, m)

	assert.LessOrEqual(t, gauge.peak.Load(), int32(2))
	assert.Equal(t, 0, keyed.InUse("Bounded"))
}

func TestLimit_ReleasesOnError(t *testing.T) {
	keyed := gate.NewKeyed()
	gauge := &concurrencyGauge{}

	m, err := Limit(gauge.module("Failing", 0, errTransient), keyed, 1)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := m.Execute(context.Background(), i)
		assert.ErrorIs(t, err, errTransient)
	}
	assert.Equal(t, 0, keyed.InUse("Failing"))
}

func TestLimit_SharedKey(t *testing.T) {
	keyed := gate.NewKeyed()
	gauge := &concurrencyGauge{}

	a, err := Limit(gauge.module("A", 5*time.Millisecond, nil), keyed, 1, WithKey("shared"))
	require.NoError(t, err)
	b, err := Limit(gauge.module("B", 5*time.Millisecond, nil), keyed, 1, WithKey("shared"))
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); runConcurrently(t, 5, a) }()
	go func() { defer wg.Done(); runConcurrently(t, 5, b) }()
	wg.Wait()

	assert.Equal(t, int32(1), gauge.peak.Load())
	assert.ElementsMatch(t, []string{"shared"}, keyed.Keys())
}

func TestLimit_CancelledWhileWaiting(t *testing.T) {
	keyed := gate.NewKeyed()
	held, err := keyed.Acquire(context.Background(), "Busy", 1)
	require.NoError(t, err)
	defer held.Release()

	var calls atomic.Int32
	m, err := Limit(pipeline.NewModule("Busy", func(ctx context.Context, in int) (int, error) {
		calls.Add(1)
		return in, nil
	}), keyed, 1)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = m.Execute(ctx, 1)

	var cancelled *errors.CancelledError
	require.ErrorAs(t, err, &cancelled)
	assert.Equal(t, int32(0), calls.Load())
}

func TestLimit_InvalidConfig(t *testing.T) {
	gauge := &concurrencyGauge{}
	inner := gauge.module("X", 0, nil)

	_, err := Limit(inner, gate.NewKeyed(), 0)
	var cfgErr *errors.ConfigError
	assert.ErrorAs(t, err, &cfgErr)

	_, err = Limit(inner, nil, 1)
	assert.ErrorAs(t, err, &cfgErr)

	_, err = Limit(inner, gate.NewKeyed(), 1, WithKey(""))
	assert.ErrorAs(t, err, &cfgErr)
}
