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

package liveness

import (
	"sync/atomic"
	"time"
)

// Progress counts inputs that reached a terminal state out of a fixed total.
type Progress struct {
	total     int64
	completed atomic.Int64
	startedAt time.Time
	now       func() time.Time
}

// NewProgress starts the clock for total expected inputs.
func NewProgress(total int) *Progress {
	return &Progress{
		total:     int64(total),
		startedAt: time.Now(),
		now:       time.Now,
	}
}

// MarkCompleted records one input reaching its final outcome.
func (p *Progress) MarkCompleted() {
	p.completed.Add(1)
}

// Completed returns the number of finished inputs.
func (p *Progress) Completed() int { return int(p.completed.Load()) }

// Total returns the number of expected inputs.
func (p *Progress) Total() int { return int(p.total) }

// Elapsed returns the time since NewProgress.
func (p *Progress) Elapsed() time.Duration { return p.now().Sub(p.startedAt) }

// AveragePerItem returns the mean wall time per completed input, and false
// when nothing has completed yet.
func (p *Progress) AveragePerItem() (time.Duration, bool) {
	done := p.completed.Load()
	if done == 0 {
		return 0, false
	}
	return p.Elapsed() / time.Duration(done), true
}

// EstimatedRemaining returns elapsed / completed * remaining, and false
// when nothing has completed yet.
func (p *Progress) EstimatedRemaining() (time.Duration, bool) {
	avg, ok := p.AveragePerItem()
	if !ok {
		return 0, false
	}
	remaining := p.total - p.completed.Load()
	if remaining < 0 {
		remaining = 0
	}
	return avg * time.Duration(remaining), true
}

// EstimatedFinish returns the wall-clock time at which the remaining inputs
// are expected to finish.
func (p *Progress) EstimatedFinish() (time.Time, bool) {
	remaining, ok := p.EstimatedRemaining()
	if !ok {
		return time.Time{}, false
	}
	return p.now().Add(remaining), true
}
