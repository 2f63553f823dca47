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
	"context"
	"fmt"
	"log/slog"
	"time"
)

// StepEvent identifies one step execution for logging purposes.
type StepEvent struct {
	// Step is the step name.
	Step string

	// InputID is the logical input being processed.
	InputID string

	// CorrelationID ties every line of one input together.
	CorrelationID string
}

// StepOutcome describes how a step execution ended.
type StepOutcome struct {
	// Duration covers every attempt of the step.
	Duration time.Duration

	// Err is the error returned by the step, if any.
	Err error

	// Reported is the reason given by an output that reported failure
	// without returning an error. Empty otherwise.
	Reported string
}

func (e StepEvent) attrs() []any {
	attrs := []any{
		StepKey, e.Step,
		InputIDKey, e.InputID,
	}
	if e.CorrelationID != "" {
		attrs = append(attrs, CorrelationIDKey, e.CorrelationID)
	}
	return attrs
}

// LogStepStarted logs the start of a step.
func LogStepStarted(ctx context.Context, logger *slog.Logger, ev StepEvent) {
	attrs := append(ev.attrs(), EventKey, "step_started")
	logger.InfoContext(ctx, fmt.Sprintf("%s | %s | started", ev.InputID, ev.Step), attrs...)
}

// LogStepFinished logs the end of a step at info, warn or error level
// depending on the outcome.
func LogStepFinished(ctx context.Context, logger *slog.Logger, ev StepEvent, out StepOutcome) {
	ms := out.Duration.Milliseconds()
	attrs := append(ev.attrs(), DurationKey, ms)

	switch {
	case out.Err != nil:
		attrs = append(attrs, EventKey, "step_failed", "error", out.Err.Error())
		logger.ErrorContext(ctx,
			fmt.Sprintf("%s | %s | failed after %dms: %v", ev.InputID, ev.Step, ms, out.Err), attrs...)
	case out.Reported != "":
		attrs = append(attrs, EventKey, "step_reported_failure", "reason", out.Reported)
		logger.WarnContext(ctx,
			fmt.Sprintf("%s | %s | reported failure after %dms: %s", ev.InputID, ev.Step, ms, out.Reported), attrs...)
	default:
		attrs = append(attrs, EventKey, "step_completed")
		logger.InfoContext(ctx,
			fmt.Sprintf("%s | %s | completed in %dms", ev.InputID, ev.Step, ms), attrs...)
	}
}
