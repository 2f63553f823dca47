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
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/tombee/relay/internal/log"
	"github.com/tombee/relay/internal/metrics"
	"github.com/tombee/relay/internal/tracing"
	"github.com/tombee/relay/pkg/liveness"
	"github.com/tombee/relay/pkg/pipeline"
)

// Step statuses recorded in metrics.
const (
	stepSucceeded       = "success"
	stepFailed          = "failed"
	stepReportedFailure = "reported_failure"
)

// Observer collects the sinks Observe reports to. Nil fields are skipped,
// except Logger which falls back to slog.Default().
type Observer struct {
	Logger  *slog.Logger
	Tracker *liveness.Tracker
	Tracer  trace.Tracer
}

// Observe wraps m with timing, logging, liveness and tracing. It never
// changes the result or the error returned by m.
func Observe[In, Out any](m pipeline.Module[In, Out], obs Observer) pipeline.Module[In, Out] {
	if obs.Logger == nil {
		obs.Logger = slog.Default()
	}
	return &observed[In, Out]{inner: m, obs: obs}
}

type observed[In, Out any] struct {
	inner pipeline.Module[In, Out]
	obs   Observer
}

func (o *observed[In, Out]) Name() string { return o.inner.Name() }

func (o *observed[In, Out]) Execute(ctx context.Context, input In) (Out, error) {
	name := o.inner.Name()
	ev := log.StepEvent{Step: name}
	if rc, ok := pipeline.FromContext(ctx); ok {
		ev.InputID = rc.InputID()
		ev.CorrelationID = rc.CorrelationID()
		if o.obs.Tracker != nil {
			o.obs.Tracker.UpdateStage(ev.CorrelationID, name)
		}
	}

	log.LogStepStarted(ctx, o.obs.Logger, ev)

	var span *tracing.Span
	if o.obs.Tracer != nil {
		ctx, span = tracing.StartStep(ctx, o.obs.Tracer, name, ev.InputID, ev.CorrelationID)
	}
	defer span.End()

	start := time.Now()
	out, err := o.inner.Execute(ctx, input)
	outcome := log.StepOutcome{Duration: time.Since(start), Err: err}

	status := stepSucceeded
	if err != nil {
		status = stepFailed
		span.RecordError(err)
	} else if reason, failed := pipeline.ReportedFailure(out); failed {
		status = stepReportedFailure
		outcome.Reported = reason
		span.AddEvent("reported_failure", map[string]any{"reason": reason})
		span.MarkFailed(reason)
	} else {
		span.MarkOK()
	}
	span.SetAttributes(map[string]any{
		"relay.step.status":      status,
		"relay.step.duration_ms": outcome.Duration.Milliseconds(),
	})

	metrics.RecordStep(name, status, outcome.Duration)
	log.LogStepFinished(ctx, o.obs.Logger, ev, outcome)
	return out, err
}
