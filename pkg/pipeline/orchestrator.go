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
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"github.com/tombee/relay/internal/log"
	"github.com/tombee/relay/internal/metrics"
	"github.com/tombee/relay/internal/tracing"
	"github.com/tombee/relay/pkg/errors"
)

// ErrNoRunContext is returned when a run is started on a context that does
// not carry a RunContext.
var ErrNoRunContext = errors.New("context carries no RunContext")

// Audit operations, used as metric labels for failed writes.
const (
	auditInput   = "input"
	auditSuccess = "success"
	auditFailure = "failure"
	auditSummary = "summary"
)

// Orchestrator executes a validated chain for one input at a time. It is
// safe for concurrent use; every call operates on its own RunContext.
type Orchestrator struct {
	chain   *Chain
	auditor Auditor
	logger  *slog.Logger
	tracer  trace.Tracer
}

// NewOrchestrator creates an Orchestrator for chain. A nil auditor discards
// the audit trail.
func NewOrchestrator(chain *Chain, auditor Auditor) *Orchestrator {
	if auditor == nil {
		auditor = NopAuditor{}
	}
	return &Orchestrator{
		chain:   chain,
		auditor: auditor,
		logger:  slog.Default(),
	}
}

// WithLogger sets the logger used for audit failures and run events.
func (o *Orchestrator) WithLogger(logger *slog.Logger) *Orchestrator {
	o.logger = logger
	return o
}

// WithTracer enables one span per run.
func (o *Orchestrator) WithTracer(tracer trace.Tracer) *Orchestrator {
	o.tracer = tracer
	return o
}

// Chain returns the chain being executed.
func (o *Orchestrator) Chain() *Chain { return o.chain }

// Execute runs the chain for input. It returns the last step's output on
// success, (nil, nil) when a step reported failure through Failable, and
// the step's error when a step failed.
func (o *Orchestrator) Execute(ctx context.Context, input any) (any, error) {
	out, _, err := o.ExecuteOutcome(ctx, input)
	return out, err
}

// ExecuteOutcome is Execute that also returns the terminal summary written
// for the input.
func (o *Orchestrator) ExecuteOutcome(ctx context.Context, input any) (any, Summary, error) {
	rc, ok := FromContext(ctx)
	if !ok {
		return nil, Summary{}, ErrNoRunContext
	}

	inputID := rc.InputID()
	logger := log.WithInputContext(o.logger, inputID, rc.CorrelationID())
	summary := Summary{
		InputID:       inputID,
		CorrelationID: rc.CorrelationID(),
		Succeeded:     []string{},
	}

	// Audit records must be written even after cancellation.
	auditCtx := context.WithoutCancel(ctx)

	var span *tracing.Span
	if o.tracer != nil {
		ctx, span = tracing.StartRun(ctx, o.tracer, inputID, rc.CorrelationID())
	}
	defer span.End()

	value := input
	for _, step := range o.chain.steps {
		name := step.Name()
		stepLogger := logger.With(log.StepKey, name)

		o.audit(stepLogger, auditInput, func() error {
			return o.auditor.WriteStepInput(auditCtx, inputID, name, value)
		})

		var out any
		var err error
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = &errors.CancelledError{Operation: "step " + name, Cause: ctxErr}
		} else {
			out, err = executeStep(ctx, step, value)
		}

		if err != nil {
			failure := FailureFromError(err)
			o.fail(auditCtx, stepLogger, &summary, name, failure)
			span.RecordError(err)
			return nil, summary, err
		}

		if reason, failed := ReportedFailure(out); failed {
			o.fail(auditCtx, stepLogger, &summary, name, Failure{
				Kind:    KindReportedFailure,
				Message: reason,
			})
			span.MarkFailed(reason)
			return nil, summary, nil
		}

		o.audit(stepLogger, auditSuccess, func() error {
			return o.auditor.WriteStepSuccess(auditCtx, inputID, name, out)
		})
		summary.Succeeded = append(summary.Succeeded, name)
		value = out
	}

	summary.Status = StatusSuccess
	o.audit(logger, auditSummary, func() error {
		return o.auditor.WriteSummary(auditCtx, summary)
	})
	span.MarkOK()
	logger.Debug("input completed", "steps", len(summary.Succeeded))
	return value, summary, nil
}

// Abort writes the terminal summary for an input that never reached its
// first step, for example because it was cancelled while waiting for
// admission. The summary names no failed step.
func (o *Orchestrator) Abort(ctx context.Context, cause error) Summary {
	rc, ok := FromContext(ctx)
	if !ok {
		return Summary{Status: StatusFailed}
	}

	failure := FailureFromError(cause)
	summary := Summary{
		InputID:       rc.InputID(),
		CorrelationID: rc.CorrelationID(),
		Status:        StatusFailed,
		Succeeded:     []string{},
		Failure:       &failure,
	}

	logger := log.WithInputContext(o.logger, rc.InputID(), rc.CorrelationID())
	o.audit(logger, auditSummary, func() error {
		return o.auditor.WriteSummary(context.WithoutCancel(ctx), summary)
	})
	return summary
}

// executeStep runs step, converting a panic into *errors.StepPanicError so
// it fails only this input.
func executeStep(ctx context.Context, step Step, value any) (out any, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = &errors.StepPanicError{Step: step.Name(), Value: r}
		}
	}()
	return step.Execute(ctx, value)
}

func (o *Orchestrator) fail(ctx context.Context, logger *slog.Logger, summary *Summary, step string, failure Failure) {
	o.audit(logger, auditFailure, func() error {
		return o.auditor.WriteStepFailure(ctx, summary.InputID, step, failure)
	})

	summary.Status = StatusFailed
	summary.FailedStep = step
	summary.Failure = &failure
	o.audit(logger, auditSummary, func() error {
		return o.auditor.WriteSummary(ctx, *summary)
	})
}

// audit runs one write. Failures are logged and counted; they never change
// the outcome of the run.
func (o *Orchestrator) audit(logger *slog.Logger, operation string, write func() error) {
	if err := write(); err != nil {
		metrics.RecordAuditError(operation)
		logger.Error("audit write failed", "operation", operation, log.Error(err))
	}
}
