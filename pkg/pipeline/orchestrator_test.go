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
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/tombee/relay/internal/log"
	"github.com/tombee/relay/pkg/errors"
)

func TestOrchestrator_ShortCircuitOnError(t *testing.T) {
	boom := fmt.Errorf("boom")
	var c1, c2, c3 atomic.Int32
	chain, err := NewChain(TypeOf[string](),
		countingStep("step1", &c1, func(s string) (string, error) { return s + "1", nil }),
		countingStep("step2", &c2, func(s string) (string, error) { return "", boom }),
		countingStep("step3", &c3, func(s string) (string, error) { return s + "3", nil }),
	)
	require.NoError(t, err)

	auditor := &recordingAuditor{}
	orch := NewOrchestrator(chain, auditor).WithLogger(log.Discard())

	ctx, rc := runContext("x")
	out, summary, err := orch.ExecuteOutcome(ctx, "x")

	assert.Nil(t, out)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, int32(0), c3.Load())
	assert.Equal(t, []string{
		"input:step1", "success:step1",
		"input:step2", "failure:step2",
		"summary",
	}, auditor.ops("x"))

	assert.Equal(t, StatusFailed, summary.Status)
	assert.Equal(t, "step2", summary.FailedStep)
	assert.Equal(t, []string{"step1"}, summary.Succeeded)
	assert.Equal(t, rc.CorrelationID(), summary.CorrelationID)
	require.NotNil(t, summary.Failure)
	assert.Equal(t, "Error", summary.Failure.Kind)
	assert.Equal(t, "boom", summary.Failure.Message)

	// The input snapshot of step2 is step1's output.
	assert.Equal(t, "x1", auditor.records[2].Value)
}

func TestOrchestrator_ReportedFailureShortCircuits(t *testing.T) {
	var c1, c2 atomic.Int32
	chain, err := NewChain(TypeOf[string](),
		countingStep("Fetch", &c1, func(s string) (domainResult, error) {
			return domainResult{reason: "unreachable"}, nil
		}),
		countingStep("Parse", &c2, func(d domainResult) (string, error) { return "parsed", nil }),
	)
	require.NoError(t, err)

	auditor := &recordingAuditor{}
	orch := NewOrchestrator(chain, auditor).WithLogger(log.Discard())

	ctx, _ := runContext("site")
	out, err := orch.Execute(ctx, "site")

	assert.NoError(t, err, "reported failure is an outcome, not an error")
	assert.Nil(t, out)
	assert.Equal(t, int32(0), c2.Load())
	assert.Equal(t, []string{"input:Fetch", "failure:Fetch", "summary"}, auditor.ops("site"))

	summaries := auditor.summaries("site")
	require.Len(t, summaries, 1)
	assert.Equal(t, "Fetch", summaries[0].FailedStep)
	assert.Equal(t, &Failure{Kind: KindReportedFailure, Message: "unreachable"}, summaries[0].Failure)
	assert.Empty(t, summaries[0].Succeeded)
}

func TestOrchestrator_Success(t *testing.T) {
	chain, err := NewChain(TypeOf[string](), NewStep(upper()), NewStep(length()))
	require.NoError(t, err)

	auditor := &recordingAuditor{}
	orch := NewOrchestrator(chain, auditor).WithLogger(log.Discard())

	ctx, _ := runContext("abc")
	out, summary, err := orch.ExecuteOutcome(ctx, "abc")

	require.NoError(t, err)
	assert.Equal(t, 3, out)
	assert.Equal(t, StatusSuccess, summary.Status)
	assert.Equal(t, []string{"Uppercase", "Length"}, summary.Succeeded)
	assert.Empty(t, summary.FailedStep)
	assert.Nil(t, summary.Failure)
	assert.Equal(t, []string{
		"input:Uppercase", "success:Uppercase",
		"input:Length", "success:Length",
		"summary",
	}, auditor.ops("abc"))
}

func TestOrchestrator_CancelledBeforeStep(t *testing.T) {
	var calls atomic.Int32
	chain, err := NewChain(TypeOf[string](),
		countingStep("s1", &calls, func(s string) (string, error) { return s, nil }),
	)
	require.NoError(t, err)

	auditor := &recordingAuditor{}
	orch := NewOrchestrator(chain, auditor).WithLogger(log.Discard())

	ctx, _ := runContext("x")
	ctx, cancel := context.WithCancel(ctx)
	cancel()

	_, summary, err := orch.ExecuteOutcome(ctx, "x")

	var cancelled *errors.CancelledError
	require.ErrorAs(t, err, &cancelled)
	assert.Equal(t, int32(0), calls.Load())
	assert.Equal(t, []string{"input:s1", "failure:s1", "summary"}, auditor.ops("x"))
	assert.Equal(t, errors.KindTimeout, summary.Failure.Kind)
	assert.Equal(t, errors.ReasonCanceled, summary.Failure.Reason)
}

func TestOrchestrator_AuditFailureDoesNotChangeOutcome(t *testing.T) {
	chain, err := NewChain(TypeOf[string](), NewStep(upper()))
	require.NoError(t, err)

	buf := log.NewBuffer(20)
	auditor := &recordingAuditor{fail: fmt.Errorf("disk full")}
	orch := NewOrchestrator(chain, auditor).WithLogger(newBufferLogger(buf))

	ctx, _ := runContext("abc")
	out, err := orch.Execute(ctx, "abc")

	require.NoError(t, err)
	assert.Equal(t, "ABC", out)

	var failures int
	for _, line := range buf.Snapshot(0) {
		if strings.Contains(line, "audit write failed") {
			failures++
		}
	}
	assert.Equal(t, 3, failures)
}

func TestOrchestrator_RequiresRunContext(t *testing.T) {
	chain, err := NewChain(TypeOf[string](), NewStep(upper()))
	require.NoError(t, err)

	_, err = NewOrchestrator(chain, nil).Execute(context.Background(), "x")
	assert.ErrorIs(t, err, ErrNoRunContext)
}

func TestOrchestrator_RunSpan(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))

	chain, err := NewChain(TypeOf[string](), NewStep(upper()))
	require.NoError(t, err)
	orch := NewOrchestrator(chain, nil).WithLogger(log.Discard()).WithTracer(tp.Tracer("test"))

	ctx, _ := runContext("abc")
	_, err = orch.Execute(ctx, "abc")
	require.NoError(t, err)

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "pipeline.run: abc", spans[0].Name())
	assert.Equal(t, codes.Ok, spans[0].Status().Code)
}
