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

	"github.com/tombee/relay/pkg/errors"
)

// Status is the terminal state of one input.
type Status string

const (
	// StatusSuccess means every step succeeded.
	StatusSuccess Status = "Success"
	// StatusFailed means a step raised an error or reported failure.
	StatusFailed Status = "Failed"
)

// KindReportedFailure is the failure kind recorded for outputs that report
// failure through Failable.
const KindReportedFailure = "ReportedFailure"

// Failure describes why a step failed. Exceptional and self-reported
// failures share this shape so audit consumers never special-case the
// failure channel.
type Failure struct {
	// Kind is the error category, e.g. "Timeout" or "ReportedFailure".
	Kind string

	// Message is the human-readable failure detail.
	Message string

	// Reason distinguishes "deadline_exceeded" from "canceled" for the
	// Timeout kind. Empty otherwise.
	Reason string
}

// FailureFromError builds a Failure describing err.
func FailureFromError(err error) Failure {
	return Failure{
		Kind:    errors.Kind(err),
		Message: err.Error(),
		Reason:  errors.Reason(err),
	}
}

// Summary is the terminal audit record of one input.
type Summary struct {
	InputID       string
	CorrelationID string
	Status        Status

	// Succeeded lists the steps that completed successfully, in order.
	Succeeded []string

	// FailedStep names the failing step. Empty when the run succeeded or
	// when it was cancelled before the first step started.
	FailedStep string

	// Failure is nil when the run succeeded.
	Failure *Failure
}

// Auditor persists the audit trail of a run. Implementations must be safe
// for concurrent use by many inputs; records for a single input are always
// written sequentially, in step order, with the summary last.
type Auditor interface {
	// WriteStepInput records the value about to be passed to step.
	WriteStepInput(ctx context.Context, inputID, step string, input any) error

	// WriteStepSuccess records the output of a successful step.
	WriteStepSuccess(ctx context.Context, inputID, step string, output any) error

	// WriteStepFailure records why step failed.
	WriteStepFailure(ctx context.Context, inputID, step string, failure Failure) error

	// WriteSummary records the terminal state of one input.
	WriteSummary(ctx context.Context, summary Summary) error
}

// NopAuditor discards every record.
type NopAuditor struct{}

func (NopAuditor) WriteStepInput(context.Context, string, string, any) error       { return nil }
func (NopAuditor) WriteStepSuccess(context.Context, string, string, any) error     { return nil }
func (NopAuditor) WriteStepFailure(context.Context, string, string, Failure) error { return nil }
func (NopAuditor) WriteSummary(context.Context, Summary) error                     { return nil }
