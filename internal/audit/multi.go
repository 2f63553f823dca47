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

	"github.com/tombee/relay/pkg/errors"
	"github.com/tombee/relay/pkg/pipeline"
)

var _ pipeline.Auditor = Multi(nil)

// Multi writes every record to each of its writers in order. A failing
// writer does not stop the others; their errors are joined.
type Multi []pipeline.Auditor

// WriteStepInput implements pipeline.Auditor.
func (m Multi) WriteStepInput(ctx context.Context, inputID, step string, input any) error {
	return m.each(func(a pipeline.Auditor) error { return a.WriteStepInput(ctx, inputID, step, input) })
}

// WriteStepSuccess implements pipeline.Auditor.
func (m Multi) WriteStepSuccess(ctx context.Context, inputID, step string, output any) error {
	return m.each(func(a pipeline.Auditor) error { return a.WriteStepSuccess(ctx, inputID, step, output) })
}

// WriteStepFailure implements pipeline.Auditor.
func (m Multi) WriteStepFailure(ctx context.Context, inputID, step string, failure pipeline.Failure) error {
	return m.each(func(a pipeline.Auditor) error { return a.WriteStepFailure(ctx, inputID, step, failure) })
}

// WriteSummary implements pipeline.Auditor.
func (m Multi) WriteSummary(ctx context.Context, summary pipeline.Summary) error {
	return m.each(func(a pipeline.Auditor) error { return a.WriteSummary(ctx, summary) })
}

func (m Multi) each(write func(pipeline.Auditor) error) error {
	var errs []error
	for _, a := range m {
		if err := write(a); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
