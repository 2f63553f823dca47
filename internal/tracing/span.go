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

package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Span wraps an OpenTelemetry span with pipeline-specific helpers. A nil
// *Span is valid and does nothing.
type Span struct {
	span trace.Span
}

// StartRun creates the root span for one input's run.
func StartRun(ctx context.Context, tracer trace.Tracer, inputID, correlationID string) (context.Context, *Span) {
	ctx, span := tracer.Start(ctx, fmt.Sprintf("pipeline.run: %s", inputID),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("input.id", inputID),
			attribute.String("input.correlation_id", correlationID),
			attribute.String("span.type", "pipeline.run"),
		),
	)
	return ctx, &Span{span: span}
}

// StartStep creates a span for one step execution, covering every attempt.
func StartStep(ctx context.Context, tracer trace.Tracer, step, inputID, correlationID string) (context.Context, *Span) {
	ctx, span := tracer.Start(ctx, fmt.Sprintf("step: %s", step),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("step.name", step),
			attribute.String("input.id", inputID),
			attribute.String("input.correlation_id", correlationID),
			attribute.String("span.type", "pipeline.step"),
		),
	)
	return ctx, &Span{span: span}
}

// SetAttributes adds key-value attributes to the span.
func (s *Span) SetAttributes(attrs map[string]any) {
	if s == nil || s.span == nil {
		return
	}
	s.span.SetAttributes(toAttributes(attrs)...)
}

// AddEvent records a timestamped event within the span.
func (s *Span) AddEvent(name string, attrs map[string]any) {
	if s == nil || s.span == nil {
		return
	}
	s.span.AddEvent(name, trace.WithAttributes(toAttributes(attrs)...))
}

// RecordError records err and marks the span failed.
func (s *Span) RecordError(err error) {
	if s == nil || s.span == nil || err == nil {
		return
	}
	s.span.RecordError(err)
	s.span.SetStatus(codes.Error, err.Error())
}

// MarkFailed marks the span failed without an error value, for outputs
// that report failure.
func (s *Span) MarkFailed(reason string) {
	if s == nil || s.span == nil {
		return
	}
	s.span.SetStatus(codes.Error, reason)
}

// MarkOK marks the span successful.
func (s *Span) MarkOK() {
	if s == nil || s.span == nil {
		return
	}
	s.span.SetStatus(codes.Ok, "")
}

// End completes the span.
func (s *Span) End() {
	if s == nil || s.span == nil {
		return
	}
	s.span.End()
}

func toAttributes(attrs map[string]any) []attribute.KeyValue {
	out := make([]attribute.KeyValue, 0, len(attrs))
	for k, v := range attrs {
		switch val := v.(type) {
		case string:
			out = append(out, attribute.String(k, val))
		case int:
			out = append(out, attribute.Int(k, val))
		case int64:
			out = append(out, attribute.Int64(k, val))
		case float64:
			out = append(out, attribute.Float64(k, val))
		case bool:
			out = append(out, attribute.Bool(k, val))
		default:
			out = append(out, attribute.String(k, fmt.Sprintf("%v", val)))
		}
	}
	return out
}
