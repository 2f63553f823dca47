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
	"fmt"
	"time"

	"github.com/tombee/relay/internal/metrics"
	"github.com/tombee/relay/pkg/errors"
	"github.com/tombee/relay/pkg/pipeline"
)

// RetryPolicy bounds how a module is retried.
type RetryPolicy struct {
	// MaxRetries is the number of retries after the first attempt.
	// Zero means exactly one attempt.
	MaxRetries int

	// Timeout bounds each attempt. Zero or negative disables the
	// per-attempt deadline.
	Timeout time.Duration

	// Delay is the wait between attempts.
	Delay time.Duration

	// Retryable decides whether an error may be retried. Nil retries every
	// error; set it to errors.IsRetryable to honor ErrorClassifier.
	Retryable func(error) bool
}

// Validate checks the policy's bounds.
func (p RetryPolicy) Validate() error {
	if p.MaxRetries < 0 {
		return &errors.ConfigError{
			Key:    "steps.max_retries",
			Reason: fmt.Sprintf("must be >= 0, got %d", p.MaxRetries),
		}
	}
	if p.Delay < 0 {
		return &errors.ConfigError{
			Key:    "steps.retry_delay",
			Reason: fmt.Sprintf("must be >= 0, got %s", p.Delay),
		}
	}
	return nil
}

// Retry wraps m with bounded retries. Every attempt runs with a fresh
// RunContext (same identity, empty State) on a context that expires after
// policy.Timeout or when ctx is done, whichever comes first.
//
// An attempt that hits its own deadline fails with *errors.TimeoutError and
// is retried. Once ctx itself is done no further attempts are made and the
// returned error is *errors.CancelledError.
func Retry[In, Out any](m pipeline.Module[In, Out], policy RetryPolicy) (pipeline.Module[In, Out], error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	if policy.Retryable == nil {
		policy.Retryable = retryAll
	}
	return &retrying[In, Out]{inner: m, policy: policy}, nil
}

func retryAll(error) bool { return true }

type retrying[In, Out any] struct {
	inner  pipeline.Module[In, Out]
	policy RetryPolicy
}

func (r *retrying[In, Out]) Name() string { return r.inner.Name() }

func (r *retrying[In, Out]) Execute(ctx context.Context, input In) (Out, error) {
	var zero Out
	name := r.inner.Name()

	rc, ok := pipeline.FromContext(ctx)
	if !ok {
		rc = pipeline.NewRunContext("")
	}

	maxAttempts := r.policy.MaxRetries + 1
	attempts := 0
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			metrics.RecordAttempt(name, metrics.AttemptCancelled)
			return zero, &errors.CancelledError{Operation: "step " + name, Cause: err}
		}

		attempts = attempt
		out, timedOut, err := r.attempt(ctx, rc, input)
		if err == nil {
			metrics.RecordAttempt(name, metrics.AttemptSuccess)
			return out, nil
		}

		// Outer cancellation always wins over retry.
		if ctxErr := ctx.Err(); ctxErr != nil {
			metrics.RecordAttempt(name, metrics.AttemptCancelled)
			cause := err
			if !errors.Is(err, ctxErr) {
				cause = fmt.Errorf("%w (last error: %v)", ctxErr, err)
			}
			return zero, &errors.CancelledError{
				Operation: fmt.Sprintf("step %s attempt %d", name, attempt),
				Cause:     cause,
			}
		}

		lastErr = err
		if timedOut {
			lastErr = &errors.TimeoutError{
				Operation: fmt.Sprintf("step %s attempt %d", name, attempt),
				Duration:  r.policy.Timeout,
				Cause:     err,
			}
		}

		if attempt == maxAttempts || !r.policy.Retryable(lastErr) {
			break
		}
		metrics.RecordAttempt(name, metrics.AttemptRetry)

		if r.policy.Delay > 0 {
			timer := time.NewTimer(r.policy.Delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				metrics.RecordAttempt(name, metrics.AttemptCancelled)
				return zero, &errors.CancelledError{
					Operation: fmt.Sprintf("step %s retry wait", name),
					Cause:     ctx.Err(),
				}
			case <-timer.C:
			}
		}
	}

	metrics.RecordAttempt(name, metrics.AttemptExhausted)
	if attempts > 1 {
		return zero, fmt.Errorf("step %s failed after %d attempts: %w", name, attempts, lastErr)
	}
	return zero, lastErr
}

// attempt runs one attempt and reports whether it failed because its own
// deadline expired while ctx was still live.
func (r *retrying[In, Out]) attempt(ctx context.Context, rc *pipeline.RunContext, input In) (Out, bool, error) {
	var attemptCtx context.Context
	var cancel context.CancelFunc
	if r.policy.Timeout > 0 {
		attemptCtx, cancel = context.WithTimeout(ctx, r.policy.Timeout)
	} else {
		attemptCtx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	out, err := r.inner.Execute(rc.CloneForAttempt(attemptCtx), input)
	timedOut := err != nil &&
		errors.Is(attemptCtx.Err(), context.DeadlineExceeded) &&
		ctx.Err() == nil
	return out, timedOut, err
}
