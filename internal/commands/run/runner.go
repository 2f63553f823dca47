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

package run

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tombee/relay/internal/audit"
	"github.com/tombee/relay/internal/commands/shared"
	"github.com/tombee/relay/internal/config"
	"github.com/tombee/relay/internal/dashboard"
	"github.com/tombee/relay/internal/log"
	"github.com/tombee/relay/internal/modules"
	"github.com/tombee/relay/internal/tracing"
	"github.com/tombee/relay/pkg/decorate"
	relayerrors "github.com/tombee/relay/pkg/errors"
	"github.com/tombee/relay/pkg/gate"
	"github.com/tombee/relay/pkg/httpclient"
	"github.com/tombee/relay/pkg/liveness"
	"github.com/tombee/relay/pkg/pipeline"
)

// shutdownTimeout bounds flushing spans and stopping the metrics server.
const shutdownTimeout = 5 * time.Second

// Runner wires the engine for one invocation of relay run.
type Runner struct {
	cfg      *config.Config
	registry *modules.Registry
	logger   *slog.Logger
	logs     *log.Buffer
	runID    string
	version  string

	dashboardOut io.Writer
}

// Option configures a Runner.
type Option func(*Runner)

// WithRegistry replaces the built-in step registry.
func WithRegistry(reg *modules.Registry) Option {
	return func(r *Runner) { r.registry = reg }
}

// WithLogger sets the logger and the buffer its lines are captured in.
func WithLogger(logger *slog.Logger, logs *log.Buffer) Option {
	return func(r *Runner) {
		r.logger = logger
		r.logs = logs
	}
}

// WithDashboard draws the live dashboard to w while inputs run.
func WithDashboard(w io.Writer) Option {
	return func(r *Runner) { r.dashboardOut = w }
}

// WithRunID fixes the run id instead of generating one.
func WithRunID(id string) Option {
	return func(r *Runner) { r.runID = id }
}

// WithVersion sets the service version reported on traces.
func WithVersion(v string) Option {
	return func(r *Runner) { r.version = v }
}

// NewRunner creates a Runner for cfg.
func NewRunner(cfg *config.Config, opts ...Option) *Runner {
	r := &Runner{
		cfg:      cfg,
		registry: modules.Builtin(),
		logger:   slog.Default(),
		version:  "dev",
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.runID == "" {
		r.runID = uuid.NewString()
	}
	return r
}

// RunID returns the id namespacing this run's audit records.
func (r *Runner) RunID() string { return r.runID }

// Report is the outcome of a whole run.
type Report struct {
	RunID    string
	AuditDir string
	Steps    []string
	Results  []pipeline.Result
	Elapsed  time.Duration
}

// FailedCount returns the number of inputs that did not succeed.
func (r *Report) FailedCount() int {
	n := 0
	for _, res := range r.Results {
		if res.Failed() {
			n++
		}
	}
	return n
}

// Run validates the configured chain and runs every input through it.
// Configuration problems are returned as ExitInvalidPipeline errors before
// any input is processed. Per-input failures are reported in the Report,
// not as an error.
func (r *Runner) Run(ctx context.Context, inputs []string) (*Report, error) {
	if len(inputs) == 0 {
		return nil, shared.NewInvalidPipelineError("no inputs", &relayerrors.ValidationError{
			Field:      "inputs",
			Message:    "at least one input is required",
			Suggestion: "pass inputs as arguments, with --inputs-file, or under inputs: in the config file",
		})
	}

	if err := checkAuditIDs(inputs); err != nil {
		return nil, shared.NewInvalidPipelineError("conflicting inputs", err)
	}

	logger := log.WithRunContext(r.logger, r.runID)

	traceOut, closeTrace, err := traceWriter(r.cfg.Observability.TraceOutput)
	if err != nil {
		return nil, shared.NewInvalidPipelineError("failed to open trace output", err)
	}
	defer closeTrace()

	provider, err := tracing.NewProvider(tracing.Config{
		Enabled:        r.cfg.Observability.TracingEnabled,
		ServiceName:    "relay",
		ServiceVersion: r.version,
		Output:         traceOut,
		PrettyPrint:    true,
	})
	if err != nil {
		return nil, shared.NewInvalidPipelineError("failed to set up tracing", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := provider.Shutdown(sctx); err != nil {
			logger.Warn("failed to flush traces", log.Error(err))
		}
	}()

	client, err := httpclient.New(httpclient.Config{
		Timeout:             r.cfg.HTTP.Timeout,
		UserAgent:           r.cfg.HTTP.UserAgent,
		RateLimit:           r.cfg.HTTP.RateLimit,
		Burst:               r.cfg.HTTP.Burst,
		MaxIdleConnsPerHost: 10,
		Logger:              log.WithComponent(logger, "http"),
	})
	if err != nil {
		return nil, shared.NewInvalidPipelineError("invalid http configuration", err)
	}

	tracker := liveness.NewTracker()
	progress := liveness.NewProgress(len(inputs))
	pools := gate.NewKeyed()

	chain, err := modules.BuildChain(r.registry, r.cfg.Steps, modules.ChainOptions{
		Deps: modules.Deps{HTTPClient: client},
		Gate: pools,
		Observer: decorate.Observer{
			Logger:  logger,
			Tracker: tracker,
			Tracer:  provider.Tracer(),
		},
	})
	if err != nil {
		return nil, shared.NewInvalidPipelineError("pipeline validation failed", err)
	}
	logger.Info("Pipeline validation: OK", "steps", chain.Names())

	global, err := gate.NewGlobal(r.cfg.Engine.MaxConcurrency)
	if err != nil {
		return nil, shared.NewInvalidPipelineError("invalid engine configuration", err)
	}

	auditor, closeAudit, auditDir, err := r.openAuditors()
	if err != nil {
		return nil, shared.NewInvalidPipelineError("failed to open audit sinks", err)
	}
	defer closeAudit()

	stopMetrics := serveMetrics(r.cfg.Observability.MetricsAddr, logger)
	defer stopMetrics()

	orch := pipeline.NewOrchestrator(chain, auditor).
		WithLogger(logger).
		WithTracer(provider.Tracer())
	batch := pipeline.NewBatch(pipeline.NewScheduler(orch, global)).
		WithTracker(tracker).
		WithProgress(progress)

	if r.dashboardOut != nil {
		stop := startDashboard(dashboard.New(r.dashboardOut, tracker, progress, r.logs, dashboard.WithPools(pools)))
		defer stop()
	}

	logger.Info("Pipeline execution started", "inputs", len(inputs), "max_concurrency", r.cfg.Engine.MaxConcurrency)
	start := time.Now()
	results := batch.Run(ctx, pipeline.Inputs(inputs...))

	report := &Report{
		RunID:    r.runID,
		AuditDir: auditDir,
		Steps:    chain.Names(),
		Results:  results,
		Elapsed:  time.Since(start),
	}
	logger.Info("Pipeline execution finished",
		"inputs", len(results),
		"failed", report.FailedCount(),
		log.DurationKey, report.Elapsed.Milliseconds())

	return report, nil
}

// openAuditors opens the file writer and, when configured, the SQLite
// writer.
func (r *Runner) openAuditors() (pipeline.Auditor, func(), string, error) {
	fw, err := audit.NewFileWriter(r.cfg.Audit.Root, r.runID, audit.Format(r.cfg.Audit.Format))
	if err != nil {
		return nil, nil, "", err
	}
	sinks := audit.Multi{fw}
	closeAll := func() {}

	if path := r.cfg.Audit.SQLitePath; path != "" {
		sw, err := audit.NewSQLiteWriter(path, r.runID)
		if err != nil {
			return nil, nil, "", err
		}
		sinks = append(sinks, sw)
		closeAll = func() {
			if err := sw.Close(); err != nil {
				r.logger.Warn("failed to close audit database", log.Error(err))
			}
		}
	}
	return sinks, closeAll, fw.RunDir(), nil
}

// traceWriter resolves the trace output setting.
func traceWriter(output string) (io.Writer, func(), error) {
	switch output {
	case "", "stderr":
		return os.Stderr, func() {}, nil
	case "stdout":
		return os.Stdout, func() {}, nil
	}

	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return nil, nil, err
	}
	f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { _ = f.Close() }, nil
}

// serveMetrics exposes /metrics on addr until the returned func is called.
// An empty addr disables it.
func serveMetrics(addr string, logger *slog.Logger) func() {
	if addr == "" {
		return func() {}
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", log.Error(err))
		}
	}()
	logger.Info("serving metrics", "addr", addr)

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

// startDashboard runs d until the returned func is called, which draws a
// final frame and waits for the renderer to exit.
func startDashboard(d *dashboard.Dashboard) func() {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		d.Run(ctx)
	}()
	return func() {
		cancel()
		<-done
	}
}

// describe formats a failed result for display.
func describe(res pipeline.Result) string {
	if res.Summary.Failure == nil {
		if res.Err != nil {
			return res.Err.Error()
		}
		return ""
	}
	f := res.Summary.Failure
	if res.Summary.FailedStep == "" {
		return fmt.Sprintf("%s: %s", f.Kind, f.Message)
	}
	return fmt.Sprintf("%s failed (%s): %s", res.Summary.FailedStep, f.Kind, f.Message)
}
