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
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tombee/relay/internal/commands/shared"
	"github.com/tombee/relay/internal/dashboard"
	"github.com/tombee/relay/internal/log"
)

// NewCommand creates the run command
func NewCommand() *cobra.Command {
	var (
		inputsFile  string
		auditRoot   string
		runID       string
		noDashboard bool
	)

	cmd := &cobra.Command{
		Use:   "run [inputs...]",
		Short: "Run inputs through the configured pipeline",
		Long: `Run validates the configured step chain and runs every input through it
concurrently, writing an audit trail per input.

Inputs come from arguments, from --inputs-file (one per line, "-" for stdin),
or from the inputs list in the config file.

Exit codes:
  0  every input succeeded
  1  at least one input failed
  2  invalid configuration or pipeline`,
		Example: `  relay run example.com github.com
  relay run --inputs-file domains.txt
  relay --config homepage.yaml run -f - < domains.txt`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := shared.LoadConfig()
			if err != nil {
				return err
			}
			if auditRoot != "" {
				cfg.Audit.Root = auditRoot
			}

			inputs, err := CollectInputs(args, inputsFile, cmd.InOrStdin(), cfg.Inputs)
			if err != nil {
				return shared.NewInvalidPipelineError("failed to read inputs", err)
			}

			// The dashboard owns the terminal while it runs, so logs go to
			// the buffer only.
			showDashboard := !noDashboard && !shared.GetQuiet() && !shared.GetJSON() && dashboard.IsTerminal(os.Stdout)

			logs := log.NewBuffer(log.DefaultBufferSize)
			logCfg := shared.LogConfig(cfg)
			bufHandler := log.NewBufferHandler(logs, log.ParseLevel(logCfg.Level))
			var handler slog.Handler = bufHandler
			if !showDashboard {
				handler = log.Tee(log.NewHandler(logCfg), bufHandler)
			}
			logger := slog.New(handler)

			v, _, _ := shared.GetVersion()
			opts := []Option{
				WithLogger(logger, logs),
				WithVersion(v),
				WithRunID(runID),
			}
			if showDashboard {
				opts = append(opts, WithDashboard(os.Stdout))
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			report, err := NewRunner(cfg, opts...).Run(ctx, inputs)
			if err != nil {
				return err
			}

			if err := printReport(cmd.OutOrStdout(), report); err != nil {
				return err
			}
			if failed := report.FailedCount(); failed > 0 {
				return shared.NewExecutionError(fmt.Sprintf("%d of %d inputs failed", failed, len(report.Results)), nil)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&inputsFile, "inputs-file", "f", "", "Read inputs from a file, one per line (\"-\" for stdin)")
	cmd.Flags().StringVar(&auditRoot, "audit-root", "", "Override the audit root directory")
	cmd.Flags().StringVar(&runID, "run-id", "", "Use a fixed run id instead of a generated one")
	cmd.Flags().BoolVar(&noDashboard, "no-dashboard", false, "Disable the live dashboard")

	return cmd
}

// resultJSON is one input in --json output.
type resultJSON struct {
	Input         string   `json:"input"`
	CorrelationID string   `json:"correlation_id"`
	Status        string   `json:"status"`
	Succeeded     []string `json:"succeeded"`
	FailedStep    string   `json:"failed_step,omitempty"`
	Error         string   `json:"error,omitempty"`
	Output        any      `json:"output,omitempty"`
}

type reportJSON struct {
	shared.JSONResponse
	RunID     string       `json:"run_id"`
	AuditDir  string       `json:"audit_dir"`
	Steps     []string     `json:"steps"`
	ElapsedMS int64        `json:"elapsed_ms"`
	Results   []resultJSON `json:"results"`
}

func printReport(w io.Writer, report *Report) error {
	if shared.GetJSON() {
		out := reportJSON{
			JSONResponse: shared.JSONResponse{
				Version: "1.0",
				Command: "run",
				Success: report.FailedCount() == 0,
			},
			RunID:     report.RunID,
			AuditDir:  report.AuditDir,
			Steps:     report.Steps,
			ElapsedMS: report.Elapsed.Milliseconds(),
			Results:   make([]resultJSON, 0, len(report.Results)),
		}
		for _, res := range report.Results {
			out.Results = append(out.Results, resultJSON{
				Input:         res.InputID,
				CorrelationID: res.CorrelationID,
				Status:        string(res.Summary.Status),
				Succeeded:     res.Summary.Succeeded,
				FailedStep:    res.Summary.FailedStep,
				Error:         describe(res),
				Output:        res.Output,
			})
		}
		return shared.EmitJSON(w, out)
	}

	if shared.GetQuiet() {
		return nil
	}

	fmt.Fprintf(w, "%s %s\n", shared.Header.Render("Run"), report.RunID)
	fmt.Fprintf(w, "%s %s\n\n", shared.RenderLabel("Audit:"), report.AuditDir)
	for _, res := range report.Results {
		if res.Failed() {
			fmt.Fprintln(w, shared.RenderError(fmt.Sprintf("%s  %s", res.InputID, describe(res))))
			continue
		}
		fmt.Fprintln(w, shared.RenderOK(fmt.Sprintf("%s  %v", res.InputID, res.Output)))
	}
	fmt.Fprintf(w, "\n%d succeeded, %d failed in %s\n",
		len(report.Results)-report.FailedCount(), report.FailedCount(), report.Elapsed.Round(time.Millisecond))
	return nil
}
