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

package validate

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/tombee/relay/internal/commands/shared"
	"github.com/tombee/relay/internal/config"
	"github.com/tombee/relay/internal/log"
	"github.com/tombee/relay/internal/modules"
	"github.com/tombee/relay/pkg/decorate"
	relayerrors "github.com/tombee/relay/pkg/errors"
	"github.com/tombee/relay/pkg/gate"
	"github.com/tombee/relay/pkg/httpclient"
	"github.com/tombee/relay/pkg/pipeline"
)

// NewCommand creates the validate command
func NewCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configured pipeline without running it",
		Long: `Validate loads the configuration, builds every configured step and checks
that each step consumes the previous step's output type.

Exits 0 when the pipeline is valid and 2 otherwise.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := shared.LoadConfig()
			if err != nil {
				return err
			}
			return Validate(cmd.OutOrStdout(), cfg, modules.Builtin())
		},
	}
}

// stepJSON describes one step in --json output.
type stepJSON struct {
	Name   string `json:"name"`
	Input  string `json:"input"`
	Output string `json:"output"`
}

type validateJSON struct {
	shared.JSONResponse
	Steps  []stepJSON         `json:"steps,omitempty"`
	Errors []shared.JSONError `json:"errors,omitempty"`
}

// Validate builds the chain described by cfg and reports the result to w.
func Validate(w io.Writer, cfg *config.Config, reg *modules.Registry) error {
	chain, err := buildChain(cfg, reg)

	if shared.GetJSON() {
		resp := validateJSON{JSONResponse: shared.JSONResponse{Version: "1.0", Command: "validate", Success: err == nil}}
		if err != nil {
			resp.Errors = []shared.JSONError{jsonError(err)}
		} else {
			for _, s := range chain.Steps() {
				resp.Steps = append(resp.Steps, stepJSON{Name: s.Name(), Input: s.InputType().String(), Output: s.OutputType().String()})
			}
		}
		if emitErr := shared.EmitJSON(w, resp); emitErr != nil {
			return emitErr
		}
		if err != nil {
			return shared.NewInvalidPipelineError("pipeline validation failed", err)
		}
		return nil
	}

	if err != nil {
		return shared.NewInvalidPipelineError("pipeline validation failed", err)
	}

	fmt.Fprintln(w, shared.RenderOK("Pipeline validation: OK"))
	for i, s := range chain.Steps() {
		fmt.Fprintf(w, "  %d. %s %s\n", i+1, s.Name(), shared.RenderLabel(fmt.Sprintf("(%s -> %s)", s.InputType(), s.OutputType())))
	}
	return nil
}

// buildChain builds the chain with throwaway dependencies. Nothing is
// executed, so the HTTP client is never used.
func buildChain(cfg *config.Config, reg *modules.Registry) (*pipeline.Chain, error) {
	client, err := httpclient.New(httpclient.Config{
		Timeout:   cfg.HTTP.Timeout,
		UserAgent: cfg.HTTP.UserAgent,
		RateLimit: cfg.HTTP.RateLimit,
		Burst:     cfg.HTTP.Burst,
		Logger:    log.Discard(),
	})
	if err != nil {
		return nil, err
	}
	return modules.BuildChain(reg, cfg.Steps, modules.ChainOptions{
		Deps:     modules.Deps{HTTPClient: client},
		Gate:     gate.NewKeyed(),
		Observer: decorate.Observer{Logger: log.Discard()},
	})
}

func jsonError(err error) shared.JSONError {
	je := shared.JSONError{Code: relayerrors.Kind(err), Message: err.Error()}

	var chainErr *relayerrors.ChainError
	if errors.As(err, &chainErr) {
		je.Step = chainErr.Step
	}
	var userErr relayerrors.UserVisibleError
	if errors.As(err, &userErr) {
		je.Suggestion = userErr.Suggestion()
	}
	return je
}
