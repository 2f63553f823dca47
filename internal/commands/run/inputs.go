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
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/tombee/relay/internal/audit"
	"github.com/tombee/relay/pkg/errors"
)

// CollectInputs gathers inputs from args, then from the file (one per line,
// "-" for stdin), then falls back to the configured inputs when both are
// empty. Blank lines and lines starting with '#' are skipped. Duplicates are
// dropped because an input's id names its audit directory; distinct inputs
// that would share a directory are rejected.
func CollectInputs(args []string, file string, stdin io.Reader, fallback []string) ([]string, error) {
	var raw []string
	raw = append(raw, args...)

	if file != "" {
		lines, err := readInputFile(file, stdin)
		if err != nil {
			return nil, err
		}
		raw = append(raw, lines...)
	}

	if len(raw) == 0 {
		raw = fallback
	}

	seen := make(map[string]bool, len(raw))
	inputs := make([]string, 0, len(raw))
	for _, in := range raw {
		in = strings.TrimSpace(in)
		if in == "" || strings.HasPrefix(in, "#") || seen[in] {
			continue
		}
		seen[in] = true
		inputs = append(inputs, in)
	}
	if err := checkAuditIDs(inputs); err != nil {
		return nil, err
	}
	return inputs, nil
}

// checkAuditIDs rejects distinct inputs whose audit directory names collide,
// such as "a/b" and "a:b".
func checkAuditIDs(inputs []string) error {
	owners := make(map[string]string, len(inputs))
	for _, in := range inputs {
		dir := audit.Sanitize(in)
		if prev, ok := owners[dir]; ok && prev != in {
			return &errors.ValidationError{
				Field:      "inputs",
				Message:    fmt.Sprintf("inputs %q and %q share the audit directory %q", prev, in, dir),
				Suggestion: "remove one of them or run them separately",
			}
		}
		owners[dir] = in
	}
	return nil
}

func readInputFile(path string, stdin io.Reader) ([]string, error) {
	var r io.Reader
	if path == "-" {
		if stdin == nil {
			return nil, fmt.Errorf("no stdin available for --inputs-file -")
		}
		r = stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open inputs file: %w", err)
		}
		defer f.Close()
		r = f
	}

	var lines []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read inputs: %w", err)
	}
	return lines, nil
}
