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
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tombee/relay/pkg/errors"
	"github.com/tombee/relay/pkg/pipeline"
)

// Format selects the document encoding.
type Format string

const (
	// FormatJSON writes indented JSON documents (.json).
	FormatJSON Format = "json"
	// FormatYAML writes YAML documents (.yaml).
	FormatYAML Format = "yaml"
)

// SummaryFile is the base name of the per-input summary document.
const SummaryFile = "_summary"

var _ pipeline.Auditor = (*FileWriter)(nil)

// FileWriter writes the audit trail of one run under root/runID. Records
// for different inputs live in disjoint directories, so concurrent inputs
// never contend. Every file is written whole; a crash mid-write may leave a
// truncated file.
type FileWriter struct {
	root   string
	runID  string
	format Format
}

// NewFileWriter creates a FileWriter. An empty format means JSON.
func NewFileWriter(root, runID string, format Format) (*FileWriter, error) {
	if root == "" {
		return nil, &errors.ConfigError{Key: "audit.root", Reason: "audit root directory is required"}
	}
	if runID == "" {
		return nil, &errors.ConfigError{Key: "audit.run_id", Reason: "run id is required"}
	}
	switch format {
	case "":
		format = FormatJSON
	case FormatJSON, FormatYAML:
	default:
		return nil, &errors.ConfigError{
			Key:    "audit.format",
			Reason: fmt.Sprintf("unsupported format %q (use json or yaml)", format),
		}
	}
	return &FileWriter{root: root, runID: runID, format: format}, nil
}

// RunDir returns the directory holding every record of this run.
func (w *FileWriter) RunDir() string {
	return filepath.Join(w.root, w.runID)
}

// InputDir returns the directory for inputID.
func (w *FileWriter) InputDir(inputID string) string {
	return filepath.Join(w.RunDir(), Sanitize(inputID))
}

// StepDir returns the directory for one step of inputID.
func (w *FileWriter) StepDir(inputID, step string) string {
	return filepath.Join(w.InputDir(inputID), Sanitize(step))
}

// WriteStepInput implements pipeline.Auditor.
func (w *FileWriter) WriteStepInput(_ context.Context, inputID, step string, input any) error {
	return w.writeDocument(w.StepDir(inputID, step), "input", input)
}

// WriteStepSuccess implements pipeline.Auditor. String outputs are written
// verbatim to output.txt; anything else is encoded.
func (w *FileWriter) WriteStepSuccess(_ context.Context, inputID, step string, output any) error {
	dir := w.StepDir(inputID, step)
	if s, ok := output.(string); ok {
		if err := w.writeFile(dir, "output.txt", []byte(s)); err != nil {
			return err
		}
	} else if err := w.writeDocument(dir, "output", output); err != nil {
		return err
	}
	return w.writeDocument(dir, "status", successStatus())
}

// WriteStepFailure implements pipeline.Auditor.
func (w *FileWriter) WriteStepFailure(_ context.Context, inputID, step string, failure pipeline.Failure) error {
	return w.writeDocument(w.StepDir(inputID, step), "status", failureStatus(failure))
}

// WriteSummary implements pipeline.Auditor.
func (w *FileWriter) WriteSummary(_ context.Context, summary pipeline.Summary) error {
	return w.writeDocument(w.InputDir(summary.InputID), SummaryFile, summaryDocument(summary))
}

// Extension returns the file extension used for structured documents.
func (w *FileWriter) Extension() string {
	if w.format == FormatYAML {
		return ".yaml"
	}
	return ".json"
}

func (w *FileWriter) writeDocument(dir, name string, v any) error {
	data, err := w.encode(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", name, err)
	}
	return w.writeFile(dir, name+w.Extension(), data)
}

func (w *FileWriter) encode(v any) ([]byte, error) {
	if w.format == FormatYAML {
		return yaml.Marshal(v)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

func (w *FileWriter) writeFile(dir, name string, data []byte) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create audit directory %s: %w", dir, err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// Sanitize replaces characters that are not allowed in file names on
// common platforms with '_'. Names that would resolve to the current or
// parent directory are also replaced.
func Sanitize(name string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r < 0x20, r == 0x7f:
			return '_'
		case strings.ContainsRune(`<>:"/\|?*`, r):
			return '_'
		}
		return r
	}, name)

	switch cleaned {
	case "":
		return "_"
	case ".", "..":
		return strings.Repeat("_", len(cleaned))
	}
	return cleaned
}
