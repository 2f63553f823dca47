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
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/tombee/relay/pkg/pipeline"
)

// Step record kinds stored in step_records.kind.
const (
	RecordInput   = "input"
	RecordSuccess = "success"
	RecordFailure = "failure"
)

var _ pipeline.Auditor = (*SQLiteWriter)(nil)

// StepRecord is one row of step_records.
type StepRecord struct {
	RunID     string
	InputID   string
	Step      string
	Kind      string
	Payload   string
	ErrorType string
	Message   string
	Reason    string
}

// SQLiteWriter stores the audit trail in a SQLite database. Many runs may
// share one database; rows are keyed by run id.
type SQLiteWriter struct {
	db    *sql.DB
	runID string
}

// NewSQLiteWriter opens (creating if needed) the database at path and
// prepares the schema.
func NewSQLiteWriter(path, runID string) (*SQLiteWriter, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory for %s: %w", path, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite serializes writes; a single connection also keeps an
	// in-memory database shared by every caller.
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	w := &SQLiteWriter{db: db, runID: runID}
	if err := w.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return w, nil
}

func (w *SQLiteWriter) migrate(ctx context.Context) error {
	migrations := []string{
		"PRAGMA busy_timeout=5000",
		`CREATE TABLE IF NOT EXISTS step_records (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			input_id TEXT NOT NULL,
			step TEXT NOT NULL,
			kind TEXT NOT NULL,
			payload TEXT,
			error_type TEXT,
			message TEXT,
			reason TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_step_records_input ON step_records(run_id, input_id)`,
		`CREATE TABLE IF NOT EXISTS input_summaries (
			run_id TEXT NOT NULL,
			input_id TEXT NOT NULL,
			correlation_id TEXT,
			status TEXT NOT NULL,
			modules_executed TEXT NOT NULL,
			failed_module TEXT,
			error_type TEXT,
			error_message TEXT,
			error_reason TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (run_id, input_id)
		)`,
	}

	for _, m := range migrations {
		if _, err := w.db.ExecContext(ctx, m); err != nil {
			return fmt.Errorf("failed to execute migration: %w", err)
		}
	}
	return nil
}

// Close closes the database.
func (w *SQLiteWriter) Close() error {
	return w.db.Close()
}

// WriteStepInput implements pipeline.Auditor.
func (w *SQLiteWriter) WriteStepInput(ctx context.Context, inputID, step string, input any) error {
	payload, err := encodePayload(input)
	if err != nil {
		return err
	}
	return w.insertStep(ctx, StepRecord{InputID: inputID, Step: step, Kind: RecordInput, Payload: payload})
}

// WriteStepSuccess implements pipeline.Auditor.
func (w *SQLiteWriter) WriteStepSuccess(ctx context.Context, inputID, step string, output any) error {
	payload, err := encodePayload(output)
	if err != nil {
		return err
	}
	return w.insertStep(ctx, StepRecord{InputID: inputID, Step: step, Kind: RecordSuccess, Payload: payload})
}

// WriteStepFailure implements pipeline.Auditor.
func (w *SQLiteWriter) WriteStepFailure(ctx context.Context, inputID, step string, failure pipeline.Failure) error {
	return w.insertStep(ctx, StepRecord{
		InputID:   inputID,
		Step:      step,
		Kind:      RecordFailure,
		ErrorType: failure.Kind,
		Message:   failure.Message,
		Reason:    failure.Reason,
	})
}

func (w *SQLiteWriter) insertStep(ctx context.Context, r StepRecord) error {
	_, err := w.db.ExecContext(ctx, `
		INSERT INTO step_records (run_id, input_id, step, kind, payload, error_type, message, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		w.runID, r.InputID, r.Step, r.Kind,
		nullString(r.Payload), nullString(r.ErrorType), nullString(r.Message), nullString(r.Reason),
	)
	if err != nil {
		return fmt.Errorf("failed to insert %s record for %s/%s: %w", r.Kind, r.InputID, r.Step, err)
	}
	return nil
}

// WriteSummary implements pipeline.Auditor.
func (w *SQLiteWriter) WriteSummary(ctx context.Context, summary pipeline.Summary) error {
	doc := summaryDocument(summary)
	modules, err := json.Marshal(doc.ModulesExecuted)
	if err != nil {
		return fmt.Errorf("failed to marshal modules: %w", err)
	}

	var failed, errType, errMessage, errReason sql.NullString
	if doc.FailedModule != nil {
		failed = sql.NullString{String: *doc.FailedModule, Valid: true}
	}
	if doc.Error != nil {
		errType = nullString(doc.Error.Type)
		errMessage = nullString(doc.Error.Message)
		errReason = nullString(doc.Error.Reason)
	}

	_, err = w.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO input_summaries (
			run_id, input_id, correlation_id, status, modules_executed,
			failed_module, error_type, error_message, error_reason
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		w.runID, doc.InputID, nullString(doc.CorrelationID), doc.Status, string(modules),
		failed, errType, errMessage, errReason,
	)
	if err != nil {
		return fmt.Errorf("failed to insert summary for %s: %w", doc.InputID, err)
	}
	return nil
}

// StepRecords returns the step records of inputID in insertion order.
func (w *SQLiteWriter) StepRecords(ctx context.Context, inputID string) ([]StepRecord, error) {
	rows, err := w.db.QueryContext(ctx, `
		SELECT run_id, input_id, step, kind, payload, error_type, message, reason
		FROM step_records
		WHERE run_id = ? AND input_id = ?
		ORDER BY id`, w.runID, inputID)
	if err != nil {
		return nil, fmt.Errorf("failed to query step records: %w", err)
	}
	defer rows.Close()

	var records []StepRecord
	for rows.Next() {
		var r StepRecord
		var payload, errType, message, reason sql.NullString
		if err := rows.Scan(&r.RunID, &r.InputID, &r.Step, &r.Kind, &payload, &errType, &message, &reason); err != nil {
			return nil, fmt.Errorf("failed to scan step record: %w", err)
		}
		r.Payload = payload.String
		r.ErrorType = errType.String
		r.Message = message.String
		r.Reason = reason.String
		records = append(records, r)
	}
	return records, rows.Err()
}

// Summary returns the stored summary of inputID, or nil if none was written.
func (w *SQLiteWriter) Summary(ctx context.Context, inputID string) (*SummaryDocument, error) {
	row := w.db.QueryRowContext(ctx, `
		SELECT input_id, correlation_id, status, modules_executed,
		       failed_module, error_type, error_message, error_reason
		FROM input_summaries
		WHERE run_id = ? AND input_id = ?`, w.runID, inputID)

	var doc SummaryDocument
	var correlation, modules, failed, errType, errMessage, errReason sql.NullString
	err := row.Scan(&doc.InputID, &correlation, &doc.Status, &modules, &failed, &errType, &errMessage, &errReason)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get summary: %w", err)
	}

	doc.CorrelationID = correlation.String
	if err := json.Unmarshal([]byte(modules.String), &doc.ModulesExecuted); err != nil {
		return nil, fmt.Errorf("failed to parse modules_executed: %w", err)
	}
	if failed.Valid {
		doc.FailedModule = &failed.String
	}
	if errType.Valid {
		doc.Error = &ErrorDocument{Type: errType.String, Message: errMessage.String, Reason: errReason.String}
	}
	return &doc, nil
}

func encodePayload(v any) (string, error) {
	if s, ok := v.(string); ok {
		return s, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to encode payload: %w", err)
	}
	return string(data), nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
