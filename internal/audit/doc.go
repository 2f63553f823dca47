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

// Package audit persists the per-step and per-input audit trail of a run.
//
// FileWriter lays records out as a directory tree:
//
//	<root>/<runID>/<input>/<step>/input.json
//	<root>/<runID>/<input>/<step>/output.txt | output.json
//	<root>/<runID>/<input>/<step>/status.json
//	<root>/<runID>/<input>/_summary.json
//
// SQLiteWriter stores the same records in a database, and Multi fans a
// record out to several writers.
package audit
