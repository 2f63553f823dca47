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

// Package decorate wraps pipeline modules with cross-cutting behavior:
// admission limiting (Limit), bounded retry with a per-attempt timeout
// (Retry) and timing, logging, liveness and tracing (Observe).
//
// Every decorator returns a pipeline.Module with the same name and type
// signature as the module it wraps, so decorators stack freely and the
// wrapped module never knows they exist. Standard applies the usual stack:
//
//	Observe -> Retry -> Limit -> module
//
// Observation spans all retry attempts as one logical step execution, and
// the module gate is acquired again for every attempt.
package decorate
