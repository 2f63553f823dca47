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

// Package httpclient provides the HTTP client used by fetching steps.
//
// The client layers transports over a pooled, TLS 1.2+ base:
//
//	rate limit (per host) -> logging (User-Agent, correlation id) -> base
//
// Basic usage:
//
//	client, err := httpclient.New(httpclient.DefaultConfig())
//	if err != nil {
//	    return err
//	}
//	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, "https://example.com", nil)
//	resp, err := client.Do(req)
//
// Retries are not performed here. Steps are retried by the engine's retry
// decorator, which also bounds each attempt with a deadline.
//
// # Observability
//
// Every request is logged through the configured slog.Logger:
//   - Debug level: successful requests
//   - Warn level: 4xx/5xx responses and transport errors
//   - Fields: method, url (sanitized), status, duration_ms, error
//
// The correlation id of the current run is sent as X-Correlation-ID.
package httpclient
