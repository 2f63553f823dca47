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

package httpclient

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/relay/pkg/pipeline"
)

func newTestClient(t *testing.T, mutate func(*Config)) (*http.Client, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.Logger = slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	if mutate != nil {
		mutate(&cfg)
	}
	client, err := New(cfg)
	require.NoError(t, err)
	return client, &buf
}

func TestClient_SetsUserAgentAndCorrelationID(t *testing.T) {
	var gotUA, gotCorr string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotCorr = r.Header.Get(CorrelationHeader)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client, logs := newTestClient(t, nil)

	rc := pipeline.NewRunContext("input-1")
	ctx := pipeline.WithRunContext(context.Background(), rc)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL, nil)
	require.NoError(t, err)

	resp, err := client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, DefaultUserAgent, gotUA)
	assert.Equal(t, rc.CorrelationID(), gotCorr)
	assert.Contains(t, logs.String(), "http request")
	assert.Contains(t, logs.String(), rc.CorrelationID())
	assert.Empty(t, req.Header.Get("User-Agent"), "caller's request must not be modified")
}

func TestClient_KeepsCallerUserAgent(t *testing.T) {
	var gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
	}))
	defer server.Close()

	client, _ := newTestClient(t, nil)
	req, err := http.NewRequest(http.MethodGet, server.URL, nil)
	require.NoError(t, err)
	req.Header.Set("User-Agent", "custom/1.0")

	resp, err := client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "custom/1.0", gotUA)
}

func TestClient_NoCorrelationWithoutRunContext(t *testing.T) {
	var gotCorr string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotCorr = r.Header.Get(CorrelationHeader)
	}))
	defer server.Close()

	client, _ := newTestClient(t, nil)
	resp, err := client.Get(server.URL)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Empty(t, gotCorr)
}

func TestClient_LogsErrorStatusAtWarn(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client, logs := newTestClient(t, nil)
	resp, err := client.Get(server.URL + "/missing?api_key=abc")
	require.NoError(t, err)
	resp.Body.Close()

	out := logs.String()
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "status=404")
	assert.NotContains(t, out, "abc")
}

func TestClient_RateLimitHonorsContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	client, _ := newTestClient(t, func(c *Config) {
		c.RateLimit = 0.1
		c.Burst = 1
	})

	// The first request consumes the only token.
	resp, err := client.Get(server.URL)
	require.NoError(t, err)
	resp.Body.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL, nil)
	require.NoError(t, err)

	start := time.Now()
	_, err = client.Do(req)
	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestRateLimitTransport_PerHostLimiters(t *testing.T) {
	rt := newRateLimitTransport(http.DefaultTransport, 1, 0)

	a := rt.limiter("a.example.com")
	b := rt.limiter("b.example.com")

	assert.Same(t, a, rt.limiter("a.example.com"))
	assert.NotSame(t, a, b)
	assert.Equal(t, 1, rt.burst)
}
