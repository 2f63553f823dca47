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

package modules

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/tombee/relay/pkg/errors"
	"github.com/tombee/relay/pkg/pipeline"
)

// Attempt state keys written by FetchHomepage.
const (
	StateHomepageURL  = "homepage_url"
	StateHomepageHTML = "homepage_html"
)

// DefaultMaxBodyBytes caps how much of a homepage is read.
const DefaultMaxBodyBytes = 2 << 20

// FetchResult is the outcome of fetching a homepage. A non-2xx response is
// reported through Succeeded rather than returned as an error, so it is
// audited as a failure but never retried.
type FetchResult struct {
	Success       bool   `json:"success" yaml:"success"`
	URL           string `json:"url" yaml:"url"`
	StatusCode    int    `json:"statusCode,omitempty" yaml:"statusCode,omitempty"`
	ContentType   string `json:"contentType,omitempty" yaml:"contentType,omitempty"`
	ContentLength int    `json:"contentLength" yaml:"contentLength"`
	Error         string `json:"error,omitempty" yaml:"error,omitempty"`

	// HTML is passed to the next step but kept out of audit documents.
	HTML string `json:"-" yaml:"-"`
}

// Succeeded implements pipeline.Failable.
func (r FetchResult) Succeeded() bool { return r.Success }

// FailureReason implements pipeline.Failable.
func (r FetchResult) FailureReason() string { return r.Error }

// FetchHomepage downloads the homepage named by its input. Inputs may be
// absolute URLs or bare domains, which are fetched over https.
type FetchHomepage struct {
	client       *http.Client
	maxBodyBytes int64
}

// NewFetchHomepage creates the step. The client is required.
func NewFetchHomepage(client *http.Client) (*FetchHomepage, error) {
	if client == nil {
		return nil, &errors.ConfigError{Key: "http", Reason: "FetchHomepage requires an HTTP client"}
	}
	return &FetchHomepage{client: client, maxBodyBytes: DefaultMaxBodyBytes}, nil
}

func (*FetchHomepage) Name() string { return "FetchHomepage" }

func (f *FetchHomepage) Execute(ctx context.Context, input string) (FetchResult, error) {
	u, err := NormalizeURL(input)
	if err != nil {
		return FetchResult{}, err
	}
	target := u.String()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return FetchResult{}, errors.Wrapf(err, "building request for %s", target)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return FetchResult{}, errors.Wrapf(err, "fetching %s", target)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return FetchResult{
			Success:    false,
			URL:        target,
			StatusCode: resp.StatusCode,
			Error:      fmt.Sprintf("unexpected status %s", resp.Status),
		}, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodyBytes))
	if err != nil {
		return FetchResult{}, errors.Wrapf(err, "reading %s", target)
	}
	html := string(body)

	if state := pipeline.StateFromContext(ctx); state != nil {
		state.Set(StateHomepageURL, target)
		state.Set(StateHomepageHTML, html)
	}

	return FetchResult{
		Success:       true,
		URL:           target,
		StatusCode:    resp.StatusCode,
		ContentType:   resp.Header.Get("Content-Type"),
		ContentLength: len(body),
		HTML:          html,
	}, nil
}

// NormalizeURL parses input as an absolute http(s) URL, prefixing https://
// when no scheme is present.
func NormalizeURL(input string) (*url.URL, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, &errors.ValidationError{Field: "input", Message: "input cannot be empty"}
	}

	if !strings.Contains(input, "://") {
		input = "https://" + input
	}

	u, err := url.Parse(input)
	if err != nil || u.Host == "" {
		return nil, &errors.ValidationError{
			Field:   "input",
			Message: fmt.Sprintf("invalid URL input: %s", input),
		}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, &errors.ValidationError{
			Field:      "input",
			Message:    fmt.Sprintf("unsupported scheme %q", u.Scheme),
			Suggestion: "use an http or https URL, or a bare domain",
		}
	}
	return u, nil
}
