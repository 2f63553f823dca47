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
	"fmt"
	"log/slog"
	"time"

	"github.com/tombee/relay/pkg/errors"
)

// DefaultUserAgent identifies relay to remote servers.
const DefaultUserAgent = "Mozilla/5.0 (compatible; relay/1.0)"

// Config holds configuration for the HTTP client.
type Config struct {
	// Timeout bounds a whole request including reading the body.
	// Default: 30s. Must be > 0.
	Timeout time.Duration

	// UserAgent is the User-Agent header value.
	// Required. Must be non-empty.
	UserAgent string

	// RateLimit is the sustained number of requests per second allowed to
	// a single host. Zero disables rate limiting.
	RateLimit float64

	// Burst is the number of requests allowed to a host at once before the
	// rate applies. Default: 1 when RateLimit > 0.
	Burst int

	// MaxIdleConnsPerHost bounds pooled connections per host.
	// Default: 10.
	MaxIdleConnsPerHost int

	// Logger receives request logs. Default: slog.Default().
	Logger *slog.Logger
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Timeout:             30 * time.Second,
		UserAgent:           DefaultUserAgent,
		MaxIdleConnsPerHost: 10,
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return &errors.ConfigError{Key: "http.timeout", Reason: fmt.Sprintf("must be > 0, got %v", c.Timeout)}
	}
	if c.UserAgent == "" {
		return &errors.ConfigError{Key: "http.user_agent", Reason: "is required and must be non-empty"}
	}
	if c.RateLimit < 0 {
		return &errors.ConfigError{Key: "http.rate_limit", Reason: fmt.Sprintf("must be >= 0, got %v", c.RateLimit)}
	}
	if c.Burst < 0 {
		return &errors.ConfigError{Key: "http.burst", Reason: fmt.Sprintf("must be >= 0, got %d", c.Burst)}
	}
	return nil
}
