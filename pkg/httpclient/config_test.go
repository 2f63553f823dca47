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
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/relay/pkg/errors"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, DefaultUserAgent, cfg.UserAgent)
	assert.Zero(t, cfg.RateLimit)
	require.NoError(t, cfg.Validate())
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		key    string
	}{
		{"zero timeout", func(c *Config) { c.Timeout = 0 }, "http.timeout"},
		{"empty user agent", func(c *Config) { c.UserAgent = "" }, "http.user_agent"},
		{"negative rate", func(c *Config) { c.RateLimit = -1 }, "http.rate_limit"},
		{"negative burst", func(c *Config) { c.Burst = -1 }, "http.burst"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			var cfgErr *errors.ConfigError
			require.True(t, stderrors.As(err, &cfgErr), "expected ConfigError, got %v", err)
			assert.Equal(t, tt.key, cfgErr.Key)
		})
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Timeout = -time.Second

	client, err := New(cfg)
	assert.Nil(t, client)
	assert.Error(t, err)
}
