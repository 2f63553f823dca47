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

package shared

import (
	"github.com/tombee/relay/internal/config"
	"github.com/tombee/relay/internal/log"
)

// LoadConfig loads the file named by --config, falling back to the XDG
// default location. Failures exit with ExitInvalidPipeline.
func LoadConfig() (*config.Config, error) {
	path := GetConfigPath()
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, NewInvalidPipelineError("failed to load configuration", err)
	}
	if GetVerbose() && cfg.Log.Level != "trace" {
		cfg.Log.Level = "debug"
	}
	return cfg, nil
}

// LogConfig converts the file configuration into a logger configuration.
func LogConfig(cfg *config.Config) *log.Config {
	lc := log.DefaultConfig()
	lc.Level = cfg.Log.Level
	lc.Format = log.Format(cfg.Log.Format)
	lc.AddSource = cfg.Log.AddSource
	return lc
}
