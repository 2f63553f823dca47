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
	"net/url"
	"strings"
)

// sensitiveParams are query parameter name fragments redacted from logs.
var sensitiveParams = []string{
	"token",
	"password",
	"auth",
	"secret",
	"key",
	"credential",
	"signature",
}

// sanitizeURL redacts user info and sensitive query parameters.
func sanitizeURL(u *url.URL) string {
	if u == nil {
		return ""
	}

	safe := *u
	if safe.User != nil {
		safe.User = url.User("REDACTED")
	}

	if safe.RawQuery != "" {
		q := safe.Query()
		for param := range q {
			if isSensitiveParam(param) {
				q.Set(param, "REDACTED")
			}
		}
		safe.RawQuery = q.Encode()
	}
	return safe.String()
}

func isSensitiveParam(param string) bool {
	lower := strings.ToLower(param)
	for _, sensitive := range sensitiveParams {
		if strings.Contains(lower, sensitive) {
			return true
		}
	}
	return false
}
