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

// Package modules contains relay's business steps and the registry that
// turns configured step names into a decorated, validated chain.
//
// Built-in steps:
//
//	Uppercase      string -> string       (smoke test)
//	Length         string -> int          (smoke test)
//	FetchHomepage  string -> FetchResult  (HTTP GET of the input's homepage)
//	ParsePage      FetchResult -> PageInfo (title and YouTube channel links)
package modules
