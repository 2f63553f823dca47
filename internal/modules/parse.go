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
	"net/url"
	"sort"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// PageInfo is what ParsePage extracts from a homepage.
type PageInfo struct {
	URL      string   `json:"url" yaml:"url"`
	Title    string   `json:"title" yaml:"title"`
	Channels []string `json:"channels" yaml:"channels"`
}

// ParsePage extracts the page title and any YouTube channel links from a
// fetched homepage.
type ParsePage struct{}

func (ParsePage) Name() string { return "ParsePage" }

func (ParsePage) Execute(ctx context.Context, input FetchResult) (PageInfo, error) {
	if err := ctx.Err(); err != nil {
		return PageInfo{}, err
	}

	info := PageInfo{URL: input.URL, Channels: []string{}}
	seen := make(map[string]bool)

	z := html.NewTokenizer(strings.NewReader(input.HTML))
	inTitle := false
	for {
		switch z.Next() {
		case html.ErrorToken:
			sort.Strings(info.Channels)
			return info, nil

		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			switch atom.Lookup(name) {
			case atom.Title:
				inTitle = info.Title == ""
			case atom.A:
				if !hasAttr {
					continue
				}
				for {
					key, val, more := z.TagAttr()
					if string(key) == "href" {
						if ch, ok := channelURL(string(val), input.URL); ok && !seen[ch] {
							seen[ch] = true
							info.Channels = append(info.Channels, ch)
						}
					}
					if !more {
						break
					}
				}
			}

		case html.TextToken:
			if inTitle {
				info.Title = strings.Join(strings.Fields(string(z.Text())), " ")
			}

		case html.EndTagToken:
			name, _ := z.TagName()
			if atom.Lookup(name) == atom.Title {
				inTitle = false
			}
		}
	}
}

// channelURL reports whether href points at a YouTube channel and returns
// it in canonical form.
func channelURL(href, base string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", false
	}
	if b, err := url.Parse(base); err == nil {
		u = b.ResolveReference(u)
	}

	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	host = strings.TrimPrefix(host, "m.")
	if host != "youtube.com" {
		return "", false
	}

	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segments) == 0 || segments[0] == "" {
		return "", false
	}

	var path string
	switch {
	case strings.HasPrefix(segments[0], "@"):
		path = segments[0]
	case len(segments) >= 2 && (segments[0] == "channel" || segments[0] == "c" || segments[0] == "user"):
		path = segments[0] + "/" + segments[1]
	default:
		return "", false
	}
	return "https://www.youtube.com/" + path, true
}
