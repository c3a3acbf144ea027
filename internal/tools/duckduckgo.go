// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tools

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/jeranaias/chatdeck/internal/util"
)

var (
	// DuckDuckGo HTML result markup
	ddgTitleRegex   = regexp.MustCompile(`(?s)<a[^>]+class="result__a"[^>]+href="([^"]+)"[^>]*>(.+?)</a>`)
	ddgSnippetRegex = regexp.MustCompile(`(?s)<a[^>]+class="result__snippet"[^>]*>(.+?)</a>`)

	ddgTagRegex        = regexp.MustCompile(`<[^>]*>`)
	ddgWhitespaceRegex = regexp.MustCompile(`\s+`)
)

const (
	defaultDDGURL       = "https://html.duckduckgo.com/html/"
	defaultDDGUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	maxSnippetRunes     = 300
	maxSearchBodyBytes  = 5 * 1024 * 1024
)

// =============================================================================
// DUCKDUCKGO SEARCH EXECUTOR
// =============================================================================

// DuckDuckGoSearchExecutor implements web search using DuckDuckGo HTML.
type DuckDuckGoSearchExecutor struct {
	// BaseURL is the DuckDuckGo HTML search endpoint
	BaseURL string

	// MaxResults is the default result count (max 10)
	MaxResults int

	Timeout   time.Duration
	UserAgent string

	client *resty.Client
}

// SearchResult is a single search hit.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet,omitempty"`
}

// SearchResults is the payload of web_search.
type SearchResults struct {
	Query   string         `json:"query"`
	Results []SearchResult `json:"results"`
}

func (e *DuckDuckGoSearchExecutor) httpClient() *resty.Client {
	if e.client != nil {
		return e.client
	}
	timeout := e.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	e.client = resty.New().
		SetTimeout(timeout).
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(5))
	return e.client
}

// Execute implements ToolExecutor.
func (e *DuckDuckGoSearchExecutor) Execute(ctx context.Context, params map[string]interface{}) (Result, error) {
	query := strings.TrimSpace(getStringParam(params, "query", ""))
	if query == "" {
		return Result{Success: false, Error: "query parameter is required"}, nil
	}

	defaultMax := e.MaxResults
	if defaultMax == 0 {
		defaultMax = 5
	}
	maxResults := getIntParam(params, "max_results", defaultMax)
	if maxResults < 1 {
		maxResults = 1
	}
	if maxResults > 10 {
		maxResults = 10
	}

	results, err := e.search(ctx, query)
	if err != nil {
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		return Result{Success: false, Error: "search failed: " + err.Error()}, nil
	}
	if len(results) > maxResults {
		results = results[:maxResults]
	}

	return Result{
		Success:    true,
		Data:       SearchResults{Query: query, Results: results},
		MatchCount: len(results),
	}, nil
}

func (e *DuckDuckGoSearchExecutor) search(ctx context.Context, query string) ([]SearchResult, error) {
	base := e.BaseURL
	if base == "" {
		base = defaultDDGURL
	}
	ua := e.UserAgent
	if ua == "" {
		ua = defaultDDGUserAgent
	}

	resp, err := e.httpClient().R().
		SetContext(ctx).
		SetHeader("User-Agent", ua).
		SetHeader("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8").
		SetHeader("Accept-Language", "en-US,en;q=0.9").
		SetQueryParam("q", query).
		Get(base)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %s", resp.Status())
	}

	body := resp.Body()
	if len(body) > maxSearchBodyBytes {
		body = body[:maxSearchBodyBytes]
	}
	return parseDDGHTML(string(body)), nil
}

// parseDDGHTML extracts results from the DuckDuckGo HTML page:
//
//	<a rel="nofollow" class="result__a" href="//duckduckgo.com/l/?uddg=URL">Title</a>
//	<a class="result__snippet" href="...">Snippet text</a>
func parseDDGHTML(page string) []SearchResult {
	titleMatches := ddgTitleRegex.FindAllStringSubmatch(page, 30)
	snippetMatches := ddgSnippetRegex.FindAllStringSubmatch(page, 30)

	var results []SearchResult
	for i, match := range titleMatches {
		if len(match) < 3 {
			continue
		}
		actualURL := extractActualURL(strings.ReplaceAll(match[1], "&amp;", "&"))
		title := cleanHTML(match[2])
		if title == "" || actualURL == "" {
			continue
		}

		snippet := ""
		if i < len(snippetMatches) && len(snippetMatches[i]) >= 2 {
			snippet = util.TruncateRunes(cleanHTML(snippetMatches[i][1]), maxSnippetRunes)
		}

		results = append(results, SearchResult{Title: title, URL: actualURL, Snippet: snippet})
		if len(results) >= 20 {
			break
		}
	}
	return results
}

// extractActualURL unwraps DuckDuckGo's //duckduckgo.com/l/?uddg=... redirect.
func extractActualURL(ddgURL string) string {
	if strings.Contains(ddgURL, "uddg=") {
		if strings.HasPrefix(ddgURL, "//") {
			ddgURL = "https:" + ddgURL
		}
		parsed, err := url.Parse(ddgURL)
		if err != nil {
			return ""
		}
		if target := parsed.Query().Get("uddg"); target != "" {
			return target
		}
	}
	if strings.HasPrefix(ddgURL, "http://") || strings.HasPrefix(ddgURL, "https://") {
		return ddgURL
	}
	return ""
}

// cleanHTML strips tags, decodes entities and collapses whitespace.
func cleanHTML(s string) string {
	text := ddgTagRegex.ReplaceAllString(s, "")
	text = html.UnescapeString(text)
	text = ddgWhitespaceRegex.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// WebSearchTool is the web_search tool definition.
func WebSearchTool() *Tool {
	return &Tool{
		Name:        "web_search",
		Description: "Search the web with DuckDuckGo. Returns titles, URLs and snippets.",
		Schema: Schema{Parameters: []Parameter{
			{Name: "query", Type: "string", Required: true, Description: "Search query"},
			{Name: "max_results", Type: "number", Description: "Number of results (1-10)", Default: 5},
		}},
		Executor: &DuckDuckGoSearchExecutor{},
	}
}
