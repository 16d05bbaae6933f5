package tools

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// SearchResult represents a single search result
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

type serpAPIResponse struct {
	Error     string `json:"error"`
	AnswerBox struct {
		Answer  string `json:"answer"`
		Snippet string `json:"snippet"`
	} `json:"answer_box"`
	KnowledgeGraph struct {
		Title       string `json:"title"`
		Description string `json:"description"`
	} `json:"knowledge_graph"`
	OrganicResults []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"organic_results"`
}

// Invoke runs the search and renders the results as text
func (t *SearchTool) Invoke(ctx context.Context, args map[string]interface{}) (string, error) {
	query := strings.TrimSpace(stringArg(args, "query"))
	if query == "" {
		return "", fmt.Errorf("query is required")
	}

	var (
		out string
		err error
	)
	if t.serpAPIKey != "" {
		out, err = t.searchSerpAPI(ctx, query)
	} else {
		out, err = t.searchDuckDuckGo(ctx, query)
	}
	if err != nil {
		return "", err
	}

	t.logger.Info("Real-time search finished",
		zap.String("query", query),
		zap.Int("result_chars", len(out)),
	)
	return out, nil
}

func (t *SearchTool) searchSerpAPI(ctx context.Context, query string) (string, error) {
	var body serpAPIResponse
	resp, err := t.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"q":       query,
			"engine":  "google",
			"api_key": t.serpAPIKey,
		}).
		SetResult(&body).
		SetError(&body).
		Get(t.serpAPIURL)
	if err != nil {
		return "", fmt.Errorf("search failed: %w", err)
	}
	if resp.IsError() || body.Error != "" {
		return "", fmt.Errorf("search failed: HTTP %d %s", resp.StatusCode(), body.Error)
	}

	// Same precedence as SerpAPI's own answer extraction: direct answer,
	// knowledge graph, then organic snippets.
	switch {
	case body.AnswerBox.Answer != "":
		return body.AnswerBox.Answer, nil
	case body.AnswerBox.Snippet != "":
		return body.AnswerBox.Snippet, nil
	case body.KnowledgeGraph.Description != "":
		return body.KnowledgeGraph.Description, nil
	}

	results := make([]SearchResult, 0, maxSearchResults)
	for _, r := range body.OrganicResults {
		if len(results) == maxSearchResults {
			break
		}
		results = append(results, SearchResult{Title: r.Title, URL: r.Link, Snippet: r.Snippet})
	}
	return formatSearchResults(query, results), nil
}

func (t *SearchTool) searchDuckDuckGo(ctx context.Context, query string) (string, error) {
	resp, err := t.client.R().
		SetContext(ctx).
		SetHeader("Accept", "text/html").
		SetQueryParam("q", query).
		Get(t.duckDuckGoURL)
	if err != nil {
		return "", fmt.Errorf("search failed: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("search failed: HTTP %d", resp.StatusCode())
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body()))
	if err != nil {
		return "", fmt.Errorf("failed to parse search results: %w", err)
	}

	return formatSearchResults(query, parseDuckDuckGoResults(doc)), nil
}

// parseDuckDuckGoResults extracts results from DuckDuckGo's HTML page
func parseDuckDuckGoResults(doc *goquery.Document) []SearchResult {
	results := make([]SearchResult, 0, maxSearchResults)
	doc.Find(".result").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		link := s.Find("a.result__a").First()
		title := collapseWhitespace(link.Text())
		if title == "" {
			return true
		}
		href, _ := link.Attr("href")

		snippet := collapseWhitespace(s.Find(".result__snippet").First().Text())
		if r := []rune(snippet); len(r) > 200 {
			snippet = string(r[:200]) + "..."
		}

		results = append(results, SearchResult{
			Title:   title,
			URL:     unwrapDuckDuckGoURL(href),
			Snippet: snippet,
		})
		return len(results) < maxSearchResults
	})
	return results
}

func formatSearchResults(query string, results []SearchResult) string {
	if len(results) == 0 {
		return fmt.Sprintf("No results found for: %s", query)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d results for: %s\n", len(results), query)
	for i, r := range results {
		fmt.Fprintf(&b, "%d. %s\n", i+1, r.Title)
		if r.URL != "" {
			fmt.Fprintf(&b, "   %s\n", r.URL)
		}
		if r.Snippet != "" {
			fmt.Fprintf(&b, "   %s\n", r.Snippet)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
