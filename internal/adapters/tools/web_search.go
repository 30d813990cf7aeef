package tools

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/longregen/argo/internal/domain"
	"github.com/longregen/argo/internal/domain/models"
	"github.com/longregen/argo/internal/ports"
)

const (
	duckDuckGoSearchURL = "https://html.duckduckgo.com/html/"
	searchTimeout       = 15 * time.Second
	maxSearchResults    = 10
	userAgent           = "Mozilla/5.0 (compatible; Argo/1.0)"
)

// WebSearchTool queries DuckDuckGo's HTML endpoint and returns ranked hits.
type WebSearchTool struct {
	client *http.Client
}

func NewWebSearchTool() *WebSearchTool {
	return &WebSearchTool{
		client: &http.Client{
			Timeout: searchTimeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		},
	}
}

func (t *WebSearchTool) Name() string {
	return "web_search"
}

func (t *WebSearchTool) Description() string {
	return "Searches the web and returns a list of results with title, URL and snippet. Use it to discover sources before reading them with web_access."
}

func (t *WebSearchTool) Parameters() map[string]string {
	return map[string]string{
		"query":       "The search query (2-100 characters)",
		"max_results": "Number of results to return (default 5, max 10)",
	}
}

func (t *WebSearchTool) ParameterOrder() []string {
	return []string{"query", "max_results"}
}

func (t *WebSearchTool) Run(ctx context.Context, req ports.ToolRequest) (*ports.ToolResult, error) {
	query, _ := req.Args["query"].(string)
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: query is required", domain.ErrInvalidToolArgs)
	}

	limit := 5
	if v, ok := req.Args["max_results"].(float64); ok {
		limit = int(v)
	} else if v, ok := req.Args["max_results"].(int); ok {
		limit = v
	}
	if limit < 1 {
		limit = 1
	}
	if limit > maxSearchResults {
		limit = maxSearchResults
	}

	hits, err := t.search(ctx, query, limit)
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	snippets := make([]string, 0, len(hits))
	for i, hit := range hits {
		line := fmt.Sprintf("%d. %s\n   %s\n   %s", i+1, hit.Title, hit.URL, hit.Snippet)
		snippets = append(snippets, hit.URL)
		sb.WriteString(line)
		sb.WriteString("\n")
	}

	return &ports.ToolResult{
		ToolName:   t.Name(),
		Text:       strings.TrimRight(sb.String(), "\n"),
		Snippets:   snippets,
		SourceType: "web_search",
		Status:     models.ToolRunOK,
	}, nil
}

type searchHit struct {
	Title   string
	URL     string
	Snippet string
}

func (t *WebSearchTool) search(ctx context.Context, query string, limit int) ([]searchHit, error) {
	formData := url.Values{}
	formData.Set("q", query)
	formData.Set("b", "")
	formData.Set("kl", "us-en")

	req, err := http.NewRequestWithContext(ctx, "POST", duckDuckGoSearchURL, strings.NewReader(formData.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search returned HTTP %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse search page: %w", err)
	}

	hits := parseSearchResults(doc, limit)
	if len(hits) == 0 {
		return nil, fmt.Errorf("no results found for query: %q", query)
	}
	return hits, nil
}

func parseSearchResults(doc *goquery.Document, limit int) []searchHit {
	var hits []searchHit
	doc.Find("div.result").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		link := s.Find("a.result__a").First()
		href, ok := link.Attr("href")
		if !ok {
			return true
		}
		href = resolveRedirect(href)
		// Skip ads and internal DuckDuckGo links
		if href == "" || strings.Contains(href, "duckduckgo.com") {
			return true
		}

		hits = append(hits, searchHit{
			Title:   strings.TrimSpace(link.Text()),
			URL:     href,
			Snippet: strings.TrimSpace(s.Find(".result__snippet").Text()),
		})
		return len(hits) < limit
	})
	return hits
}

// resolveRedirect unwraps DuckDuckGo's /l/?uddg= redirect links.
func resolveRedirect(href string) string {
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if strings.HasSuffix(u.Host, "duckduckgo.com") && u.Path == "/l/" {
		if target := u.Query().Get("uddg"); target != "" {
			return target
		}
	}
	if u.Host == "" {
		return ""
	}
	return href
}

var _ ports.Tool = (*WebSearchTool)(nil)
