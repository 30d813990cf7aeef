package tools

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	readability "github.com/go-shiori/go-readability"
	"github.com/longregen/argo/internal/domain"
	"github.com/longregen/argo/internal/domain/models"
	"github.com/longregen/argo/internal/ports"
)

const (
	fetchTimeout     = 30 * time.Second
	maxContentLength = 50000
)

// WebAccessTool fetches a page, extracts the main article content and
// converts it to markdown.
type WebAccessTool struct {
	client *http.Client
}

func NewWebAccessTool() *WebAccessTool {
	return &WebAccessTool{
		client: &http.Client{
			Timeout: fetchTimeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		},
	}
}

func (t *WebAccessTool) Name() string {
	return "web_access"
}

func (t *WebAccessTool) Description() string {
	return "Fetches a web page and returns its main content as clean markdown. Navigation, ads and boilerplate are removed. Best for reading articles, documentation and blog posts found with web_search."
}

func (t *WebAccessTool) Parameters() map[string]string {
	return map[string]string{
		"url": "The http or https URL to fetch",
	}
}

func (t *WebAccessTool) ParameterOrder() []string {
	return []string{"url"}
}

func (t *WebAccessTool) Run(ctx context.Context, req ports.ToolRequest) (*ports.ToolResult, error) {
	rawURL, _ := req.Args["url"].(string)
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return nil, fmt.Errorf("%w: url is required", domain.ErrInvalidToolArgs)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "GET", rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("User-Agent", userAgent)
	httpReq.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	article, err := readability.FromReader(resp.Body, resp.Request.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to extract content: %w", err)
	}

	markdown, err := htmltomarkdown.ConvertString(article.Content)
	if err != nil {
		return nil, fmt.Errorf("failed to convert to markdown: %w", err)
	}

	markdown = cleanWhitespace(markdown)
	if len(markdown) > maxContentLength {
		markdown = markdown[:maxContentLength] + "\n\n[Content truncated...]"
	}

	finalURL := resp.Request.URL.String()
	now := time.Now()

	text := markdown
	if article.Title != "" {
		text = "# " + article.Title + "\n\n" + markdown
	}

	return &ports.ToolResult{
		ToolName:   t.Name(),
		Text:       text,
		URL:        finalURL,
		SourceType: "web_article",
		Trust:      models.TrustMedium,
		FetchedAt:  now.Format(time.RFC3339),
		Status:     models.ToolRunOK,
	}, nil
}

func cleanWhitespace(md string) string {
	re := regexp.MustCompile(`\n{3,}`)
	md = re.ReplaceAllString(md, "\n\n")
	return strings.TrimSpace(md)
}

var _ ports.Tool = (*WebAccessTool)(nil)
