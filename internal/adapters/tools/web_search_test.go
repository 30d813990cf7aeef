package tools

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

const sampleResultsPage = `
<html><body>
<div class="result results_links">
  <a class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fexample.com%2Fpgvector">pgvector guide</a>
  <a class="result__snippet" href="#">Cosine similarity with Postgres.</a>
</div>
<div class="result results_links">
  <a class="result__a" href="https://duckduckgo.com/settings">Settings</a>
</div>
<div class="result results_links">
  <a class="result__a" href="https://blog.example.org/post">Another post</a>
  <a class="result__snippet" href="#">A second snippet.</a>
</div>
</body></html>`

func TestParseSearchResults(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(sampleResultsPage))
	if err != nil {
		t.Fatal(err)
	}

	hits := parseSearchResults(doc, 5)
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	if hits[0].URL != "https://example.com/pgvector" {
		t.Errorf("expected redirect unwrapped, got %s", hits[0].URL)
	}
	if hits[0].Title != "pgvector guide" {
		t.Errorf("unexpected title %q", hits[0].Title)
	}
	if hits[1].URL != "https://blog.example.org/post" {
		t.Errorf("unexpected second URL %s", hits[1].URL)
	}
}

func TestParseSearchResults_Limit(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(sampleResultsPage))
	if err != nil {
		t.Fatal(err)
	}

	hits := parseSearchResults(doc, 1)
	if len(hits) != 1 {
		t.Fatalf("expected 1 hit, got %d", len(hits))
	}
}

func TestResolveRedirect(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"//duckduckgo.com/l/?uddg=https%3A%2F%2Fexample.com%2Fa", "https://example.com/a"},
		{"https://example.com/direct", "https://example.com/direct"},
		{"/relative", ""},
	}
	for _, tt := range tests {
		if got := resolveRedirect(tt.in); got != tt.want {
			t.Errorf("resolveRedirect(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
