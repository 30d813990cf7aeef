package parse

import "testing"

func TestJSONParser_Envelope(t *testing.T) {
	raw := `{"plan": "check the release page", "tool_calls": [{"tool": "web_search", "args": {"query": "go release notes", "max_results": 3}}]}`

	result := NewJSONParser().Parse(raw)
	if len(result.Proposals) != 1 {
		t.Fatalf("expected 1 proposal, got %d", len(result.Proposals))
	}
	p := result.Proposals[0]
	if p.Tool != "web_search" {
		t.Errorf("expected web_search, got %s", p.Tool)
	}
	if p.Args["query"] != "go release notes" {
		t.Errorf("unexpected query: %v", p.Args["query"])
	}
	if p.Args["max_results"] != float64(3) {
		t.Errorf("unexpected max_results: %v", p.Args["max_results"])
	}
}

func TestJSONParser_BareArray(t *testing.T) {
	raw := `[{"tool": "web_access", "args": {"url": "https://example.com"}}]`

	result := NewJSONParser().Parse(raw)
	if len(result.Proposals) != 1 {
		t.Fatalf("expected 1 proposal, got %d", len(result.Proposals))
	}
	if result.Proposals[0].Args["url"] != "https://example.com" {
		t.Errorf("unexpected url: %v", result.Proposals[0].Args["url"])
	}
}

func TestJSONParser_OpenAIStyleStringifiedArguments(t *testing.T) {
	raw := `{"tool_calls": [{"function": {"name": "memory_query", "arguments": "{\"query\": \"python preference\"}"}}]}`

	result := NewJSONParser().Parse(raw)
	if len(result.Proposals) != 1 {
		t.Fatalf("expected 1 proposal, got %d", len(result.Proposals))
	}
	p := result.Proposals[0]
	if p.Tool != "memory_query" {
		t.Errorf("expected memory_query, got %s", p.Tool)
	}
	if p.Args["query"] != "python preference" {
		t.Errorf("unexpected query: %v", p.Args["query"])
	}
}

func TestJSONParser_InsideToolCallTag(t *testing.T) {
	raw := `<tool_call>{"tool": "retrieve_context", "args": {"query": "prior notes on pgvector"}}</tool_call>`

	result := NewJSONParser().Parse(raw)
	if len(result.Proposals) != 1 {
		t.Fatalf("expected 1 proposal, got %d", len(result.Proposals))
	}
	if result.Proposals[0].Tool != "retrieve_context" {
		t.Errorf("expected retrieve_context, got %s", result.Proposals[0].Tool)
	}
}

func TestJSONParser_FencedBlock(t *testing.T) {
	raw := "Here is what I'll do:\n```json\n{\"tool_calls\": [{\"tool\": \"web_search\", \"args\": {\"query\": \"x\"}}]}\n```"

	result := NewJSONParser().Parse(raw)
	if len(result.Proposals) != 1 {
		t.Fatalf("expected 1 proposal, got %d", len(result.Proposals))
	}
}

func TestJSONParser_PlainAnswer(t *testing.T) {
	raw := "You prefer Python 3.11 according to your profile."

	result := NewJSONParser().Parse(raw)
	if len(result.Proposals) != 0 {
		t.Fatalf("expected 0 proposals, got %d", len(result.Proposals))
	}
	if result.Answer != raw {
		t.Errorf("expected answer preserved, got %q", result.Answer)
	}
}

func TestJSONParser_IgnoresCallsInsidePlan(t *testing.T) {
	raw := `<research_plan>{"tool_calls": [{"tool": "web_search", "args": {"query": "x"}}]}</research_plan>`

	result := NewJSONParser().Parse(raw)
	if len(result.Proposals) != 0 {
		t.Fatalf("expected 0 proposals, got %d", len(result.Proposals))
	}
	if result.Tags.ResearchPlan == "" {
		t.Error("expected plan text extracted")
	}
}

func TestJSONParser_MalformedJSON(t *testing.T) {
	raw := `{"tool_calls": [{"tool": "web_search", "args": {`

	result := NewJSONParser().Parse(raw)
	if len(result.Proposals) != 0 {
		t.Fatalf("expected 0 proposals from malformed JSON, got %d", len(result.Proposals))
	}
}
