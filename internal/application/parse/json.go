package parse

import (
	"encoding/json"
	"strings"

	"github.com/longregen/argo/internal/ports"
)

// JSONParser reads the JSON tool-call dialect. Accepted shapes, inside a
// <tool_call> block, a fenced code block, or bare in the output:
//
//	{"plan": "...", "tool_calls": [{"tool": "web_search", "args": {...}}]}
//	[{"tool": "...", "args": {...}}]
//	{"tool_calls": [{"function": {"name": "...", "arguments": "{...}"}}]}
type JSONParser struct{}

func NewJSONParser() *JSONParser {
	return &JSONParser{}
}

func (p *JSONParser) Parse(raw string) Result {
	tags := extractTags(raw)
	masked := maskPlans(raw)

	var proposals []ports.ToolRequest
	for _, candidate := range jsonCandidates(masked) {
		if calls := decodeToolCalls(candidate); len(calls) > 0 {
			proposals = calls
			break
		}
	}

	return Result{
		Proposals: proposals,
		Tags:      tags,
		Answer:    cleanAnswer(stripJSONCalls(raw, proposals)),
	}
}

// jsonCandidates collects substrings that might hold a tool-call payload,
// most specific first.
func jsonCandidates(s string) []string {
	var candidates []string

	for _, block := range xmlToolCallPattern.FindAllStringSubmatch(s, -1) {
		candidates = append(candidates, strings.TrimSpace(block[1]))
	}

	for _, fence := range fencedBlocks(s) {
		candidates = append(candidates, fence)
	}

	if body := balancedJSON(s); body != "" {
		candidates = append(candidates, body)
	}

	return candidates
}

func fencedBlocks(s string) []string {
	var blocks []string
	rest := s
	for {
		start := strings.Index(rest, "```")
		if start < 0 {
			break
		}
		rest = rest[start+3:]
		if nl := strings.Index(rest, "\n"); nl >= 0 && nl < 10 {
			rest = rest[nl+1:]
		}
		end := strings.Index(rest, "```")
		if end < 0 {
			blocks = append(blocks, strings.TrimSpace(rest))
			break
		}
		blocks = append(blocks, strings.TrimSpace(rest[:end]))
		rest = rest[end+3:]
	}
	return blocks
}

// balancedJSON extracts the first balanced {...} or [...] region mentioning
// tool_calls or a tool key.
func balancedJSON(s string) string {
	start := -1
	for i, r := range s {
		if r == '{' || r == '[' {
			start = i
			break
		}
	}
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

type jsonCall struct {
	Tool      string          `json:"tool"`
	Name      string          `json:"name"`
	Args      map[string]any  `json:"args"`
	Arguments json.RawMessage `json:"arguments"`
	Function  *struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	} `json:"function"`
}

type jsonEnvelope struct {
	ToolCalls []jsonCall `json:"tool_calls"`
}

func decodeToolCalls(candidate string) []ports.ToolRequest {
	if candidate == "" {
		return nil
	}

	var calls []jsonCall

	var envelope jsonEnvelope
	if err := json.Unmarshal([]byte(candidate), &envelope); err == nil && len(envelope.ToolCalls) > 0 {
		calls = envelope.ToolCalls
	} else {
		var array []jsonCall
		if err := json.Unmarshal([]byte(candidate), &array); err == nil {
			calls = array
		} else {
			var single jsonCall
			if err := json.Unmarshal([]byte(candidate), &single); err == nil {
				calls = []jsonCall{single}
			}
		}
	}

	var proposals []ports.ToolRequest
	for _, call := range calls {
		name := call.Tool
		arguments := call.Arguments
		args := call.Args
		if call.Function != nil {
			name = call.Function.Name
			arguments = call.Function.Arguments
		}
		if name == "" {
			name = call.Name
		}
		if name == "" {
			continue
		}
		if args == nil {
			args = decodeArguments(arguments)
		}
		if args == nil {
			args = make(map[string]any)
		}
		proposals = append(proposals, ports.ToolRequest{Tool: name, Args: args})
	}
	return proposals
}

// decodeArguments handles both object arguments and OpenAI-style
// stringified JSON arguments.
func decodeArguments(raw json.RawMessage) map[string]any {
	if len(raw) == 0 {
		return nil
	}

	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj
	}

	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		if err := json.Unmarshal([]byte(str), &obj); err == nil {
			return obj
		}
	}
	return nil
}

// stripJSONCalls removes the JSON payload from the visible answer when
// proposals were extracted from a bare (untagged) JSON region.
func stripJSONCalls(raw string, proposals []ports.ToolRequest) string {
	if len(proposals) == 0 {
		return raw
	}
	if body := balancedJSON(raw); body != "" && strings.Contains(body, "tool") {
		return strings.Replace(raw, body, "", 1)
	}
	return raw
}

var _ Parser = (*JSONParser)(nil)
