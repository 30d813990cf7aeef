package parse

import (
	"regexp"
	"strings"

	"github.com/longregen/argo/internal/ports"
)

// XMLParser reads the XML tool-call dialect:
//
//	<tool_call>
//	<function=web_search>
//	<parameter=query>golang pgvector</parameter>
//	</function>
//	</tool_call>
//
// End tags are frequently truncated by token limits, so every close tag is
// optional and parameter values terminate at the next structural tag.
type XMLParser struct{}

func NewXMLParser() *XMLParser {
	return &XMLParser{}
}

var (
	xmlToolCallPattern = regexp.MustCompile(`(?s)<tool_call>(.*?)(?:</tool_call\s*>?|\z)`)
	xmlFunctionPattern = regexp.MustCompile(`(?s)<function=([a-zA-Z0-9_]+)\s*>(.*?)(?:</function\s*>?|\z)`)
)

func (p *XMLParser) Parse(raw string) Result {
	tags := extractTags(raw)
	masked := maskPlans(raw)

	var proposals []ports.ToolRequest
	for _, block := range xmlToolCallPattern.FindAllStringSubmatch(masked, -1) {
		for _, fn := range xmlFunctionPattern.FindAllStringSubmatch(block[1], -1) {
			proposals = append(proposals, ports.ToolRequest{
				Tool: fn[1],
				Args: parseParameters(fn[2]),
			})
		}
	}

	return Result{
		Proposals: proposals,
		Tags:      tags,
		Answer:    cleanAnswer(raw),
	}
}

func parseParameters(body string) map[string]any {
	args := make(map[string]any)
	parts := strings.Split(body, "<parameter=")
	for _, part := range parts[1:] {
		idx := strings.Index(part, ">")
		if idx < 0 {
			continue
		}
		key := strings.TrimSpace(part[:idx])
		if key == "" {
			continue
		}
		value := part[idx+1:]
		for _, terminator := range []string{"</parameter", "</function", "</tool_call"} {
			if i := strings.Index(value, terminator); i >= 0 {
				value = value[:i]
			}
		}
		args[key] = strings.TrimSpace(value)
	}
	return args
}

var _ Parser = (*XMLParser)(nil)
