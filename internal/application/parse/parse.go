// Package parse extracts tool proposals and semantic tags from raw model
// output. The model is an unreliable author: end tags get truncated, plans
// contain tool-call-looking prose, and sometimes the output is just a plain
// answer. Parsing failures never abort a turn; they yield zero proposals.
package parse

import (
	"regexp"
	"strings"

	"github.com/longregen/argo/internal/ports"
)

// SemanticTags are the top-level reasoning tags the model may emit.
type SemanticTags struct {
	ResearchPlan string
	Think        string
	Synthesis    string
	Confidence   string
	Gaps         string
}

// Result is the outcome of parsing one model output.
type Result struct {
	Proposals []ports.ToolRequest
	Tags      SemanticTags
	// Answer is the raw output with tool calls and think blocks removed,
	// suitable as a final reply.
	Answer string
}

// Parser turns raw model output into proposals and tags. The variant must
// match the manifest renderer configured for the model family.
type Parser interface {
	Parse(raw string) Result
}

var semanticTagNames = []string{"research_plan", "think", "synthesis", "confidence", "gaps"}

// tagPattern matches an open tag through its close tag, tolerating a
// truncated or missing close tag at end of output.
func tagPattern(name string) *regexp.Regexp {
	return regexp.MustCompile(`(?s)<` + name + `>(.*?)(?:</` + name + `\s*>?|\z)`)
}

var (
	planPattern       = tagPattern("research_plan")
	thinkPattern      = tagPattern("think")
	synthesisPattern  = tagPattern("synthesis")
	confidencePattern = tagPattern("confidence")
	gapsPattern       = tagPattern("gaps")
)

func extractTags(raw string) SemanticTags {
	return SemanticTags{
		ResearchPlan: firstGroup(planPattern, raw),
		Think:        firstGroup(thinkPattern, raw),
		Synthesis:    firstGroup(synthesisPattern, raw),
		Confidence:   firstGroup(confidencePattern, raw),
		Gaps:         firstGroup(gapsPattern, raw),
	}
}

func firstGroup(re *regexp.Regexp, s string) string {
	m := re.FindStringSubmatch(s)
	if len(m) < 2 {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// maskPlans blanks out research_plan bodies so tool-call-looking content
// inside a plan is never executed.
func maskPlans(raw string) string {
	return planPattern.ReplaceAllString(raw, "")
}

var (
	toolCallStripPattern = regexp.MustCompile(`(?s)<tool_call>.*?(?:</tool_call\s*>?|\z)`)
	thinkStripPattern    = regexp.MustCompile(`(?s)<think>.*?(?:</think\s*>?|\z)`)
)

// cleanAnswer removes tool calls and think blocks, leaving the visible
// reply text.
func cleanAnswer(raw string) string {
	s := toolCallStripPattern.ReplaceAllString(raw, "")
	s = thinkStripPattern.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}
