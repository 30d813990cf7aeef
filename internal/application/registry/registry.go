// Package registry holds the named tools and renders the per-(mode, phase)
// tool manifest shown to the model. Tool usage is entirely prompt-based;
// the manifest is the only place the model learns what it may call.
package registry

import (
	"fmt"
	"strings"

	"github.com/longregen/argo/internal/domain/models"
	"github.com/longregen/argo/internal/ports"
)

// Format selects the tool-call dialect rendered to the model. It must
// match the parser variant configured for the model family.
type Format string

const (
	FormatXML  Format = "xml"
	FormatJSON Format = "json"
)

// Registry is the set of tools exposed to the orchestrator.
type Registry struct {
	tools map[string]ports.Tool
	order []string
}

func New(tools ...ports.Tool) *Registry {
	r := &Registry{tools: make(map[string]ports.Tool)}
	for _, t := range tools {
		r.Register(t)
	}
	return r
}

func (r *Registry) Register(t ports.Tool) {
	if _, exists := r.tools[t.Name()]; !exists {
		r.order = append(r.order, t.Name())
	}
	r.tools[t.Name()] = t
}

func (r *Registry) Get(name string) (ports.Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// manifestNames returns the tool names allowed for a mode and phase.
func manifestNames(mode models.Mode, phase models.Phase) []string {
	switch mode {
	case models.ModeQuickLookup:
		return []string{"web_search", "web_access", "memory_query", "retrieve_context"}
	case models.ModeResearch:
		switch phase {
		case models.PhasePlanning:
			// No tools: the model must produce a plan first.
			return nil
		case models.PhaseSynthesis:
			return []string{"memory_write", "memory_query", "retrieve_context"}
		default:
			return []string{"web_search", "web_access", "retrieve_context"}
		}
	case models.ModeIngest:
		return []string{"web_access", "memory_write", "memory_query", "retrieve_context"}
	default:
		return nil
	}
}

// ManifestFor resolves the allowed tools for a mode and phase, minus any
// excluded names (offline filtering).
func (r *Registry) ManifestFor(mode models.Mode, phase models.Phase, exclude map[string]bool) []ports.Tool {
	var tools []ports.Tool
	for _, name := range manifestNames(mode, phase) {
		if exclude[name] {
			continue
		}
		if t, ok := r.tools[name]; ok {
			tools = append(tools, t)
		}
	}
	return tools
}

// Allowed reports whether a tool is in the manifest for this mode/phase.
func (r *Registry) Allowed(name string, mode models.Mode, phase models.Phase, exclude map[string]bool) bool {
	for _, t := range r.ManifestFor(mode, phase, exclude) {
		if t.Name() == name {
			return true
		}
	}
	return false
}

// Render produces the manifest text for the configured format.
func Render(format Format, tools []ports.Tool) string {
	if len(tools) == 0 {
		return ""
	}
	if format == FormatJSON {
		return renderJSON(tools)
	}
	return renderXML(tools)
}

func renderXML(tools []ports.Tool) string {
	var sb strings.Builder
	sb.WriteString("You may call the following tools. To call a tool, emit exactly this structure:\n\n")
	sb.WriteString("<tool_call>\n<function=TOOL_NAME>\n<parameter=PARAM_NAME>value</parameter>\n</function>\n</tool_call>\n\n")
	sb.WriteString("Available tools:\n\n")
	for _, t := range tools {
		writeToolDoc(&sb, t)
	}
	sb.WriteString("Emit one <tool_call> block per invocation. Multiple blocks run in parallel.")
	return sb.String()
}

func renderJSON(tools []ports.Tool) string {
	var sb strings.Builder
	sb.WriteString("You may call the following tools. To call tools, emit a single JSON object:\n\n")
	sb.WriteString(`{"tool_calls": [{"tool": "TOOL_NAME", "args": {"param": "value"}}]}`)
	sb.WriteString("\n\nAvailable tools:\n\n")
	for _, t := range tools {
		writeToolDoc(&sb, t)
	}
	sb.WriteString("All tool_calls entries in one object run in parallel.")
	return sb.String()
}

func writeToolDoc(sb *strings.Builder, t ports.Tool) {
	fmt.Fprintf(sb, "## %s\n%s\n", t.Name(), t.Description())
	params := t.Parameters()
	for _, name := range t.ParameterOrder() {
		fmt.Fprintf(sb, "- %s: %s\n", name, params[name])
	}
	sb.WriteString("\n")
}
