// Package policy validates and normalizes tool proposals before execution.
// Every tool registers a validator; proposals for unknown tools or with
// unsafe or malformed arguments are rejected with a reason the model can
// react to on the next iteration.
package policy

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/longregen/argo/internal/domain/models"
	"github.com/longregen/argo/internal/ports"
)

// Rejection pairs a refused proposal with its reason.
type Rejection struct {
	Proposal ports.ToolRequest
	Reason   string
}

// Validator checks and normalizes one proposal's arguments in place.
type Validator func(args map[string]any) error

// Policy holds the per-tool validators plus turn-level blocks.
type Policy struct {
	validators map[string]Validator
	blocked    map[string]bool
}

func New() *Policy {
	p := &Policy{
		validators: make(map[string]Validator),
		blocked:    make(map[string]bool),
	}
	p.Register("web_search", validateWebSearch)
	p.Register("web_access", validateWebAccess)
	p.Register("memory_query", validateMemoryQuery)
	p.Register("memory_write", validateMemoryWrite)
	p.Register("retrieve_context", validateRetrieveContext)
	return p
}

// Register installs a validator for a tool name. New tools plug in here
// without orchestrator changes.
func (p *Policy) Register(tool string, v Validator) {
	p.validators[tool] = v
}

// Block refuses a tool for the rest of the turn regardless of arguments.
// Used for offline-phrased quick lookups.
func (p *Policy) Block(tool string) {
	p.blocked[tool] = true
}

// Check classifies proposals into approved and rejected. Approved
// proposals have normalized arguments.
func (p *Policy) Check(proposals []ports.ToolRequest) (approved []ports.ToolRequest, rejected []Rejection) {
	for _, proposal := range proposals {
		if p.blocked[proposal.Tool] {
			rejected = append(rejected, Rejection{proposal, fmt.Sprintf("tool %s is disabled for this turn", proposal.Tool)})
			continue
		}
		validator, ok := p.validators[proposal.Tool]
		if !ok {
			rejected = append(rejected, Rejection{proposal, fmt.Sprintf("unknown tool %q", proposal.Tool)})
			continue
		}
		if proposal.Args == nil {
			proposal.Args = make(map[string]any)
		}
		if err := validator(proposal.Args); err != nil {
			rejected = append(rejected, Rejection{proposal, err.Error()})
			continue
		}
		approved = append(approved, proposal)
	}
	return approved, rejected
}

func validateWebSearch(args map[string]any) error {
	query := stringArg(args, "query")
	if len(query) < 2 || len(query) > 100 {
		return fmt.Errorf("query length must be between 2 and 100 characters, got %d", len(query))
	}
	args["query"] = query

	// Clamp rather than reject: the model routinely asks for too many.
	n := intArg(args, "max_results", 5)
	if n < 1 {
		n = 1
	}
	if n > 10 {
		n = 10
	}
	args["max_results"] = float64(n)
	return nil
}

// privateHosts lists names that always resolve locally.
var privateHosts = map[string]bool{
	"localhost":                  true,
	"metadata.google.internal":   true,
	"instance-data.ec2.internal": true,
}

func validateWebAccess(args map[string]any) error {
	rawURL := stringArg(args, "url")
	if rawURL == "" {
		return fmt.Errorf("url is required")
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("url is not parseable: %v", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url scheme %q is not allowed; only http and https", u.Scheme)
	}

	host := strings.ToLower(u.Hostname())
	if host == "" {
		return fmt.Errorf("url has no host")
	}
	if privateHosts[host] || strings.HasSuffix(host, ".localhost") || strings.HasSuffix(host, ".local") || strings.HasSuffix(host, ".internal") {
		return fmt.Errorf("host %q is local or private", host)
	}
	if ip := net.ParseIP(host); ip != nil {
		if ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsUnspecified() {
			return fmt.Errorf("IP %s is in a private or local range", host)
		}
	}

	args["url"] = rawURL
	return nil
}

func validateMemoryQuery(args map[string]any) error {
	query := stringArg(args, "query")
	if len(query) < 1 || len(query) > 500 {
		return fmt.Errorf("query length must be between 1 and 500 characters, got %d", len(query))
	}
	args["query"] = query

	if ns := stringArg(args, "namespace"); ns != "" {
		if !models.IsKnownNamespace(ns) {
			return fmt.Errorf("unknown namespace %q", ns)
		}
		args["namespace"] = ns
	}
	return nil
}

const maxMemoryWriteLength = 4000

func validateMemoryWrite(args map[string]any) error {
	text := stringArg(args, "text")
	if len(text) < 1 {
		return fmt.Errorf("text is required")
	}
	if len(text) > maxMemoryWriteLength {
		return fmt.Errorf("text exceeds %d characters", maxMemoryWriteLength)
	}
	args["text"] = text

	switch kind := stringArg(args, "kind"); kind {
	case "", "note", "journal", "fact":
		if kind != "" {
			args["kind"] = kind
		}
	default:
		return fmt.Errorf("unknown kind %q; use note, journal or fact", kind)
	}
	return nil
}

func validateRetrieveContext(args map[string]any) error {
	query := stringArg(args, "query")
	if len(query) < 1 || len(query) > 500 {
		return fmt.Errorf("query length must be between 1 and 500 characters, got %d", len(query))
	}
	args["query"] = query

	if ns := stringArg(args, "namespace"); ns != "" {
		if !models.IsKnownNamespace(ns) {
			return fmt.Errorf("unknown namespace %q", ns)
		}
		args["namespace"] = ns
	}
	return nil
}

func stringArg(args map[string]any, key string) string {
	v, ok := args[key].(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(v)
}

func intArg(args map[string]any, key string, fallback int) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return fallback
}
