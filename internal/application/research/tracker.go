// Package research tracks per-turn research progress: plan presence,
// distinct sources, failures and the synthesis trigger. The tracker is
// turn-scoped; nothing here outlives the turn or crosses sessions.
package research

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/longregen/argo/internal/application/memory"
	"github.com/longregen/argo/internal/application/parse"
	"github.com/longregen/argo/internal/debug"
	"github.com/longregen/argo/internal/domain/models"
	"github.com/longregen/argo/internal/ports"
)

const synthesisSourceThreshold = 3

// Tracker accumulates ResearchStats over the iterations of one turn.
type Tracker struct {
	stats *models.ResearchStats
	// shown to the model; only the last 3 are rendered
	maxQueriesShown int
}

func NewTracker() *Tracker {
	return &Tracker{
		stats:           models.NewResearchStats(),
		maxQueriesShown: 3,
	}
}

func (t *Tracker) Stats() *models.ResearchStats {
	return t.stats
}

// RecordParse ingests one parsed model output.
func (t *Tracker) RecordParse(result parse.Result) {
	if result.Tags.ResearchPlan != "" && !t.stats.HasPlan {
		t.stats.HasPlan = true
		t.stats.PlanText = result.Tags.ResearchPlan
		debug.Logf(debug.Research, "research plan recorded (%d chars)", len(t.stats.PlanText))
	}
	t.recomputeSynthesis()
}

// RecordExecution ingests the results of one executed batch.
func (t *Tracker) RecordExecution(requests []ports.ToolRequest, results []*ports.ToolResult) {
	batch := len(requests) >= 2
	for i, result := range results {
		t.stats.ToolCalls++
		t.stats.ExecutionPath = append(t.stats.ExecutionPath, models.ExecutionStep{
			Batch:    batch,
			ToolName: result.ToolName,
		})

		switch result.ToolName {
		case "web_search":
			if i < len(requests) {
				if q, ok := requests[i].Args["query"].(string); ok && q != "" {
					t.stats.SearchQueries = append(t.stats.SearchQueries, q)
				}
			}
		case "web_access":
			if result.OK() {
				if normalized := memory.NormalizeURL(result.URL); normalized != "" {
					t.stats.UniqueURLs[normalized] = struct{}{}
				}
				t.stats.ConsecutiveFailures = 0
			} else {
				t.stats.FetchFailures++
				t.stats.ConsecutiveFailures++
				if i < len(requests) {
					if raw, ok := requests[i].Args["url"].(string); ok {
						if host := hostOf(raw); host != "" {
							t.stats.FailedHosts[host] = struct{}{}
						}
					}
				}
			}
		}
	}
	t.recomputeSynthesis()
	debug.Logf(debug.Research, "stats: plan=%v sources=%d failures=%d consecutive=%d synthesis=%v",
		t.stats.HasPlan, t.stats.SourceCount(), t.stats.FetchFailures, t.stats.ConsecutiveFailures, t.stats.SynthesisTriggered)
}

// recomputeSynthesis flips the trigger once: plan present, enough distinct
// sources, not already triggered.
func (t *Tracker) recomputeSynthesis() {
	if t.stats.SynthesisTriggered {
		return
	}
	if t.stats.HasPlan && t.stats.SourceCount() >= synthesisSourceThreshold {
		t.stats.SynthesisTriggered = true
	}
}

// FailedHost reports whether a URL points at a host that already failed
// this turn.
func (t *Tracker) FailedHost(rawURL string) bool {
	host := hostOf(rawURL)
	if host == "" {
		return false
	}
	_, failed := t.stats.FailedHosts[host]
	return failed
}

func hostOf(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

// Checklist renders the stopping-conditions checklist shown to the model
// each research iteration.
func (t *Tracker) Checklist() string {
	var sb strings.Builder
	sb.WriteString("Stopping conditions:\n")
	sb.WriteString(checkmark(t.stats.HasPlan) + " Explicit research plan created\n")
	fmt.Fprintf(&sb, "%s ≥3 distinct sources (%d/3)\n", checkmark(t.stats.SourceCount() >= synthesisSourceThreshold), t.stats.SourceCount())
	sb.WriteString("? All sub-questions addressed (self-assess)\n")
	sb.WriteString("? Sources cross-referenced (self-assess)\n")
	sb.WriteString("✗ Confidence assessed\n")
	sb.WriteString("✗ Knowledge gaps identified")
	return sb.String()
}

// RecentQueries returns the last few search queries for the progress
// message, oldest first.
func (t *Tracker) RecentQueries() []string {
	q := t.stats.SearchQueries
	if len(q) > t.maxQueriesShown {
		q = q[len(q)-t.maxQueriesShown:]
	}
	return q
}

func checkmark(done bool) string {
	if done {
		return "✓"
	}
	return "✗"
}
