// Package executor dispatches approved tool proposals. Batches run with
// bounded parallelism, results come back in input order, and every
// execution writes exactly one audit row. A failing tool yields an error
// result, never an error across the orchestrator boundary.
package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/longregen/argo/internal/adapters/metrics"
	"github.com/longregen/argo/internal/application/registry"
	"github.com/longregen/argo/internal/debug"
	"github.com/longregen/argo/internal/domain"
	"github.com/longregen/argo/internal/domain/models"
	"github.com/longregen/argo/internal/ports"
)

// Timeouts are the per-tool wall-clock limits by tool class.
type Timeouts struct {
	Web    time.Duration
	Memory time.Duration
}

func DefaultTimeouts() Timeouts {
	return Timeouts{Web: 20 * time.Second, Memory: 5 * time.Second}
}

func (t Timeouts) forTool(name string) time.Duration {
	switch name {
	case "web_search", "web_access":
		return t.Web
	default:
		return t.Memory
	}
}

// Executor runs approved proposals and audits them.
type Executor struct {
	registry    *registry.Registry
	runs        ports.ToolRunRepository
	ids         ports.IDGenerator
	ingestor    ports.Ingestor
	timeouts    Timeouts
	maxParallel int
}

func New(reg *registry.Registry, runs ports.ToolRunRepository, ids ports.IDGenerator, ingestor ports.Ingestor, timeouts Timeouts, maxParallel int) *Executor {
	if maxParallel <= 0 {
		maxParallel = 4
	}
	return &Executor{
		registry:    reg,
		runs:        runs,
		ids:         ids,
		ingestor:    ingestor,
		timeouts:    timeouts,
		maxParallel: maxParallel,
	}
}

// Execute runs the batch. A single proposal runs inline; two or more run
// on a bounded worker pool. The returned slice mirrors the input order.
func (e *Executor) Execute(ctx context.Context, sessionID string, proposals []ports.ToolRequest) []*ports.ToolResult {
	if len(proposals) == 0 {
		return nil
	}

	results := make([]*ports.ToolResult, len(proposals))
	if len(proposals) == 1 {
		results[0] = e.runOne(ctx, sessionID, proposals[0])
		return results
	}

	sem := make(chan struct{}, e.maxParallel)
	var wg sync.WaitGroup
	for i, proposal := range proposals {
		wg.Add(1)
		go func(i int, proposal ports.ToolRequest) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[i] = e.runOne(ctx, sessionID, proposal)
		}(i, proposal)
	}
	wg.Wait()
	return results
}

func (e *Executor) runOne(ctx context.Context, sessionID string, proposal ports.ToolRequest) *ports.ToolResult {
	start := time.Now()
	result := e.dispatch(ctx, proposal)
	elapsed := time.Since(start)

	metrics.ToolRunsTotal.WithLabelValues(proposal.Tool, string(result.Status)).Inc()
	metrics.ToolRunDuration.WithLabelValues(proposal.Tool).Observe(elapsed.Seconds())
	debug.Logf(debug.Tools, "%s finished in %s status=%s", proposal.Tool, elapsed.Round(time.Millisecond), result.Status)

	e.audit(ctx, sessionID, proposal, result, elapsed)

	if result.OK() && proposal.Tool == "web_access" && e.ingestor != nil && result.Text != "" {
		e.cacheFetch(ctx, result)
	}
	return result
}

func (e *Executor) dispatch(ctx context.Context, proposal ports.ToolRequest) *ports.ToolResult {
	tool, ok := e.registry.Get(proposal.Tool)
	if !ok {
		return errorResult(proposal.Tool, domain.KindToolError, fmt.Sprintf("tool %q is not registered", proposal.Tool))
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeouts.forTool(proposal.Tool))
	defer cancel()

	type outcome struct {
		result *ports.ToolResult
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("%w: panic: %v", domain.ErrToolExecutionFailed, r)}
			}
		}()
		result, err := tool.Run(ctx, proposal)
		done <- outcome{result: result, err: err}
	}()

	select {
	case <-ctx.Done():
		if ctx.Err() == context.DeadlineExceeded {
			return errorResult(proposal.Tool, domain.KindTimeout, fmt.Sprintf("tool %s timed out after %s", proposal.Tool, e.timeouts.forTool(proposal.Tool)))
		}
		return errorResult(proposal.Tool, domain.KindCancelled, "cancelled")
	case out := <-done:
		if out.err != nil {
			kind := domain.Classify(out.err)
			if kind == domain.KindUnknown {
				kind = domain.KindToolError
			}
			return errorResult(proposal.Tool, kind, out.err.Error())
		}
		if out.result == nil {
			return errorResult(proposal.Tool, domain.KindToolError, "tool returned no result")
		}
		return out.result
	}
}

// audit writes the single ToolRun row for this execution.
func (e *Executor) audit(ctx context.Context, sessionID string, proposal ports.ToolRequest, result *ports.ToolResult, elapsed time.Duration) {
	if e.runs == nil {
		return
	}

	input, err := json.Marshal(proposal.Args)
	if err != nil {
		input = []byte(fmt.Sprintf("%v", proposal.Args))
	}

	run := &models.ToolRun{
		ID:        e.ids.ToolRunID(),
		SessionID: sessionID,
		ToolName:  proposal.Tool,
		Input:     string(input),
		Output:    truncate(result.Text, 2000),
		Metadata: map[string]string{
			"duration_ms": fmt.Sprintf("%d", elapsed.Milliseconds()),
		},
		Status:       result.Status,
		ErrorType:    result.ErrorType,
		ErrorMessage: result.ErrorMessage,
		CreatedAt:    time.Now(),
	}
	if result.URL != "" {
		run.Metadata["url"] = result.URL
	}

	// Audit uses a detached context so a cancelled turn still records
	// what already ran.
	auditCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := e.runs.Create(auditCtx, run); err != nil {
		debug.Logf(debug.Tools, "failed to audit %s run: %v", proposal.Tool, err)
	}
}

// cacheFetch writes a successful web fetch into web_cache for future
// turns. The current turn never reads it back.
func (e *Executor) cacheFetch(ctx context.Context, result *ports.ToolResult) {
	doc := &models.Document{
		Text:       result.Text,
		SourceType: result.SourceType,
		URL:        result.URL,
		Ephemeral:  true,
	}
	cacheCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if _, err := e.ingestor.Ingest(cacheCtx, doc); err != nil {
		debug.Logf(debug.Tools, "failed to cache fetched page %s: %v", result.URL, err)
	}
}

func errorResult(tool string, kind domain.ErrorKind, message string) *ports.ToolResult {
	return &ports.ToolResult{
		ToolName:     tool,
		Status:       models.ToolRunError,
		ErrorType:    string(kind),
		ErrorMessage: message,
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return strings.TrimSpace(s[:max]) + "..."
}
