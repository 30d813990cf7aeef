// Package orchestrator drives the per-turn tool loop: assemble context,
// call the model, parse proposals, validate, execute, and decide whether
// to iterate or finalize. Mode and phase together select the tool
// manifest, the sampling settings and the termination rules. The model is
// treated as an unreliable actor; every known failure mode has a rule.
package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/longregen/argo/internal/adapters/metrics"
	"github.com/longregen/argo/internal/application/executor"
	"github.com/longregen/argo/internal/application/memory"
	"github.com/longregen/argo/internal/application/parse"
	"github.com/longregen/argo/internal/application/policy"
	"github.com/longregen/argo/internal/application/registry"
	"github.com/longregen/argo/internal/application/research"
	"github.com/longregen/argo/internal/application/session"
	"github.com/longregen/argo/internal/debug"
	"github.com/longregen/argo/internal/domain"
	"github.com/longregen/argo/internal/domain/models"
	"github.com/longregen/argo/internal/ports"
)

const (
	defaultTurnTimeout = 300 * time.Second
	// research fallback: give up on exploration after this many fetch
	// failures, provided at least one source landed
	fetchFailureThreshold = 3
	extractionTurns       = 4
)

// TurnResult is what one completed turn returns to the caller.
type TurnResult struct {
	SessionID   string
	FinalText   string
	ToolResults []*ports.ToolResult
	Stats       *models.ResearchStats
}

// Orchestrator runs turns. It holds no per-session state; everything
// session-scoped flows through the SessionStore or lives on the stack for
// the duration of a turn, so concurrent sessions never observe each
// other.
type Orchestrator struct {
	store     *session.Store
	assembler *memory.Assembler
	registry  *registry.Registry
	executor  *executor.Executor
	parser    parse.Parser
	llm       ports.LLMClient
	prompts   *PromptBuilder

	turnTimeout     time.Duration
	factExtraction  bool
	extractOnIngest bool
	background      sync.WaitGroup
}

func New(
	store *session.Store,
	assembler *memory.Assembler,
	reg *registry.Registry,
	exec *executor.Executor,
	parser parse.Parser,
	llm ports.LLMClient,
	format registry.Format,
	turnTimeout time.Duration,
) *Orchestrator {
	if turnTimeout <= 0 {
		turnTimeout = defaultTurnTimeout
	}
	return &Orchestrator{
		store:          store,
		assembler:      assembler,
		registry:       reg,
		executor:       exec,
		parser:         parser,
		llm:            llm,
		prompts:        NewPromptBuilder(reg, format),
		turnTimeout:     turnTimeout,
		factExtraction:  true,
		extractOnIngest: true,
	}
}

// SetFactExtraction toggles the background memory-writer pass after each
// turn.
func (o *Orchestrator) SetFactExtraction(enabled bool) {
	o.factExtraction = enabled
}

// SetIngestExtraction toggles the memory-writer pass for ingest-mode turns
// only. Ingested documents often carry durable user facts, so it defaults
// on, but bulk ingestion sessions may want it off.
func (o *Orchestrator) SetIngestExtraction(enabled bool) {
	o.extractOnIngest = enabled
}

// Wait blocks until background work from finished turns has drained. Used
// on shutdown.
func (o *Orchestrator) Wait() {
	o.background.Wait()
}

// executedCall is one entry of the tool-call history H.
type executedCall struct {
	request ports.ToolRequest
	result  *ports.ToolResult
}

// turn is the per-turn loop state. Created in S0, discarded in S7.
type turn struct {
	sessionID string
	userText  string
	mode      models.Mode
	shortTerm []*models.Message

	tracker *research.Tracker
	policy  *policy.Policy
	exclude map[string]bool

	i        int
	results  []*ports.ToolResult // R
	history  []executedCall      // H
	rejected []policy.Rejection  // last iteration's rejections

	offline          bool
	preSeeded        bool
	planNudged       bool
	citationNudged   bool
	partialSynthesis bool
}

// SendMessage runs one full turn and returns the assistant's reply.
func (o *Orchestrator) SendMessage(ctx context.Context, sessionID, userText string, mode models.Mode) (*TurnResult, error) {
	start := time.Now()
	result, err := o.runTurn(ctx, sessionID, userText, mode)

	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.TurnsTotal.WithLabelValues(string(mode), status).Inc()
	metrics.TurnDuration.WithLabelValues(string(mode)).Observe(time.Since(start).Seconds())
	return result, err
}

func (o *Orchestrator) runTurn(ctx context.Context, sessionID, userText string, mode models.Mode) (*TurnResult, error) {
	if strings.TrimSpace(userText) == "" {
		return nil, domain.ErrEmptyContent
	}
	if _, ok := models.ParseMode(string(mode)); !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidMode, mode)
	}

	ctx, cancel := context.WithTimeout(ctx, o.turnTimeout)
	defer cancel()

	// S0: session, short-term buffer, empty loop state.
	sess, err := o.store.Ensure(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: ensure session: %v", domain.ErrStorage, err)
	}
	shortTerm, err := o.store.ShortTerm(ctx, sess.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: read short-term buffer: %v", domain.ErrStorage, err)
	}
	if _, err := o.store.AppendUser(ctx, sess.ID, userText); err != nil {
		return nil, err
	}

	t := &turn{
		sessionID: sess.ID,
		userText:  userText,
		mode:      mode,
		shortTerm: shortTerm,
		tracker:   research.NewTracker(),
		policy:    policy.New(),
		exclude:   make(map[string]bool),
	}

	if mode == models.ModeQuickLookup {
		if reply := o.quickShortCircuit(ctx, t); reply != nil {
			return reply, nil
		}
		if offlinePhrased(userText) {
			t.offline = true
			for _, name := range []string{"web_search", "web_access"} {
				t.exclude[name] = true
				t.policy.Block(name)
			}
		}
	}

	return o.loop(ctx, t)
}

// loop is S1 through S6, iterated until a termination rule fires.
func (o *Orchestrator) loop(ctx context.Context, t *turn) (*TurnResult, error) {
	var transientExtra []ports.ChatMessage

	for {
		// S1: assemble context and prompt for the current phase.
		phase := o.phaseFor(t)
		assembled := o.assemble(ctx, t)

		messages := o.prompts.Build(BuildInput{
			SessionID:    t.sessionID,
			Iteration:    t.i,
			Mode:         t.mode,
			Phase:        phase,
			ContextBlock: assembled.Block,
			ShortTerm:    t.shortTerm,
			UserText:     t.userText,
			Transient:    append(o.transient(t), transientExtra...),
			Exclude:      t.exclude,
		})
		transientExtra = nil

		// S2: the transport retries internally; a persistent failure
		// becomes a user-visible reply, never a hang.
		raw, err := o.llm.Complete(ctx, messages, samplingFor(t.mode, phase))
		if err != nil {
			return o.failTurn(ctx, t, err)
		}

		// S3 + S4: parse, record research tags, validate proposals.
		parsed := o.parser.Parse(raw)
		t.tracker.RecordParse(parsed)
		approved, rejected := o.checkProposals(t, phase, parsed.Proposals)
		t.rejected = rejected

		// S5: execute and fold results into R and H.
		if len(approved) > 0 {
			o.execute(ctx, t, approved)
		} else if len(parsed.Proposals) == 0 && o.quickPreSeed(ctx, t, assembled) {
			t.i++
			continue
		}

		// S6: termination rules in priority order.
		if t.i >= t.mode.MaxToolCalls() {
			return o.finalize(ctx, t, parsed)
		}
		if len(parsed.Proposals) == 0 && o.finalAnswerSignal(t, parsed) {
			if nudge := o.citationNudge(t, parsed); nudge != "" {
				transientExtra = append(transientExtra, ports.ChatMessage{Role: "system", Content: nudge})
				t.i++
				continue
			}
			return o.finalize(ctx, t, parsed)
		}
		if t.mode == models.ModeResearch {
			if parsed.Tags.ResearchPlan != "" && len(parsed.Proposals) == 0 && !t.planNudged {
				// Plan-and-stop correction: the model planned but froze.
				t.planNudged = true
				transientExtra = append(transientExtra, ports.ChatMessage{
					Role:    "system",
					Content: "Your research plan is recorded. Now execute it: emit a tool call for your first search immediately.",
				})
				t.i++
				continue
			}
			stats := t.tracker.Stats()
			if !t.partialSynthesis && stats.SourceCount() >= 1 &&
				(stats.FetchFailures >= fetchFailureThreshold || stats.ConsecutiveFailures >= 2) {
				t.partialSynthesis = true
				transientExtra = append(transientExtra, ports.ChatMessage{
					Role: "system",
					Content: "Several fetches failed and retrying those hosts is unlikely to help. " +
						"Synthesize now from the sources you have, and note the resulting gaps explicitly in <gaps>.",
				})
				t.i++
				continue
			}
		}
		t.i++
	}
}

// phaseFor derives the phase from mode and accumulated state.
func (o *Orchestrator) phaseFor(t *turn) models.Phase {
	switch t.mode {
	case models.ModeResearch:
		if t.partialSynthesis {
			return models.PhaseSynthesis
		}
		return t.tracker.Stats().Phase()
	case models.ModeQuickLookup:
		if len(t.results) > 0 {
			return models.PhaseAfterTools
		}
		return models.PhaseInitial
	default:
		return models.PhaseInitial
	}
}

// assemble degrades to an empty context on retrieval failure; a broken
// memory layer must not kill the turn.
func (o *Orchestrator) assemble(ctx context.Context, t *turn) *memory.Context {
	assembled, err := o.assembler.Assemble(ctx, memory.Input{
		SessionID:    t.sessionID,
		UserText:     t.userText,
		ShortTermLen: len(t.shortTerm),
		ToolResults:  t.results,
	})
	if err != nil {
		debug.Logf(debug.Tools, "context assembly degraded to empty: %v", err)
		return &memory.Context{}
	}
	return assembled
}

// checkProposals applies the phase manifest and then the policy. A
// proposal outside the manifest is rejected the same way a policy
// violation is, so the model sees a reason either way.
func (o *Orchestrator) checkProposals(t *turn, phase models.Phase, proposals []ports.ToolRequest) ([]ports.ToolRequest, []policy.Rejection) {
	var inManifest []ports.ToolRequest
	var rejected []policy.Rejection
	for _, p := range proposals {
		if !o.registry.Allowed(p.Tool, t.mode, phase, t.exclude) {
			rejected = append(rejected, policy.Rejection{
				Proposal: p,
				Reason:   fmt.Sprintf("tool %s is not available in this phase", p.Tool),
			})
			continue
		}
		if t.partialSynthesis && p.Tool == "web_access" {
			if url, ok := p.Args["url"].(string); ok && t.tracker.FailedHost(url) {
				rejected = append(rejected, policy.Rejection{
					Proposal: p,
					Reason:   "this host already failed repeatedly this turn; use the sources you have",
				})
				continue
			}
		}
		inManifest = append(inManifest, p)
	}

	approved, policyRejected := t.policy.Check(inManifest)
	return approved, append(rejected, policyRejected...)
}

func (o *Orchestrator) execute(ctx context.Context, t *turn, approved []ports.ToolRequest) {
	results := o.executor.Execute(ctx, t.sessionID, approved)
	t.results = append(t.results, results...)
	t.tracker.RecordExecution(approved, results)
	for i, req := range approved {
		t.history = append(t.history, executedCall{request: req, result: results[i]})
	}
}

// quickPreSeed runs one web_search on behalf of the model when a quick
// lookup is explicitly about the external world and memory had nothing.
// It counts toward the iteration cap like any other call.
func (o *Orchestrator) quickPreSeed(ctx context.Context, t *turn, assembled *memory.Context) bool {
	if t.mode != models.ModeQuickLookup || t.offline || t.preSeeded || t.i != 0 {
		return false
	}
	if !externalPhrased(t.userText) {
		return false
	}
	if len(assembled.Autobio)+len(assembled.Archival)+len(assembled.WebCache) > 0 {
		return false
	}

	t.preSeeded = true
	query := t.userText
	if len(query) > 100 {
		query = query[:100]
	}
	o.execute(ctx, t, []ports.ToolRequest{{
		Tool: "web_search",
		Args: map[string]any{"query": query},
	}})
	return true
}

// finalAnswerSignal is termination rule 2: no proposals plus a mode-
// appropriate final answer in the output.
func (o *Orchestrator) finalAnswerSignal(t *turn, parsed parse.Result) bool {
	if t.mode == models.ModeResearch {
		return parsed.Tags.Synthesis != ""
	}
	return strings.TrimSpace(parsed.Answer) != ""
}

// citationNudge enforces the quick-lookup citation rule once: an answer
// built on a web tool must cite at least one URL.
func (o *Orchestrator) citationNudge(t *turn, parsed parse.Result) string {
	if t.mode != models.ModeQuickLookup || t.citationNudged {
		return ""
	}
	webRan := false
	for _, r := range t.results {
		if r.ToolName == "web_search" || r.ToolName == "web_access" {
			webRan = true
			break
		}
	}
	if !webRan || strings.Contains(parsed.Answer, "http://") || strings.Contains(parsed.Answer, "https://") {
		return ""
	}
	t.citationNudged = true
	return "Your answer used web results but cites no source. Restate it including at least one source URL."
}

// transient rebuilds E from R, H and the latest rejections. Nothing here
// accumulates across iterations.
func (o *Orchestrator) transient(t *turn) []ports.ChatMessage {
	var messages []ports.ChatMessage

	for _, call := range t.history {
		messages = append(messages, ports.ChatMessage{
			Role:    "system",
			Content: renderToolResult(call),
		})
	}
	for _, rej := range t.rejected {
		messages = append(messages, ports.ChatMessage{
			Role:    "system",
			Content: fmt.Sprintf("Tool call %s was rejected: %s. Adjust or answer without it.", rej.Proposal.Tool, rej.Reason),
		})
	}

	if t.mode == models.ModeResearch && t.tracker.Stats().HasPlan {
		var sb strings.Builder
		sb.WriteString(t.tracker.Checklist())
		if queries := t.tracker.RecentQueries(); len(queries) > 0 {
			sb.WriteString("\n\nRecent searches:\n")
			for _, q := range queries {
				sb.WriteString("- " + q + "\n")
			}
		}
		messages = append(messages, ports.ChatMessage{Role: "system", Content: sb.String()})
	}
	return messages
}

func renderToolResult(call executedCall) string {
	r := call.result
	if !r.OK() {
		return fmt.Sprintf("Tool %s failed (%s): %s", r.ToolName, r.ErrorType, r.ErrorMessage)
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Tool result from %s", r.ToolName)
	if r.URL != "" {
		fmt.Fprintf(&sb, " (%s)", r.URL)
	}
	sb.WriteString(":\n")
	sb.WriteString(r.Text)
	return sb.String()
}

// quickShortCircuit answers ambiguous context-free questions with a
// clarification instead of burning the tool budget on a guess.
func (o *Orchestrator) quickShortCircuit(ctx context.Context, t *turn) *TurnResult {
	if !ambiguous(t.userText) || len(t.shortTerm) > 0 {
		return nil
	}
	reply := "I need a bit more context to answer that. What are you referring to?"
	if _, err := o.store.AppendAssistant(ctx, t.sessionID, reply); err != nil {
		debug.Logf(debug.Tools, "failed to persist clarification reply: %v", err)
	}
	return &TurnResult{
		SessionID: t.sessionID,
		FinalText: reply,
		Stats:     t.tracker.Stats(),
	}
}

// finalize is S7: strip thinking, persist the reply, kick off summary
// maintenance and fact extraction, and return.
func (o *Orchestrator) finalize(ctx context.Context, t *turn, parsed parse.Result) (*TurnResult, error) {
	finalText := o.finalText(t, parsed)

	if _, err := o.store.AppendAssistant(ctx, t.sessionID, finalText); err != nil {
		return nil, err
	}
	if _, err := o.store.MaybeSummarize(ctx, t.sessionID); err != nil {
		debug.Logf(debug.Tools, "summary regeneration failed: %v", err)
	}

	if o.factExtraction && (t.mode != models.ModeIngest || o.extractOnIngest) {
		o.background.Add(1)
		detached := context.WithoutCancel(ctx)
		go func() {
			defer o.background.Done()
			o.extractFacts(detached, t.sessionID)
		}()
	}

	return &TurnResult{
		SessionID:   t.sessionID,
		FinalText:   finalText,
		ToolResults: t.results,
		Stats:       t.tracker.Stats(),
	}, nil
}

func (o *Orchestrator) finalText(t *turn, parsed parse.Result) string {
	if t.mode == models.ModeResearch && parsed.Tags.Synthesis != "" {
		var sb strings.Builder
		fmt.Fprintf(&sb, "<synthesis>\n%s\n</synthesis>", parsed.Tags.Synthesis)
		if parsed.Tags.Confidence != "" {
			fmt.Fprintf(&sb, "\n<confidence>\n%s\n</confidence>", parsed.Tags.Confidence)
		}
		if parsed.Tags.Gaps != "" {
			fmt.Fprintf(&sb, "\n<gaps>\n%s\n</gaps>", parsed.Tags.Gaps)
		}
		return sb.String()
	}
	if answer := strings.TrimSpace(parsed.Answer); answer != "" {
		return answer
	}
	return "I wasn't able to produce an answer within this turn's budget."
}

// failTurn converts a persistent transport failure into a short
// user-visible reply. Already-persisted state (the user message, audit
// rows) stays.
func (o *Orchestrator) failTurn(ctx context.Context, t *turn, err error) (*TurnResult, error) {
	kind := domain.Classify(err)
	if kind == domain.KindCancelled {
		return nil, err
	}
	reply := kind.UserMessage()
	if _, persistErr := o.store.AppendAssistant(ctx, t.sessionID, reply); persistErr != nil {
		debug.Logf(debug.Tools, "failed to persist failure reply: %v", persistErr)
	}
	return &TurnResult{
		SessionID:   t.sessionID,
		FinalText:   reply,
		ToolResults: t.results,
		Stats:       t.tracker.Stats(),
	}, err
}

const extractionPrompt = "Extract durable facts about the user from this conversation excerpt. " +
	"Output one fact per line as `type: fact text` where type is one of preference, biography, project, interest. " +
	"Only include facts stated or clearly implied by the user. Output NONE if there are no new facts."

// extractFacts runs the background memory-writer prompt over the last few
// turns and stores what it finds. Best-effort: failures only log.
func (o *Orchestrator) extractFacts(ctx context.Context, sessionID string) {
	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	recent, err := o.store.ShortTerm(ctx, sessionID)
	if err != nil || len(recent) == 0 {
		return
	}
	if len(recent) > extractionTurns*2 {
		recent = recent[len(recent)-extractionTurns*2:]
	}

	var sb strings.Builder
	for _, m := range recent {
		fmt.Fprintf(&sb, "%s: %s\n", m.Role, m.Content)
	}

	raw, err := o.llm.Complete(ctx, []ports.ChatMessage{
		{Role: "system", Content: extractionPrompt},
		{Role: "user", Content: sb.String()},
	}, ports.SamplingParams{Temperature: 0.2, MaxTokens: 512})
	if err != nil {
		debug.Logf(debug.Tools, "fact extraction failed: %v", err)
		return
	}

	for _, line := range strings.Split(raw, "\n") {
		factType, text, ok := parseFactLine(line)
		if !ok {
			continue
		}
		if _, err := o.store.AddFact(ctx, factType, text, "conversation:"+sessionID); err != nil {
			debug.Logf(debug.Tools, "failed to store extracted fact: %v", err)
		}
	}
}

var factTypes = map[string]bool{
	"preference": true,
	"biography":  true,
	"project":    true,
	"interest":   true,
}

func parseFactLine(line string) (factType, text string, ok bool) {
	line = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "-"))
	if line == "" || strings.EqualFold(line, "NONE") {
		return "", "", false
	}
	factType, text, found := strings.Cut(line, ":")
	if !found {
		return "", "", false
	}
	factType = strings.ToLower(strings.TrimSpace(factType))
	text = strings.TrimSpace(text)
	if !factTypes[factType] || text == "" {
		return "", "", false
	}
	return factType, text, true
}

var externalMarkers = []string{
	"latest", "current", "today", "this week", "recent", "news",
	"docs", "documentation", "release", "version of",
}

func externalPhrased(text string) bool {
	lower := strings.ToLower(text)
	for _, marker := range externalMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

var offlineMarkers = []string{"offline", "no internet", "without internet", "without the web", "don't search"}

func offlinePhrased(text string) bool {
	lower := strings.ToLower(text)
	for _, marker := range offlineMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

var ambiguousOpeners = []string{"what about", "and then", "how about", "why not", "what else"}

// ambiguous flags questions that cannot be answered without preceding
// context: bare pronouns and follow-up openers at the start of a session.
func ambiguous(text string) bool {
	lower := strings.ToLower(strings.TrimSpace(text))
	for _, opener := range ambiguousOpeners {
		if strings.HasPrefix(lower, opener) {
			return true
		}
	}
	words := strings.Fields(strings.TrimRight(lower, "?!."))
	if len(words) > 3 {
		return false
	}
	for _, w := range words {
		switch w {
		case "it", "that", "this", "those", "them", "they", "he", "she":
			return true
		}
	}
	return false
}
