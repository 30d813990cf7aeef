package models

// Mode selects the reasoning strategy for a turn. Chosen once per turn.
type Mode string

const (
	ModeQuickLookup Mode = "quick_lookup"
	ModeResearch    Mode = "research"
	ModeIngest      Mode = "ingest"
)

func ParseMode(s string) (Mode, bool) {
	switch Mode(s) {
	case ModeQuickLookup, ModeResearch, ModeIngest:
		return Mode(s), true
	}
	return "", false
}

// MaxToolCalls is the per-mode iteration budget for the tool loop.
func (m Mode) MaxToolCalls() int {
	switch m {
	case ModeQuickLookup:
		return 2
	case ModeIngest:
		return 4
	case ModeResearch:
		return 10
	default:
		return 2
	}
}

// Phase is the within-turn stage of a research turn, derived from
// ResearchStats. Non-research modes use PhaseInitial/PhaseAfterTools.
type Phase string

const (
	PhaseInitial     Phase = "initial"
	PhaseAfterTools  Phase = "after_tools"
	PhasePlanning    Phase = "planning"
	PhaseExploration Phase = "exploration"
	PhaseSynthesis   Phase = "synthesis"
)

// ExecutionStep records how one tool ran during the turn.
type ExecutionStep struct {
	Batch    bool
	ToolName string
}

// ResearchStats is the per-turn, transient research progress state.
type ResearchStats struct {
	HasPlan             bool
	PlanText            string
	UniqueURLs          map[string]struct{}
	SearchQueries       []string
	ToolCalls           int
	FetchFailures       int
	ConsecutiveFailures int
	FailedHosts         map[string]struct{}
	SynthesisTriggered  bool
	ExecutionPath       []ExecutionStep
}

func NewResearchStats() *ResearchStats {
	return &ResearchStats{
		UniqueURLs:  make(map[string]struct{}),
		FailedHosts: make(map[string]struct{}),
	}
}

// Phase derives the research phase from accumulated stats.
func (s *ResearchStats) Phase() Phase {
	switch {
	case !s.HasPlan:
		return PhasePlanning
	case s.SynthesisTriggered:
		return PhaseSynthesis
	default:
		return PhaseExploration
	}
}

// SourceCount is the number of distinct successfully fetched URLs.
func (s *ResearchStats) SourceCount() int {
	return len(s.UniqueURLs)
}
