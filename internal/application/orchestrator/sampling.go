package orchestrator

import (
	"github.com/longregen/argo/internal/domain/models"
	"github.com/longregen/argo/internal/ports"
)

// samplingFor picks generation settings per (mode, phase). Research
// exploration runs cold to keep tool calls well-formed; synthesis runs
// warm for prose.
func samplingFor(mode models.Mode, phase models.Phase) ports.SamplingParams {
	switch mode {
	case models.ModeQuickLookup:
		if phase == models.PhaseAfterTools {
			return ports.SamplingParams{Temperature: 0.5, MaxTokens: 1024}
		}
		return ports.SamplingParams{Temperature: 0.3, MaxTokens: 1024}
	case models.ModeResearch:
		switch phase {
		case models.PhasePlanning:
			return ports.SamplingParams{Temperature: 0.4, MaxTokens: 4096}
		case models.PhaseSynthesis:
			return ports.SamplingParams{Temperature: 0.7, MaxTokens: 4096}
		default:
			return ports.SamplingParams{Temperature: 0.2, MaxTokens: 4096}
		}
	case models.ModeIngest:
		return ports.SamplingParams{Temperature: 0.5, MaxTokens: 2048}
	default:
		return ports.SamplingParams{Temperature: 0.3, MaxTokens: 1024}
	}
}
