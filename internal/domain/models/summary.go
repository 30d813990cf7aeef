package models

import "time"

// SessionSummary is the rolling summary for a session. At most one live row
// exists per session; replaced atomically when enough messages accumulate,
// archiving the previous row as a SummarySnapshot.
type SessionSummary struct {
	ID                   string
	SessionID            string
	SummaryText          string
	MessageCountAtUpdate int
	UpdatedAt            time.Time
}

// SummarySnapshot is an immutable archived summary.
type SummarySnapshot struct {
	ID                   string
	SessionID            string
	SummaryText          string
	MessageCountAtUpdate int
	CreatedAt            time.Time
}

// ProfileFact is a durable fact about the user, extracted by the background
// memory writer. Facts are soft-deactivated, never hard-deleted.
type ProfileFact struct {
	ID        string
	FactType  string
	Text      string
	Source    string
	Active    bool
	CreatedAt time.Time
}

func NewProfileFact(id, factType, text, source string) *ProfileFact {
	return &ProfileFact{
		ID:        id,
		FactType:  factType,
		Text:      text,
		Source:    source,
		Active:    true,
		CreatedAt: time.Now(),
	}
}
