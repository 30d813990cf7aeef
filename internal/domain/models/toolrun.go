package models

import "time"

// ToolRunStatus is the outcome of a tool execution
type ToolRunStatus string

const (
	ToolRunOK    ToolRunStatus = "ok"
	ToolRunError ToolRunStatus = "error"
)

// ToolRun is one audit-log row per executed tool. Exactly one row is written
// per execution; rejected proposals never produce a row.
type ToolRun struct {
	ID           string
	SessionID    string
	ToolName     string
	Input        string
	Output       string
	Metadata     map[string]string
	Status       ToolRunStatus
	ErrorType    string
	ErrorMessage string
	CreatedAt    time.Time
}

// ToolStats aggregates tool usage for a session.
type ToolStats struct {
	SessionID string
	TotalRuns int
	Errors    int
	ByTool    map[string]int
}
