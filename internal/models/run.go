// Package models defines the persisted record types.
package models

import "time"

// RunStatus represents the state of a resolution run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
)

// Run records one attempt to resolve an issue, from context collection
// through PR creation.
type Run struct {
	ID            string
	IssueNumber   int
	Repo          string // owner/name
	Branch        string
	Status        RunStatus
	Model         string
	CoderBackend  string
	FixAttempts   int
	TestsPassed   bool
	PRURL         string
	CommitMessage string
	Error         string
	StartedAt     time.Time
	EndedAt       *time.Time
}
