// Package state persists smelt build history with SQLite.
// It tracks builds and the external commands each build ran.
package state

import "time"

// RunStatus represents the state of a build run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Run is a single invocation of the smelt backend.
type Run struct {
	ID          string
	Command     string
	Entrypoint  string
	Status      RunStatus
	StartedAt   time.Time
	CompletedAt *time.Time
	Error       string
}

// Step is one external command executed during a run.
type Step struct {
	ID         string
	RunID      string
	Name       string
	Command    string
	ExitCode   int
	DurationMS int64
	StartedAt  time.Time
}

// Store persists runs and their steps.
type Store interface {
	CreateRun(command, entrypoint string) (*Run, error)
	CompleteRun(id string, status RunStatus, errMsg string) error
	GetRun(id string) (*Run, error)
	ListRuns(limit int) ([]*Run, error)
	RecordStep(step *Step) error
	StepsForRun(runID string) ([]*Step, error)
	Close() error
}
