package domain

import "time"

// Task IDs for built-in tasks.
const (
	// TaskIDEmbedSweep embeds chunks left behind by failed embedding passes.
	TaskIDEmbedSweep = "embed-sweep"
)

// ScheduledTask is the persisted state of a recurring background task.
type ScheduledTask struct {
	ID       string
	Name     string
	Interval time.Duration

	LastRun     time.Time
	LastSuccess time.Time
	NextRun     time.Time

	// LastError is the message of the most recent failed run, cleared by a
	// successful one.
	LastError string
}

// Due reports whether the task should run at now. A task that never ran
// is always due.
func (t ScheduledTask) Due(now time.Time) bool {
	return t.NextRun.IsZero() || !t.NextRun.After(now)
}

// TaskResult is the outcome of one task run.
type TaskResult struct {
	TaskID    string
	StartedAt time.Time
	EndedAt   time.Time

	// Err is nil when the run succeeded.
	Err error

	// ItemsProcessed counts the items handled, e.g. chunks embedded.
	ItemsProcessed int
}

// Success returns true when the run completed without error.
func (r TaskResult) Success() bool {
	return r.Err == nil
}

// Duration is the wall time of the run.
func (r TaskResult) Duration() time.Duration {
	return r.EndedAt.Sub(r.StartedAt)
}
