// Package scheduler coordinates the engine's periodic jobs around a cron
// runner, with per-job status snapshots and panic isolation.
package scheduler

import "time"

// Job describes one scheduled job and its last execution.
type Job struct {
	Slug           string
	Schedule       string
	Handler        string
	RunOnStartup   bool
	TimeoutSeconds int

	LastRunAt      *time.Time
	LastDurationMS int64
	LastStatus     string
	ErrorMessage   *string
	NextRunAt      *time.Time
}

// Clone returns a deep copy so snapshots never alias scheduler state.
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	cloned := *j
	if j.LastRunAt != nil {
		t := *j.LastRunAt
		cloned.LastRunAt = &t
	}
	if j.NextRunAt != nil {
		t := *j.NextRunAt
		cloned.NextRunAt = &t
	}
	if j.ErrorMessage != nil {
		s := *j.ErrorMessage
		cloned.ErrorMessage = &s
	}
	return &cloned
}
