package planner

import (
	"time"

	"venue-booking-backend/internal/model"
)

// Step is one named stage of a multi-step family with its fire time.
type Step struct {
	JobType model.JobType
	RunAt   time.Time
}

// CatchUp splits an ascending step sequence at now. The last step whose fire
// time is at or before now becomes the immediate step and supersedes every
// earlier step; only steps strictly after now are returned as future work.
func CatchUp(steps []Step, now time.Time) (*Step, []Step) {
	idx := -1
	for i := len(steps) - 1; i >= 0; i-- {
		if !steps[i].RunAt.After(now) {
			idx = i
			break
		}
	}

	var future []Step
	for _, s := range steps[idx+1:] {
		if s.RunAt.After(now) {
			future = append(future, s)
		}
	}
	if idx < 0 {
		return nil, future
	}
	immediate := steps[idx]
	return &immediate, future
}

// futureOnly drops every step that is already due.
func futureOnly(steps []Step, now time.Time) []Step {
	var out []Step
	for _, s := range steps {
		if s.RunAt.After(now) {
			out = append(out, s)
		}
	}
	return out
}
