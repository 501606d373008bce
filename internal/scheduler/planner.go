package scheduler

import "time"

// SleepPlanner computes how long the loop idles after a cycle
type SleepPlanner struct {
	def time.Duration
	min time.Duration
}

// NewSleepPlanner creates a planner whose ceiling is def. A ceiling below
// MinSleep is raised to MinSleep.
func NewSleepPlanner(def time.Duration) *SleepPlanner {
	if def < MinSleep {
		def = MinSleep
	}
	return &SleepPlanner{def: def, min: MinSleep}
}

// Default returns the sleep used after an empty cycle
func (p *SleepPlanner) Default() time.Duration {
	return p.def
}

// Compute sleeps until the earliest rescheduled job is due, clamped to
// [MinSleep, default]. With no rescheduled jobs it returns the default.
func (p *SleepPlanner) Compute(now time.Time, next []time.Time) time.Duration {
	if len(next) == 0 {
		return p.def
	}

	minNext := next[0]
	for _, t := range next[1:] {
		if t.Before(minNext) {
			minNext = t
		}
	}

	remaining := minNext.Sub(now)
	switch {
	case remaining < p.min:
		return p.min
	case remaining < p.def:
		return remaining
	default:
		return p.def
	}
}
