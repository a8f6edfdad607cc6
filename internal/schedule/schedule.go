// Package schedule computes the next occurrence of a task's recurrence
// rule (days of week + time of day).
package schedule

import (
	"time"

	"github.com/carebridge/carebridge/internal/model"
)

// Next returns the first occurrence of the rule strictly after the given
// instant. The result is never in the past relative to `after`; callers
// use this to advance a task's nextScheduledAt once a reminder has been
// processed (completion or deadline), so one missed occurrence can never
// wedge all future ones.
func Next(s model.Schedule, after time.Time) time.Time {
	candidate := time.Date(after.Year(), after.Month(), after.Day(), s.Hour, s.Minute, 0, 0, after.Location())
	if !candidate.After(after) {
		candidate = candidate.AddDate(0, 0, 1)
	}
	// At most a week of probing; an empty day set means every day.
	for i := 0; i < 7; i++ {
		if dayMatches(s, candidate.Weekday()) {
			return candidate
		}
		candidate = candidate.AddDate(0, 0, 1)
	}
	return candidate
}

func dayMatches(s model.Schedule, d time.Weekday) bool {
	if len(s.Days) == 0 {
		return true
	}
	for _, day := range s.Days {
		if day == d {
			return true
		}
	}
	return false
}
