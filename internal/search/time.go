package search

import "time"

// timeOrZero dereferences an optional timestamp, treating absence as the
// zero value for tie-break comparisons.
func timeOrZero(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
