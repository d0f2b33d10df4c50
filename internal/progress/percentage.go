// Package progress tracks viewing time of advisors on activated courses.
//
// A Tracker holds the in-memory counter of one (user, course) pair. The
// counter starts at the persisted value, grows by a fixed unit on every tick
// and is written back only when it reaches a positive multiple of
// unit*flushEvery. The Registry owns one ticking goroutine per open view.
package progress

import "math"

// Percentage is the completion percentage shown for a record:
// min(round(progreso / duracion * 100), 100).
//
// Courses without a nominal duration report 100 once any time was accrued
// or the record is completed, and 0 otherwise.
func Percentage(progreso, duracion int, completed bool) int {
	if duracion <= 0 {
		if progreso > 0 || completed {
			return 100
		}
		return 0
	}
	if progreso <= 0 {
		return 0
	}

	pct := int(math.Round(float64(progreso) / float64(duracion) * 100))
	return min(pct, 100)
}

// CompletionValue is the progress stored when a course is completed
func CompletionValue(accrued, duracion int) int {
	return max(accrued, duracion)
}
