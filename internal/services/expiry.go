package services

import (
	"time"

	"github.com/vectorprep/session-service/internal/models"
)

// Warning thresholds surfaced with time-remaining reads. Informational
// only: no transition is ever gated on a warning, only on remaining <= 0.
var warningThresholds = []time.Duration{
	30 * time.Minute,
	10 * time.Minute,
	5 * time.Minute,
}

// Elapsed is the wall-clock time spent on the attempt so far.
func Elapsed(attempt *models.Attempt, now time.Time) time.Duration {
	return now.Sub(attempt.StartedAt)
}

// Remaining is the attempt's unused time budget, floored at zero. Untimed
// attempts (duration 0) never run out.
func Remaining(attempt *models.Attempt, now time.Time) time.Duration {
	if attempt.DurationSeconds <= 0 {
		return 0
	}
	budget := time.Duration(attempt.DurationSeconds) * time.Second
	remaining := budget - Elapsed(attempt, now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Expired reports whether a timed attempt's budget is exhausted.
func Expired(attempt *models.Attempt, now time.Time) bool {
	if attempt.DurationSeconds <= 0 {
		return false
	}
	return Remaining(attempt, now) <= 0
}

// ActiveWarning returns the tightest threshold the remaining time has
// crossed, or 0 when none applies.
func ActiveWarning(remaining time.Duration) time.Duration {
	if remaining <= 0 {
		return 0
	}
	var active time.Duration
	for _, threshold := range warningThresholds {
		if remaining <= threshold {
			active = threshold
		}
	}
	return active
}
