// Package calendar computes which countdown day is unlocked from the start
// date and the current date. All inputs are clamped rather than rejected, so
// every function returns a usable value for any input.
package calendar

import (
	"math"
	"time"

	"countdown-notifier/pkg/countdown"
)

// Midnight truncates a time to the start of its calendar day in the same
// location. Both sides of a day subtraction must go through this so that
// time-of-day drift and DST shifts cannot produce off-by-one results.
func Midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// daysBetween returns the number of whole calendar days from 'from' to 'to'.
// Negative when 'to' precedes 'from'. The quotient is rounded, not truncated:
// a span crossing a DST transition is an hour short or long of a multiple of
// 24h, and truncation would lose a day on spring-forward spans.
func daysBetween(from, to time.Time) int {
	d := Midnight(to).Sub(Midnight(from))
	return int(math.Round(d.Hours() / 24))
}

// CurrentDay returns the day index unlocked at 'now', in [1, TotalDays+1].
// The value TotalDays+1 means the final bonus day (the birthday) has been
// reached. Before the start date the result is 1, never zero or negative.
func CurrentDay(cfg countdown.Config, now time.Time) int {
	day := daysBetween(cfg.StartDate, now) + 1
	if day < 1 {
		day = 1
	}
	if day > cfg.TotalDays+1 {
		day = cfg.TotalDays + 1
	}
	return day
}

// IsUnlocked reports whether the given day index may be shown at 'now'.
func IsUnlocked(cfg countdown.Config, day int, now time.Time) bool {
	return day <= CurrentDay(cfg, now)
}

// DaysRemaining returns how many countdown days are still ahead at 'now',
// zero once the final day is reached.
func DaysRemaining(cfg countdown.Config, now time.Time) int {
	remaining := cfg.TotalDays - CurrentDay(cfg, now) + 1
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}

// DateOfDay returns the calendar date a day index falls on.
func DateOfDay(cfg countdown.Config, day int) time.Time {
	return Midnight(cfg.StartDate).AddDate(0, 0, day-1)
}
