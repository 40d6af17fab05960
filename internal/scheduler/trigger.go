package scheduler

import "time"

// ComputeNextTrigger returns the next instant a decision must be requested.
// It is a pure function: identical inputs always yield the identical result.
//
// Unaligned mode is simply now+interval. Aligned mode snaps to wall-clock
// boundaries in UTC:
//   - minutes: the next multiple of the interval past the hour
//   - hours: the next multiple of the interval past midnight, rolling to the
//     next day boundary when the computed hour would reach 24
//   - days: the start of the next calendar day
//
// When now sits exactly on a boundary the *next* boundary is returned, so a
// trigger never double-fires on the instant that just passed.
func ComputeNextTrigger(now time.Time, interval Interval, aligned bool) time.Time {
	if !aligned {
		return now.Add(interval.Duration)
	}
	now = now.UTC()
	dayStart := now.Truncate(24 * time.Hour)
	switch interval.Unit {
	case UnitMinute:
		hourStart := now.Truncate(time.Hour)
		k := now.Sub(hourStart) / interval.Duration
		return hourStart.Add((k + 1) * interval.Duration)
	case UnitHour:
		k := now.Sub(dayStart) / interval.Duration
		next := dayStart.Add((k + 1) * interval.Duration)
		if nextDay := dayStart.Add(24 * time.Hour); next.After(nextDay) {
			return nextDay
		}
		return next
	case UnitDay:
		return dayStart.Add(24 * time.Hour)
	default:
		return now.Add(interval.Duration)
	}
}
