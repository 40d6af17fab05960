package scheduler

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Interval units. Alignment semantics depend on the unit, not only on the
// duration: minutes align to the hour, hours to midnight, days to the next
// calendar day.
const (
	UnitMinute = 'm'
	UnitHour   = 'h'
	UnitDay    = 'd'
)

// Interval is a parsed trigger spacing such as "15m" or "4h".
type Interval struct {
	Count    int
	Unit     byte
	Duration time.Duration
}

func (iv Interval) String() string {
	return fmt.Sprintf("%d%c", iv.Count, iv.Unit)
}

// ParseInterval parses "1m", "5m", "15m", "1h", "4h", "1d" style strings.
// Any positive count is accepted for each unit.
func ParseInterval(raw string) (Interval, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if len(s) < 2 {
		return Interval{}, fmt.Errorf("invalid interval %q", raw)
	}
	unit := s[len(s)-1]
	numStr := strings.TrimSpace(s[:len(s)-1])
	n, err := strconv.Atoi(numStr)
	if err != nil || n <= 0 {
		return Interval{}, fmt.Errorf("invalid interval %q", raw)
	}
	switch unit {
	case UnitMinute:
		return Interval{Count: n, Unit: unit, Duration: time.Duration(n) * time.Minute}, nil
	case UnitHour:
		return Interval{Count: n, Unit: unit, Duration: time.Duration(n) * time.Hour}, nil
	case UnitDay:
		return Interval{Count: n, Unit: unit, Duration: time.Duration(n) * 24 * time.Hour}, nil
	default:
		return Interval{}, fmt.Errorf("invalid interval unit in %q", raw)
	}
}

// PeriodsPerYear estimates how many trigger periods fit in a year, for
// annualizing return statistics.
func (iv Interval) PeriodsPerYear() float64 {
	if iv.Duration <= 0 {
		return 0
	}
	return float64(365*24*time.Hour) / float64(iv.Duration)
}
