package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"papertrader/internal/logger"
)

// ErrScheduling marks a recoverable schedule computation failure. The
// scheduler falls back to the emergency interval instead of stopping.
var ErrScheduling = errors.New("schedule computation failed")

// State of the trigger scheduler. The loop alternates between WAITING and
// TRIGGERED each cycle; IDLE is the terminal state after stop/cancellation.
type State int32

const (
	StateIdle State = iota
	StateWaiting
	StateTriggered
)

func (s State) String() string {
	switch s {
	case StateWaiting:
		return "waiting"
	case StateTriggered:
		return "triggered"
	default:
		return "idle"
	}
}

// Config for one TriggerScheduler.
type Config struct {
	Interval          string
	AlignClock        bool
	EmergencyInterval string
	SkewWarn          time.Duration
	// Accelerator divides the cadence for test runs (e.g. 4 runs cycles 4x
	// faster). Alignment is disabled while accelerated; compressed boundaries
	// would not land on real clock marks anyway.
	Accelerator int
}

// TriggerScheduler computes and waits for decision triggers for one symbol
// stream. There is never more than one pending trigger per scheduler.
type TriggerScheduler struct {
	interval  Interval
	aligned   bool
	emergency time.Duration
	skewWarn  time.Duration
	divisor   int

	state atomic.Int32
	nowFn func() time.Time
}

// New validates the configuration. An invalid interval or emergency interval
// is a fatal configuration error, the only fatal path in this package.
func New(cfg Config) (*TriggerScheduler, error) {
	emergency := 5 * time.Minute
	if cfg.EmergencyInterval != "" {
		iv, err := ParseInterval(cfg.EmergencyInterval)
		if err != nil {
			return nil, fmt.Errorf("invalid emergency interval: %w", err)
		}
		emergency = iv.Duration
	}
	interval, err := ParseInterval(cfg.Interval)
	if err != nil {
		return nil, fmt.Errorf("invalid interval: %w", err)
	}
	skewWarn := cfg.SkewWarn
	if skewWarn <= 0 {
		skewWarn = 2 * time.Second
	}
	divisor := cfg.Accelerator
	if divisor <= 0 {
		divisor = 1
	}
	s := &TriggerScheduler{
		interval:  interval,
		aligned:   cfg.AlignClock && divisor == 1,
		emergency: emergency,
		skewWarn:  skewWarn,
		divisor:   divisor,
		nowFn:     time.Now,
	}
	s.state.Store(int32(StateWaiting))
	return s, nil
}

func (s *TriggerScheduler) State() State { return State(s.state.Load()) }

func (s *TriggerScheduler) Interval() Interval { return s.interval }

func (s *TriggerScheduler) setState(st State) { s.state.Store(int32(st)) }

func (s *TriggerScheduler) effectiveInterval() Interval {
	if s.divisor == 1 {
		return s.interval
	}
	iv := s.interval
	iv.Duration = iv.Duration / time.Duration(s.divisor)
	if iv.Duration <= 0 {
		iv.Duration = time.Second
	}
	return iv
}

// NextAfter computes the next trigger strictly after ref. ref is the
// *scheduled* time of the previous trigger, not the time the previous cycle
// finished, so slow cycles do not compound drift. Any failure falls back to
// the emergency interval and is logged, never fatal.
func (s *TriggerScheduler) NextAfter(ref time.Time) time.Time {
	next, err := s.computeChecked(ref)
	if err != nil {
		logger.Warnf("scheduler: %v, falling back to emergency interval %s", err, s.emergency)
		return ref.Add(s.emergency)
	}
	if !next.After(ref) {
		logger.Warnf("scheduler: computed trigger %s not after %s, falling back to emergency interval %s",
			next.Format(time.RFC3339), ref.Format(time.RFC3339), s.emergency)
		return ref.Add(s.emergency)
	}
	logger.Debugf("scheduler: next trigger %s (ref %s, aligned=%t)",
		next.Format(time.RFC3339), ref.Format(time.RFC3339), s.aligned)
	return next
}

func (s *TriggerScheduler) computeChecked(ref time.Time) (next time.Time, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrScheduling, r)
		}
	}()
	iv := s.effectiveInterval()
	if iv.Duration <= 0 {
		return time.Time{}, fmt.Errorf("%w: non-positive interval", ErrScheduling)
	}
	return ComputeNextTrigger(ref, iv, s.aligned), nil
}

// WaitUntil blocks until target. A target already in the past returns
// immediately (a missed trigger fires as soon as it is detected) and logs the
// skew when it exceeds the configured threshold. Cancellation moves the
// scheduler to IDLE and unblocks at once.
func (s *TriggerScheduler) WaitUntil(ctx context.Context, target time.Time) error {
	s.setState(StateWaiting)
	now := s.nowFn()
	wait := target.Sub(now)
	if wait <= 0 {
		if skew := -wait; skew > s.skewWarn {
			logger.Warnf("scheduler: trigger %s missed by %s, firing immediately",
				target.Format(time.RFC3339), skew.Truncate(time.Millisecond))
		}
		select {
		case <-ctx.Done():
			s.setState(StateIdle)
			return ctx.Err()
		default:
			s.setState(StateTriggered)
			return nil
		}
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		s.setState(StateIdle)
		return ctx.Err()
	case <-timer.C:
		s.setState(StateTriggered)
		return nil
	}
}

// Stop moves the scheduler to IDLE. Pending WaitUntil calls unblock through
// their context; Stop only records the terminal state.
func (s *TriggerScheduler) Stop() { s.setState(StateIdle) }
