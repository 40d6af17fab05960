package sim

import (
	"context"
	"fmt"
	"time"

	"papertrader/internal/logger"
)

// runBacktest replays history bar by bar. Each closed bar is one decision
// cycle; its close time is the trigger instant and its close price fills
// orders. Already-committed cycles (resume) are skipped by sequence.
func (l *Loop) runBacktest(ctx context.Context) error {
	if l.opts.StartTS <= 0 || l.opts.EndTS <= l.opts.StartTS {
		return fmt.Errorf("sim: backtest requires start_ts < end_ts")
	}
	intervalMs := l.opts.Interval.Duration.Milliseconds()
	warmStart := l.opts.StartTS - int64(l.opts.LookbackBars+5)*intervalMs
	if warmStart < 0 {
		warmStart = 0
	}
	all, err := l.source.Candles(ctx, l.opts.Symbol, l.opts.Interval.String(), warmStart, l.opts.EndTS, 0)
	if err != nil {
		return fmt.Errorf("sim: load candles: %w", err)
	}
	startIdx := 0
	for startIdx < len(all) && all[startIdx].OpenTime < l.opts.StartTS {
		startIdx++
	}
	bars := all[startIdx:]
	if len(bars) == 0 {
		return fmt.Errorf("sim: no bars for %s %s in range", l.opts.Symbol, l.opts.Interval)
	}
	logger.Infof("sim: backtest %s %s, %d bars (%d warmup)",
		l.opts.Symbol, l.opts.Interval, len(bars), startIdx)

	resumeFrom := l.seq
	for i, bar := range bars {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		// bar i corresponds to cycle i+1; committed cycles are not re-applied
		if int64(i+1) <= resumeFrom {
			continue
		}
		window := all[:startIdx+i+1]
		if len(window) > l.opts.LookbackBars {
			window = window[len(window)-l.opts.LookbackBars:]
		}
		triggerAt := time.UnixMilli(bar.CloseTime).UTC()
		l.runCycle(ctx, triggerAt, window, bar.Close)
	}
	return nil
}
