package sim

import (
	"context"
	"errors"
	"time"

	"papertrader/internal/logger"
	"papertrader/internal/market"
)

// runLive follows the trigger scheduler on the wall clock until the context
// is cancelled. The next trigger is always derived from the previous trigger's
// scheduled time, so a slow cycle does not shift the cadence.
func (l *Loop) runLive(ctx context.Context) error {
	next := l.sched.NextAfter(l.nowFn())
	logger.Infof("sim: live run %s %s, first trigger at %s",
		l.opts.Symbol, l.opts.Interval, next.UTC().Format(time.RFC3339))

	for {
		if err := l.sched.WaitUntil(ctx, next); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				l.sched.Stop()
				return context.Canceled
			}
			return err
		}
		l.liveCycle(ctx, next)
		next = l.sched.NextAfter(next)
	}
}

// liveCycle fetches the market window and runs one cycle. Data failures
// degrade the cycle to a hold; the loop never dies on a flaky feed.
func (l *Loop) liveCycle(ctx context.Context, triggerAt time.Time) {
	candles, err := l.source.Candles(ctx, l.opts.Symbol, l.opts.Interval.String(), 0, 0, l.opts.LookbackBars)
	if err != nil {
		logger.Warnf("sim: fetch candles for %s: %v", l.opts.Symbol, err)
	}
	price, err := l.source.LatestPrice(ctx, l.opts.Symbol)
	if err != nil || price <= 0 {
		price = market.LastClose(candles)
		if err != nil {
			logger.Warnf("sim: latest price for %s unavailable, using last close: %v", l.opts.Symbol, err)
		}
	}
	if price <= 0 {
		l.seq++
		l.degraded++
		logger.Warnf("sim: cycle %d skipped, no usable price for %s", l.seq, l.opts.Symbol)
		return
	}
	l.runCycle(ctx, triggerAt, candles, price)
}
