// Package sim drives the decision cycle: trigger, market context, decision,
// execution, mark-to-market, commit. The same cycle body runs in both modes;
// only the clock differs. Backtests step bar-to-bar with no sleeping, live
// runs follow the trigger scheduler on the wall clock.
package sim

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"papertrader/internal/decision"
	"papertrader/internal/events"
	"papertrader/internal/executor"
	"papertrader/internal/logger"
	"papertrader/internal/market"
	"papertrader/internal/perf"
	"papertrader/internal/portfolio"
	"papertrader/internal/scheduler"
	"papertrader/internal/store"

	"github.com/shopspring/decimal"
)

// Options fixes the shape of one run.
type Options struct {
	RunID          string
	Mode           string // "live" | "backtest"
	Symbol         string
	Interval       scheduler.Interval
	InitialBalance float64
	LookbackBars   int
	Resume         bool
	StartTS        int64 // ms, backtest only
	EndTS          int64 // ms, backtest only
	PeriodsPerYear float64
}

// Deps are the collaborators of one loop. Store and Events may be nil; the
// loop then runs purely in memory.
type Deps struct {
	Source    market.Source
	Provider  decision.Provider
	Executor  *executor.Executor
	Store     store.Store
	Events    events.Publisher
	Scheduler *scheduler.TriggerScheduler
}

// Loop runs the decision cycle for one symbol and one account.
type Loop struct {
	opts Options

	source   market.Source
	provider decision.Provider
	exec     *executor.Executor
	store    store.Store
	events   events.Publisher
	sched    *scheduler.TriggerScheduler

	pf      *portfolio.Portfolio
	tracker *perf.Tracker

	seq      int64
	degraded int

	nowFn func() time.Time
}

func NewLoop(opts Options, deps Deps) (*Loop, error) {
	if opts.Symbol == "" {
		return nil, fmt.Errorf("sim: symbol is required")
	}
	if deps.Source == nil || deps.Provider == nil || deps.Executor == nil {
		return nil, fmt.Errorf("sim: source, provider and executor are required")
	}
	if opts.Mode == "live" && deps.Scheduler == nil {
		return nil, fmt.Errorf("sim: live mode requires a scheduler")
	}
	if opts.LookbackBars <= 0 {
		opts.LookbackBars = 200
	}
	periodsPerYear := opts.PeriodsPerYear
	if periodsPerYear <= 0 {
		periodsPerYear = opts.Interval.PeriodsPerYear()
	}
	ev := deps.Events
	if ev == nil {
		ev = events.Nop{}
	}
	return &Loop{
		opts:     opts,
		source:   deps.Source,
		provider: deps.Provider,
		exec:     deps.Executor,
		store:    deps.Store,
		events:   ev,
		sched:    deps.Scheduler,
		pf:       portfolio.NewFromFloat(opts.InitialBalance),
		tracker:  perf.NewTracker(opts.InitialBalance, periodsPerYear),
		nowFn:    time.Now,
	}, nil
}

// Portfolio exposes the account for status endpoints. Read-only use.
func (l *Loop) Portfolio() *portfolio.Portfolio { return l.pf }

// Run executes the whole run and returns the performance summary. The only
// error paths out of Run are cancellation and a backtest with no usable data;
// per-cycle failures degrade to HOLD and keep going.
func (l *Loop) Run(ctx context.Context) (perf.Summary, error) {
	if err := l.createRun(ctx); err != nil {
		return perf.Summary{}, err
	}
	if l.opts.Resume {
		if err := l.restore(ctx); err != nil {
			logger.Warnf("sim: resume failed, starting fresh: %v", err)
		}
	}

	var runErr error
	switch l.opts.Mode {
	case "backtest":
		runErr = l.runBacktest(ctx)
	default:
		runErr = l.runLive(ctx)
	}

	summary := l.tracker.Compute(l.pf.Trades(), l.pf.EquityHistory(), l.degraded)
	l.finishRun(ctx, summary)
	if runErr != nil && runErr != context.Canceled {
		return summary, runErr
	}
	return summary, nil
}

func (l *Loop) createRun(ctx context.Context) error {
	if l.store == nil {
		return nil
	}
	return l.store.CreateRun(ctx, store.RunRecord{
		ID:             l.opts.RunID,
		Mode:           l.opts.Mode,
		Symbol:         l.opts.Symbol,
		Interval:       l.opts.Interval.String(),
		InitialBalance: l.opts.InitialBalance,
		StartedAt:      l.nowFn().UTC(),
	})
}

func (l *Loop) finishRun(ctx context.Context, summary perf.Summary) {
	if l.store == nil {
		return
	}
	payload, err := json.Marshal(summary)
	if err != nil {
		logger.Warnf("sim: marshal summary: %v", err)
		return
	}
	// Use a fresh context: the run context is typically already cancelled here.
	finishCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := l.store.FinishRun(finishCtx, l.opts.RunID, l.nowFn().UTC(), payload); err != nil {
		logger.Warnf("sim: finish run: %v", err)
	}
}

// restore rebuilds the account from the last committed cycle. The cycle
// sequence marker guarantees an already-committed cycle is never re-applied.
func (l *Loop) restore(ctx context.Context) error {
	if l.store == nil {
		return nil
	}
	account, ok, err := l.store.LoadAccount(ctx, l.opts.RunID)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	trades, err := l.store.ListTrades(ctx, l.opts.RunID)
	if err != nil {
		return err
	}
	positions := make([]portfolio.Position, 0, len(account.Positions))
	for _, p := range account.Positions {
		positions = append(positions, portfolio.Position{
			Symbol:     p.Symbol,
			EntryPrice: decimal.NewFromFloat(p.EntryPrice),
			Quantity:   decimal.NewFromFloat(p.Quantity),
			OpenedAt:   p.OpenedAt,
		})
	}
	restored := make([]portfolio.Trade, 0, len(trades))
	for _, t := range trades {
		restored = append(restored, portfolio.Trade{
			Time:        t.Time,
			Symbol:      t.Symbol,
			Side:        t.Side,
			Price:       decimal.NewFromFloat(t.Price),
			Quantity:    decimal.NewFromFloat(t.Quantity),
			Fee:         decimal.NewFromFloat(t.Fee),
			CashAfter:   decimal.NewFromFloat(t.CashAfter),
			RealizedPnL: decimal.NewFromFloat(t.RealizedPnL),
			Closed:      t.Closed,
		})
	}
	l.pf.Restore(decimal.NewFromFloat(account.Cash), positions, restored)
	// seed one equity sample at the last committed cycle so a fully-committed
	// run still reports its final equity even when no further cycles execute
	if last, found, cerr := l.store.LastCycle(ctx, l.opts.RunID); cerr == nil && found {
		l.pf.MarkToMarket(l.opts.Symbol, decimal.NewFromFloat(last.Price), last.TriggerAt)
	}
	l.seq = account.LastCycleSeq
	logger.Infof("sim: resumed run %s at cycle %d, cash=%.2f positions=%d",
		l.opts.RunID, l.seq, account.Cash, len(positions))
	return nil
}

// runCycle executes one decision cycle at triggerAt with the given market
// window. It never returns an error: every failure degrades to a logged HOLD.
func (l *Loop) runCycle(ctx context.Context, triggerAt time.Time, candles []market.Candle, price float64) {
	l.seq++
	cycleDegraded := false

	d, err := l.requestDecision(ctx, triggerAt, candles, price)
	if err != nil || d.Degraded != "" {
		cycleDegraded = true
	}

	priceDec := decimal.NewFromFloat(price)
	res := l.exec.Execute(d, l.pf, priceDec, triggerAt)
	if res.Status == executor.StatusError {
		cycleDegraded = true
		logger.Warnf("sim: cycle %d execution error: %s", l.seq, res.Message)
	}
	if cycleDegraded {
		l.degraded++
	}

	l.pf.MarkToMarket(l.opts.Symbol, priceDec, triggerAt)
	equity, _ := l.pf.TotalEquity().Float64()

	logger.Infof("sim: cycle=%d symbol=%s action=%s status=%s price=%.4f equity=%.2f %s",
		l.seq, l.opts.Symbol, d.Action, res.Status, price, equity, res.Message)
	logger.Triggerf("cycle %d fired at %s action=%s status=%s",
		l.seq, triggerAt.UTC().Format(time.RFC3339), d.Action, res.Status)

	l.commitCycle(ctx, triggerAt, d, res, price, equity, cycleDegraded)

	l.events.PublishCycle(events.CycleEvent{
		RunID:     l.opts.RunID,
		Seq:       l.seq,
		Symbol:    l.opts.Symbol,
		Action:    d.Action,
		Status:    string(res.Status),
		Price:     price,
		Equity:    equity,
		Degraded:  cycleDegraded,
		TriggerAt: triggerAt,
	})
}

func (l *Loop) requestDecision(ctx context.Context, triggerAt time.Time, candles []market.Candle, price float64) (decision.Decision, error) {
	mctx := decision.MarketContext{
		Symbol:     l.opts.Symbol,
		Interval:   l.opts.Interval.String(),
		Time:       triggerAt,
		Price:      price,
		Indicators: market.ComputeIndicators(candles),
	}
	equity, _ := l.pf.TotalEquity().Float64()
	mctx.Equity = equity
	if pos, held := l.pf.Position(l.opts.Symbol); held {
		entry, _ := pos.EntryPrice.Float64()
		qty, _ := pos.Quantity.Float64()
		mctx.Position = &decision.PositionContext{
			Side:          "long",
			EntryPrice:    entry,
			Quantity:      qty,
			UnrealizedPnL: (price - entry) * qty,
		}
	}
	d, err := l.provider.RequestDecision(ctx, mctx)
	if err != nil {
		if !d.IsHold() {
			d = decision.Hold(l.opts.Symbol, "provider error")
		}
		logger.Warnf("sim: cycle %d decision degraded to hold: %v", l.seq, err)
	}
	if d.Symbol == "" {
		d.Symbol = l.opts.Symbol
	}
	return d, err
}

// commitCycle persists the cycle atomically. Persistence failures are logged
// and the loop keeps running on in-memory state.
func (l *Loop) commitCycle(ctx context.Context, triggerAt time.Time, d decision.Decision, res executor.Result, price, equity float64, degraded bool) {
	if l.store == nil {
		return
	}
	now := l.nowFn().UTC()
	decisionJSON, _ := json.Marshal(d)
	commit := store.CycleCommit{
		Cycle: store.CycleRecord{
			RunID:     l.opts.RunID,
			Seq:       l.seq,
			TriggerAt: triggerAt,
			Price:     price,
			Equity:    equity,
			Degraded:  degraded,
			Time:      now,
		},
		Orders: []store.OrderRecord{{
			RunID:        l.opts.RunID,
			CycleSeq:     l.seq,
			Symbol:       l.opts.Symbol,
			Action:       d.Action,
			Confidence:   d.Confidence,
			Status:       string(res.Status),
			Message:      res.Message,
			DecisionJSON: decisionJSON,
			Time:         now,
		}},
		Account: l.accountRecord(now),
	}
	if res.Trade != nil {
		commit.Trades = append(commit.Trades, tradeRecord(l.opts.RunID, l.seq, *res.Trade))
	}
	if err := l.store.SaveCycle(ctx, commit); err != nil {
		logger.Warnf("sim: cycle %d commit failed: %v", l.seq, err)
	}
}

func (l *Loop) accountRecord(now time.Time) store.AccountRecord {
	snap := l.pf.Snapshot()
	cash, _ := snap.Cash.Float64()
	rec := store.AccountRecord{
		RunID:        l.opts.RunID,
		Cash:         cash,
		LastCycleSeq: l.seq,
		UpdatedAt:    now,
	}
	for _, pos := range snap.Positions {
		entry, _ := pos.EntryPrice.Float64()
		qty, _ := pos.Quantity.Float64()
		rec.Positions = append(rec.Positions, store.PositionRecord{
			Symbol:     pos.Symbol,
			EntryPrice: entry,
			Quantity:   qty,
			OpenedAt:   pos.OpenedAt,
		})
	}
	return rec
}

func tradeRecord(runID string, seq int64, t portfolio.Trade) store.TradeRecord {
	price, _ := t.Price.Float64()
	qty, _ := t.Quantity.Float64()
	fee, _ := t.Fee.Float64()
	cashAfter, _ := t.CashAfter.Float64()
	realized, _ := t.RealizedPnL.Float64()
	return store.TradeRecord{
		RunID:       runID,
		CycleSeq:    seq,
		Symbol:      t.Symbol,
		Side:        t.Side,
		Price:       price,
		Quantity:    qty,
		Fee:         fee,
		CashAfter:   cashAfter,
		RealizedPnL: realized,
		Closed:      t.Closed,
		Time:        t.Time,
	}
}
