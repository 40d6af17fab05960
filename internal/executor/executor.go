// Package executor turns decisions into orders against a portfolio, applying
// position sizing and pre-trade risk checks. Nothing here may halt the
// simulation loop: every failure path folds into a Result.
package executor

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"papertrader/internal/config"
	"papertrader/internal/decision"
	"papertrader/internal/logger"
	"papertrader/internal/portfolio"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusSuccess  Status = "success"
	StatusRejected Status = "rejected"
	StatusError    Status = "error"
)

// Result is the outcome of one decision. Trade is set only when an order
// committed. Rejected and errored decisions leave the portfolio untouched.
type Result struct {
	Status  Status
	Trade   *portfolio.Trade
	Message string
}

type Executor struct {
	sizing  SizingConfig
	feeRate decimal.Decimal

	mu     sync.RWMutex
	limits config.RiskLimits
}

func New(risk config.RiskConfig) *Executor {
	return &Executor{
		sizing: SizingConfig{
			Policy:          risk.SizingPolicy,
			EquityPct:       risk.EquityPct,
			NotionalUSD:     risk.NotionalUSD,
			RiskPerTradePct: risk.RiskPerTradePct,
			StopLossPct:     risk.StopLossPct,
		},
		feeRate: decimal.NewFromFloat(risk.FeeRate),
		limits:  config.LimitsFromRisk(risk),
	}
}

// SetLimits swaps the hot-reloadable risk limits. Safe to call from the
// config watcher while the loop is running.
func (e *Executor) SetLimits(limits config.RiskLimits) {
	e.mu.Lock()
	e.limits = limits
	e.mu.Unlock()
	logger.Infof("executor: risk limits updated min_confidence=%d max_positions=%d", limits.MinConfidence, limits.MaxPositions)
}

func (e *Executor) currentLimits() config.RiskLimits {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.limits
}

// Execute applies one decision at the current price. A HOLD is a successful
// no-op. Any panic or unexpected error from sizing or the portfolio is caught
// and converted into StatusError; a single bad decision degrades to "no trade
// this cycle", never to a dead loop.
func (e *Executor) Execute(d decision.Decision, pf *portfolio.Portfolio, price decimal.Decimal, ts time.Time) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Result{Status: StatusError, Message: fmt.Sprintf("execution panic: %v", r)}
		}
	}()

	if d.IsHold() {
		msg := "hold"
		if d.Degraded != "" {
			msg = "hold (degraded: " + d.Degraded + ")"
		}
		return Result{Status: StatusSuccess, Message: msg}
	}
	if !price.IsPositive() {
		return Result{Status: StatusError, Message: fmt.Sprintf("no usable price for %s", d.Symbol)}
	}

	limits := e.currentLimits()
	if err := sanityCheckLimits(limits); err != nil {
		return Result{Status: StatusError, Message: err.Error()}
	}
	if d.Confidence < limits.MinConfidence {
		return Result{
			Status:  StatusSuccess,
			Message: fmt.Sprintf("confidence %d below threshold %d, downgraded to hold", d.Confidence, limits.MinConfidence),
		}
	}

	switch d.Action {
	case decision.ActionBuy:
		return e.executeBuy(d, pf, price, limits, ts)
	case decision.ActionSell:
		return e.executeSell(d, pf, price, ts)
	default:
		return Result{Status: StatusError, Message: fmt.Sprintf("unexpected action %q", d.Action)}
	}
}

func (e *Executor) executeBuy(d decision.Decision, pf *portfolio.Portfolio, price decimal.Decimal, limits config.RiskLimits, ts time.Time) Result {
	if _, held := pf.Position(d.Symbol); !held && pf.OpenPositions() >= limits.MaxPositions {
		return Result{
			Status:  StatusRejected,
			Message: fmt.Sprintf("max concurrent positions reached (%d)", limits.MaxPositions),
		}
	}
	sizing := e.sizing
	sizing.StopLossPct = limits.StopLossPct
	qty, err := SizeOrder(sizing, pf.TotalEquity(), price)
	if err != nil {
		return Result{Status: StatusError, Message: "sizing failed: " + err.Error()}
	}
	if !qty.IsPositive() {
		return Result{Status: StatusRejected, Message: "sized quantity is zero"}
	}
	fee := qty.Mul(price).Mul(e.feeRate)
	trade, err := pf.Buy(d.Symbol, qty, price, fee, ts)
	if err != nil {
		if errors.Is(err, portfolio.ErrInsufficientFunds) {
			return Result{Status: StatusRejected, Message: err.Error()}
		}
		return Result{Status: StatusError, Message: "buy failed: " + err.Error()}
	}
	return Result{Status: StatusSuccess, Trade: &trade, Message: "buy committed"}
}

func (e *Executor) executeSell(d decision.Decision, pf *portfolio.Portfolio, price decimal.Decimal, ts time.Time) Result {
	pos, held := pf.Position(d.Symbol)
	if !held {
		return Result{Status: StatusRejected, Message: portfolio.ErrNoPosition.Error()}
	}
	qty := pos.Quantity
	fee := qty.Mul(price).Mul(e.feeRate)
	trade, err := pf.Sell(d.Symbol, qty, price, fee, ts)
	if err != nil {
		if errors.Is(err, portfolio.ErrNoPosition) {
			return Result{Status: StatusRejected, Message: err.Error()}
		}
		return Result{Status: StatusError, Message: "sell failed: " + err.Error()}
	}
	return Result{Status: StatusSuccess, Trade: &trade, Message: "position closed"}
}

func sanityCheckLimits(limits config.RiskLimits) error {
	if limits.StopLossPct <= 0 || limits.StopLossPct >= 1 {
		return fmt.Errorf("stop-loss pct out of bounds: %v", limits.StopLossPct)
	}
	if limits.TakeProfitPct <= 0 {
		return fmt.Errorf("take-profit pct out of bounds: %v", limits.TakeProfitPct)
	}
	if limits.MaxPositions <= 0 {
		return fmt.Errorf("max positions must be positive: %d", limits.MaxPositions)
	}
	return nil
}
