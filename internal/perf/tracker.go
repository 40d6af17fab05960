// Package perf derives performance metrics from trade and equity history.
// Every metric is defined for empty or degenerate histories: no input shape
// panics or divides by zero.
package perf

import (
	"math"

	"papertrader/internal/portfolio"

	"github.com/montanaflynn/stats"
)

// Summary is the end-of-run performance report.
type Summary struct {
	InitialBalance float64 `json:"initial_balance"`
	FinalEquity    float64 `json:"final_equity"`
	TotalReturnPct float64 `json:"total_return_pct"`
	WinRate        float64 `json:"win_rate"`
	MaxDrawdownPct float64 `json:"max_drawdown_pct"`
	SharpeRatio    float64 `json:"sharpe_ratio"`
	ProfitFactor   float64 `json:"profit_factor"`
	TotalTrades    int     `json:"total_trades"`
	WinningTrades  int     `json:"winning_trades"`
	GrossProfit    float64 `json:"gross_profit"`
	GrossLoss      float64 `json:"gross_loss"`
	DegradedCycles int     `json:"degraded_cycles"`
}

// Tracker computes metrics for one account.
type Tracker struct {
	initialBalance float64
	periodsPerYear float64
}

func NewTracker(initialBalance, periodsPerYear float64) *Tracker {
	if periodsPerYear <= 0 {
		periodsPerYear = 365 * 24 // hourly cadence fallback
	}
	return &Tracker{initialBalance: initialBalance, periodsPerYear: periodsPerYear}
}

// Compute derives the full summary. Trades counts closed trades only: a round
// trip realizes P&L exactly once, on its SELL.
func (t *Tracker) Compute(trades []portfolio.Trade, equity []portfolio.EquityPoint, degradedCycles int) Summary {
	s := Summary{
		InitialBalance: t.initialBalance,
		FinalEquity:    t.initialBalance,
		DegradedCycles: degradedCycles,
	}
	if len(equity) > 0 {
		s.FinalEquity, _ = equity[len(equity)-1].Equity.Float64()
	}
	if t.initialBalance > 0 {
		s.TotalReturnPct = (s.FinalEquity - t.initialBalance) / t.initialBalance * 100
	}

	for _, trade := range trades {
		if !trade.Closed {
			continue
		}
		s.TotalTrades++
		pnl, _ := trade.RealizedPnL.Float64()
		if pnl > 0 {
			s.WinningTrades++
			s.GrossProfit += pnl
		} else {
			s.GrossLoss += -pnl
		}
	}
	if s.TotalTrades > 0 {
		s.WinRate = float64(s.WinningTrades) / float64(s.TotalTrades) * 100
	}
	s.ProfitFactor = profitFactor(s.GrossProfit, s.GrossLoss)
	s.MaxDrawdownPct = MaxDrawdownPct(equity)
	s.SharpeRatio = t.sharpe(equity)
	return s
}

func profitFactor(grossProfit, grossLoss float64) float64 {
	if grossLoss == 0 {
		if grossProfit > 0 {
			return math.Inf(1)
		}
		return 0
	}
	return grossProfit / grossLoss
}

// MaxDrawdownPct is the maximum peak-to-trough equity decline as a percent of
// the peak. Zero for fewer than two samples.
func MaxDrawdownPct(equity []portfolio.EquityPoint) float64 {
	if len(equity) < 2 {
		return 0
	}
	peak, _ := equity[0].Equity.Float64()
	maxDD := 0.0
	for _, point := range equity {
		e, _ := point.Equity.Float64()
		if e > peak {
			peak = e
		}
		if peak > 0 {
			if dd := (peak - e) / peak * 100; dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}

// sharpe annualizes mean periodic return over its standard deviation. Defined
// as 0 when the deviation is 0 (flat equity or a single sample).
func (t *Tracker) sharpe(equity []portfolio.EquityPoint) float64 {
	returns := periodicReturns(equity)
	if len(returns) < 2 {
		return 0
	}
	mean, err := stats.Mean(returns)
	if err != nil {
		return 0
	}
	sd, err := stats.StandardDeviationSample(returns)
	if err != nil || sd == 0 {
		return 0
	}
	return mean / sd * math.Sqrt(t.periodsPerYear)
}

func periodicReturns(equity []portfolio.EquityPoint) []float64 {
	if len(equity) < 2 {
		return nil
	}
	out := make([]float64, 0, len(equity)-1)
	prev, _ := equity[0].Equity.Float64()
	for _, point := range equity[1:] {
		cur, _ := point.Equity.Float64()
		if prev > 0 {
			out = append(out, cur/prev-1)
		}
		prev = cur
	}
	return out
}
