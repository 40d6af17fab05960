package executor

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Sizing policies. Each is a pure function of (equity, price, config) so it
// can be tested in isolation, no portfolio state leaks in.
const (
	PolicyFixedPct      = "fixed_pct"      // default: a fixed percent of equity
	PolicyFixedNotional = "fixed_notional" // a fixed dollar amount
	PolicyRiskBased     = "risk_based"     // risk_per_trade / stop-loss distance
)

// SizingConfig is the subset of risk config the sizing policies read.
type SizingConfig struct {
	Policy          string
	EquityPct       float64
	NotionalUSD     float64
	RiskPerTradePct float64
	StopLossPct     float64
}

// quantityPrecision keeps order quantities at exchange-like granularity.
const quantityPrecision = 8

// SizeOrder returns the order quantity for a BUY at price given total equity.
// Zero quantity with nil error means the policy sized the order away.
func SizeOrder(cfg SizingConfig, equity, price decimal.Decimal) (decimal.Decimal, error) {
	if !price.IsPositive() {
		return decimal.Zero, fmt.Errorf("price must be positive, got %s", price)
	}
	if !equity.IsPositive() {
		return decimal.Zero, nil
	}
	var notional decimal.Decimal
	switch cfg.Policy {
	case PolicyFixedPct, "":
		notional = equity.Mul(decimal.NewFromFloat(cfg.EquityPct))
	case PolicyFixedNotional:
		notional = decimal.NewFromFloat(cfg.NotionalUSD)
	case PolicyRiskBased:
		if cfg.StopLossPct <= 0 {
			return decimal.Zero, fmt.Errorf("risk_based sizing requires stop_loss_pct > 0")
		}
		riskAmount := equity.Mul(decimal.NewFromFloat(cfg.RiskPerTradePct))
		stopDistance := price.Mul(decimal.NewFromFloat(cfg.StopLossPct))
		if !stopDistance.IsPositive() {
			return decimal.Zero, fmt.Errorf("stop distance collapsed to zero")
		}
		qty := riskAmount.Div(stopDistance)
		notional = qty.Mul(price)
	default:
		return decimal.Zero, fmt.Errorf("unknown sizing policy %q", cfg.Policy)
	}
	if notional.GreaterThan(equity) {
		notional = equity
	}
	if !notional.IsPositive() {
		return decimal.Zero, nil
	}
	return notional.Div(price).Round(quantityPrecision), nil
}
