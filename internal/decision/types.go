package decision

import (
	"time"

	"papertrader/internal/market"
)

// Actions a decision may carry. Anything else degrades to Hold.
const (
	ActionBuy  = "BUY"
	ActionSell = "SELL"
	ActionHold = "HOLD"
)

// Decision is the opaque input produced by an external collaborator. It is
// treated as untrusted: Parse never fails, it degrades to HOLD instead.
type Decision struct {
	Action     string `json:"action"`
	Symbol     string `json:"symbol"`
	Confidence int    `json:"confidence"`
	Reasoning  string `json:"reasoning,omitempty"`

	// Degraded notes why a malformed input was downgraded. Empty for clean input.
	Degraded string `json:"-"`
}

// Hold returns the safe no-op decision for a symbol.
func Hold(symbol, reason string) Decision {
	return Decision{Action: ActionHold, Symbol: symbol, Confidence: 0, Degraded: reason}
}

// IsHold reports whether the decision results in no trade.
func (d Decision) IsHold() bool { return d.Action == ActionHold }

// PositionContext describes the caller's open position, if any.
type PositionContext struct {
	Side          string  `json:"side"`
	EntryPrice    float64 `json:"entry_price"`
	Quantity      float64 `json:"quantity"`
	UnrealizedPnL float64 `json:"unrealized_pnl"`
}

// MarketContext is what a provider gets to decide on.
type MarketContext struct {
	Symbol     string                   `json:"symbol"`
	Interval   string                   `json:"interval"`
	Time       time.Time                `json:"time"`
	Price      float64                  `json:"price"`
	Equity     float64                  `json:"equity"`
	Indicators market.IndicatorSnapshot `json:"indicators"`
	Position   *PositionContext         `json:"position,omitempty"`
}
