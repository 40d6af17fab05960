// Package portfolio owns cash, open positions and the equity history of one
// simulated account. It is the single source of truth for money movement:
// nothing else mutates cash or positions. Not safe for concurrent use; each
// account is driven by exactly one simulation loop.
package portfolio

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trade is one executed paper trade, immutable once recorded.
type Trade struct {
	Time        time.Time       `json:"time"`
	Symbol      string          `json:"symbol"`
	Side        string          `json:"side"` // BUY | SELL
	Price       decimal.Decimal `json:"price"`
	Quantity    decimal.Decimal `json:"quantity"`
	Fee         decimal.Decimal `json:"fee"`
	CashAfter   decimal.Decimal `json:"cash_after"`
	RealizedPnL decimal.Decimal `json:"realized_pnl"`
	Closed      bool            `json:"closed"` // true when this trade realized P&L
}

// Position is an open long position. One per symbol, non-hedging.
type Position struct {
	Symbol     string          `json:"symbol"`
	EntryPrice decimal.Decimal `json:"entry_price"`
	Quantity   decimal.Decimal `json:"quantity"`
	OpenedAt   time.Time       `json:"opened_at"`
}

// EquityPoint is one mark-to-market sample of total equity.
type EquityPoint struct {
	Time   time.Time       `json:"time"`
	Equity decimal.Decimal `json:"equity"`
}

// Snapshot is a read-only view of the account.
type Snapshot struct {
	Cash        decimal.Decimal `json:"cash"`
	Positions   []Position      `json:"positions"`
	TotalEquity decimal.Decimal `json:"total_equity"`
}

type Portfolio struct {
	initial    decimal.Decimal
	cash       decimal.Decimal
	positions  map[string]*Position
	lastPrices map[string]decimal.Decimal
	trades     []Trade
	equity     []EquityPoint
}

func New(initialBalance decimal.Decimal) *Portfolio {
	return &Portfolio{
		initial:    initialBalance,
		cash:       initialBalance,
		positions:  make(map[string]*Position),
		lastPrices: make(map[string]decimal.Decimal),
	}
}

// NewFromFloat is a convenience constructor for config-sourced balances.
func NewFromFloat(initialBalance float64) *Portfolio {
	return New(decimal.NewFromFloat(initialBalance))
}

func (p *Portfolio) InitialBalance() decimal.Decimal { return p.initial }
func (p *Portfolio) Cash() decimal.Decimal           { return p.cash }

// Buy opens or adds to the position in symbol. The order commits only if
// cost+fee fits into cash; otherwise ErrInsufficientFunds and no state change.
func (p *Portfolio) Buy(symbol string, qty, price, fee decimal.Decimal, ts time.Time) (Trade, error) {
	cost := qty.Mul(price)
	total := cost.Add(fee)
	if total.GreaterThan(p.cash) {
		return Trade{}, ErrInsufficientFunds
	}
	p.cash = p.cash.Sub(total)
	pos, ok := p.positions[symbol]
	if !ok {
		p.positions[symbol] = &Position{
			Symbol:     symbol,
			EntryPrice: price,
			Quantity:   qty,
			OpenedAt:   ts,
		}
	} else {
		// volume-weighted entry on adds
		oldNotional := pos.EntryPrice.Mul(pos.Quantity)
		newQty := pos.Quantity.Add(qty)
		pos.EntryPrice = oldNotional.Add(cost).Div(newQty)
		pos.Quantity = newQty
	}
	p.lastPrices[symbol] = price
	trade := Trade{
		Time:      ts,
		Symbol:    symbol,
		Side:      "BUY",
		Price:     price,
		Quantity:  qty,
		Fee:       fee,
		CashAfter: p.cash,
	}
	p.trades = append(p.trades, trade)
	return trade, nil
}

// Sell reduces or closes the position in symbol, crediting proceeds minus fee
// and realizing P&L against the volume-weighted entry price. Selling without a
// position, or more than is held, returns ErrNoPosition and changes nothing.
func (p *Portfolio) Sell(symbol string, qty, price, fee decimal.Decimal, ts time.Time) (Trade, error) {
	pos, ok := p.positions[symbol]
	if !ok || qty.GreaterThan(pos.Quantity) {
		return Trade{}, ErrNoPosition
	}
	proceeds := qty.Mul(price).Sub(fee)
	realized := price.Sub(pos.EntryPrice).Mul(qty).Sub(fee)
	p.cash = p.cash.Add(proceeds)
	pos.Quantity = pos.Quantity.Sub(qty)
	if pos.Quantity.IsZero() {
		delete(p.positions, symbol)
	}
	p.lastPrices[symbol] = price
	trade := Trade{
		Time:        ts,
		Symbol:      symbol,
		Side:        "SELL",
		Price:       price,
		Quantity:    qty,
		Fee:         fee,
		CashAfter:   p.cash,
		RealizedPnL: realized,
		Closed:      true,
	}
	p.trades = append(p.trades, trade)
	return trade, nil
}

// MarkToMarket revalues symbol at price and appends an equity sample. Cash and
// quantities are untouched. A sample at or before the previous timestamp
// replaces the previous sample so the history stays strictly increasing.
func (p *Portfolio) MarkToMarket(symbol string, price decimal.Decimal, ts time.Time) {
	if price.IsPositive() {
		p.lastPrices[symbol] = price
	}
	point := EquityPoint{Time: ts, Equity: p.TotalEquity()}
	if n := len(p.equity); n > 0 && !ts.After(p.equity[n-1].Time) {
		p.equity[n-1] = point
		return
	}
	p.equity = append(p.equity, point)
}

// TotalEquity is cash plus every position marked at its last seen price.
func (p *Portfolio) TotalEquity() decimal.Decimal {
	total := p.cash
	for symbol, pos := range p.positions {
		price, ok := p.lastPrices[symbol]
		if !ok {
			price = pos.EntryPrice
		}
		total = total.Add(pos.Quantity.Mul(price))
	}
	return total
}

// Snapshot returns a read-only copy of the account state.
func (p *Portfolio) Snapshot() Snapshot {
	positions := make([]Position, 0, len(p.positions))
	for _, pos := range p.positions {
		positions = append(positions, *pos)
	}
	return Snapshot{
		Cash:        p.cash,
		Positions:   positions,
		TotalEquity: p.TotalEquity(),
	}
}

// Position returns the open position for symbol, if any.
func (p *Portfolio) Position(symbol string) (Position, bool) {
	pos, ok := p.positions[symbol]
	if !ok {
		return Position{}, false
	}
	return *pos, true
}

// OpenPositions reports how many positions are currently held.
func (p *Portfolio) OpenPositions() int { return len(p.positions) }

// Trades returns the insertion-ordered trade history.
func (p *Portfolio) Trades() []Trade {
	return append([]Trade(nil), p.trades...)
}

// EquityHistory returns the ordered equity samples.
func (p *Portfolio) EquityHistory() []EquityPoint {
	return append([]EquityPoint(nil), p.equity...)
}

// LastPrice reports the last mark price seen for symbol.
func (p *Portfolio) LastPrice(symbol string) (decimal.Decimal, bool) {
	price, ok := p.lastPrices[symbol]
	return price, ok
}

// Restore rebuilds in-memory state from persisted cash/positions/trades.
// Used on resume; the caller is responsible for passing the committed state.
func (p *Portfolio) Restore(cash decimal.Decimal, positions []Position, trades []Trade) {
	p.cash = cash
	p.positions = make(map[string]*Position, len(positions))
	for i := range positions {
		pos := positions[i]
		p.positions[pos.Symbol] = &pos
	}
	p.trades = append([]Trade(nil), trades...)
}
