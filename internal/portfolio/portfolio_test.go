package portfolio

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

func ts(minute int) time.Time {
	return time.Date(2026, 3, 10, 13, minute, 0, 0, time.UTC)
}

func TestBuy(t *testing.T) {
	t.Run("commits when cash covers cost plus fee", func(t *testing.T) {
		p := NewFromFloat(10000)
		trade, err := p.Buy("BTCUSDT", dec(0.1), dec(25000), dec(1), ts(0))
		require.NoError(t, err)
		assert.Equal(t, "BUY", trade.Side)
		assert.True(t, p.Cash().Equal(dec(10000-2500-1)), "cash=%s", p.Cash())
		pos, held := p.Position("BTCUSDT")
		require.True(t, held)
		assert.True(t, pos.Quantity.Equal(dec(0.1)))
	})

	t.Run("insufficient funds leaves state unchanged", func(t *testing.T) {
		p := NewFromFloat(100)
		before := p.Snapshot()
		_, err := p.Buy("BTCUSDT", dec(1), dec(25000), dec(10), ts(0))
		assert.ErrorIs(t, err, ErrInsufficientFunds)
		after := p.Snapshot()
		assert.True(t, before.Cash.Equal(after.Cash))
		assert.Empty(t, after.Positions)
		assert.Empty(t, p.Trades())
	})

	t.Run("cash never goes negative", func(t *testing.T) {
		p := NewFromFloat(2501)
		_, err := p.Buy("BTCUSDT", dec(0.1), dec(25000), dec(1), ts(0))
		require.NoError(t, err)
		assert.False(t, p.Cash().IsNegative())
	})

	t.Run("adds use volume-weighted entry", func(t *testing.T) {
		p := NewFromFloat(100000)
		_, err := p.Buy("BTCUSDT", dec(1), dec(20000), dec(0), ts(0))
		require.NoError(t, err)
		_, err = p.Buy("BTCUSDT", dec(1), dec(30000), dec(0), ts(1))
		require.NoError(t, err)
		pos, _ := p.Position("BTCUSDT")
		assert.True(t, pos.EntryPrice.Equal(dec(25000)), "entry=%s", pos.EntryPrice)
		assert.True(t, pos.Quantity.Equal(dec(2)))
	})
}

func TestSell(t *testing.T) {
	t.Run("realizes pnl against entry", func(t *testing.T) {
		p := NewFromFloat(10000)
		_, err := p.Buy("BTCUSDT", dec(0.1), dec(25000), dec(1), ts(0))
		require.NoError(t, err)
		trade, err := p.Sell("BTCUSDT", dec(0.1), dec(26000), dec(1.04), ts(1))
		require.NoError(t, err)
		assert.True(t, trade.Closed)
		// (26000-25000)*0.1 - 1.04
		assert.True(t, trade.RealizedPnL.Equal(dec(98.96)), "pnl=%s", trade.RealizedPnL)
		assert.Equal(t, 0, p.OpenPositions())
		assert.True(t, p.Cash().Equal(dec(10000-2500-1+2600-1.04)), "cash=%s", p.Cash())
	})

	t.Run("selling without a position is rejected", func(t *testing.T) {
		p := NewFromFloat(10000)
		_, err := p.Sell("BTCUSDT", dec(0.1), dec(26000), dec(1), ts(0))
		assert.ErrorIs(t, err, ErrNoPosition)
		assert.Empty(t, p.Trades())
	})

	t.Run("selling more than held is rejected", func(t *testing.T) {
		p := NewFromFloat(10000)
		_, err := p.Buy("BTCUSDT", dec(0.1), dec(25000), dec(0), ts(0))
		require.NoError(t, err)
		_, err = p.Sell("BTCUSDT", dec(0.2), dec(26000), dec(0), ts(1))
		assert.ErrorIs(t, err, ErrNoPosition)
		pos, held := p.Position("BTCUSDT")
		require.True(t, held)
		assert.True(t, pos.Quantity.Equal(dec(0.1)))
	})
}

func TestTotalEquity(t *testing.T) {
	p := NewFromFloat(10000)
	_, err := p.Buy("BTCUSDT", dec(0.1), dec(25000), dec(0), ts(0))
	require.NoError(t, err)

	// equity = cash + qty * last price
	p.MarkToMarket("BTCUSDT", dec(26000), ts(1))
	assert.True(t, p.TotalEquity().Equal(dec(7500+0.1*26000)), "equity=%s", p.TotalEquity())

	p.MarkToMarket("BTCUSDT", dec(24000), ts(2))
	assert.True(t, p.TotalEquity().Equal(dec(7500+0.1*24000)))
}

func TestEquityHistory(t *testing.T) {
	t.Run("strictly increasing timestamps", func(t *testing.T) {
		p := NewFromFloat(10000)
		p.MarkToMarket("BTCUSDT", dec(25000), ts(0))
		p.MarkToMarket("BTCUSDT", dec(25100), ts(1))
		p.MarkToMarket("BTCUSDT", dec(25200), ts(2))
		hist := p.EquityHistory()
		require.Len(t, hist, 3)
		for i := 1; i < len(hist); i++ {
			assert.True(t, hist[i].Time.After(hist[i-1].Time))
		}
	})

	t.Run("same timestamp replaces the last sample", func(t *testing.T) {
		p := NewFromFloat(10000)
		p.MarkToMarket("BTCUSDT", dec(25000), ts(0))
		p.MarkToMarket("BTCUSDT", dec(26000), ts(0))
		hist := p.EquityHistory()
		require.Len(t, hist, 1)
	})
}

func TestRestore(t *testing.T) {
	p := NewFromFloat(10000)
	positions := []Position{{Symbol: "BTCUSDT", EntryPrice: dec(25000), Quantity: dec(0.1), OpenedAt: ts(0)}}
	trades := []Trade{{Symbol: "BTCUSDT", Side: "BUY", Price: dec(25000), Quantity: dec(0.1), Time: ts(0)}}
	p.Restore(dec(7499), positions, trades)

	assert.True(t, p.Cash().Equal(dec(7499)))
	pos, held := p.Position("BTCUSDT")
	require.True(t, held)
	assert.True(t, pos.Quantity.Equal(dec(0.1)))
	assert.Len(t, p.Trades(), 1)
}
