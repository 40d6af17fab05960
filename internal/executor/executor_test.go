package executor

import (
	"testing"
	"time"

	"papertrader/internal/config"
	"papertrader/internal/decision"
	"papertrader/internal/portfolio"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

func testRisk() config.RiskConfig {
	return config.RiskConfig{
		SizingPolicy:  PolicyFixedNotional,
		NotionalUSD:   2500,
		MinConfidence: 50,
		MaxPositions:  2,
		FeeRate:       0.0004,
		StopLossPct:   0.05,
		TakeProfitPct: 0.10,
	}
}

func buyDecision(symbol string, confidence int) decision.Decision {
	return decision.Decision{Action: decision.ActionBuy, Symbol: symbol, Confidence: confidence}
}

func TestSizeOrder(t *testing.T) {
	t.Run("fixed pct", func(t *testing.T) {
		qty, err := SizeOrder(SizingConfig{Policy: PolicyFixedPct, EquityPct: 0.10}, dec(10000), dec(25000))
		require.NoError(t, err)
		assert.True(t, qty.Equal(dec(0.04)), "qty=%s", qty)
	})

	t.Run("fixed notional capped at equity", func(t *testing.T) {
		qty, err := SizeOrder(SizingConfig{Policy: PolicyFixedNotional, NotionalUSD: 50000}, dec(10000), dec(25000))
		require.NoError(t, err)
		assert.True(t, qty.Equal(dec(0.4)), "qty=%s", qty)
	})

	t.Run("risk based", func(t *testing.T) {
		// risk 1% of 10k = 100; stop distance 5% of 20000 = 1000; qty = 0.1
		cfg := SizingConfig{Policy: PolicyRiskBased, RiskPerTradePct: 0.01, StopLossPct: 0.05}
		qty, err := SizeOrder(cfg, dec(10000), dec(20000))
		require.NoError(t, err)
		assert.True(t, qty.Equal(dec(0.1)), "qty=%s", qty)
	})

	t.Run("pure function", func(t *testing.T) {
		cfg := SizingConfig{Policy: PolicyFixedPct, EquityPct: 0.10}
		first, err := SizeOrder(cfg, dec(10000), dec(25000))
		require.NoError(t, err)
		for i := 0; i < 5; i++ {
			again, err := SizeOrder(cfg, dec(10000), dec(25000))
			require.NoError(t, err)
			assert.True(t, first.Equal(again))
		}
	})

	t.Run("zero equity sizes away", func(t *testing.T) {
		qty, err := SizeOrder(SizingConfig{Policy: PolicyFixedPct, EquityPct: 0.10}, dec(0), dec(25000))
		require.NoError(t, err)
		assert.True(t, qty.IsZero())
	})

	t.Run("unknown policy errors", func(t *testing.T) {
		_, err := SizeOrder(SizingConfig{Policy: "martingale"}, dec(10000), dec(25000))
		assert.Error(t, err)
	})
}

func TestExecuteHold(t *testing.T) {
	e := New(testRisk())
	pf := portfolio.NewFromFloat(10000)
	res := e.Execute(decision.Hold("BTCUSDT", ""), pf, dec(25000), time.Now())
	assert.Equal(t, StatusSuccess, res.Status)
	assert.Nil(t, res.Trade)
	assert.Empty(t, pf.Trades())
}

func TestExecuteConfidenceGate(t *testing.T) {
	e := New(testRisk())
	pf := portfolio.NewFromFloat(10000)
	res := e.Execute(buyDecision("BTCUSDT", 30), pf, dec(25000), time.Now())
	assert.Equal(t, StatusSuccess, res.Status)
	assert.Nil(t, res.Trade)
	assert.Contains(t, res.Message, "downgraded to hold")
	assert.Equal(t, 0, pf.OpenPositions())
}

func TestExecuteBuy(t *testing.T) {
	t.Run("commits a sized order", func(t *testing.T) {
		e := New(testRisk())
		pf := portfolio.NewFromFloat(10000)
		res := e.Execute(buyDecision("BTCUSDT", 90), pf, dec(25000), time.Now())
		require.Equal(t, StatusSuccess, res.Status, res.Message)
		require.NotNil(t, res.Trade)
		assert.True(t, res.Trade.Quantity.Equal(dec(0.1)), "qty=%s", res.Trade.Quantity)
		assert.Equal(t, 1, pf.OpenPositions())
	})

	t.Run("insufficient funds rejects without state change", func(t *testing.T) {
		risk := testRisk()
		risk.FeeRate = 0.5 // fee alone exceeds remaining cash
		e := New(risk)
		pf := portfolio.NewFromFloat(2500)
		before := pf.Snapshot()
		res := e.Execute(buyDecision("BTCUSDT", 90), pf, dec(25000), time.Now())
		assert.Equal(t, StatusRejected, res.Status)
		after := pf.Snapshot()
		assert.True(t, before.Cash.Equal(after.Cash))
		assert.Empty(t, pf.Trades())
	})

	t.Run("max positions rejects new symbols", func(t *testing.T) {
		e := New(testRisk())
		pf := portfolio.NewFromFloat(100000)
		require.Equal(t, StatusSuccess, e.Execute(buyDecision("BTCUSDT", 90), pf, dec(25000), time.Now()).Status)
		require.Equal(t, StatusSuccess, e.Execute(buyDecision("ETHUSDT", 90), pf, dec(2000), time.Now()).Status)
		res := e.Execute(buyDecision("SOLUSDT", 90), pf, dec(100), time.Now())
		assert.Equal(t, StatusRejected, res.Status)
		assert.Equal(t, 2, pf.OpenPositions())
	})
}

func TestExecuteSell(t *testing.T) {
	t.Run("closes the full position", func(t *testing.T) {
		e := New(testRisk())
		pf := portfolio.NewFromFloat(10000)
		require.Equal(t, StatusSuccess, e.Execute(buyDecision("BTCUSDT", 90), pf, dec(25000), time.Now()).Status)

		sell := decision.Decision{Action: decision.ActionSell, Symbol: "BTCUSDT", Confidence: 90}
		res := e.Execute(sell, pf, dec(26000), time.Now())
		require.Equal(t, StatusSuccess, res.Status, res.Message)
		require.NotNil(t, res.Trade)
		assert.True(t, res.Trade.Closed)
		assert.Equal(t, 0, pf.OpenPositions())
	})

	t.Run("no position rejects", func(t *testing.T) {
		e := New(testRisk())
		pf := portfolio.NewFromFloat(10000)
		sell := decision.Decision{Action: decision.ActionSell, Symbol: "BTCUSDT", Confidence: 90}
		res := e.Execute(sell, pf, dec(26000), time.Now())
		assert.Equal(t, StatusRejected, res.Status)
	})
}

func TestExecuteNeverPanics(t *testing.T) {
	e := New(testRisk())
	e.SetLimits(config.RiskLimits{MinConfidence: 50, MaxPositions: 2, StopLossPct: -1, TakeProfitPct: 0.1})
	pf := portfolio.NewFromFloat(10000)
	res := e.Execute(buyDecision("BTCUSDT", 90), pf, dec(25000), time.Now())
	assert.Equal(t, StatusError, res.Status)
	assert.Empty(t, pf.Trades())
}

func TestSetLimitsHotReload(t *testing.T) {
	e := New(testRisk())
	pf := portfolio.NewFromFloat(10000)
	e.SetLimits(config.RiskLimits{MinConfidence: 95, MaxPositions: 2, StopLossPct: 0.05, TakeProfitPct: 0.1})
	res := e.Execute(buyDecision("BTCUSDT", 90), pf, dec(25000), time.Now())
	assert.Equal(t, StatusSuccess, res.Status)
	assert.Nil(t, res.Trade, "confidence below the reloaded threshold must not trade")
}
