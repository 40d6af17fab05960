package market

import (
	"github.com/markcheno/go-talib"
)

// IndicatorSnapshot carries the latest values of a few common indicators.
// It is handed to the decision provider as part of the market context; the
// provider is free to ignore it.
type IndicatorSnapshot struct {
	RSI14      float64 `json:"rsi_14,omitempty"`
	EMA20      float64 `json:"ema_20,omitempty"`
	EMA50      float64 `json:"ema_50,omitempty"`
	MACD       float64 `json:"macd,omitempty"`
	MACDSignal float64 `json:"macd_signal,omitempty"`
	Bars       int     `json:"bars"`
}

const minIndicatorBars = 60

// ComputeIndicators returns the latest indicator values for a close series.
// Short series yield a snapshot with only Bars set; never an error.
func ComputeIndicators(candles []Candle) IndicatorSnapshot {
	snap := IndicatorSnapshot{Bars: len(candles)}
	if len(candles) < minIndicatorBars {
		return snap
	}
	closes := Closes(candles)
	rsi := talib.Rsi(closes, 14)
	ema20 := talib.Ema(closes, 20)
	ema50 := talib.Ema(closes, 50)
	macd, signal, _ := talib.Macd(closes, 12, 26, 9)
	last := len(closes) - 1
	snap.RSI14 = rsi[last]
	snap.EMA20 = ema20[last]
	snap.EMA50 = ema50[last]
	snap.MACD = macd[last]
	snap.MACDSignal = signal[last]
	return snap
}
