package market

// Candle is one OHLCV bar. Times are milliseconds since epoch.
type Candle struct {
	OpenTime  int64   `json:"open_time" csv:"open_time"`
	CloseTime int64   `json:"close_time" csv:"close_time"`
	Open      float64 `json:"open" csv:"open"`
	High      float64 `json:"high" csv:"high"`
	Low       float64 `json:"low" csv:"low"`
	Close     float64 `json:"close" csv:"close"`
	Volume    float64 `json:"volume" csv:"volume"`
	Trades    int64   `json:"trades" csv:"trades"`
}

// Closes extracts the close series, oldest first.
func Closes(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}

// LastClose returns the close of the newest bar, or 0 for an empty series.
func LastClose(candles []Candle) float64 {
	if len(candles) == 0 {
		return 0
	}
	return candles[len(candles)-1].Close
}
