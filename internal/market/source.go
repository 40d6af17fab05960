package market

import "context"

// Source supplies OHLCV bars and the latest traded price for a symbol.
// start/end are millisecond timestamps; zero means unbounded on that side.
type Source interface {
	Name() string
	Candles(ctx context.Context, symbol, interval string, start, end int64, limit int) ([]Candle, error)
	LatestPrice(ctx context.Context, symbol string) (float64, error)
}
