package market

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func flatCandles(n int, close float64) []Candle {
	out := make([]Candle, n)
	for i := range out {
		open := int64(i) * 3600_000
		out[i] = Candle{OpenTime: open, CloseTime: open + 3599_999, Open: close, High: close, Low: close, Close: close, Volume: 1}
	}
	return out
}

func TestCloseSeries(t *testing.T) {
	candles := []Candle{{Close: 1}, {Close: 2}, {Close: 3}}
	assert.Equal(t, []float64{1, 2, 3}, Closes(candles))
	assert.Equal(t, 3.0, LastClose(candles))
	assert.Equal(t, 0.0, LastClose(nil))
}

func TestComputeIndicators(t *testing.T) {
	t.Run("short series yields bars only", func(t *testing.T) {
		snap := ComputeIndicators(flatCandles(10, 25000))
		assert.Equal(t, 10, snap.Bars)
		assert.Zero(t, snap.RSI14)
		assert.Zero(t, snap.EMA20)
	})

	t.Run("flat series converges on the price", func(t *testing.T) {
		snap := ComputeIndicators(flatCandles(120, 25000))
		assert.Equal(t, 120, snap.Bars)
		assert.InDelta(t, 25000, snap.EMA20, 1e-6)
		assert.InDelta(t, 25000, snap.EMA50, 1e-6)
		assert.InDelta(t, 0, snap.MACD, 1e-6)
	})
}

func writeCandleCSV(t *testing.T, dir, name string, rows int) {
	t.Helper()
	var b strings.Builder
	b.WriteString("open_time,close_time,open,high,low,close,volume,trades\n")
	for i := 0; i < rows; i++ {
		open := int64(i) * 3600_000
		price := 25000 + float64(i)*100
		fmt.Fprintf(&b, "%d,%d,%.1f,%.1f,%.1f,%.1f,10,5\n", open, open+3599_999, price, price, price, price)
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(b.String()), 0o644))
}

func TestCSVSource(t *testing.T) {
	dir := t.TempDir()
	writeCandleCSV(t, dir, "BTCUSDT_1h.csv", 5)

	src, err := NewCSVSource(dir)
	require.NoError(t, err)
	assert.Equal(t, "csv", src.Name())

	t.Run("full range", func(t *testing.T) {
		candles, err := src.Candles(context.Background(), "BTCUSDT", "1h", 0, 0, 0)
		require.NoError(t, err)
		require.Len(t, candles, 5)
		assert.Equal(t, 25000.0, candles[0].Close)
		assert.Equal(t, 25400.0, candles[4].Close)
	})

	t.Run("start and end filters", func(t *testing.T) {
		candles, err := src.Candles(context.Background(), "btcusdt", "1h", 3600_000, 2*3600_000, 0)
		require.NoError(t, err)
		require.Len(t, candles, 2)
		assert.Equal(t, int64(3600_000), candles[0].OpenTime)
	})

	t.Run("limit keeps newest bars", func(t *testing.T) {
		candles, err := src.Candles(context.Background(), "BTCUSDT", "1h", 0, 0, 2)
		require.NoError(t, err)
		require.Len(t, candles, 2)
		assert.Equal(t, 25400.0, candles[1].Close)
	})

	t.Run("missing symbol", func(t *testing.T) {
		_, err := src.Candles(context.Background(), "ETHUSDT", "1h", 0, 0, 0)
		assert.Error(t, err)
	})

	t.Run("no live price", func(t *testing.T) {
		_, err := src.LatestPrice(context.Background(), "BTCUSDT")
		assert.Error(t, err)
	})

	t.Run("missing directory", func(t *testing.T) {
		_, err := NewCSVSource(filepath.Join(dir, "nope"))
		assert.Error(t, err)
	})
}

func TestCachedSource(t *testing.T) {
	dir := t.TempDir()
	writeCandleCSV(t, dir, "BTCUSDT_1h.csv", 5)
	src, err := NewCSVSource(dir)
	require.NoError(t, err)

	cs, err := NewCandleStore(filepath.Join(t.TempDir(), "cache"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = cs.Close() })

	cached := NewCachedSource(src, cs)
	assert.Equal(t, "csv+cache", cached.Name())

	start, end := int64(3600_000), int64(4*3600_000)
	first, err := cached.Candles(context.Background(), "BTCUSDT", "1h", start, end, 0)
	require.NoError(t, err)
	require.Len(t, first, 4)

	// second bounded read is served from the sqlite cache
	again, err := cached.Candles(context.Background(), "BTCUSDT", "1h", start, end, 0)
	require.NoError(t, err)
	assert.Equal(t, first, again)

	rows, err := cs.Range(context.Background(), "BTCUSDT", "1h", start, end)
	require.NoError(t, err)
	assert.Len(t, rows, 4)
}

func TestCachedSourcePartialWarmupRefetches(t *testing.T) {
	dir := t.TempDir()
	writeCandleCSV(t, dir, "BTCUSDT_1h.csv", 10)
	src, err := NewCSVSource(dir)
	require.NoError(t, err)

	cs, err := NewCandleStore(filepath.Join(t.TempDir(), "cache"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = cs.Close() })

	// warm only the middle of the range; a later full-range read must not be
	// served from this subset
	partial, err := src.Candles(context.Background(), "BTCUSDT", "1h", 3*3600_000, 5*3600_000, 0)
	require.NoError(t, err)
	require.Len(t, partial, 3)
	_, err = cs.Insert(context.Background(), "BTCUSDT", "1h", partial)
	require.NoError(t, err)

	cached := NewCachedSource(src, cs)
	full, err := cached.Candles(context.Background(), "BTCUSDT", "1h", 3600_000, 9*3600_000, 0)
	require.NoError(t, err)
	assert.Len(t, full, 9)

	// the refetch backfilled the cache, so the same range now serves from it
	again, err := cached.Candles(context.Background(), "BTCUSDT", "1h", 3600_000, 9*3600_000, 0)
	require.NoError(t, err)
	assert.Equal(t, full, again)
}

func TestCoversRange(t *testing.T) {
	bars := func(opens ...int64) []Candle {
		out := make([]Candle, len(opens))
		for i, o := range opens {
			out[i] = Candle{OpenTime: o}
		}
		return out
	}

	t.Run("contiguous full range", func(t *testing.T) {
		assert.True(t, coversRange(bars(10, 20, 30, 40), 10, 40))
	})
	t.Run("missing head", func(t *testing.T) {
		assert.False(t, coversRange(bars(30, 40), 10, 40))
	})
	t.Run("missing tail", func(t *testing.T) {
		assert.False(t, coversRange(bars(10, 20), 10, 40))
	})
	t.Run("interior gap", func(t *testing.T) {
		assert.False(t, coversRange(bars(10, 20, 40), 10, 40))
	})
	t.Run("single bar proves nothing", func(t *testing.T) {
		assert.False(t, coversRange(bars(10), 10, 10))
	})
	t.Run("empty", func(t *testing.T) {
		assert.False(t, coversRange(nil, 10, 40))
	})
}
