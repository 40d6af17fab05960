package market

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/gocarina/gocsv"
)

// CSVSource reads bars from <dir>/<SYMBOL>_<interval>.csv. Files are loaded
// once and kept in memory; backtest datasets are small enough for that.
type CSVSource struct {
	dir string

	mu    sync.Mutex
	cache map[string][]Candle
}

func NewCSVSource(dir string) (*CSVSource, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("csv source dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("csv source path %s is not a directory", dir)
	}
	return &CSVSource{dir: dir, cache: make(map[string][]Candle)}, nil
}

func (s *CSVSource) Name() string { return "csv" }

func (s *CSVSource) Candles(_ context.Context, symbol, interval string, start, end int64, limit int) ([]Candle, error) {
	all, err := s.load(symbol, interval)
	if err != nil {
		return nil, err
	}
	out := make([]Candle, 0, len(all))
	for _, c := range all {
		if start > 0 && c.OpenTime < start {
			continue
		}
		if end > 0 && c.OpenTime > end {
			continue
		}
		out = append(out, c)
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (s *CSVSource) LatestPrice(_ context.Context, symbol string) (float64, error) {
	// CSV files carry no live quote; callers in backtest mode use bar closes.
	return 0, fmt.Errorf("csv source has no live price for %s", symbol)
}

func (s *CSVSource) load(symbol, interval string) ([]Candle, error) {
	key := strings.ToUpper(symbol) + "_" + strings.ToLower(interval)
	s.mu.Lock()
	defer s.mu.Unlock()
	if candles, ok := s.cache[key]; ok {
		return candles, nil
	}
	path := filepath.Join(s.dir, key+".csv")
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open candle file: %w", err)
	}
	defer f.Close()
	var candles []Candle
	if err := gocsv.UnmarshalFile(f, &candles); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	sort.Slice(candles, func(i, j int) bool { return candles[i].OpenTime < candles[j].OpenTime })
	s.cache[key] = candles
	return candles, nil
}
