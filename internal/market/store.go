package market

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "modernc.org/sqlite"
)

// CandleStore caches bars in a local sqlite file so repeated backtests do not
// refetch the same ranges. Duplicate open_time rows are overwritten.
type CandleStore struct {
	mu   sync.Mutex
	db   *sql.DB
	path string
}

func NewCandleStore(root string) (*CandleStore, error) {
	if root == "" {
		return nil, fmt.Errorf("candle store root cannot be empty")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	path := filepath.Join(root, "candles.db")
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if err := ensureCandleSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &CandleStore{db: db, path: path}, nil
}

func ensureCandleSchema(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS candles (
		symbol TEXT NOT NULL,
		timeframe TEXT NOT NULL,
		open_time INTEGER NOT NULL,
		close_time INTEGER NOT NULL,
		open REAL NOT NULL,
		high REAL NOT NULL,
		low REAL NOT NULL,
		close REAL NOT NULL,
		volume REAL NOT NULL,
		trades INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (symbol, timeframe, open_time)
	);`)
	return err
}

func (s *CandleStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// Insert upserts a batch of candles inside one transaction.
func (s *CandleStore) Insert(ctx context.Context, symbol, timeframe string, candles []Candle) (int, error) {
	if len(candles) == 0 {
		return 0, nil
	}
	symbol = strings.ToUpper(symbol)
	timeframe = strings.ToLower(timeframe)
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO candles (symbol, timeframe, open_time, close_time, open, high, low, close, volume, trades)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(symbol, timeframe, open_time) DO UPDATE SET
		    close_time=excluded.close_time,
		    open=excluded.open,
		    high=excluded.high,
		    low=excluded.low,
		    close=excluded.close,
		    volume=excluded.volume,
		    trades=excluded.trades`)
	if err != nil {
		_ = tx.Rollback()
		return 0, err
	}
	defer stmt.Close()
	count := 0
	for _, c := range candles {
		if _, err := stmt.ExecContext(ctx, symbol, timeframe, c.OpenTime, c.CloseTime, c.Open, c.High, c.Low, c.Close, c.Volume, c.Trades); err != nil {
			_ = tx.Rollback()
			return 0, err
		}
		count++
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return count, nil
}

// Range returns cached candles with open_time in [start, end], ordered.
func (s *CandleStore) Range(ctx context.Context, symbol, timeframe string, start, end int64) ([]Candle, error) {
	symbol = strings.ToUpper(symbol)
	timeframe = strings.ToLower(timeframe)
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.db.QueryContext(ctx, `
		SELECT open_time, close_time, open, high, low, close, volume, trades
		FROM candles WHERE symbol = ? AND timeframe = ? AND open_time BETWEEN ? AND ?
		ORDER BY open_time`, symbol, timeframe, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Candle
	for rows.Next() {
		var c Candle
		if err := rows.Scan(&c.OpenTime, &c.CloseTime, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume, &c.Trades); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// CachedSource serves candles from the store when the range is already there
// and falls through to the remote source otherwise, backfilling the cache.
type CachedSource struct {
	inner Source
	store *CandleStore
}

func NewCachedSource(inner Source, store *CandleStore) *CachedSource {
	return &CachedSource{inner: inner, store: store}
}

func (s *CachedSource) Name() string { return s.inner.Name() + "+cache" }

func (s *CachedSource) Candles(ctx context.Context, symbol, interval string, start, end int64, limit int) ([]Candle, error) {
	if s.store != nil && start > 0 && end > 0 {
		cached, err := s.store.Range(ctx, symbol, interval, start, end)
		if err == nil && coversRange(cached, start, end) {
			if limit > 0 && len(cached) > limit {
				cached = cached[len(cached)-limit:]
			}
			return cached, nil
		}
	}
	fresh, err := s.inner.Candles(ctx, symbol, interval, start, end, limit)
	if err != nil {
		return nil, err
	}
	if s.store != nil && len(fresh) > 0 {
		if _, err := s.store.Insert(ctx, symbol, interval, fresh); err != nil {
			// cache write failure is not a data failure
			return fresh, nil
		}
	}
	return fresh, nil
}

func (s *CachedSource) LatestPrice(ctx context.Context, symbol string) (float64, error) {
	return s.inner.LatestPrice(ctx, symbol)
}

// coversRange reports whether cached bars fill [start, end] with no interior
// gap. A partially warmed cache must not masquerade as the full range; the
// caller refetches from the inner source instead. Bar spacing is taken from
// the rows themselves, so a single row can never prove coverage.
func coversRange(cached []Candle, start, end int64) bool {
	if len(cached) < 2 {
		return false
	}
	step := cached[1].OpenTime - cached[0].OpenTime
	if step <= 0 {
		return false
	}
	first, last := cached[0].OpenTime, cached[len(cached)-1].OpenTime
	if first >= start+step || last <= end-step {
		return false
	}
	return int64(len(cached)) == (last-first)/step+1
}
