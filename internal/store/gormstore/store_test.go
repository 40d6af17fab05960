package gormstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"papertrader/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleCommit(runID string, seq int64, at time.Time) store.CycleCommit {
	return store.CycleCommit{
		Cycle: store.CycleRecord{
			RunID:     runID,
			Seq:       seq,
			TriggerAt: at,
			Price:     25000,
			Equity:    10000,
			Time:      at,
		},
		Orders: []store.OrderRecord{{
			RunID:        runID,
			CycleSeq:     seq,
			Symbol:       "BTCUSDT",
			Action:       "BUY",
			Confidence:   90,
			Status:       "success",
			DecisionJSON: []byte(`{"action":"BUY"}`),
			Time:         at,
		}},
		Trades: []store.TradeRecord{{
			RunID:    runID,
			CycleSeq: seq,
			Symbol:   "BTCUSDT",
			Side:     "BUY",
			Price:    25000,
			Quantity: 0.1,
			Fee:      1,
			Time:     at,
		}},
		Account: store.AccountRecord{
			RunID: runID,
			Cash:  7499,
			Positions: []store.PositionRecord{
				{Symbol: "BTCUSDT", EntryPrice: 25000, Quantity: 0.1, OpenedAt: at},
			},
			LastCycleSeq: seq,
			UpdatedAt:    at,
		},
	}
}

func TestRunLifecycle(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	started := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	run := store.RunRecord{
		ID:             "run-1",
		Mode:           "backtest",
		Symbol:         "BTCUSDT",
		Interval:       "1h",
		InitialBalance: 10000,
		StartedAt:      started,
	}
	require.NoError(t, s.CreateRun(ctx, run))
	// idempotent on the same id
	require.NoError(t, s.CreateRun(ctx, run))

	got, ok, err := s.GetRun(ctx, "run-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "backtest", got.Mode)
	assert.True(t, got.FinishedAt.IsZero())

	finished := started.Add(time.Hour)
	require.NoError(t, s.FinishRun(ctx, "run-1", finished, []byte(`{"win_rate":100}`)))
	got, ok, err = s.GetRun(ctx, "run-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, finished.Unix(), got.FinishedAt.Unix())
	assert.JSONEq(t, `{"win_rate":100}`, string(got.SummaryJSON))

	runs, err := s.ListRuns(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, runs, 1)

	_, ok, err = s.GetRun(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSaveCycleAndLoadAccount(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	at := time.Date(2026, 3, 10, 13, 0, 0, 0, time.UTC)

	require.NoError(t, s.CreateRun(ctx, store.RunRecord{ID: "run-1", StartedAt: at}))
	require.NoError(t, s.SaveCycle(ctx, sampleCommit("run-1", 1, at)))
	require.NoError(t, s.SaveCycle(ctx, sampleCommit("run-1", 2, at.Add(time.Hour))))

	account, ok, err := s.LoadAccount(ctx, "run-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(2), account.LastCycleSeq)
	assert.InDelta(t, 7499.0, account.Cash, 1e-9)
	require.Len(t, account.Positions, 1)
	assert.Equal(t, "BTCUSDT", account.Positions[0].Symbol)

	trades, err := s.ListTrades(ctx, "run-1")
	require.NoError(t, err)
	assert.Len(t, trades, 2)

	orders, err := s.ListOrders(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, "success", orders[0].Status)
	assert.JSONEq(t, `{"action":"BUY"}`, string(orders[0].DecisionJSON))

	cycles, err := s.ListCycles(ctx, "run-1", 0)
	require.NoError(t, err)
	require.Len(t, cycles, 2)
	assert.Equal(t, int64(1), cycles[0].Seq)
	assert.Equal(t, int64(2), cycles[1].Seq)
}

func TestLastCycle(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	at := time.Date(2026, 3, 10, 13, 0, 0, 0, time.UTC)

	_, found, err := s.LastCycle(ctx, "run-1")
	require.NoError(t, err)
	assert.False(t, found)

	// more cycles than any list default could page through
	for seq := int64(1); seq <= 600; seq++ {
		commit := store.CycleCommit{
			Cycle: store.CycleRecord{
				RunID:     "run-1",
				Seq:       seq,
				TriggerAt: at.Add(time.Duration(seq) * time.Hour),
				Price:     25000 + float64(seq),
				Equity:    10000,
				Time:      at.Add(time.Duration(seq) * time.Hour),
			},
			Account: store.AccountRecord{RunID: "run-1", Cash: 10000, LastCycleSeq: seq},
		}
		require.NoError(t, s.SaveCycle(ctx, commit))
	}

	last, found, err := s.LastCycle(ctx, "run-1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, int64(600), last.Seq)
	assert.InDelta(t, 25600.0, last.Price, 1e-9)
}

func TestLoadAccountMissing(t *testing.T) {
	s := openTestStore(t)
	_, ok, err := s.LoadAccount(context.Background(), "nope")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDuplicateCycleSeqFails(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	at := time.Date(2026, 3, 10, 13, 0, 0, 0, time.UTC)

	require.NoError(t, s.SaveCycle(ctx, sampleCommit("run-1", 1, at)))
	err := s.SaveCycle(ctx, sampleCommit("run-1", 1, at))
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrPersistence)

	// the failed transaction must not have left partial rows behind
	trades, terr := s.ListTrades(ctx, "run-1")
	require.NoError(t, terr)
	assert.Len(t, trades, 1)
}
