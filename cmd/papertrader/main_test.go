package main

import (
	"testing"
	"time"

	ptcfg "papertrader/internal/config"
	"papertrader/internal/scheduler"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetFlags(t *testing.T) *cobra.Command {
	t.Helper()
	flagConfig, flagMode, flagSymbol, flagInterval = "", "", "", ""
	flagAlignClock, flagLogTriggers, flagResume = false, false, false
	flagDuration = 0
	return newRootCommand()
}

func TestApplyOverrides(t *testing.T) {
	t.Run("duration engages the accelerator", func(t *testing.T) {
		cmd := resetFlags(t)
		require.NoError(t, cmd.Flags().Set("duration", "30s"))
		cfg := ptcfg.Default()
		applyOverrides(cmd, cfg)
		assert.Equal(t, durationAccelerator, cfg.Scheduler.Accelerator)
		assert.Equal(t, 30*time.Second, flagDuration)
	})

	t.Run("configured accelerator wins over the default", func(t *testing.T) {
		cmd := resetFlags(t)
		require.NoError(t, cmd.Flags().Set("duration", "30s"))
		cfg := ptcfg.Default()
		cfg.Scheduler.Accelerator = 8
		applyOverrides(cmd, cfg)
		assert.Equal(t, 8, cfg.Scheduler.Accelerator)
	})

	t.Run("no duration keeps the real cadence", func(t *testing.T) {
		cmd := resetFlags(t)
		cfg := ptcfg.Default()
		applyOverrides(cmd, cfg)
		assert.LessOrEqual(t, cfg.Scheduler.Accelerator, 1)
	})

	t.Run("mode, symbol and interval overrides", func(t *testing.T) {
		cmd := resetFlags(t)
		require.NoError(t, cmd.Flags().Set("mode", "backtest"))
		require.NoError(t, cmd.Flags().Set("symbol", "ethusdt"))
		require.NoError(t, cmd.Flags().Set("interval", "4h"))
		cfg := ptcfg.Default()
		applyOverrides(cmd, cfg)
		assert.Equal(t, "backtest", cfg.Sim.Mode)
		assert.Equal(t, []string{"ETHUSDT"}, cfg.Market.Symbols)
		assert.Equal(t, "4h", cfg.Scheduler.Interval)
	})
}

func TestDurationCompressesCadence(t *testing.T) {
	cmd := resetFlags(t)
	require.NoError(t, cmd.Flags().Set("duration", "1m"))
	cfg := ptcfg.Default()
	cfg.Scheduler.Interval = "1h"
	applyOverrides(cmd, cfg)

	sched, err := scheduler.New(scheduler.Config{
		Interval:    cfg.Scheduler.Interval,
		AlignClock:  cfg.Scheduler.AlignClock,
		Accelerator: cfg.Scheduler.Accelerator,
	})
	require.NoError(t, err)

	ref := time.Date(2026, 3, 10, 13, 0, 0, 0, time.UTC)
	// 1h cadence divided by the accelerator fires every 15m
	assert.Equal(t, ref.Add(15*time.Minute), sched.NextAfter(ref))
}
