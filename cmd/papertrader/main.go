package main

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"papertrader/internal/app"
	ptcfg "papertrader/internal/config"
	"papertrader/internal/logger"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	flagConfig      string
	flagMode        string
	flagSymbol      string
	flagInterval    string
	flagAlignClock  bool
	flagLogTriggers bool
	flagDuration    time.Duration
	flagResume      bool
)

// durationAccelerator compresses the trigger cadence for bounded test runs:
// a --duration run fires cycles this many times faster than the configured
// interval, unless the config pins its own accelerator.
const durationAccelerator = 4

func main() {
	_ = godotenv.Load()

	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "papertrader",
		Short:        "paper trading simulator with a precision decision-trigger scheduler",
		SilenceUsage: true,
		RunE:         runRoot,
	}
	root.Flags().StringVarP(&flagConfig, "config", "c", "", "config file path (default $PAPERTRADER_CONFIG or configs/config.yaml)")
	root.Flags().StringVar(&flagMode, "mode", "", "override run mode: live|backtest")
	root.Flags().StringVar(&flagSymbol, "symbol", "", "override traded symbol")
	root.Flags().StringVar(&flagInterval, "interval", "", "override decision interval, e.g. 15m")
	root.Flags().BoolVar(&flagAlignClock, "align-clock", false, "align triggers to clock boundaries")
	root.Flags().BoolVar(&flagLogTriggers, "log-triggers", false, "write every trigger to the trigger log")
	root.Flags().DurationVar(&flagDuration, "duration", 0, "run in accelerated test mode and stop after this long (0 = run until interrupted)")
	root.Flags().BoolVar(&flagResume, "resume", false, "resume the configured run from its last committed cycle")
	return root
}

func runRoot(cmd *cobra.Command, _ []string) error {
	cfgPath := flagConfig
	if cfgPath == "" && os.Getenv(ptcfg.EnvConfigPath) == "" {
		if _, err := os.Stat("configs/config.yaml"); err == nil {
			cfgPath = "configs/config.yaml"
		}
	}
	cfg, err := ptcfg.Load(cfgPath)
	if err != nil {
		return err
	}
	applyOverrides(cmd, cfg)

	logFile, err := setupLogOutput(cfg.App.LogPath)
	if err != nil {
		return err
	}
	if logFile != nil {
		defer logFile.Close()
	}
	logger.SetLevel(cfg.App.LogLevel)
	if flagLogTriggers {
		f, err := setupTriggerLogOutput(cfg.App.TriggerLogPath)
		if err != nil {
			return err
		}
		if f != nil {
			defer f.Close()
		}
		logger.EnableTriggerLog(true)
	}
	logger.Infof("config loaded: env=%s mode=%s symbols=%v interval=%s",
		cfg.App.Env, cfg.Sim.Mode, cfg.Market.Symbols, cfg.Scheduler.Interval)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if flagDuration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, flagDuration)
		defer cancel()
	}

	a, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	return a.Run(ctx)
}

func applyOverrides(cmd *cobra.Command, cfg *ptcfg.Config) {
	if flagMode != "" {
		cfg.Sim.Mode = flagMode
	}
	if flagSymbol != "" {
		cfg.Market.Symbols = []string{strings.ToUpper(flagSymbol)}
	}
	if flagInterval != "" {
		cfg.Scheduler.Interval = flagInterval
	}
	if cmd.Flags().Changed("align-clock") {
		cfg.Scheduler.AlignClock = flagAlignClock
	}
	if cmd.Flags().Changed("resume") {
		cfg.Sim.Resume = flagResume
	}
	if flagDuration > 0 && cfg.Scheduler.Accelerator <= 1 {
		cfg.Scheduler.Accelerator = durationAccelerator
	}
}

func setupLogOutput(path string) (*os.File, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, nil
	}
	dir := filepath.Dir(trimmed)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	file, err := os.OpenFile(trimmed, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	mw := io.MultiWriter(os.Stdout, file)
	log.SetOutput(mw)
	logger.SetOutput(mw)
	return file, nil
}

func setupTriggerLogOutput(path string) (*os.File, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, nil
	}
	if err := os.MkdirAll(filepath.Dir(trimmed), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(trimmed, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	logger.SetTriggerWriter(f)
	return f, nil
}
