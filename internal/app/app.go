// Package app assembles the configured components into a runnable service:
// market source, decision provider, executor, per-symbol simulation loops and
// the HTTP status surface.
package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"papertrader/internal/config"
	"papertrader/internal/decision"
	"papertrader/internal/events"
	"papertrader/internal/executor"
	"papertrader/internal/logger"
	"papertrader/internal/market"
	"papertrader/internal/perf"
	"papertrader/internal/portfolio"
	"papertrader/internal/report"
	"papertrader/internal/scheduler"
	"papertrader/internal/sim"
	"papertrader/internal/store"
	"papertrader/internal/store/gormstore"
	transporthttp "papertrader/internal/transport/http"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

type App struct {
	cfg *config.Config

	source      market.Source
	candleStore *market.CandleStore
	provider    decision.Provider
	exec        *executor.Executor
	limits      *config.LimitsWatcher
	store       store.Store
	publisher   events.Publisher
	reporter    *report.Reporter
	loops       []*sim.Loop
	runIDs      []string
	httpServer  *transporthttp.Server
}

// New wires the application. Every error out of here is a configuration or
// startup failure and should abort the process.
func New(cfg *config.Config) (*App, error) {
	a := &App{cfg: cfg}

	if err := a.buildSource(); err != nil {
		return nil, err
	}
	if err := a.buildProvider(); err != nil {
		return nil, err
	}
	if err := a.buildExecutor(); err != nil {
		return nil, err
	}
	if err := a.buildStore(); err != nil {
		return nil, err
	}
	if err := a.buildEvents(); err != nil {
		return nil, err
	}
	a.reporter = report.New(cfg.Report.Dir, cfg.Report.Chart)
	if err := a.buildLoops(); err != nil {
		return nil, err
	}

	var account transporthttp.AccountReader
	if len(a.loops) > 0 {
		account = a.loops[0].Portfolio()
	}
	a.httpServer = transporthttp.NewServer(cfg.App.HTTPAddr, a.store, account)
	return a, nil
}

func (a *App) buildSource() error {
	var base market.Source
	switch strings.ToLower(a.cfg.Market.Source) {
	case "csv":
		src, err := market.NewCSVSource(a.cfg.Market.CSVDir)
		if err != nil {
			return fmt.Errorf("csv source: %w", err)
		}
		base = src
	default:
		base = market.NewBinanceSource(a.cfg.Market.RESTBaseURL)
	}
	if a.cfg.Market.CacheDir != "" {
		cs, err := market.NewCandleStore(a.cfg.Market.CacheDir)
		if err != nil {
			return fmt.Errorf("candle cache: %w", err)
		}
		a.candleStore = cs
		base = market.NewCachedSource(base, cs)
	}
	a.source = base
	return nil
}

func (a *App) buildProvider() error {
	timeout := time.Duration(a.cfg.Provider.TimeoutSeconds) * time.Second
	var inner decision.Provider
	switch strings.ToLower(a.cfg.Provider.Kind) {
	case "static":
		inner = decision.StaticProvider{Action: a.cfg.Provider.StaticAction, Confidence: 100}
	default:
		p, err := decision.NewHTTPProvider(decision.HTTPProviderConfig{
			URL:     a.cfg.Provider.URL,
			APIKey:  a.cfg.Provider.APIKey,
			Timeout: timeout,
		})
		if err != nil {
			return fmt.Errorf("decision provider: %w", err)
		}
		inner = p
	}
	a.provider = decision.WithTimeout(inner, timeout)
	return nil
}

func (a *App) buildExecutor() error {
	a.exec = executor.New(a.cfg.Risk)
	watcher, err := config.NewLimitsWatcher(a.cfg.Risk.ProfilePath, config.LimitsFromRisk(a.cfg.Risk))
	if err != nil {
		return fmt.Errorf("risk limits watcher: %w", err)
	}
	a.limits = watcher
	a.exec.SetLimits(watcher.Current())
	watcher.OnChange(a.exec.SetLimits)
	return nil
}

func (a *App) buildStore() error {
	if a.cfg.Store.Path == "" {
		return nil
	}
	st, err := gormstore.Open(a.cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("run store: %w", err)
	}
	a.store = st
	return nil
}

func (a *App) buildEvents() error {
	if !a.cfg.Events.Enabled {
		a.publisher = events.Nop{}
		return nil
	}
	pub, err := events.NewKafkaPublisher(a.cfg.Events.Brokers, a.cfg.Events.Topic)
	if err != nil {
		logger.Warnf("app: kafka disabled, producer init failed: %v", err)
		a.publisher = events.Nop{}
		return nil
	}
	a.publisher = pub
	return nil
}

func (a *App) buildLoops() error {
	interval, err := scheduler.ParseInterval(a.cfg.Scheduler.Interval)
	if err != nil {
		return fmt.Errorf("scheduler interval: %w", err)
	}
	for _, symbol := range a.cfg.Market.Symbols {
		var sched *scheduler.TriggerScheduler
		if a.cfg.Sim.Mode != "backtest" {
			sched, err = scheduler.New(scheduler.Config{
				Interval:          a.cfg.Scheduler.Interval,
				AlignClock:        a.cfg.Scheduler.AlignClock,
				EmergencyInterval: a.cfg.Scheduler.EmergencyInterval,
				SkewWarn:          time.Duration(a.cfg.Scheduler.SkewWarnSeconds * float64(time.Second)),
				Accelerator:       a.cfg.Scheduler.Accelerator,
			})
			if err != nil {
				return fmt.Errorf("scheduler: %w", err)
			}
		}
		runID := a.runID(symbol)
		loop, err := sim.NewLoop(sim.Options{
			RunID:          runID,
			Mode:           a.cfg.Sim.Mode,
			Symbol:         symbol,
			Interval:       interval,
			InitialBalance: a.cfg.Sim.InitialBalance,
			LookbackBars:   a.cfg.Market.LookbackBars,
			Resume:         a.cfg.Sim.Resume,
			StartTS:        a.cfg.Sim.StartTS,
			EndTS:          a.cfg.Sim.EndTS,
			PeriodsPerYear: a.cfg.Sim.PeriodsPerYear,
		}, sim.Deps{
			Source:    a.source,
			Provider:  a.provider,
			Executor:  a.exec,
			Store:     a.store,
			Events:    a.publisher,
			Scheduler: sched,
		})
		if err != nil {
			return err
		}
		a.loops = append(a.loops, loop)
		a.runIDs = append(a.runIDs, runID)
	}
	if len(a.loops) == 0 {
		return fmt.Errorf("no symbols configured")
	}
	return nil
}

// runID derives a stable id per symbol when one is configured (required for
// resume) and a fresh uuid otherwise.
func (a *App) runID(symbol string) string {
	if a.cfg.Sim.RunID != "" {
		if len(a.cfg.Market.Symbols) == 1 {
			return a.cfg.Sim.RunID
		}
		return a.cfg.Sim.RunID + "-" + strings.ToLower(symbol)
	}
	return uuid.NewString()
}

// Run drives all symbol loops and the HTTP server until every loop finishes
// or the context is cancelled. Summaries are reported as loops complete.
func (a *App) Run(ctx context.Context) error {
	g, runCtx := errgroup.WithContext(ctx)
	loopsCtx, stopHTTP := context.WithCancel(runCtx)

	g.Go(func() error {
		return a.httpServer.Run(loopsCtx)
	})

	summaries := make([]perf.Summary, len(a.loops))
	lg, lctx := errgroup.WithContext(loopsCtx)
	for i, loop := range a.loops {
		i, loop := i, loop
		lg.Go(func() error {
			summary, err := loop.Run(lctx)
			summaries[i] = summary
			return err
		})
	}
	loopErr := lg.Wait()
	for i, loop := range a.loops {
		runID := a.runIDs[i]
		if err := a.reporter.Write(runID, summaries[i], loop.Portfolio().EquityHistory()); err != nil {
			logger.Warnf("app: report for %s: %v", runID, err)
		}
	}
	stopHTTP()
	if err := g.Wait(); err != nil {
		logger.Warnf("app: http server: %v", err)
	}
	if loopErr != nil && loopErr != context.Canceled {
		return loopErr
	}
	return nil
}

// Close releases file and network resources. Safe after a failed Run.
func (a *App) Close() {
	if a.limits != nil {
		_ = a.limits.Close()
	}
	if a.publisher != nil {
		_ = a.publisher.Close()
	}
	if a.store != nil {
		_ = a.store.Close()
	}
	if a.candleStore != nil {
		_ = a.candleStore.Close()
	}
}

// Portfolios exposes per-loop accounts (used by tests and status handlers).
func (a *App) Portfolios() []*portfolio.Portfolio {
	out := make([]*portfolio.Portfolio, 0, len(a.loops))
	for _, l := range a.loops {
		out = append(out, l.Portfolio())
	}
	return out
}
