package config

import (
	"os"
	"sync"
	"time"

	"papertrader/internal/logger"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// RiskLimits is the hot-reloadable subset of RiskConfig. Sizing policy and fee
// rate stay fixed for the lifetime of a run; only the pre-trade limits may move.
type RiskLimits struct {
	MinConfidence int     `yaml:"min_confidence"`
	MaxPositions  int     `yaml:"max_positions"`
	StopLossPct   float64 `yaml:"stop_loss_pct"`
	TakeProfitPct float64 `yaml:"take_profit_pct"`
}

// LimitsFromRisk extracts the reloadable limits out of a RiskConfig.
func LimitsFromRisk(r RiskConfig) RiskLimits {
	return RiskLimits{
		MinConfidence: r.MinConfidence,
		MaxPositions:  r.MaxPositions,
		StopLossPct:   r.StopLossPct,
		TakeProfitPct: r.TakeProfitPct,
	}
}

// LimitsWatcher watches an optional YAML file and republishes limits on change.
type LimitsWatcher struct {
	path string

	mu        sync.RWMutex
	limits    RiskLimits
	listeners []func(RiskLimits)

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewLimitsWatcher loads path (when non-empty) over the initial limits and
// starts watching it for rewrites. A missing file is not an error; the initial
// limits stay in effect.
func NewLimitsWatcher(path string, initial RiskLimits) (*LimitsWatcher, error) {
	w := &LimitsWatcher{path: path, limits: initial, done: make(chan struct{})}
	if path == "" {
		return w, nil
	}
	if err := w.loadFile(); err != nil {
		logger.Warnf("risk limits: initial load failed (%v), keeping config values", err)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(path); err != nil {
		fsw.Close()
		logger.Warnf("risk limits: watch %s failed (%v), hot reload disabled", path, err)
		return w, nil
	}
	w.watcher = fsw
	go w.loop()
	return w, nil
}

func (w *LimitsWatcher) loop() {
	var debounce *time.Timer
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			// editors fire bursts of events per save
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(200*time.Millisecond, func() {
				if err := w.loadFile(); err != nil {
					logger.Warnf("risk limits: reload failed: %v", err)
					return
				}
				w.notify()
			})
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Warnf("risk limits: watcher error: %v", err)
		}
	}
}

func (w *LimitsWatcher) loadFile() error {
	raw, err := os.ReadFile(w.path)
	if err != nil {
		return err
	}
	var limits RiskLimits
	if err := yaml.Unmarshal(raw, &limits); err != nil {
		return err
	}
	w.mu.Lock()
	if limits.MinConfidence > 0 {
		w.limits.MinConfidence = limits.MinConfidence
	}
	if limits.MaxPositions > 0 {
		w.limits.MaxPositions = limits.MaxPositions
	}
	if limits.StopLossPct > 0 && limits.StopLossPct < 1 {
		w.limits.StopLossPct = limits.StopLossPct
	}
	if limits.TakeProfitPct > 0 {
		w.limits.TakeProfitPct = limits.TakeProfitPct
	}
	w.mu.Unlock()
	logger.Infof("risk limits: loaded %s", w.path)
	return nil
}

func (w *LimitsWatcher) notify() {
	w.mu.RLock()
	limits := w.limits
	listeners := append([]func(RiskLimits){}, w.listeners...)
	w.mu.RUnlock()
	for _, fn := range listeners {
		fn(limits)
	}
}

// Current returns the effective limits.
func (w *LimitsWatcher) Current() RiskLimits {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.limits
}

// OnChange registers a listener invoked after every successful reload.
func (w *LimitsWatcher) OnChange(fn func(RiskLimits)) {
	if fn == nil {
		return
	}
	w.mu.Lock()
	w.listeners = append(w.listeners, fn)
	w.mu.Unlock()
}

func (w *LimitsWatcher) Close() error {
	select {
	case <-w.done:
	default:
		close(w.done)
	}
	if w.watcher != nil {
		return w.watcher.Close()
	}
	return nil
}
