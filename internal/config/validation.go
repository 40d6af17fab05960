package config

import (
	"fmt"
	"strings"
)

func validate(c *Config) error {
	if err := c.Market.validate(); err != nil {
		return err
	}
	if err := c.Provider.validate(); err != nil {
		return err
	}
	if err := c.Risk.validate(); err != nil {
		return err
	}
	if err := c.Sim.validate(); err != nil {
		return err
	}
	if err := c.Events.validate(); err != nil {
		return err
	}
	return nil
}

func (m *MarketConfig) validate() error {
	switch strings.ToLower(m.Source) {
	case "binance", "csv":
	default:
		return fmt.Errorf("market.source must be binance or csv, got %q", m.Source)
	}
	if strings.EqualFold(m.Source, "csv") && strings.TrimSpace(m.CSVDir) == "" {
		return fmt.Errorf("market.csv_dir is required when market.source=csv")
	}
	for _, s := range m.Symbols {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("market.symbols contains an empty entry")
		}
	}
	return nil
}

func (p *ProviderConfig) validate() error {
	switch strings.ToLower(p.Kind) {
	case "http":
		if strings.TrimSpace(p.URL) == "" {
			return fmt.Errorf("provider.url is required when provider.kind=http")
		}
	case "static":
	default:
		return fmt.Errorf("provider.kind must be http or static, got %q", p.Kind)
	}
	return nil
}

func (r *RiskConfig) validate() error {
	switch r.SizingPolicy {
	case "fixed_pct", "fixed_notional", "risk_based":
	default:
		return fmt.Errorf("risk.sizing_policy must be fixed_pct, fixed_notional or risk_based, got %q", r.SizingPolicy)
	}
	if r.EquityPct <= 0 || r.EquityPct > 1 {
		return fmt.Errorf("risk.equity_pct must be in (0,1], got %v", r.EquityPct)
	}
	if r.MinConfidence < 0 || r.MinConfidence > 100 {
		return fmt.Errorf("risk.min_confidence must be in [0,100], got %d", r.MinConfidence)
	}
	if r.StopLossPct <= 0 || r.StopLossPct >= 1 {
		return fmt.Errorf("risk.stop_loss_pct must be in (0,1), got %v", r.StopLossPct)
	}
	if r.TakeProfitPct <= 0 {
		return fmt.Errorf("risk.take_profit_pct must be > 0, got %v", r.TakeProfitPct)
	}
	return nil
}

func (s *SimConfig) validate() error {
	switch strings.ToLower(s.Mode) {
	case "live", "backtest":
	default:
		return fmt.Errorf("sim.mode must be live or backtest, got %q", s.Mode)
	}
	if strings.EqualFold(s.Mode, "backtest") {
		if s.StartTS <= 0 || s.EndTS <= 0 || s.EndTS <= s.StartTS {
			return fmt.Errorf("sim.start_ts/sim.end_ts must describe a non-empty range for backtests")
		}
	}
	return nil
}

func (e *EventsConfig) validate() error {
	if e.Enabled && len(e.Brokers) == 0 {
		return fmt.Errorf("events.brokers is required when events.enabled=true")
	}
	return nil
}
