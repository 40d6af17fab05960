package config

const (
	defaultAppEnv            = "dev"
	defaultAppLogLevel       = "info"
	defaultAppHTTPAddr       = ":9981"
	defaultMarketSource      = "binance"
	defaultMarketREST        = "https://fapi.binance.com"
	defaultMarketCacheDir    = "data/candles"
	defaultMarketLookback    = 120
	defaultProviderKind      = "static"
	defaultProviderTimeout   = 60
	defaultRiskPolicy        = "fixed_pct"
	defaultRiskEquityPct     = 0.10
	defaultRiskNotionalUSD   = 1000
	defaultRiskPerTradePct   = 0.01
	defaultRiskMinConfidence = 50
	defaultRiskMaxPositions  = 3
	defaultRiskFeeRate       = 0.0004 // 4 bps taker
	defaultRiskStopLossPct   = 0.05
	defaultRiskTakeProfitPct = 0.10
	defaultSchedInterval     = "15m"
	defaultSchedEmergency    = "5m"
	defaultSchedSkewWarn     = 2.0
	defaultSimMode           = "live"
	defaultSimBalance        = 10000
	defaultStorePath         = "data/papertrader.db"
	defaultReportDir         = "data/reports"
	defaultEventsTopic       = "papertrader.events"
)

func (c *Config) applyDefaults() {
	c.App.applyDefaults()
	c.Market.applyDefaults()
	c.Provider.applyDefaults()
	c.Risk.applyDefaults()
	c.Scheduler.applyDefaults()
	c.Sim.applyDefaults()
	c.Store.applyDefaults()
	c.Report.applyDefaults()
	c.Events.applyDefaults()
}

func (a *AppConfig) applyDefaults() {
	if a.Env == "" {
		a.Env = defaultAppEnv
	}
	if a.LogLevel == "" {
		a.LogLevel = defaultAppLogLevel
	}
	if a.HTTPAddr == "" {
		a.HTTPAddr = defaultAppHTTPAddr
	}
}

func (m *MarketConfig) applyDefaults() {
	if m.Source == "" {
		m.Source = defaultMarketSource
	}
	if m.RESTBaseURL == "" {
		m.RESTBaseURL = defaultMarketREST
	}
	if m.CacheDir == "" {
		m.CacheDir = defaultMarketCacheDir
	}
	if m.LookbackBars <= 0 {
		m.LookbackBars = defaultMarketLookback
	}
	if len(m.Symbols) == 0 {
		m.Symbols = []string{"BTCUSDT"}
	}
}

func (p *ProviderConfig) applyDefaults() {
	if p.Kind == "" {
		p.Kind = defaultProviderKind
	}
	if p.TimeoutSeconds <= 0 {
		p.TimeoutSeconds = defaultProviderTimeout
	}
	if p.StaticAction == "" {
		p.StaticAction = "HOLD"
	}
}

func (r *RiskConfig) applyDefaults() {
	if r.SizingPolicy == "" {
		r.SizingPolicy = defaultRiskPolicy
	}
	if r.EquityPct <= 0 {
		r.EquityPct = defaultRiskEquityPct
	}
	if r.NotionalUSD <= 0 {
		r.NotionalUSD = defaultRiskNotionalUSD
	}
	if r.RiskPerTradePct <= 0 {
		r.RiskPerTradePct = defaultRiskPerTradePct
	}
	if r.MinConfidence <= 0 {
		r.MinConfidence = defaultRiskMinConfidence
	}
	if r.MaxPositions <= 0 {
		r.MaxPositions = defaultRiskMaxPositions
	}
	if r.FeeRate < 0 {
		r.FeeRate = 0
	}
	if r.FeeRate == 0 {
		r.FeeRate = defaultRiskFeeRate
	}
	if r.StopLossPct <= 0 {
		r.StopLossPct = defaultRiskStopLossPct
	}
	if r.TakeProfitPct <= 0 {
		r.TakeProfitPct = defaultRiskTakeProfitPct
	}
}

func (s *SchedulerConfig) applyDefaults() {
	if s.Interval == "" {
		s.Interval = defaultSchedInterval
	}
	if s.EmergencyInterval == "" {
		s.EmergencyInterval = defaultSchedEmergency
	}
	if s.SkewWarnSeconds <= 0 {
		s.SkewWarnSeconds = defaultSchedSkewWarn
	}
	if s.Accelerator <= 0 {
		s.Accelerator = 1
	}
}

func (s *SimConfig) applyDefaults() {
	if s.Mode == "" {
		s.Mode = defaultSimMode
	}
	if s.InitialBalance <= 0 {
		s.InitialBalance = defaultSimBalance
	}
	if s.PeriodsPerYear <= 0 {
		s.PeriodsPerYear = 0 // derived from interval when unset
	}
}

func (s *StoreConfig) applyDefaults() {
	if s.Path == "" {
		s.Path = defaultStorePath
	}
}

func (r *ReportConfig) applyDefaults() {
	if r.Dir == "" {
		r.Dir = defaultReportDir
	}
}

func (e *EventsConfig) applyDefaults() {
	if e.Topic == "" {
		e.Topic = defaultEventsTopic
	}
}
