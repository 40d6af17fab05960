package config

// Config is the top-level configuration carrier for papertrader.
type Config struct {
	App       AppConfig       `toml:"app"`
	Market    MarketConfig    `toml:"market"`
	Provider  ProviderConfig  `toml:"provider"`
	Risk      RiskConfig      `toml:"risk"`
	Scheduler SchedulerConfig `toml:"scheduler"`
	Sim       SimConfig       `toml:"sim"`
	Store     StoreConfig     `toml:"store"`
	Report    ReportConfig    `toml:"report"`
	Events    EventsConfig    `toml:"events"`
}

type AppConfig struct {
	Env            string `toml:"env"`
	LogLevel       string `toml:"log_level"`
	HTTPAddr       string `toml:"http_addr"`
	LogPath        string `toml:"log_path"`
	TriggerLogPath string `toml:"trigger_log_path"`
}

type MarketConfig struct {
	Source       string   `toml:"source"` // "binance" | "csv"
	Symbols      []string `toml:"symbols"`
	RESTBaseURL  string   `toml:"rest_base_url"`
	CSVDir       string   `toml:"csv_dir"`
	CacheDir     string   `toml:"cache_dir"`
	LookbackBars int      `toml:"lookback_bars"`
}

// ProviderConfig describes the external decision collaborator. API location and
// credentials live here, not in ad-hoc env reads mid-loop.
type ProviderConfig struct {
	Kind           string `toml:"kind"` // "http" | "static"
	URL            string `toml:"url"`
	APIKey         string `toml:"api_key"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	StaticAction   string `toml:"static_action"` // for kind=static
}

// RiskConfig controls position sizing and pre-trade checks.
type RiskConfig struct {
	SizingPolicy    string  `toml:"sizing_policy"` // fixed_pct | fixed_notional | risk_based
	EquityPct       float64 `toml:"equity_pct"`
	NotionalUSD     float64 `toml:"notional_usd"`
	RiskPerTradePct float64 `toml:"risk_per_trade_pct"`
	MinConfidence   int     `toml:"min_confidence"`
	MaxPositions    int     `toml:"max_positions"`
	FeeRate         float64 `toml:"fee_rate"`
	StopLossPct     float64 `toml:"stop_loss_pct"`
	TakeProfitPct   float64 `toml:"take_profit_pct"`
	ProfilePath     string  `toml:"profile_path"` // optional hot-reloaded limits file
}

type SchedulerConfig struct {
	Interval          string  `toml:"interval"`
	AlignClock        bool    `toml:"align_clock"`
	EmergencyInterval string  `toml:"emergency_interval"`
	SkewWarnSeconds   float64 `toml:"skew_warn_seconds"`
	Accelerator       int     `toml:"accelerator"` // >1 only in test mode
}

type SimConfig struct {
	Mode           string  `toml:"mode"`   // "live" | "backtest"
	RunID          string  `toml:"run_id"` // fixed id enables resume; empty generates one
	InitialBalance float64 `toml:"initial_balance"`
	StartTS        int64   `toml:"start_ts"`
	EndTS          int64   `toml:"end_ts"`
	PeriodsPerYear float64 `toml:"periods_per_year"`
	Resume         bool    `toml:"resume"`
}

type StoreConfig struct {
	Path string `toml:"path"`
}

type ReportConfig struct {
	Dir   string `toml:"dir"`
	Chart bool   `toml:"chart"`
}

// EventsConfig gates the optional Kafka publisher for trade/cycle events.
type EventsConfig struct {
	Enabled bool     `toml:"enabled"`
	Brokers []string `toml:"brokers"`
	Topic   string   `toml:"topic"`
}
