package gormstore

import "gorm.io/datatypes"

type runModel struct {
	ID             string         `gorm:"column:id;primaryKey"`
	Mode           string         `gorm:"column:mode"`
	Symbol         string         `gorm:"column:symbol"`
	Interval       string         `gorm:"column:interval"`
	InitialBalance float64        `gorm:"column:initial_balance"`
	StartedAtUnix  int64          `gorm:"column:started_at"`
	FinishedAtUnix int64          `gorm:"column:finished_at"`
	SummaryJSON    datatypes.JSON `gorm:"column:summary_json;type:TEXT"`
}

func (runModel) TableName() string { return "runs" }

type accountModel struct {
	RunID         string         `gorm:"column:run_id;primaryKey"`
	Cash          float64        `gorm:"column:cash"`
	PositionsJSON datatypes.JSON `gorm:"column:positions_json;type:TEXT"`
	LastCycleSeq  int64          `gorm:"column:last_cycle_seq"`
	UpdatedAtUnix int64          `gorm:"column:updated_at"`
}

func (accountModel) TableName() string { return "accounts" }

type tradeModel struct {
	ID          int64   `gorm:"column:id;primaryKey;autoIncrement"`
	RunID       string  `gorm:"column:run_id;index"`
	CycleSeq    int64   `gorm:"column:cycle_seq"`
	Symbol      string  `gorm:"column:symbol"`
	Side        string  `gorm:"column:side"`
	Price       float64 `gorm:"column:price"`
	Quantity    float64 `gorm:"column:quantity"`
	Fee         float64 `gorm:"column:fee"`
	CashAfter   float64 `gorm:"column:cash_after"`
	RealizedPnL float64 `gorm:"column:realized_pnl"`
	Closed      bool    `gorm:"column:closed"`
	TSUnix      int64   `gorm:"column:ts"`
}

func (tradeModel) TableName() string { return "trades" }

type orderModel struct {
	ID           int64          `gorm:"column:id;primaryKey;autoIncrement"`
	RunID        string         `gorm:"column:run_id;index"`
	CycleSeq     int64          `gorm:"column:cycle_seq"`
	Symbol       string         `gorm:"column:symbol"`
	Action       string         `gorm:"column:action"`
	Confidence   int            `gorm:"column:confidence"`
	Status       string         `gorm:"column:status"`
	Message      string         `gorm:"column:message"`
	DecisionJSON datatypes.JSON `gorm:"column:decision_json;type:TEXT"`
	TSUnix       int64          `gorm:"column:ts"`
}

func (orderModel) TableName() string { return "orders" }

type cycleModel struct {
	ID            int64   `gorm:"column:id;primaryKey;autoIncrement"`
	RunID         string  `gorm:"column:run_id;uniqueIndex:idx_run_cycle,priority:1"`
	Seq           int64   `gorm:"column:seq;uniqueIndex:idx_run_cycle,priority:2"`
	TriggerAtUnix int64   `gorm:"column:trigger_at"`
	Price         float64 `gorm:"column:price"`
	Equity        float64 `gorm:"column:equity"`
	Degraded      bool    `gorm:"column:degraded"`
	TSUnix        int64   `gorm:"column:ts"`
}

func (cycleModel) TableName() string { return "cycles" }
