// Package store defines the persistence contract for simulation runs. A run
// commits one CycleCommit per decision cycle; the cycle sequence recorded with
// the account is the resume marker, so a cycle either committed entirely or
// not at all.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrPersistence marks recoverable storage failures. The simulation loop logs
// them and keeps running on its in-memory state.
var ErrPersistence = errors.New("persistence error")

// RunRecord describes one simulation run.
type RunRecord struct {
	ID             string
	Mode           string
	Symbol         string
	Interval       string
	InitialBalance float64
	StartedAt      time.Time
	FinishedAt     time.Time
	SummaryJSON    []byte
}

// AccountRecord is the committed account state of a run.
type AccountRecord struct {
	RunID        string
	Cash         float64
	Positions    []PositionRecord
	LastCycleSeq int64
	UpdatedAt    time.Time
}

type PositionRecord struct {
	Symbol     string    `json:"symbol"`
	EntryPrice float64   `json:"entry_price"`
	Quantity   float64   `json:"quantity"`
	OpenedAt   time.Time `json:"opened_at"`
}

// TradeRecord is one committed fill.
type TradeRecord struct {
	RunID       string
	CycleSeq    int64
	Symbol      string
	Side        string
	Price       float64
	Quantity    float64
	Fee         float64
	CashAfter   float64
	RealizedPnL float64
	Closed      bool
	Time        time.Time
}

// OrderRecord is one executed decision attempt. Rejected and errored attempts
// are recorded too; the order log is the full audit trail, trades only the
// fills.
type OrderRecord struct {
	RunID        string
	CycleSeq     int64
	Symbol       string
	Action       string
	Confidence   int
	Status       string
	Message      string
	DecisionJSON []byte
	Time         time.Time
}

// CycleRecord is the ledger entry for one decision cycle.
type CycleRecord struct {
	RunID     string
	Seq       int64
	TriggerAt time.Time
	Price     float64
	Equity    float64
	Degraded  bool
	Time      time.Time
}

// CycleCommit is everything one cycle produced. SaveCycle persists it
// atomically and advances the account's resume marker to Cycle.Seq.
type CycleCommit struct {
	Cycle   CycleRecord
	Orders  []OrderRecord
	Trades  []TradeRecord
	Account AccountRecord
}

// Store persists runs and cycles.
type Store interface {
	CreateRun(ctx context.Context, run RunRecord) error
	FinishRun(ctx context.Context, runID string, finishedAt time.Time, summaryJSON []byte) error
	SaveCycle(ctx context.Context, commit CycleCommit) error

	LoadAccount(ctx context.Context, runID string) (AccountRecord, bool, error)
	GetRun(ctx context.Context, runID string) (RunRecord, bool, error)
	ListRuns(ctx context.Context, limit int) ([]RunRecord, error)
	ListTrades(ctx context.Context, runID string) ([]TradeRecord, error)
	ListOrders(ctx context.Context, runID string) ([]OrderRecord, error)
	ListCycles(ctx context.Context, runID string, limit int) ([]CycleRecord, error)
	LastCycle(ctx context.Context, runID string) (CycleRecord, bool, error)

	Close() error
}
