// Package gormstore persists runs, accounts, trades, orders and cycles in a
// single SQLite database through Gorm. SaveCycle writes one cycle's output in
// a single transaction; the account row's last_cycle_seq only advances on
// commit, which is what makes crash-resume exact.
package gormstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"papertrader/internal/store"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
	_ "modernc.org/sqlite"
)

type Store struct {
	db *gorm.DB
}

var _ store.Store = (*Store)(nil)

// Open creates or opens the run database at path and migrates the schema.
func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("gorm store: database path is empty")
	}
	if err := ensureDir(path); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := gorm.Open(sqlite.Dialector{DriverName: "sqlite", DSN: dsn}, &gorm.Config{
		Logger:                                   gormlogger.Default.LogMode(gormlogger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&runModel{}, &accountModel{}, &tradeModel{}, &orderModel{}, &cycleModel{}); err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// SQLite + WAL: allow a small amount of parallelism for concurrent HTTP
	// reads while keeping lock contention low.
	sqlDB.SetMaxOpenConns(2)
	sqlDB.SetMaxIdleConns(2)
	return &Store{db: db}, nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func wrap(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", store.ErrPersistence, err)
}

func (s *Store) CreateRun(ctx context.Context, run store.RunRecord) error {
	m := runModel{
		ID:             run.ID,
		Mode:           run.Mode,
		Symbol:         run.Symbol,
		Interval:       run.Interval,
		InitialBalance: run.InitialBalance,
		StartedAtUnix:  run.StartedAt.Unix(),
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(&m).Error
	return wrap(err)
}

func (s *Store) FinishRun(ctx context.Context, runID string, finishedAt time.Time, summaryJSON []byte) error {
	err := s.db.WithContext(ctx).Model(&runModel{}).
		Where("id = ?", runID).
		Updates(map[string]interface{}{
			"finished_at":  finishedAt.Unix(),
			"summary_json": datatypes.JSON(summaryJSON),
		}).Error
	return wrap(err)
}

// SaveCycle commits one cycle atomically: cycle row, order and trade rows,
// then the account with last_cycle_seq advanced to the cycle's sequence.
func (s *Store) SaveCycle(ctx context.Context, commit store.CycleCommit) error {
	positionsJSON, err := json.Marshal(commit.Account.Positions)
	if err != nil {
		return wrap(err)
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cm := cycleModel{
			RunID:         commit.Cycle.RunID,
			Seq:           commit.Cycle.Seq,
			TriggerAtUnix: commit.Cycle.TriggerAt.Unix(),
			Price:         commit.Cycle.Price,
			Equity:        commit.Cycle.Equity,
			Degraded:      commit.Cycle.Degraded,
			TSUnix:        commit.Cycle.Time.Unix(),
		}
		if err := tx.Create(&cm).Error; err != nil {
			return err
		}
		for _, o := range commit.Orders {
			om := orderModel{
				RunID:        o.RunID,
				CycleSeq:     o.CycleSeq,
				Symbol:       o.Symbol,
				Action:       o.Action,
				Confidence:   o.Confidence,
				Status:       o.Status,
				Message:      o.Message,
				DecisionJSON: datatypes.JSON(o.DecisionJSON),
				TSUnix:       o.Time.Unix(),
			}
			if err := tx.Create(&om).Error; err != nil {
				return err
			}
		}
		for _, t := range commit.Trades {
			tm := tradeModel{
				RunID:       t.RunID,
				CycleSeq:    t.CycleSeq,
				Symbol:      t.Symbol,
				Side:        t.Side,
				Price:       t.Price,
				Quantity:    t.Quantity,
				Fee:         t.Fee,
				CashAfter:   t.CashAfter,
				RealizedPnL: t.RealizedPnL,
				Closed:      t.Closed,
				TSUnix:      t.Time.Unix(),
			}
			if err := tx.Create(&tm).Error; err != nil {
				return err
			}
		}
		am := accountModel{
			RunID:         commit.Account.RunID,
			Cash:          commit.Account.Cash,
			PositionsJSON: datatypes.JSON(positionsJSON),
			LastCycleSeq:  commit.Cycle.Seq,
			UpdatedAtUnix: commit.Cycle.Time.Unix(),
		}
		return tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "run_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"cash":           gorm.Expr("excluded.cash"),
				"positions_json": gorm.Expr("excluded.positions_json"),
				"last_cycle_seq": gorm.Expr("excluded.last_cycle_seq"),
				"updated_at":     gorm.Expr("excluded.updated_at"),
			}),
		}).Create(&am).Error
	})
	return wrap(err)
}

func (s *Store) LoadAccount(ctx context.Context, runID string) (store.AccountRecord, bool, error) {
	var m accountModel
	err := s.db.WithContext(ctx).Where("run_id = ?", runID).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return store.AccountRecord{}, false, nil
	}
	if err != nil {
		return store.AccountRecord{}, false, wrap(err)
	}
	rec := store.AccountRecord{
		RunID:        m.RunID,
		Cash:         m.Cash,
		LastCycleSeq: m.LastCycleSeq,
		UpdatedAt:    time.Unix(m.UpdatedAtUnix, 0).UTC(),
	}
	if len(m.PositionsJSON) > 0 {
		if err := json.Unmarshal(m.PositionsJSON, &rec.Positions); err != nil {
			return store.AccountRecord{}, false, wrap(err)
		}
	}
	return rec, true, nil
}

func (s *Store) GetRun(ctx context.Context, runID string) (store.RunRecord, bool, error) {
	var m runModel
	err := s.db.WithContext(ctx).Where("id = ?", runID).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return store.RunRecord{}, false, nil
	}
	if err != nil {
		return store.RunRecord{}, false, wrap(err)
	}
	return runModelToRecord(m), true, nil
}

func (s *Store) ListRuns(ctx context.Context, limit int) ([]store.RunRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	var models []runModel
	if err := s.db.WithContext(ctx).Order("started_at DESC").Limit(limit).Find(&models).Error; err != nil {
		return nil, wrap(err)
	}
	out := make([]store.RunRecord, 0, len(models))
	for _, m := range models {
		out = append(out, runModelToRecord(m))
	}
	return out, nil
}

func (s *Store) ListTrades(ctx context.Context, runID string) ([]store.TradeRecord, error) {
	var models []tradeModel
	if err := s.db.WithContext(ctx).Where("run_id = ?", runID).Order("id ASC").Find(&models).Error; err != nil {
		return nil, wrap(err)
	}
	out := make([]store.TradeRecord, 0, len(models))
	for _, m := range models {
		out = append(out, store.TradeRecord{
			RunID:       m.RunID,
			CycleSeq:    m.CycleSeq,
			Symbol:      m.Symbol,
			Side:        m.Side,
			Price:       m.Price,
			Quantity:    m.Quantity,
			Fee:         m.Fee,
			CashAfter:   m.CashAfter,
			RealizedPnL: m.RealizedPnL,
			Closed:      m.Closed,
			Time:        time.Unix(m.TSUnix, 0).UTC(),
		})
	}
	return out, nil
}

func (s *Store) ListOrders(ctx context.Context, runID string) ([]store.OrderRecord, error) {
	var models []orderModel
	if err := s.db.WithContext(ctx).Where("run_id = ?", runID).Order("id ASC").Find(&models).Error; err != nil {
		return nil, wrap(err)
	}
	out := make([]store.OrderRecord, 0, len(models))
	for _, m := range models {
		out = append(out, store.OrderRecord{
			RunID:        m.RunID,
			CycleSeq:     m.CycleSeq,
			Symbol:       m.Symbol,
			Action:       m.Action,
			Confidence:   m.Confidence,
			Status:       m.Status,
			Message:      m.Message,
			DecisionJSON: []byte(m.DecisionJSON),
			Time:         time.Unix(m.TSUnix, 0).UTC(),
		})
	}
	return out, nil
}

func (s *Store) ListCycles(ctx context.Context, runID string, limit int) ([]store.CycleRecord, error) {
	if limit <= 0 {
		limit = 500
	}
	var models []cycleModel
	if err := s.db.WithContext(ctx).Where("run_id = ?", runID).Order("seq ASC").Limit(limit).Find(&models).Error; err != nil {
		return nil, wrap(err)
	}
	out := make([]store.CycleRecord, 0, len(models))
	for _, m := range models {
		out = append(out, cycleModelToRecord(m))
	}
	return out, nil
}

// LastCycle returns the highest-sequence committed cycle of a run, regardless
// of how many cycles the run has accumulated.
func (s *Store) LastCycle(ctx context.Context, runID string) (store.CycleRecord, bool, error) {
	var m cycleModel
	err := s.db.WithContext(ctx).Where("run_id = ?", runID).Order("seq DESC").First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return store.CycleRecord{}, false, nil
	}
	if err != nil {
		return store.CycleRecord{}, false, wrap(err)
	}
	return cycleModelToRecord(m), true, nil
}

func cycleModelToRecord(m cycleModel) store.CycleRecord {
	return store.CycleRecord{
		RunID:     m.RunID,
		Seq:       m.Seq,
		TriggerAt: time.Unix(m.TriggerAtUnix, 0).UTC(),
		Price:     m.Price,
		Equity:    m.Equity,
		Degraded:  m.Degraded,
		Time:      time.Unix(m.TSUnix, 0).UTC(),
	}
}

func runModelToRecord(m runModel) store.RunRecord {
	rec := store.RunRecord{
		ID:             m.ID,
		Mode:           m.Mode,
		Symbol:         m.Symbol,
		Interval:       m.Interval,
		InitialBalance: m.InitialBalance,
		StartedAt:      time.Unix(m.StartedAtUnix, 0).UTC(),
		SummaryJSON:    []byte(m.SummaryJSON),
	}
	if m.FinishedAtUnix > 0 {
		rec.FinishedAt = time.Unix(m.FinishedAtUnix, 0).UTC()
	}
	return rec
}
