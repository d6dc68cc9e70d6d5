// Package store persists completed run artefacts (trade logs and rebalance
// history) to SQLite. The simulation core does not depend on it; the CLI
// writes results after a run completes.
package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"stratsim/internal/engine"
	"stratsim/internal/trade"
)

const schema = `
CREATE TABLE IF NOT EXISTS trades (
	run_id     TEXT NOT NULL,
	symbol     TEXT NOT NULL,
	open_time  TIMESTAMP NOT NULL,
	close_time TIMESTAMP NOT NULL,
	win        BOOLEAN NOT NULL,
	profit     TEXT NOT NULL,
	log_return REAL NOT NULL,
	pct_return REAL NOT NULL,
	slippage   REAL NOT NULL
);
CREATE TABLE IF NOT EXISTS rebalances (
	run_id   TEXT NOT NULL,
	seq      INTEGER NOT NULL,
	ts       TIMESTAMP NOT NULL,
	symbol   TEXT NOT NULL,
	weight   REAL NOT NULL,
	balance  TEXT NOT NULL
);
`

// Store wraps the results database
type Store struct {
	db *sql.DB
}

// Open opens or creates the results database at path and ensures the schema
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database handle
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveTrades writes one asset's trade log under the given run id
func (s *Store) SaveTrades(runID, symbol string, l trade.Log) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT INTO trades
		(run_id, symbol, open_time, close_time, win, profit, log_return, pct_return, slippage)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()
	for i := range l {
		if _, err := stmt.Exec(runID, symbol,
			l[i].OpenTime.UTC(), l[i].CloseTime.UTC(), l[i].Win,
			l[i].Profit.String(), l[i].LogReturn, l[i].PctReturn, l[i].Slippage); err != nil {
			tx.Rollback()
			return fmt.Errorf("inserting trade %d: %w", i, err)
		}
	}
	return tx.Commit()
}

// SaveRebalances writes the portfolio rebalance history. The symbols slice
// gives the asset order of the event weight vectors.
func (s *Store) SaveRebalances(runID string, symbols []string, events []engine.RebalanceEvent) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT INTO rebalances
		(run_id, seq, ts, symbol, weight, balance) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()
	for seq, e := range events {
		for i := range e.Weights {
			if i >= len(symbols) {
				break
			}
			if _, err := stmt.Exec(runID, seq, e.Time.UTC(), symbols[i], e.Weights[i], e.Balances[i].String()); err != nil {
				tx.Rollback()
				return fmt.Errorf("inserting rebalance %d/%d: %w", seq, i, err)
			}
		}
	}
	return tx.Commit()
}

// TradeCount returns the number of persisted trades for a run
func (s *Store) TradeCount(runID string) (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM trades WHERE run_id = ?`, runID).Scan(&n)
	return n, err
}

// Trades reloads one asset's persisted trades for a run in insertion order
func (s *Store) Trades(runID, symbol string) (trade.Log, error) {
	rows, err := s.db.Query(`SELECT open_time, close_time, win, profit, log_return, pct_return, slippage
		FROM trades WHERE run_id = ? AND symbol = ? ORDER BY rowid`, runID, symbol)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var l trade.Log
	for rows.Next() {
		var t trade.Trade
		var open, closeTime time.Time
		var profit string
		if err := rows.Scan(&open, &closeTime, &t.Win, &profit, &t.LogReturn, &t.PctReturn, &t.Slippage); err != nil {
			return nil, err
		}
		t.Symbol = symbol
		t.OpenTime = open
		t.CloseTime = closeTime
		if t.Profit, err = decimal.NewFromString(profit); err != nil {
			return nil, err
		}
		l = append(l, t)
	}
	return l, rows.Err()
}
