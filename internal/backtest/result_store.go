package backtest

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// ResultStore 管理 backtest_runs / backtest_trades / backtest_equity 表。
type ResultStore struct {
	mu   sync.Mutex
	db   *sql.DB
	path string
}

func NewResultStore(root string) (*ResultStore, error) {
	if root == "" {
		return nil, fmt.Errorf("result store root cannot be empty")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	path := filepath.Join(root, "runs.db")
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if err := ensureResultSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &ResultStore{db: db, path: path}, nil
}

func (s *ResultStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func ensureResultSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS backtest_runs (
			id TEXT PRIMARY KEY,
			ticker TEXT NOT NULL,
			status TEXT NOT NULL,
			start_ts INTEGER NOT NULL,
			end_ts INTEGER NOT NULL,
			initial_capital REAL NOT NULL,
			final_capital REAL NOT NULL DEFAULT 0,
			total_return REAL NOT NULL DEFAULT 0,
			sharpe_ratio REAL NOT NULL DEFAULT 0,
			max_drawdown REAL NOT NULL DEFAULT 0,
			config_json TEXT NOT NULL,
			stats_json TEXT,
			message TEXT,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL,
			completed_at INTEGER
		);`,
		`CREATE TABLE IF NOT EXISTS backtest_trades (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			type TEXT NOT NULL,
			price REAL NOT NULL,
			size INTEGER NOT NULL,
			ts INTEGER NOT NULL,
			reason TEXT,
			profit_loss REAL,
			FOREIGN KEY(run_id) REFERENCES backtest_runs(id) ON DELETE CASCADE
		);`,
		`CREATE TABLE IF NOT EXISTS backtest_equity (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			equity REAL NOT NULL,
			FOREIGN KEY(run_id) REFERENCES backtest_runs(id) ON DELETE CASCADE
		);`,
		`CREATE INDEX IF NOT EXISTS idx_trades_run ON backtest_trades(run_id);`,
		`CREATE INDEX IF NOT EXISTS idx_equity_run ON backtest_equity(run_id);`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// InsertRun 写入一条新的回测任务记录。
func (s *ResultStore) InsertRun(ctx context.Context, run Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfgJSON, err := run.MarshalConfig()
	if err != nil {
		return err
	}
	now := time.Now().UnixMilli()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO backtest_runs
		(id, ticker, status, start_ts, end_ts, initial_capital, final_capital,
		 total_return, sharpe_ratio, max_drawdown, config_json, message, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Ticker, run.Status, run.StartTS, run.EndTS,
		run.InitialCapital, run.FinalCapital, run.TotalReturn,
		run.SharpeRatio, run.MaxDrawdown, string(cfgJSON), run.Message, now, now)
	return err
}

// UpdateRunStatus 更新状态与进度信息。
func (s *ResultStore) UpdateRunStatus(ctx context.Context, runID, status, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UnixMilli()
	_, err := s.db.ExecContext(ctx, `
		UPDATE backtest_runs SET status = ?, message = ?, updated_at = ? WHERE id = ?`,
		status, message, now, runID)
	return err
}

// FinishRun 写入最终结果：绩效汇总、交易流水与资金曲线。
// status/message 由调用方给定，取消的 run 落库为 cancelled 而非 done。
func (s *ResultStore) FinishRun(ctx context.Context, runID string, res Result, status, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	statsJSON, err := json.Marshal(res.Stats)
	if err != nil {
		return err
	}
	now := time.Now().UnixMilli()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE backtest_runs
		SET status = ?, final_capital = ?, total_return = ?, sharpe_ratio = ?,
		    max_drawdown = ?, stats_json = ?, message = ?, updated_at = ?, completed_at = ?
		WHERE id = ?`,
		status, res.FinalCapital, res.TotalReturn, res.SharpeRatio,
		res.MaxDrawdown, string(statsJSON), message, now, now, runID); err != nil {
		_ = tx.Rollback()
		return err
	}
	for _, t := range res.Trades {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO backtest_trades (run_id, type, price, size, ts, reason, profit_loss)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			runID, t.Type, t.Price, t.Size, t.TS, t.Reason, t.ProfitLoss); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	for i, v := range res.EquityCurve {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO backtest_equity (run_id, seq, equity) VALUES (?, ?, ?)`,
			runID, i, v); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// GetRun 读取单个回测任务。
func (s *ResultStore) GetRun(ctx context.Context, runID string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, ticker, status, start_ts, end_ts, initial_capital, final_capital,
		       total_return, sharpe_ratio, max_drawdown, config_json,
		       COALESCE(stats_json, ''), COALESCE(message, ''), created_at, updated_at,
		       COALESCE(completed_at, 0)
		FROM backtest_runs WHERE id = ?`, runID)
	return scanRun(row)
}

// ListRuns 按创建时间倒序返回最近的回测任务。
func (s *ResultStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, ticker, status, start_ts, end_ts, initial_capital, final_capital,
		       total_return, sharpe_ratio, max_drawdown, config_json,
		       COALESCE(stats_json, ''), COALESCE(message, ''), created_at, updated_at,
		       COALESCE(completed_at, 0)
		FROM backtest_runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, run)
	}
	return list, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var run Run
	var cfgJSON, statsJSON string
	var created, updated, completed int64
	if err := row.Scan(&run.ID, &run.Ticker, &run.Status, &run.StartTS, &run.EndTS,
		&run.InitialCapital, &run.FinalCapital, &run.TotalReturn, &run.SharpeRatio,
		&run.MaxDrawdown, &cfgJSON, &statsJSON, &run.Message,
		&created, &updated, &completed); err != nil {
		return Run{}, err
	}
	if cfgJSON != "" {
		_ = json.Unmarshal([]byte(cfgJSON), &run.Config)
	}
	if statsJSON != "" {
		_ = json.Unmarshal([]byte(statsJSON), &run.Stats)
	}
	run.CreatedAt = time.UnixMilli(created)
	run.UpdatedAt = time.UnixMilli(updated)
	if completed > 0 {
		run.CompletedAt = time.UnixMilli(completed)
	}
	return run, nil
}

// ListTrades 返回某次回测的交易流水（按发生顺序）。
func (s *ResultStore) ListTrades(ctx context.Context, runID string) ([]TradeRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT type, price, size, ts, COALESCE(reason, ''), COALESCE(profit_loss, 0)
		FROM backtest_trades WHERE run_id = ? ORDER BY id ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []TradeRecord
	for rows.Next() {
		var t TradeRecord
		if err := rows.Scan(&t.Type, &t.Price, &t.Size, &t.TS, &t.Reason, &t.ProfitLoss); err != nil {
			return nil, err
		}
		list = append(list, t)
	}
	return list, rows.Err()
}

// ListEquity 返回某次回测的资金曲线（按序号升序）。
func (s *ResultStore) ListEquity(ctx context.Context, runID string) ([]float64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT equity FROM backtest_equity WHERE run_id = ? ORDER BY seq ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []float64
	for rows.Next() {
		var v float64
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		list = append(list, v)
	}
	return list, rows.Err()
}
