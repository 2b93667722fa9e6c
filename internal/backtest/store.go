package backtest

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "modernc.org/sqlite"

	"tradewind/internal/market"
)

// BarStore 缓存各 ticker 的日线 K 线，避免同一区间反复拉取远端数据。
type BarStore struct {
	mu   sync.Mutex
	db   *sql.DB
	path string
}

func NewBarStore(root string) (*BarStore, error) {
	if root == "" {
		return nil, fmt.Errorf("data root cannot be empty")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	path := filepath.Join(root, "bars.db")
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if err := ensureBarSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &BarStore{db: db, path: path}, nil
}

func (s *BarStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func ensureBarSchema(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS bars (
		ticker TEXT NOT NULL,
		ts     INTEGER NOT NULL,
		open   REAL NOT NULL,
		high   REAL NOT NULL,
		low    REAL NOT NULL,
		close  REAL NOT NULL,
		volume REAL NOT NULL,
		PRIMARY KEY (ticker, ts)
	);`)
	return err
}

// InsertBars 批量写入 K 线，重复 (ticker, ts) 将被覆盖。
func (s *BarStore) InsertBars(ctx context.Context, ticker string, bars []market.Bar) (int, error) {
	if len(bars) == 0 {
		return 0, nil
	}
	ticker = strings.ToUpper(ticker)
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO bars (ticker, ts, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(ticker, ts) DO UPDATE SET
		    open=excluded.open,
		    high=excluded.high,
		    low=excluded.low,
		    close=excluded.close,
		    volume=excluded.volume`)
	if err != nil {
		_ = tx.Rollback()
		return 0, err
	}
	defer stmt.Close()
	count := 0
	for _, b := range bars {
		if _, err := stmt.ExecContext(ctx, ticker, b.TS, b.Open, b.High, b.Low, b.Close, b.Volume); err != nil {
			_ = tx.Rollback()
			return 0, err
		}
		count++
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return count, nil
}

// RangeBars 返回 start~end（闭区间，Unix 毫秒）内的全部 K 线，按时间升序。
func (s *BarStore) RangeBars(ctx context.Context, ticker string, start, end int64) ([]market.Bar, error) {
	if start > 0 && end > 0 && end < start {
		start, end = end, start
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT ts, open, high, low, close, volume
		FROM bars WHERE ticker = ? AND ts BETWEEN ? AND ?
		ORDER BY ts ASC`, strings.ToUpper(ticker), start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []market.Bar
	for rows.Next() {
		var b market.Bar
		if err := rows.Scan(&b.TS, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, err
		}
		list = append(list, b)
	}
	return list, rows.Err()
}

// CountBars 返回区间内已缓存的 K 线数量。
func (s *BarStore) CountBars(ctx context.Context, ticker string, start, end int64) (int64, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT COUNT(1) FROM bars WHERE ticker = ? AND ts BETWEEN ? AND ?`,
		strings.ToUpper(ticker), start, end)
	var n int64
	if err := row.Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
