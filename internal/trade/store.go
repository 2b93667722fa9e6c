package trade

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// ErrDuplicate 表示相同指纹的决策已经入库。
var ErrDuplicate = errors.New("duplicate trade decision")

// Store 持久化实盘交易决策。
type Store struct {
	db *gorm.DB
}

// NewStore 打开（必要时创建）dir 下的 trades.db 并完成迁移。
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	path := filepath.Join(dir, "trades.db")
	db, err := gorm.Open(sqlite.Open(path+"?_busy_timeout=5000&_journal_mode=WAL"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&Decision{}); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Save 保存决策；指纹冲突返回 ErrDuplicate。
func (s *Store) Save(ctx context.Context, d *Decision) error {
	if d.Hash == "" {
		d.Hash = d.ContentHash()
	}
	err := s.db.WithContext(ctx).Create(d).Error
	if err != nil && errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}
	if err != nil {
		// sqlite 驱动在唯一索引冲突时未必映射到 gorm.ErrDuplicatedKey，
		// 再按指纹查一次确认。
		var existing Decision
		if s.db.WithContext(ctx).Where("hash = ?", d.Hash).First(&existing).Error == nil {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// Get 按 ID 读取决策。
func (s *Store) Get(ctx context.Context, id uint) (*Decision, error) {
	var d Decision
	if err := s.db.WithContext(ctx).First(&d, id).Error; err != nil {
		return nil, err
	}
	return &d, nil
}

// List 按时间倒序返回决策，ticker 为空时不过滤。
func (s *Store) List(ctx context.Context, ticker string, limit int) ([]Decision, error) {
	if limit <= 0 {
		limit = 100
	}
	q := s.db.WithContext(ctx).Order("ts DESC").Limit(limit)
	if ticker != "" {
		q = q.Where("ticker = ?", ticker)
	}
	var out []Decision
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// CountByAction 统计各动作的决策数量，供绩效汇总使用。
func (s *Store) CountByAction(ctx context.Context, ticker string) (map[string]int64, error) {
	type row struct {
		Action string
		N      int64
	}
	q := s.db.WithContext(ctx).Model(&Decision{}).Select("action, COUNT(*) AS n").Group("action")
	if ticker != "" {
		q = q.Where("ticker = ?", ticker)
	}
	var rows []row
	if err := q.Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.Action] = r.N
	}
	return out, nil
}
