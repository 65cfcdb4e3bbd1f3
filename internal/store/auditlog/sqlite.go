package auditlog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type tradeRecordModel struct {
	ID        string    `gorm:"primaryKey;size:36"`
	CreatedAt time.Time `gorm:"index"`
	Symbol    string    `gorm:"index;size:32"`
	Status    string    `gorm:"size:16"`
	Raw       datatypes.JSON
}

func (tradeRecordModel) TableName() string { return "trade_records" }

// SQLiteStore persists trade records locally using Gorm + SQLite.
type SQLiteStore struct {
	db *gorm.DB
}

// NewSQLiteStore opens (or creates) the audit database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("audit sqlite store requires path")
	}
	if err := ensureDir(path); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&tradeRecordModel{}); err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// SQLite + WAL: keep the writer pool tiny; one insert per request is the
	// only traffic.
	sqlDB.SetMaxOpenConns(2)
	sqlDB.SetMaxIdleConns(2)
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Insert(ctx context.Context, rec Record) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("audit sqlite store not initialized")
	}
	model := tradeRecordModel{
		ID:        rec.ID,
		CreatedAt: rec.CreatedAt,
		Symbol:    rec.Symbol,
		Status:    rec.Status,
		Raw:       datatypes.JSON(rec.Raw),
	}
	return s.db.WithContext(ctx).Create(&model).Error
}

// Recent returns the newest records up to limit. Used by tests and ad hoc
// inspection; the request path never reads.
func (s *SQLiteStore) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	var models []tradeRecordModel
	if err := s.db.WithContext(ctx).Order("created_at desc").Limit(limit).Find(&models).Error; err != nil {
		return nil, err
	}
	records := make([]Record, 0, len(models))
	for _, m := range models {
		records = append(records, Record{
			ID:        m.ID,
			CreatedAt: m.CreatedAt,
			Symbol:    m.Symbol,
			Status:    m.Status,
			Raw:       []byte(m.Raw),
		})
	}
	return records, nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
