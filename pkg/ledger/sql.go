package ledger

import (
	"context"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

const (
	// InMemoryDSN opens an ephemeral SQLite database.
	InMemoryDSN = ":memory:"

	dirPermissions = 0o750
)

var gormConfig = &gorm.Config{
	Logger: logger.Default.LogMode(logger.Silent),
}

// Consumption is one consumed ticket tag.
type Consumption struct {
	gorm.Model
	Tag string `gorm:"uniqueIndex;not null"` // hex encoded
}

// SQL is a Store persisted in SQLite.
type SQL struct {
	db *gorm.DB
}

// OpenSQL opens (or creates) the ledger database file at path.
func OpenSQL(path string) (*SQL, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, dirPermissions); err != nil {
			return nil, errors.Wrapf(err, "failed to create directory: %s", dir)
		}
	}
	dsn := path
	if !strings.Contains(dsn, "?") {
		dsn += "?_journal_mode=WAL&_busy_timeout=5000"
	}
	return openSQL(dsn)
}

// OpenInMemorySQL opens a ledger in an in-memory SQLite database.
func OpenInMemorySQL() (*SQL, error) {
	return openSQL(InMemoryDSN)
}

func openSQL(dsn string) (*SQL, error) {
	db, err := gorm.Open(sqlite.Open(dsn), gormConfig)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open SQLite database")
	}
	if err = db.AutoMigrate(&Consumption{}); err != nil {
		return nil, errors.Wrap(err, "failed to auto-migrate ledger schema")
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get underlying sql.DB")
	}
	// a single connection keeps the in-memory database alive and serializes writers
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)
	return &SQL{db: db}, nil
}

func (s *SQL) Consume(ctx context.Context, tag []byte) (bool, error) {
	rec := Consumption{Tag: hex.EncodeToString(tag)}
	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&rec)
	if result.Error != nil {
		return false, errors.Wrap(result.Error, "failed to record consumed tag")
	}
	return result.RowsAffected == 0, nil
}

// Count implements Store.
func (s *SQL) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&Consumption{}).Count(&count).Error; err != nil {
		return 0, errors.Wrap(err, "failed to count consumed tags")
	}
	return count, nil
}

func (s *SQL) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return errors.Wrap(err, "failed to retrieve native sql.DB")
	}
	if err = sqlDB.Close(); err != nil {
		return errors.Wrap(err, "failed to close database connection")
	}
	return nil
}
