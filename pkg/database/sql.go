package database

import (
	"fmt"
	"time"

	"support_chat_service/pkg/logger"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// NewPostgresDB create a gorm postgreSQL connection with retry
func NewPostgresDB(d Connection) (*gorm.DB, error) {
	return openWithRetry(postgres.Open(d.ConnectStr), d)
}

// NewSQLiteDB open an embedded sqlite database, path may be a file or a memory DSN
func NewSQLiteDB(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	// sqlite serialises writers, a single connection avoids SQLITE_BUSY
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	// sqlite 預設不檢查 foreign key
	if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("enable sqlite foreign keys: %w", err)
	}
	return db, nil
}

func openWithRetry(dialector gorm.Dialector, d Connection) (*gorm.DB, error) {
	var (
		db  *gorm.DB
		err error
	)
	attempts := d.RetryCount
	if attempts < 1 {
		attempts = 1
	}

	for i := 0; i < attempts; i++ {
		db, err = gorm.Open(dialector, &gorm.Config{
			Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
			TranslateError: true,
		})
		if err == nil {
			return db, nil
		}
		logger.Log.Warn("failed to connect to SQL database, retrying...",
			zap.Int("attempt", i+1),
			zap.Error(err),
		)
		time.Sleep(d.RetryInterval)
	}

	return nil, fmt.Errorf("failed to connect to SQL database after %d attempts: %w", attempts, err)
}

// CloseSQL close the pool under a gorm handle
func CloseSQL(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
