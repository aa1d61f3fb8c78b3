package storage

import (
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Database wraps the shared gorm handle. It is constructed once in main and
// injected into every component that touches persistence.
type Database struct {
	DB *gorm.DB
}

// Open connects to the sqlite database at path and migrates the schema.
func Open(path string) (*Database, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access connection pool: %w", err)
	}
	sqlDB.SetMaxOpenConns(1) // sqlite writes are single-writer
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)

	if err := Migrate(db); err != nil {
		return nil, err
	}

	return &Database{DB: db}, nil
}

// Migrate creates or updates all marketplace tables.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&User{},
		&Listing{},
		&Bookmark{},
		&Message{},
		&Payment{},
		&Transaction{},
		&Report{},
		&UserFlag{},
		&Notification{},
		&ActivityLog{},
		&RateLimit{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
