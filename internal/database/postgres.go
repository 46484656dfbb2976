package database

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/noah-isme/gema-grading-api/internal/models"
)

const connMaxLifetime = 30 * time.Minute

// ConnectPostgres opens the grading database. Driver errors are translated so
// unique violations surface as gorm.ErrDuplicatedKey. maxConns bounds the
// pool; idle connections are capped at a quarter of it.
func ConnectPostgres(dsn string, maxConns int) (*gorm.DB, error) {
	if dsn == "" {
		return nil, errors.New("postgres dsn must not be empty")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("postgres pool: %w", err)
	}
	if maxConns > 0 {
		sqlDB.SetMaxOpenConns(maxConns)
		sqlDB.SetMaxIdleConns(max(1, maxConns/4))
	}
	sqlDB.SetConnMaxLifetime(connMaxLifetime)

	return db, nil
}

// Migrate creates or updates the grading schema.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("migrate grading schema: %w", err)
	}
	return nil
}
