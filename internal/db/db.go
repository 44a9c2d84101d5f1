package db

import (
	"github.com/pkg/errors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/johnmangawang-git/mci-delivery-tracker/config"
	"github.com/johnmangawang-git/mci-delivery-tracker/internal/models"
)

// Connect establishes the remote store connection and configures the pool.
func Connect(cfg config.DatabaseConfig) (*gorm.DB, error) {
	logLevel := gormlogger.Error
	if cfg.Debug {
		logLevel = gormlogger.Info
	}

	conn, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		Logger: gormlogger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to database")
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get underlying DB connection")
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	return conn, nil
}

// Migrate runs database migrations for all tracked entities.
func Migrate(conn *gorm.DB) error {
	return models.SetupModels(conn)
}

// IsRecordNotFoundError checks if an error is a record not found error.
func IsRecordNotFoundError(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
