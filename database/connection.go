package database

import (
	"fmt"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/guestvoice/guestvoice-backend/internal/config"
	"github.com/guestvoice/guestvoice-backend/internal/logger"
)

// GormConfig returns the GORM settings shared by every dialect
func GormConfig(debug bool) *gorm.Config {
	level := gormlogger.Warn
	if debug {
		level = gormlogger.Info
	}
	return &gorm.Config{
		Logger:         gormlogger.Default.LogMode(level),
		TranslateError: true,
		// call/request children reference string public IDs, not primary keys
		DisableForeignKeyConstraintWhenMigrating: true,
	}
}

// Connect opens the PostgreSQL pool described by cfg
func Connect(cfg config.DatabaseConfig, debug bool) (*gorm.DB, error) {
	if cfg.InstanceConnectionName != "" {
		logger.Info("Connecting to Cloud SQL via socket", zap.String("instance", cfg.InstanceConnectionName))
	} else {
		logger.Info("Connecting to PostgreSQL", zap.String("host", cfg.Host), zap.Int("port", cfg.Port))
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), GormConfig(debug))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	logger.Info("Database connected successfully")
	return db, nil
}

// Close releases the underlying connection pool
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
